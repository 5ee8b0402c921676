package ecs

import "fmt"

const (
	entityIndexBits = 24
	entityGenBits   = 8
	entityIndexMask = 1<<entityIndexBits - 1
	entityGenMask   = 1<<entityGenBits - 1

	// MaxEntityIndex is the largest index an EntityID can carry.
	MaxEntityIndex = entityIndexMask
)

// EntityID packs a 1-based slot index in the lower 24 bits and an 8-bit
// generation in the upper bits. The generation is bumped every time a slot is
// released, so a stale id stops resolving once its slot is reused.
//
// Generations wrap after 256 reuses of the same slot, which means a handle
// held across that many reuses can alias a newer entity. Stale-handle
// detection is probabilistic, not absolute.
type EntityID uint32

func NewEntityID(index uint32, generation uint8) EntityID {
	return EntityID(uint32(generation)<<entityIndexBits | index&entityIndexMask)
}

func (id EntityID) Index() uint32     { return uint32(id) & entityIndexMask }
func (id EntityID) Generation() uint8 { return uint8(uint32(id) >> entityIndexBits) }
func (id EntityID) IsZero() bool      { return id == 0 }

// IncrementGeneration returns the id for the next occupant of the same slot.
func (id EntityID) IncrementGeneration() EntityID {
	return NewEntityID(id.Index(), uint8(nextGeneration(uint32(id.Generation()), entityGenMask)))
}

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

const (
	worldIndexBits = 4
	worldGenBits   = 4
	worldIndexMask = 1<<worldIndexBits - 1
	worldGenMask   = 1<<worldGenBits - 1
)

// WorldID packs a 4-bit index into the global world table and a 4-bit
// generation. Same recycling rules as EntityID.
type WorldID uint8

func NewWorldID(index, generation uint8) WorldID {
	return WorldID(generation<<worldIndexBits | index&worldIndexMask)
}

func (id WorldID) Index() uint8      { return uint8(id) & worldIndexMask }
func (id WorldID) Generation() uint8 { return uint8(id) >> worldIndexBits }
func (id WorldID) IsZero() bool      { return id == 0 }

func (id WorldID) IncrementGeneration() WorldID {
	return NewWorldID(id.Index(), uint8(nextGeneration(uint32(id.Generation()), worldGenMask)))
}

func (id WorldID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// nextGeneration wraps to zero instead of carrying into the index bits.
func nextGeneration(gen, max uint32) uint32 {
	if gen >= max {
		return 0
	}
	return gen + 1
}
