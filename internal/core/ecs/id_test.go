package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityIDPacking(t *testing.T) {
	id := NewEntityID(0x123456, 0xAB)
	require.Equal(t, uint32(0x123456), id.Index())
	require.Equal(t, uint8(0xAB), id.Generation())
	require.False(t, id.IsZero())
	require.True(t, EntityID(0).IsZero())
	require.Equal(t, "1193046:171", id.String())
}

func TestEntityIDGenerationWrapsWithoutTouchingIndex(t *testing.T) {
	id := NewEntityID(MaxEntityIndex, 0)
	for i := 0; i < 255; i++ {
		id = id.IncrementGeneration()
	}
	require.Equal(t, uint8(255), id.Generation())

	id = id.IncrementGeneration()
	require.Equal(t, uint8(0), id.Generation())
	require.Equal(t, uint32(MaxEntityIndex), id.Index())
}

func TestWorldIDPacking(t *testing.T) {
	id := NewWorldID(7, 3)
	require.Equal(t, uint8(7), id.Index())
	require.Equal(t, uint8(3), id.Generation())

	id = NewWorldID(15, 15).IncrementGeneration()
	require.Equal(t, uint8(15), id.Index())
	require.Equal(t, uint8(0), id.Generation())
}
