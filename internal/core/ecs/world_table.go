package ecs

import "sync"

// maxWorlds is the number of usable world slots; index 0 is the invalid id.
const maxWorlds = worldIndexMask

type worldSlot struct {
	id    WorldID
	world *World
}

// worldTable is the process-wide registry of live worlds. Entities hold a
// WorldID rather than a pointer, and resolve it here. Worlds may run on
// different goroutines, so the table is locked; a single world is not.
var worldTable = struct {
	mu    sync.RWMutex
	slots [maxWorlds]worldSlot
	free  []uint8
	used  uint8
}{}

func registerWorld(w *World) (WorldID, error) {
	worldTable.mu.Lock()
	defer worldTable.mu.Unlock()

	if n := len(worldTable.free); n > 0 {
		idx := worldTable.free[n-1]
		worldTable.free = worldTable.free[:n-1]
		slot := &worldTable.slots[idx-1]
		slot.world = w
		return slot.id, nil
	}
	if worldTable.used >= maxWorlds {
		return 0, ErrTooManyWorlds
	}
	worldTable.used++
	idx := worldTable.used
	id := NewWorldID(idx, 0)
	worldTable.slots[idx-1] = worldSlot{id: id, world: w}
	return id, nil
}

func releaseWorld(id WorldID) {
	worldTable.mu.Lock()
	defer worldTable.mu.Unlock()

	idx := id.Index()
	if idx == 0 || idx > worldTable.used {
		return
	}
	slot := &worldTable.slots[idx-1]
	if slot.id != id || slot.world == nil {
		return
	}
	slot.world = nil
	slot.id = slot.id.IncrementGeneration()
	worldTable.free = append(worldTable.free, idx)
}

// LookupWorld resolves a WorldID. It returns nil for stale or unknown ids.
func LookupWorld(id WorldID) *World {
	idx := id.Index()
	if idx == 0 {
		return nil
	}
	worldTable.mu.RLock()
	defer worldTable.mu.RUnlock()
	if idx > worldTable.used {
		return nil
	}
	slot := worldTable.slots[idx-1]
	if slot.id != id {
		return nil
	}
	return slot.world
}
