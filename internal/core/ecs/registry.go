package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// ComponentID identifies a component type. Ids are assigned in order of first
// use and are shared by every world in the process.
type ComponentID uint32

// componentRegistry maps Go types to component ids.
var componentRegistry = struct {
	mu    sync.RWMutex
	ids   map[reflect.Type]ComponentID
	types []reflect.Type
}{
	ids: make(map[reflect.Type]ComponentID, 64),
}

// ComponentIDOf returns the id for component type T, registering it on first use.
func ComponentIDOf[T any]() ComponentID {
	t := reflect.TypeOf((*T)(nil)).Elem()

	componentRegistry.mu.RLock()
	id, ok := componentRegistry.ids[t]
	componentRegistry.mu.RUnlock()
	if ok {
		return id
	}

	componentRegistry.mu.Lock()
	defer componentRegistry.mu.Unlock()
	if id, ok := componentRegistry.ids[t]; ok {
		return id
	}
	id = ComponentID(len(componentRegistry.types))
	componentRegistry.ids[t] = id
	componentRegistry.types = append(componentRegistry.types, t)
	return id
}

// ComponentName returns the Go type name registered under id.
func ComponentName(id ComponentID) string {
	componentRegistry.mu.RLock()
	defer componentRegistry.mu.RUnlock()
	if int(id) >= len(componentRegistry.types) {
		return fmt.Sprintf("component(%d)", uint32(id))
	}
	return componentRegistry.types[id].String()
}
