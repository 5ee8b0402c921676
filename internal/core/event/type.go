package event

import (
	"fmt"
	"reflect"
	"sync"
)

// Type identifies a registered event type. Handler lists are keyed by Type,
// so dispatch never needs reflection once an event has been classified.
// Zero is never assigned.
type Type uint32

var registry = struct {
	mu    sync.RWMutex
	types map[reflect.Type]Type
	names []string
}{
	types: make(map[reflect.Type]Type, 64),
}

// TypeOf returns the Type for T, registering it on first use.
func TypeOf[T any]() Type {
	return typeFor(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeOfValue returns the Type of the dynamic type of v. It agrees with
// TypeOf for every non-interface T.
func TypeOfValue(v any) Type {
	if v == nil {
		return 0
	}
	return typeFor(reflect.TypeOf(v))
}

func typeFor(t reflect.Type) Type {
	registry.mu.RLock()
	id, ok := registry.types[t]
	registry.mu.RUnlock()
	if ok {
		return id
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if id, ok := registry.types[t]; ok {
		return id
	}
	registry.names = append(registry.names, t.String())
	id = Type(len(registry.names))
	registry.types[t] = id
	return id
}

func (t Type) String() string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if t == 0 || int(t) > len(registry.names) {
		return fmt.Sprintf("event.Type(%d)", uint32(t))
	}
	return registry.names[t-1]
}
