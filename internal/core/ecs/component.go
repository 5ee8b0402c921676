package ecs

import "go.uber.org/zap"

// AddComponent attaches c to e. A nil c attaches a zero value. An entity
// holds at most one component per type; adding a second one is a
// configuration error that is logged and rejected.
func AddComponent[T any](e *Entity, c *T) bool {
	id := ComponentIDOf[T]()
	if _, dup := e.components[id]; dup {
		if w := e.World(); w != nil {
			w.log.Error("duplicate component",
				zap.Stringer("entity", e.id),
				zap.String("component", ComponentName(id)),
			)
		}
		return false
	}
	if c == nil {
		c = new(T)
	}
	e.components[id] = c
	e.componentsChanged()
	return true
}

// GetComponent returns the component of type T attached to e.
func GetComponent[T any](e *Entity) (*T, bool) {
	c, ok := e.components[ComponentIDOf[T]()]
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

func HasComponent[T any](e *Entity) bool {
	return e.HasComponentID(ComponentIDOf[T]())
}

// RemoveComponent detaches the component of type T. It returns false if e has none.
func RemoveComponent[T any](e *Entity) bool {
	id := ComponentIDOf[T]()
	if _, ok := e.components[id]; !ok {
		return false
	}
	delete(e.components, id)
	e.componentsChanged()
	return true
}

func componentBit(id ComponentID) uint64 {
	return 1 << (uint32(id) % 64)
}
