package ecs

// Scene is a named, non-owning grouping of entities. Removing an entity from
// its world clears its scene.
type Scene struct {
	name     string
	entities map[*Entity]struct{}
}

func NewScene(name string) *Scene {
	return &Scene{name: name, entities: make(map[*Entity]struct{})}
}

func (s *Scene) Name() string { return s.name }
func (s *Scene) Len() int     { return len(s.entities) }

// Add moves e into s, taking it out of any previous scene.
func (s *Scene) Add(e *Entity) {
	if e.scene == s {
		return
	}
	if e.scene != nil {
		e.scene.Remove(e)
	}
	e.scene = s
	s.entities[e] = struct{}{}
}

func (s *Scene) Remove(e *Entity) {
	if e.scene != s {
		return
	}
	delete(s.entities, e)
	e.scene = nil
}

func (s *Scene) Contains(e *Entity) bool {
	_, ok := s.entities[e]
	return ok
}
