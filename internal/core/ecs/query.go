package ecs

// Each1 iterates the members of s that carry component A.
func Each1[A any](s *Sample, fn func(*Entity, *A)) {
	idA := ComponentIDOf[A]()
	s.Each(func(e *Entity) {
		if a, ok := e.components[idA]; ok {
			fn(e, a.(*A))
		}
	})
}

// Each2 iterates the members of s that carry both A and B. For a HaveAll
// sample over A and B that is every member.
func Each2[A, B any](s *Sample, fn func(*Entity, *A, *B)) {
	idA, idB := ComponentIDOf[A](), ComponentIDOf[B]()
	s.Each(func(e *Entity) {
		a, okA := e.components[idA]
		b, okB := e.components[idB]
		if okA && okB {
			fn(e, a.(*A), b.(*B))
		}
	})
}

// Each3 iterates the members of s that carry A, B and C.
func Each3[A, B, C any](s *Sample, fn func(*Entity, *A, *B, *C)) {
	idA, idB, idC := ComponentIDOf[A](), ComponentIDOf[B](), ComponentIDOf[C]()
	s.Each(func(e *Entity) {
		a, okA := e.components[idA]
		b, okB := e.components[idB]
		c, okC := e.components[idC]
		if okA && okB && okC {
			fn(e, a.(*A), b.(*B), c.(*C))
		}
	})
}
