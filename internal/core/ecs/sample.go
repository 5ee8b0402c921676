package ecs

import "strconv"

// SampleFlags tune which entities a Sample tracks.
type SampleFlags uint8

const (
	// SampleIncludeInactive keeps inactive entities in the sample.
	SampleIncludeInactive SampleFlags = 1 << iota
)

// Sample is a live set of entities matching an Aspect. The world keeps one
// reference; every handler or caller using the sample holds another. Once
// the world is the only owner left, the sample is pruned at the end of the
// next update.
//
// Membership only changes while the world drains its events queue. Changes
// that arrive while Each is running are deferred until it returns.
type Sample struct {
	world  *World
	aspect Aspect
	flags  SampleFlags
	refs   int

	entities []*Entity
	index    map[EntityID]int

	locks   int
	delayed []delayedOp
}

type delayedOp struct {
	entity *Entity
	id     EntityID
	add    bool
}

func newSample(w *World, a Aspect, flags SampleFlags) *Sample {
	return &Sample{
		world:  w,
		aspect: a,
		flags:  flags,
		refs:   1,
		index:  make(map[EntityID]int, 64),
	}
}

func sampleKey(a Aspect, flags SampleFlags) string {
	return a.Key() + "/" + strconv.Itoa(int(flags))
}

func (s *Sample) Aspect() Aspect     { return s.aspect }
func (s *Sample) Flags() SampleFlags { return s.flags }
func (s *Sample) Len() int           { return len(s.entities) }
func (s *Sample) RefCount() int      { return s.refs }

// Contains reports whether the entity with id is currently a member.
func (s *Sample) Contains(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

// Entities returns a snapshot of the members in insertion order.
func (s *Sample) Entities() []*Entity {
	out := make([]*Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Each calls fn for every member. Nested calls are allowed. Membership
// changes made while an iteration runs, such as a World.Update called from
// fn, are applied once the outermost Each returns.
func (s *Sample) Each(fn func(*Entity)) {
	s.locks++
	defer s.unlock()
	for i := 0; i < len(s.entities); i++ {
		fn(s.entities[i])
	}
}

func (s *Sample) unlock() {
	s.locks--
	if s.locks > 0 {
		return
	}
	ops := s.delayed
	s.delayed = nil
	for _, op := range ops {
		if op.add {
			s.insert(op.entity)
		} else {
			s.erase(op.id)
		}
	}
}

// Retain adds a reference.
func (s *Sample) Retain() { s.refs++ }

// Release drops a reference taken by RequestSample or Retain.
func (s *Sample) Release() {
	if s.refs > 1 {
		s.refs--
	}
}

func (s *Sample) matches(e *Entity) bool {
	if e.status != statusLive || e.removalQueued {
		return false
	}
	if s.flags&SampleIncludeInactive == 0 && !e.IsActive() {
		return false
	}
	return s.aspect.HasIntersection(e)
}

// processEntity re-evaluates membership of e and, when it changes, queues
// the matching sample notification. Notifications are never synchronous.
func (s *Sample) processEntity(e *Entity) {
	want := s.matches(e)
	if want == s.member(e) {
		return
	}
	s.apply(e, want)
}

// dropEntity removes e regardless of whether it still matches.
func (s *Sample) dropEntity(e *Entity) {
	if !s.member(e) {
		return
	}
	s.apply(e, false)
}

// populate fills a fresh sample without notifications.
func (s *Sample) populate(e *Entity) {
	if s.matches(e) {
		s.insert(e)
	}
}

func (s *Sample) apply(e *Entity, add bool) {
	if s.locks > 0 {
		s.delayed = append(s.delayed, delayedOp{entity: e, id: e.id, add: add})
	} else if add {
		s.insert(e)
	} else {
		s.erase(e.id)
	}
	if add {
		s.world.queue().sampleEvent(s, EntityAddedToSampleEvent{Entity: e, ID: e.id, Sample: s})
	} else {
		s.world.queue().sampleEvent(s, EntityRemovedFromSampleEvent{Entity: e, ID: e.id, Sample: s})
	}
}

// member is the membership of e once deferred ops have been applied.
func (s *Sample) member(e *Entity) bool {
	for i := len(s.delayed) - 1; i >= 0; i-- {
		if s.delayed[i].entity == e {
			return s.delayed[i].add
		}
	}
	return s.Contains(e.id)
}

func (s *Sample) insert(e *Entity) {
	if _, ok := s.index[e.id]; ok {
		return
	}
	s.index[e.id] = len(s.entities)
	s.entities = append(s.entities, e)
}

// erase keeps insertion order so iteration stays deterministic.
func (s *Sample) erase(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	copy(s.entities[i:], s.entities[i+1:])
	s.entities[len(s.entities)-1] = nil
	s.entities = s.entities[:len(s.entities)-1]
	for j := i; j < len(s.entities); j++ {
		s.index[s.entities[j].id] = j
	}
}
