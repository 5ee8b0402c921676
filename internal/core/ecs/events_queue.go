package ecs

import (
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/event"
)

// queueTag records the category of each queued record. Draining walks the
// tag sequence, not the categories, so cross-category order is preserved:
// an add followed by a component change on the same entity is seen in that
// order.
type queueTag uint8

const (
	queueAdding queueTag = iota
	queueRemoving
	queueChanged
	queueActiveChanged
	queueEvent
)

type queuedEvent struct {
	target    EntityID // zero for broadcasts
	sample    *Sample  // set for sample notifications
	eventType event.Type
	event     any
	tags      []HashedString
}

// eventsQueue is one half of a world's double-buffered deferred queue.
// A buffer being drained never receives writes; the world always writes to
// the other half.
type eventsQueue struct {
	world *World

	tags          []queueTag
	adding        []*Entity
	removing      []*Entity
	changed       []*Entity
	activating    []*Entity
	events        []queuedEvent

	changedSet map[*Entity]struct{}
	activeSet  map[*Entity]struct{}

	processing bool
	destroying bool
}

func newEventsQueue(w *World) *eventsQueue {
	return &eventsQueue{
		world:      w,
		tags:       make([]queueTag, 0, 256),
		changedSet: make(map[*Entity]struct{}),
		activeSet:  make(map[*Entity]struct{}),
	}
}

func (q *eventsQueue) isEmpty() bool    { return len(q.tags) == 0 }
func (q *eventsQueue) pendingAdds() int { return len(q.adding) }

// open reports whether non-removal records may be queued.
func (q *eventsQueue) open() bool {
	return !q.destroying && q.world.open()
}

func (q *eventsQueue) addEntity(e *Entity) bool {
	if !q.open() {
		return false
	}
	q.adding = append(q.adding, e)
	q.tags = append(q.tags, queueAdding)
	return true
}

// removeEntity is accepted until the world is destroyed; teardown relies on it.
func (q *eventsQueue) removeEntity(e *Entity) bool {
	if q.world.state == StateDestroyed {
		return false
	}
	q.removing = append(q.removing, e)
	q.tags = append(q.tags, queueRemoving)
	return true
}

// entityChanged queues at most one record per entity per buffer.
func (q *eventsQueue) entityChanged(e *Entity) bool {
	if !q.open() {
		return false
	}
	if _, dup := q.changedSet[e]; dup {
		return true
	}
	q.changedSet[e] = struct{}{}
	q.changed = append(q.changed, e)
	q.tags = append(q.tags, queueChanged)
	return true
}

func (q *eventsQueue) activeChanged(e *Entity) bool {
	if !q.open() {
		return false
	}
	if _, dup := q.activeSet[e]; dup {
		return true
	}
	q.activeSet[e] = struct{}{}
	q.activating = append(q.activating, e)
	q.tags = append(q.tags, queueActiveChanged)
	return true
}

func (q *eventsQueue) sendEvent(target EntityID, ev any, tags []HashedString) bool {
	if target.IsZero() {
		return false
	}
	return q.pushEvent(queuedEvent{target: target, eventType: event.TypeOfValue(ev), event: ev, tags: tags})
}

func (q *eventsQueue) broadcastEvent(ev any, tags []HashedString) bool {
	return q.pushEvent(queuedEvent{eventType: event.TypeOfValue(ev), event: ev, tags: tags})
}

func (q *eventsQueue) sampleEvent(s *Sample, ev any) bool {
	return q.pushEvent(queuedEvent{sample: s, eventType: event.TypeOfValue(ev), event: ev})
}

func (q *eventsQueue) pushEvent(qe queuedEvent) bool {
	if !q.open() || qe.event == nil {
		return false
	}
	q.events = append(q.events, qe)
	q.tags = append(q.tags, queueEvent)
	return true
}

// pendingAdd finds an entity whose add is queued in this buffer.
func (q *eventsQueue) pendingAdd(id EntityID) *Entity {
	for _, e := range q.adding {
		if e.id == id && e.status == statusPendingAdd {
			return e
		}
	}
	return nil
}

// processEvents drains the buffer in tag order and clears it. Draining the
// same buffer again from inside a handler is a programmer error.
func (q *eventsQueue) processEvents() {
	if q.processing {
		panic(ErrReentrantDrain)
	}
	q.processing = true
	defer func() {
		q.processing = false
		q.clear()
	}()

	var ai, ri, ci, vi, ei int
	for i := 0; i < len(q.tags); i++ {
		switch q.tags[i] {
		case queueAdding:
			q.invokeAdding(q.adding[ai])
			ai++
		case queueRemoving:
			q.invokeRemoving(q.removing[ri])
			ri++
		case queueChanged:
			q.invokeChanged(q.changed[ci])
			ci++
		case queueActiveChanged:
			q.invokeActiveChanged(q.activating[vi])
			vi++
		case queueEvent:
			q.invokeEvent(q.events[ei])
			ei++
		}
	}
}

func (q *eventsQueue) invokeAdding(e *Entity) {
	w := q.world
	if e.status != statusPendingAdd || e.world != w.id {
		return
	}
	w.addEntityNow(e)
	w.processSamples(e)
	w.broadcastNow(event.TypeOf[EntityAddedEvent](), EntityAddedEvent{Entity: e})
}

func (q *eventsQueue) invokeRemoving(e *Entity) {
	w := q.world
	if e.status != statusLive || e.world != w.id {
		return
	}
	w.broadcastNow(event.TypeOf[EntityRemovedEvent](), EntityRemovedEvent{Entity: e})
	for _, s := range w.samples {
		s.dropEntity(e)
	}
	w.removeEntityNow(e)
}

func (q *eventsQueue) invokeChanged(e *Entity) {
	w := q.world
	if e.status != statusLive || e.removalQueued || e.world != w.id {
		return
	}
	e.refreshMask()
	w.processSamples(e)
	w.broadcastNow(event.TypeOf[ComponentsChangedEvent](), ComponentsChangedEvent{Entity: e})
}

func (q *eventsQueue) invokeActiveChanged(e *Entity) {
	w := q.world
	if e.status != statusLive || e.removalQueued || e.world != w.id {
		return
	}
	w.processSamples(e)
	w.broadcastNow(event.TypeOf[ActiveChangedEvent](), ActiveChangedEvent{Entity: e, Active: e.IsActive()})
}

func (q *eventsQueue) invokeEvent(qe queuedEvent) {
	w := q.world
	env := envelope{event: qe.event, sample: qe.sample}
	if !qe.target.IsZero() {
		env.target = w.GetEntity(qe.target)
		if env.target == nil {
			w.log.Debug("unicast target gone",
				zap.Stringer("entity", qe.target),
				zap.Stringer("event", qe.eventType),
			)
			return
		}
	}
	w.dispatch(qe.eventType, env, qe.tags)
}

// prepareForDestroy stops the buffer from accepting anything but removals,
// so teardown drains without re-enqueueing.
func (q *eventsQueue) prepareForDestroy() {
	q.destroying = true
}

func (q *eventsQueue) clear() {
	q.tags = q.tags[:0]
	q.adding = clearEntities(q.adding)
	q.removing = clearEntities(q.removing)
	q.changed = clearEntities(q.changed)
	q.activating = clearEntities(q.activating)
	clear(q.events)
	q.events = q.events[:0]
	clear(q.changedSet)
	clear(q.activeSet)
}

func clearEntities(s []*Entity) []*Entity {
	clear(s)
	return s[:0]
}
