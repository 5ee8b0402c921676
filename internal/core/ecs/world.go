package ecs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/event"
)

// State is the world's lifecycle. Transitions are one-way.
type State uint8

const (
	StateActive State = iota
	StatePreparingToDestroy
	StateDestroying
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StatePreparingToDestroy:
		return "PreparingToDestroy"
	case StateDestroying:
		return "Destroying"
	case StateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// PumpState tells whether the world is draining a queue buffer.
type PumpState uint8

const (
	PumpIdle PumpState = iota
	PumpDraining
)

// DefaultTeardownIterationLimit bounds each teardown drain loop.
const DefaultTeardownIterationLimit = 1024

type Options struct {
	Name   string
	Logger *zap.Logger
	// Input, if set, is subscribed for the world's lifetime; every event is
	// re-broadcast through the deferred queue.
	Input InputSource
	// TeardownIterationLimit caps the drain loops in Destroy. A handler
	// that keeps adding entities during teardown would otherwise never let
	// it finish.
	TeardownIterationLimit int
	EntityCapacity         int
}

type entityData struct {
	id     EntityID
	entity *Entity
}

// World owns its entities, samples and handler lists, and drives the frame
// pump. All mutation must happen on the goroutine that calls Update; the
// deferred queue exists so handlers can mutate the world mid-iteration, not
// for multi-threading.
type World struct {
	id       WorldID
	name     string
	instance string
	log      *zap.Logger

	state    State
	pump     PumpState
	updating bool
	frame    uint64

	// entities[i].id.Index() == i+1 at all times.
	entities     []entityData
	freeIndices  []uint32
	newEntityIDs int // ids issued but not yet materialized in entities
	liveCount    int

	queues *event.Switchable[*eventsQueue]

	samples     []*Sample
	sampleIndex map[string]*Sample

	handlers map[event.Type][]*Handler

	unsubscribeInput func()
	teardownLimit    int
}

func NewWorld(opts Options) (*World, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := opts.TeardownIterationLimit
	if limit <= 0 {
		limit = DefaultTeardownIterationLimit
	}
	capacity := opts.EntityCapacity
	if capacity <= 0 {
		capacity = 1024
	}

	w := &World{
		name:          opts.Name,
		instance:      uuid.NewString(),
		entities:      make([]entityData, 0, capacity),
		freeIndices:   make([]uint32, 0, 256),
		sampleIndex:   make(map[string]*Sample),
		handlers:      make(map[event.Type][]*Handler),
		teardownLimit: limit,
	}
	w.queues = event.NewSwitchable(newEventsQueue(w), newEventsQueue(w))

	id, err := registerWorld(w)
	if err != nil {
		return nil, fmt.Errorf("register world %q: %w", opts.Name, err)
	}
	w.id = id
	w.log = log.With(
		zap.String("world", opts.Name),
		zap.String("world_instance", w.instance),
		zap.Stringer("world_id", id),
	)
	if opts.Input != nil {
		w.unsubscribeInput = opts.Input.Subscribe(w.forwardInput)
	}
	w.log.Debug("world created")
	return w, nil
}

func (w *World) ID() WorldID          { return w.id }
func (w *World) Name() string         { return w.name }
func (w *World) Instance() string     { return w.instance }
func (w *World) State() State         { return w.state }
func (w *World) PumpState() PumpState { return w.pump }
func (w *World) Frame() uint64        { return w.frame }
func (w *World) Logger() *zap.Logger  { return w.log }

// EntityCount returns the number of materialized entities.
func (w *World) EntityCount() int { return w.liveCount }

// SampleCount returns the number of samples the world currently tracks.
func (w *World) SampleCount() int { return len(w.samples) }

// open reports whether the world accepts mutations. PreparingToDestroy is
// still open: it is the phase that lets pending work settle.
func (w *World) open() bool {
	return w.state == StateActive || w.state == StatePreparingToDestroy
}

func (w *World) queue() *eventsQueue { return w.queues.Current() }

// CreateEntity creates an entity and queues its addition. It returns nil if
// the world does not accept new entities.
func (w *World) CreateEntity() *Entity {
	e := NewEntity()
	if !w.AddEntity(e) {
		return nil
	}
	return e
}

// AddEntity issues an id for e and every detached descendant and queues
// their addition. The entity becomes visible to samples and handlers at the
// next drain.
func (w *World) AddEntity(e *Entity) bool {
	if e == nil || !w.open() || e.status != statusDetached {
		return false
	}
	for _, n := range e.subtree() {
		if n.status != statusDetached {
			continue
		}
		id := w.generateNewEntityID()
		if id.IsZero() {
			w.log.Error("entity table full", zap.Int("max_index", MaxEntityIndex))
			return false
		}
		n.id = id
		n.world = w.id
		n.status = statusPendingAdd
		n.removalQueued = false
		w.queue().addEntity(n)
	}
	return true
}

// RemoveEntity queues removal of e and its descendants.
func (w *World) RemoveEntity(e *Entity) bool {
	if e == nil || !w.open() {
		return false
	}
	return w.enqueueRemoval(e)
}

func (w *World) enqueueRemoval(e *Entity) bool {
	if e.world != w.id || e.status == statusDetached || e.removalQueued {
		return false
	}
	for _, n := range e.subtree() {
		if n.world != w.id || n.status == statusDetached || n.removalQueued {
			continue
		}
		n.removalQueued = true
		w.queue().removeEntity(n)
	}
	return true
}

// GetEntity resolves id. Entities whose add is still queued are found too;
// stale ids return nil.
func (w *World) GetEntity(id EntityID) *Entity {
	if id.IsZero() {
		return nil
	}
	if idx := int(id.Index()); idx >= 1 && idx <= len(w.entities) {
		d := w.entities[idx-1]
		if d.entity != nil && d.id == id {
			return d.entity
		}
	}
	if e := w.queues.Current().pendingAdd(id); e != nil {
		return e
	}
	return w.queues.Other().pendingAdd(id)
}

// EachEntity calls fn for every materialized entity in index order.
func (w *World) EachEntity(fn func(*Entity)) {
	for _, d := range w.entities {
		if d.entity != nil {
			fn(d.entity)
		}
	}
}

// generateNewEntityID pops a recycled index, whose generation was bumped
// when it was freed, or issues the next index past every issued id.
func (w *World) generateNewEntityID() EntityID {
	if n := len(w.freeIndices); n > 0 {
		idx := w.freeIndices[n-1]
		w.freeIndices = w.freeIndices[:n-1]
		return w.entities[idx-1].id
	}
	next := len(w.entities) + w.newEntityIDs + 1
	if next > MaxEntityIndex {
		return 0
	}
	w.newEntityIDs++
	return NewEntityID(uint32(next), 0)
}

// addEntityNow materializes e in the table, growing it lazily.
func (w *World) addEntityNow(e *Entity) {
	idx := int(e.id.Index())
	for len(w.entities) < idx {
		w.entities = append(w.entities, entityData{id: NewEntityID(uint32(len(w.entities)+1), 0)})
		w.newEntityIDs--
	}
	w.entities[idx-1] = entityData{id: e.id, entity: e}
	e.status = statusLive
	w.liveCount++
}

// removeEntityNow frees e's slot and detaches it: components first, then
// scene, then the world binding.
func (w *World) removeEntityNow(e *Entity) {
	idx := e.id.Index()
	slot := &w.entities[idx-1]
	slot.entity = nil
	slot.id = slot.id.IncrementGeneration()
	w.freeIndices = append(w.freeIndices, idx)
	w.liveCount--

	e.detachComponents()
	if e.scene != nil {
		e.scene.Remove(e)
	}
	// A parent that leaves together with e keeps the link, so the subtree
	// can be re-added as a whole.
	if p := e.parent; p != nil && p.status == statusLive && !p.removalQueued {
		e.SetParent(nil)
	}
	e.status = statusDetached
	e.removalQueued = false
	e.world = 0
	e.id = 0
}

func (w *World) processSamples(e *Entity) {
	for _, s := range w.samples {
		s.processEntity(e)
	}
}

// SendEvent queues ev for handlers relevant to the entity with id.
func (w *World) SendEvent(id EntityID, ev any) bool {
	if !w.open() {
		return false
	}
	return w.queue().sendEvent(id, ev, nil)
}

// BroadcastEvent queues ev for every handler of its type.
func (w *World) BroadcastEvent(ev any) bool {
	if !w.open() {
		return false
	}
	return w.queue().broadcastEvent(ev, nil)
}

// BroadcastTagged queues ev for handlers carrying every one of tags.
func (w *World) BroadcastTagged(ev any, tags ...string) bool {
	if !w.open() {
		return false
	}
	hashed := make([]HashedString, len(tags))
	for i, t := range tags {
		hashed[i] = Hash(t)
	}
	return w.queue().broadcastEvent(ev, hashed)
}

func (w *World) forwardInput(ev InputEvent) {
	w.BroadcastEvent(ev)
}

// RequestSample returns the world's common sample for (a, flags), creating
// and populating it on first request. The caller owns one reference and
// must Release it.
func (w *World) RequestSample(a Aspect, flags SampleFlags) *Sample {
	if !w.open() {
		return nil
	}
	key := sampleKey(a, flags)
	if s, ok := w.sampleIndex[key]; ok {
		s.refs++
		return s
	}
	s := newSample(w, a, flags)
	w.EachEntity(s.populate)
	w.samples = append(w.samples, s)
	w.sampleIndex[key] = s
	s.refs++
	return s
}

// pruneSamples drops samples that only the world still references.
func (w *World) pruneSamples() {
	kept := w.samples[:0]
	for _, s := range w.samples {
		if s.refs <= 1 {
			delete(w.sampleIndex, sampleKey(s.aspect, s.flags))
			continue
		}
		kept = append(kept, s)
	}
	clear(w.samples[len(kept):])
	w.samples = kept
}

// AddSystemHandler attaches h to the handler list of its event type at the
// position its ordering constraints require. A contradictory configuration
// is logged with the full handler order and returned as an
// *OrderConflictError; treat it as a startup defect.
func (w *World) AddSystemHandler(h *Handler) error {
	if w.state != StateActive {
		return ErrWorldNotActive
	}
	if h.Attached() {
		return fmt.Errorf("add handler %q: %w", h.name, ErrHandlerAttached)
	}
	if h.aspect != nil {
		h.sample = w.RequestSample(*h.aspect, h.flags)
	}

	list, err := addHandler(w.handlers[h.eventType], h)
	if err != nil {
		if h.sample != nil {
			h.sample.Release()
			h.sample = nil
		}
		var conflict *OrderConflictError
		if errors.As(err, &conflict) {
			w.log.Error("handler ordering conflict",
				zap.String("handler", conflict.Handler),
				zap.Stringer("event", h.eventType),
				zap.Strings("order", conflict.Handlers),
				zap.String("after", conflict.After),
				zap.String("before", conflict.Before),
			)
		} else {
			w.log.Error("handler rejected", zap.String("handler", h.name), zap.Error(err))
		}
		return fmt.Errorf("add handler %q: %w", h.name, err)
	}

	w.handlers[h.eventType] = list
	h.world = w.id
	w.log.Debug("handler attached",
		zap.String("handler", h.name),
		zap.Stringer("event", h.eventType),
		zap.Int("position", slices.Index(list, h)),
	)
	return nil
}

// RemoveSystemHandler detaches h and releases its sample.
func (w *World) RemoveSystemHandler(h *Handler) bool {
	if h == nil || h.world != w.id {
		return false
	}
	list, ok := removeHandler(w.handlers[h.eventType], h)
	if !ok {
		return false
	}
	w.handlers[h.eventType] = list
	h.world = 0
	if h.sample != nil {
		h.sample.Release()
		h.sample = nil
	}
	return true
}

// HandlerOrder returns handler names for t in execution order.
func (w *World) HandlerOrder(t event.Type) []string {
	list := w.handlers[t]
	names := make([]string, len(list))
	for i, h := range list {
		names[i] = h.name
	}
	return names
}

// HandlerNames returns handler names for event type T in execution order.
func HandlerNames[T any](w *World) []string {
	return w.HandlerOrder(event.TypeOf[T]())
}

// dispatch delivers env to the handlers of t in solved order. The list is
// copy-on-write, so handlers may attach or detach handlers mid-dispatch;
// a detached handler is skipped.
func (w *World) dispatch(t event.Type, env envelope, tags []HashedString) {
	for _, h := range w.handlers[t] {
		if h.world != w.id || !h.accepts(env, tags) {
			continue
		}
		h.invoke(w, envelope{event: env.event, target: env.target, sample: h.sample})
	}
}

func (w *World) broadcastNow(t event.Type, ev any) {
	w.dispatch(t, envelope{event: ev}, nil)
}

// Update runs one frame:
//
//  1. swap buffers if the other buffer is empty,
//  2. drain the other buffer,
//  3. broadcast PreUpdate, Update and PostUpdate synchronously,
//  4. prune samples only the world still owns,
//  5. advance the frame counter.
//
// The swap happens before the drain and is conditioned on the other buffer,
// not the current one, so a buffer that still holds records is drained
// before new writes are rotated in. Calling Update from a handler panics.
func (w *World) Update(dt float32) {
	if w.updating {
		panic(ErrReentrantUpdate)
	}
	if w.state != StateActive {
		return
	}
	w.updating = true
	defer func() { w.updating = false }()

	w.flush()

	w.broadcastNow(event.TypeOf[PreUpdateEvent](), PreUpdateEvent{DeltaTime: dt})
	w.broadcastNow(event.TypeOf[UpdateEvent](), UpdateEvent{DeltaTime: dt})
	w.broadcastNow(event.TypeOf[PostUpdateEvent](), PostUpdateEvent{DeltaTime: dt})

	w.pruneSamples()
	w.frame++
}

// flush performs one swap-then-drain step.
func (w *World) flush() {
	if w.queues.Other().isEmpty() {
		w.queues.Switch()
	}
	w.pump = PumpDraining
	defer func() { w.pump = PumpIdle }()
	w.queues.Other().processEvents()
}

func (w *World) pendingAdds() int {
	return w.queues.Current().pendingAdds() + w.queues.Other().pendingAdds()
}

func (w *World) queuesEmpty() bool {
	return w.queues.Current().isEmpty() && w.queues.Other().isEmpty()
}

// Destroy tears the world down:
//
//   - PreparingToDestroy: drain until neither buffer has pending adds;
//   - Destroying: queue removal of every live entity and drain both buffers,
//     repeating until none is left;
//   - Destroyed: detach handlers and release the world id.
//
// Each loop is capped at Options.TeardownIterationLimit; an overrun is
// logged and teardown proceeds.
func (w *World) Destroy() {
	if w.updating {
		panic(fmt.Errorf("destroy during update: %w", ErrReentrantUpdate))
	}
	if w.state != StateActive {
		return
	}
	w.state = StatePreparingToDestroy
	if w.unsubscribeInput != nil {
		w.unsubscribeInput()
		w.unsubscribeInput = nil
	}

	for i := 0; w.pendingAdds() > 0; i++ {
		if i >= w.teardownLimit {
			w.log.Error("teardown drain did not settle",
				zap.Int("iterations", i),
				zap.Int("pending_adds", w.pendingAdds()),
			)
			break
		}
		w.flush()
	}

	w.state = StateDestroying
	w.queues.Each((*eventsQueue).prepareForDestroy)
	for i := 0; w.liveCount > 0 || !w.queuesEmpty(); i++ {
		if i >= w.teardownLimit {
			w.log.Error("teardown removal did not settle",
				zap.Int("iterations", i),
				zap.Int("live", w.liveCount),
			)
			break
		}
		w.EachEntity(func(e *Entity) { w.enqueueRemoval(e) })
		w.flush()
		w.flush()
	}

	w.state = StateDestroyed
	for t, list := range w.handlers {
		for _, h := range list {
			h.world = 0
			h.sample = nil
		}
		delete(w.handlers, t)
	}
	w.samples = nil
	clear(w.sampleIndex)
	w.queues.Each((*eventsQueue).clear)
	releaseWorld(w.id)
	w.log.Debug("world destroyed", zap.Uint64("frames", w.frame))
}
