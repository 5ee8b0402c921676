package ecs

import (
	"fmt"
	"slices"

	"github.com/l1jgo/ecsengine/internal/core/event"
)

// Delivery is what a handler callback receives.
type Delivery[T any] struct {
	Event T
	// Target is the addressee of a unicast event, or nil for broadcasts.
	Target *Entity
	// Sample is the handler's own sample, or nil if it has no aspect.
	Sample *Sample
}

type envelope struct {
	event  any
	target *Entity
	sample *Sample
}

// Handler is a callback bound to one event type, an optional aspect, a tag
// set and named ordering constraints. Configure it before AddSystemHandler;
// an attached handler is immutable.
type Handler struct {
	name      string
	eventType event.Type
	tags      TagSet
	before    map[string]struct{}
	after     map[string]struct{}

	aspect *Aspect
	flags  SampleFlags
	sample *Sample

	invoke func(*World, envelope)
	world  WorldID
}

// NewHandler binds fn to events of type T under the given name. Names must
// be unique per event type within a world; ordering constraints refer to them.
func NewHandler[T any](name string, fn func(*World, Delivery[T])) *Handler {
	return &Handler{
		name:      name,
		eventType: event.TypeOf[T](),
		tags:      make(TagSet),
		before:    make(map[string]struct{}),
		after:     make(map[string]struct{}),
		invoke: func(w *World, env envelope) {
			fn(w, Delivery[T]{Event: env.event.(T), Target: env.target, Sample: env.sample})
		},
	}
}

// Before requires h to run before the named handlers.
func (h *Handler) Before(names ...string) *Handler {
	h.mustBeDetached()
	for _, n := range names {
		h.before[n] = struct{}{}
	}
	return h
}

// After requires h to run after the named handlers.
func (h *Handler) After(names ...string) *Handler {
	h.mustBeDetached()
	for _, n := range names {
		h.after[n] = struct{}{}
	}
	return h
}

func (h *Handler) Tags(tags ...string) *Handler {
	h.mustBeDetached()
	for _, t := range tags {
		h.tags.Add(Hash(t))
	}
	return h
}

// WithAspect binds h to the world's common sample for a. Unicast events only
// reach h when the target is a member, and sample notifications only reach h
// for its own sample.
func (h *Handler) WithAspect(a Aspect, flags SampleFlags) *Handler {
	h.mustBeDetached()
	h.aspect = &a
	h.flags = flags
	return h
}

func (h *Handler) Name() string           { return h.name }
func (h *Handler) EventType() event.Type  { return h.eventType }
func (h *Handler) Sample() *Sample        { return h.sample }
func (h *Handler) Attached() bool         { return !h.world.IsZero() }
func (h *Handler) HasTag(tag string) bool { return h.tags.Has(Hash(tag)) }

// BeforeNames returns the sorted names h must precede.
func (h *Handler) BeforeNames() []string { return sortedNames(h.before) }

// AfterNames returns the sorted names h must follow.
func (h *Handler) AfterNames() []string { return sortedNames(h.after) }

func (h *Handler) String() string {
	return fmt.Sprintf("%s(%s)", h.name, h.eventType)
}

func (h *Handler) mustBeDetached() {
	if h.Attached() {
		panic(fmt.Sprintf("ecs: handler %q modified while attached", h.name))
	}
}

// accepts applies the dispatch rules for one queued or immediate event.
func (h *Handler) accepts(env envelope, tags []HashedString) bool {
	if len(tags) > 0 && !h.tags.HasAll(tags) {
		return false
	}
	if env.sample != nil {
		return h.sample == env.sample
	}
	if env.target != nil && h.sample != nil {
		return h.sample.Contains(env.target.id)
	}
	return true
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
