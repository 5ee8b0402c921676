package system

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

// Manifest supplies per-system constraints.
type Manifest interface {
	Constraints() map[string]Constraints
}

// Runner installs systems into a world as handlers of the frame events and
// drives the world's frame pump.
type Runner struct {
	log         *zap.Logger
	systems     []System
	constraints map[string]Constraints

	world    *ecs.World
	handlers []*ecs.Handler
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		log:         log,
		systems:     make([]System, 0, 16),
		constraints: make(map[string]Constraints),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
}

// Systems returns the registered systems in registration order.
func (r *Runner) Systems() []System { return slices.Clone(r.systems) }

// Constrain overrides the ordering and tags of the system called name.
func (r *Runner) Constrain(name string, c Constraints) {
	r.constraints[name] = c
}

// ApplyManifest calls Constrain for every entry of m.
func (r *Runner) ApplyManifest(m Manifest) {
	for name, c := range m.Constraints() {
		r.Constrain(name, c)
	}
}

// Install attaches every registered system to w, phase by phase in
// registration order. It stops at the first system the world rejects and
// detaches the ones already attached.
func (r *Runner) Install(w *ecs.World) error {
	if r.world != nil {
		return fmt.Errorf("runner already installed in world %q", r.world.Name())
	}
	ordered := slices.Clone(r.systems)
	slices.SortStableFunc(ordered, func(a, b System) int { return int(r.phaseOf(a)) - int(r.phaseOf(b)) })

	handlers := make([]*ecs.Handler, 0, len(ordered))
	for _, s := range ordered {
		h, err := r.handlerFor(s)
		if err == nil {
			err = w.AddSystemHandler(h)
		}
		if err != nil {
			for _, installed := range handlers {
				w.RemoveSystemHandler(installed)
			}
			return fmt.Errorf("install system %q: %w", s.Name(), err)
		}
		handlers = append(handlers, h)
	}
	r.world = w
	r.handlers = handlers
	r.log.Info("systems installed",
		zap.String("world", w.Name()),
		zap.Int("count", len(handlers)),
		zap.Strings("pre_update", ecs.HandlerNames[ecs.PreUpdateEvent](w)),
		zap.Strings("update", ecs.HandlerNames[ecs.UpdateEvent](w)),
		zap.Strings("post_update", ecs.HandlerNames[ecs.PostUpdateEvent](w)),
	)
	return nil
}

// Uninstall detaches the runner's handlers from its world.
func (r *Runner) Uninstall() {
	if r.world == nil {
		return
	}
	for _, h := range r.handlers {
		r.world.RemoveSystemHandler(h)
	}
	r.world = nil
	r.handlers = nil
}

// Tick runs one frame of the installed world.
func (r *Runner) Tick(dt time.Duration) {
	if r.world == nil {
		return
	}
	r.world.Update(float32(dt.Seconds()))
}

// Order returns the solved execution order of phase p.
func (r *Runner) Order(p Phase) []string {
	if r.world == nil {
		return nil
	}
	switch p {
	case PhasePreUpdate:
		return ecs.HandlerNames[ecs.PreUpdateEvent](r.world)
	case PhasePostUpdate:
		return ecs.HandlerNames[ecs.PostUpdateEvent](r.world)
	default:
		return ecs.HandlerNames[ecs.UpdateEvent](r.world)
	}
}

func (r *Runner) phaseOf(s System) Phase {
	if c, ok := r.constraints[s.Name()]; ok && c.Phase != nil {
		return *c.Phase
	}
	return s.Phase()
}

func (r *Runner) handlerFor(s System) (*ecs.Handler, error) {
	var h *ecs.Handler
	phase := r.phaseOf(s)
	switch phase {
	case PhasePreUpdate:
		h = ecs.NewHandler(s.Name(), func(w *ecs.World, d ecs.Delivery[ecs.PreUpdateEvent]) {
			s.Update(w, d.Event.DeltaTime)
		})
	case PhaseUpdate:
		h = ecs.NewHandler(s.Name(), func(w *ecs.World, d ecs.Delivery[ecs.UpdateEvent]) {
			s.Update(w, d.Event.DeltaTime)
		})
	case PhasePostUpdate:
		h = ecs.NewHandler(s.Name(), func(w *ecs.World, d ecs.Delivery[ecs.PostUpdateEvent]) {
			s.Update(w, d.Event.DeltaTime)
		})
	default:
		return nil, fmt.Errorf("unknown phase %s", phase)
	}

	if c, ok := r.constraints[s.Name()]; ok {
		h.Before(c.Before...).After(c.After...).Tags(c.Tags...)
	} else if o, ok := s.(Ordered); ok {
		h.Before(o.Before()...).After(o.After()...)
	}
	return h, nil
}
