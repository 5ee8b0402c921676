package system

import (
	"fmt"
	"strings"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

// Phase selects the frame event a system runs on.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: consume last frame's input and events
	PhaseUpdate                  // 1: game logic
	PhasePostUpdate              // 2: bookkeeping after logic has run
)

func (p Phase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ParsePhase accepts the names used in manifests and scripts. An empty
// string means PhaseUpdate.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "update":
		return PhaseUpdate, nil
	case "pre_update", "preupdate", "pre":
		return PhasePreUpdate, nil
	case "post_update", "postupdate", "post":
		return PhasePostUpdate, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// System is the interface every ECS system implements.
type System interface {
	Name() string
	Phase() Phase
	Update(w *ecs.World, dt float32)
}

// Ordered is implemented by systems that declare their own ordering.
type Ordered interface {
	Before() []string
	After() []string
}

// Constraints are settings applied to a system by name, usually from the
// system manifest. Ordering replaces whatever the system declares itself;
// a nil Phase keeps the system's own.
type Constraints struct {
	Phase  *Phase
	Before []string
	After  []string
	Tags   []string
}

// Func adapts a plain function to System.
func Func(name string, phase Phase, fn func(w *ecs.World, dt float32)) System {
	return funcSystem{name: name, phase: phase, fn: fn}
}

type funcSystem struct {
	name  string
	phase Phase
	fn    func(*ecs.World, float32)
}

func (f funcSystem) Name() string                    { return f.name }
func (f funcSystem) Phase() Phase                    { return f.phase }
func (f funcSystem) Update(w *ecs.World, dt float32) { f.fn(w, dt) }
