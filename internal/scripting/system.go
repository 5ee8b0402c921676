package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
	"github.com/l1jgo/ecsengine/internal/core/system"
)

// System is a system declared by a script through ecs.system. It satisfies
// system.System and system.Ordered.
type System struct {
	engine *Engine
	name   string
	phase  system.Phase
	before []string
	after  []string
	update *lua.LFunction
	errors int
}

func (s *System) Name() string        { return s.name }
func (s *System) Phase() system.Phase { return s.phase }
func (s *System) Before() []string    { return s.before }
func (s *System) After() []string     { return s.after }

// Errors returns how many update calls raised a Lua error.
func (s *System) Errors() int { return s.errors }

func (s *System) Update(w *ecs.World, dt float32) {
	s.engine.call(s, w, dt)
}
