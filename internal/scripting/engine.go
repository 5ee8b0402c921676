package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

// ErrNotAttached is raised into Lua when a script touches the world before
// the engine is attached to one.
var ErrNotAttached = errors.New("scripting: engine not attached to a world")

// Engine wraps a single gopher-lua VM hosting scripted systems for one world.
// Single-goroutine access only: the VM is driven from the world's Update.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	systems   []*System
	listeners map[string][]*lua.LFunction
	loaded    map[string]bool

	world   *ecs.World
	handler *ecs.Handler
	data    *ecs.Sample
}

// NewEngine creates a Lua VM with the ecs module installed as a global and
// as require("ecs").
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:        vm,
		log:       log,
		listeners: make(map[string][]*lua.LFunction),
		loaded:    make(map[string]bool),
	}
	mod := vm.SetFuncs(vm.NewTable(), e.exports())
	vm.SetGlobal("ecs", mod)
	vm.PreloadModule("ecs", func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
	return e
}

// Close detaches the engine and shuts the VM down.
func (e *Engine) Close() {
	e.Detach()
	e.vm.Close()
}

// LoadDir loads all .lua files in a directory. A missing directory is not
// an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile runs a script once; loading the same path again is a no-op.
func (e *Engine) LoadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if e.loaded[abs] {
		return nil
	}
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.loaded[abs] = true
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs src as a chunk called name.
func (e *Engine) LoadString(name, src string) error {
	fn, err := e.vm.LoadString(src)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	e.log.Debug("loaded lua chunk", zap.String("chunk", name))
	return nil
}

// Systems returns the systems scripts have declared, in declaration order.
func (e *Engine) Systems() []*System {
	out := make([]*System, len(e.systems))
	copy(out, e.systems)
	return out
}

// Attach binds the engine to w: script events broadcast by scripts are
// routed back to ecs.on listeners, and ecs.each iterates w's entities that
// carry Data.
func (e *Engine) Attach(w *ecs.World) error {
	if e.world != nil {
		return fmt.Errorf("scripting engine already attached to world %q", e.world.Name())
	}
	h := ecs.NewHandler("lua.events", e.onScriptEvent)
	if err := w.AddSystemHandler(h); err != nil {
		return fmt.Errorf("attach scripting engine: %w", err)
	}
	e.world = w
	e.handler = h
	e.data = w.RequestSample(ecs.AllOf[Data](), 0)
	return nil
}

// Detach undoes Attach. It is safe on a world that is already destroyed.
func (e *Engine) Detach() {
	if e.world == nil {
		return
	}
	e.world.RemoveSystemHandler(e.handler)
	if e.data != nil {
		e.data.Release()
	}
	e.world, e.handler, e.data = nil, nil, nil
}

func (e *Engine) onScriptEvent(w *ecs.World, d ecs.Delivery[Event]) {
	fns := e.listeners[d.Event.Name]
	if len(fns) == 0 {
		return
	}
	payload := toTable(e.vm, d.Event.Payload)
	for _, fn := range fns {
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, lua.LString(d.Event.Name), payload); err != nil {
			e.log.Error("lua event listener error",
				zap.String("event", d.Event.Name),
				zap.Error(err),
			)
		}
	}
}

// call runs a system's update function against w.
func (e *Engine) call(s *System, w *ecs.World, dt float32) {
	prev := e.world
	e.world = w
	defer func() { e.world = prev }()

	if err := e.vm.CallByParam(lua.P{
		Fn:      s.update,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt)); err != nil {
		s.errors++
		e.log.Error("lua system error",
			zap.String("system", s.name),
			zap.Int("errors", s.errors),
			zap.Error(err),
		)
	}
}
