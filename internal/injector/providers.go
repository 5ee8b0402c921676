// Package injector assembles a ready-to-run world instance from config.
package injector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/config"
	"github.com/l1jgo/ecsengine/internal/core/ecs"
	"github.com/l1jgo/ecsengine/internal/core/system"
	"github.com/l1jgo/ecsengine/internal/data"
	"github.com/l1jgo/ecsengine/internal/scripting"
)

// Index numbers world instances started from one config.
type Index int

// Builtins are the Go systems installed next to the scripted ones.
type Builtins []system.System

// Instance is one world with its systems installed.
type Instance struct {
	World  *ecs.World
	Runner *system.Runner
	Engine *scripting.Engine
}

func NewInstance(w *ecs.World, r *system.Runner, e *scripting.Engine) *Instance {
	return &Instance{World: w, Runner: r, Engine: e}
}

func ProvideWorldOptions(cfg *config.Config, log *zap.Logger, idx Index, input ecs.InputSource) ecs.Options {
	name := cfg.World.Name
	if cfg.World.Instances > 1 {
		name = fmt.Sprintf("%s-%d", name, idx)
	}
	return ecs.Options{
		Name:                   name,
		Logger:                 log,
		Input:                  input,
		TeardownIterationLimit: cfg.World.TeardownIterationLimit,
		EntityCapacity:         cfg.World.EntityCapacity,
	}
}

// ProvideWorld creates the world; the cleanup destroys it.
func ProvideWorld(opts ecs.Options) (*ecs.World, func(), error) {
	w, err := ecs.NewWorld(opts)
	if err != nil {
		return nil, nil, err
	}
	return w, w.Destroy, nil
}

// ProvideManifest loads the system manifest, or returns nil when none is
// configured.
func ProvideManifest(cfg *config.Config) (*data.SystemManifest, error) {
	if cfg.Systems.Manifest == "" {
		return nil, nil
	}
	return data.LoadSystemManifest(cfg.Systems.Manifest)
}

// ProvideEngine loads the script directory and every script the manifest
// names, then attaches the engine to w.
func ProvideEngine(cfg *config.Config, log *zap.Logger, w *ecs.World, m *data.SystemManifest) (*scripting.Engine, func(), error) {
	e := scripting.NewEngine(log.Named("lua"))
	fail := func(err error) (*scripting.Engine, func(), error) {
		e.Close()
		return nil, nil, err
	}
	if cfg.Scripting.Dir != "" {
		if err := e.LoadDir(cfg.Scripting.Dir); err != nil {
			return fail(fmt.Errorf("load scripts: %w", err))
		}
	}
	if m != nil {
		for _, path := range m.Scripts() {
			if err := e.LoadFile(path); err != nil {
				return fail(fmt.Errorf("load manifest script: %w", err))
			}
		}
	}
	if err := e.Attach(w); err != nil {
		return fail(err)
	}
	return e, e.Close, nil
}

// ProvideRunner registers builtins and scripted systems, applies the
// manifest and installs everything into w.
func ProvideRunner(log *zap.Logger, w *ecs.World, m *data.SystemManifest, e *scripting.Engine, builtins Builtins) (*system.Runner, error) {
	r := system.NewRunner(log)
	for _, s := range builtins {
		r.Register(s)
	}
	for _, s := range e.Systems() {
		r.Register(s)
	}
	if m != nil {
		r.ApplyManifest(m)
	}
	if err := r.Install(w); err != nil {
		return nil, err
	}
	return r, nil
}
