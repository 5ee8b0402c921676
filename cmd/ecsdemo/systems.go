package main

import (
	"math/rand"

	"github.com/l1jgo/ecsengine/internal/config"
	"github.com/l1jgo/ecsengine/internal/core/ecs"
	"github.com/l1jgo/ecsengine/internal/core/system"
	"github.com/l1jgo/ecsengine/internal/injector"
)

type Position struct{ X, Y float32 }
type Velocity struct{ DX, DY float32 }

// Lifetime counts down in seconds; the entity is removed at zero.
type Lifetime struct{ Left float32 }

const (
	arenaSize  = 100
	population = 64
)

func builtinSystems(cfg *config.Config) injector.Builtins {
	rng := rand.New(rand.NewSource(int64(cfg.World.EntityCapacity)))
	return injector.Builtins{
		&spawner{rng: rng, target: population},
		&movement{},
		&expiry{},
	}
}

// spawner keeps the arena populated.
type spawner struct {
	rng    *rand.Rand
	target int
	alive  *ecs.Sample
}

func (s *spawner) Name() string        { return "demo.spawner" }
func (s *spawner) Phase() system.Phase { return system.PhasePreUpdate }

func (s *spawner) Update(w *ecs.World, dt float32) {
	if s.alive == nil {
		s.alive = w.RequestSample(ecs.AllOf[Lifetime](), ecs.SampleIncludeInactive)
	}
	// the previous frame's spawns were drained in before this phase ran
	for i := s.alive.Len(); i < s.target; i++ {
		e := w.CreateEntity()
		if e == nil {
			return
		}
		ecs.AddComponent(e, &Position{X: s.rng.Float32() * arenaSize, Y: s.rng.Float32() * arenaSize})
		ecs.AddComponent(e, &Velocity{DX: s.rng.Float32()*20 - 10, DY: s.rng.Float32()*20 - 10})
		ecs.AddComponent(e, &Lifetime{Left: 1 + s.rng.Float32()*4})
	}
}

// movement integrates velocity and bounces off the arena walls.
type movement struct {
	bodies *ecs.Sample
}

func (m *movement) Name() string        { return "demo.movement" }
func (m *movement) Phase() system.Phase { return system.PhaseUpdate }

func (m *movement) Update(w *ecs.World, dt float32) {
	if m.bodies == nil {
		m.bodies = w.RequestSample(ecs.AllOf2[Position, Velocity](), 0)
	}
	ecs.Each2(m.bodies, func(_ *ecs.Entity, p *Position, v *Velocity) {
		p.X += v.DX * dt
		p.Y += v.DY * dt
		if p.X < 0 || p.X > arenaSize {
			v.DX = -v.DX
		}
		if p.Y < 0 || p.Y > arenaSize {
			v.DY = -v.DY
		}
	})
}

// expiry removes entities whose lifetime ran out.
type expiry struct {
	mortal *ecs.Sample
}

func (x *expiry) Name() string        { return "demo.expiry" }
func (x *expiry) Phase() system.Phase { return system.PhasePostUpdate }

func (x *expiry) Update(w *ecs.World, dt float32) {
	if x.mortal == nil {
		x.mortal = w.RequestSample(ecs.AllOf[Lifetime](), ecs.SampleIncludeInactive)
	}
	ecs.Each1(x.mortal, func(e *ecs.Entity, l *Lifetime) {
		l.Left -= dt
		if l.Left <= 0 {
			w.RemoveEntity(e)
		}
	})
}
