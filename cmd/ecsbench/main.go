// Profiling:
// go build ./cmd/ecsbench
// ECS_CONFIG=config/ecs.toml ./ecsbench
// go tool pprof -http=":8000" -nodefraction=0.001 ./ecsbench cpu.pprof

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/config"
	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	cfg := config.Default()
	if p := os.Getenv("ECS_CONFIG"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
	}

	start := time.Now()
	frames, err := run(50, 200, cfg.World.EntityCapacity, cfg.World.TeardownIterationLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)
	fmt.Printf("%d frames in %s (%s/frame)\n", frames, elapsed, elapsed/time.Duration(max(frames, 1)))
}

func startProfile(cfg config.ProfileConfig) interface{ Stop() } {
	opts := []func(*profile.Profile){profile.ProfilePath(cfg.Dir), profile.NoShutdownHook}
	switch cfg.Mode {
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfileAllocs)
	case "trace":
		opts = append(opts, profile.TraceProfile)
	case "block":
		opts = append(opts, profile.BlockProfile)
	case "mutex":
		opts = append(opts, profile.MutexProfile)
	default:
		return nil
	}
	return profile.Start(opts...)
}

// run creates, iterates and removes numEntities entities per frame, iters
// frames per round, with a fresh world each round.
func run(rounds, iters, numEntities, teardownLimit int) (int, error) {
	frames := 0
	for r := 0; r < rounds; r++ {
		w, err := ecs.NewWorld(ecs.Options{
			Name:                   "bench",
			Logger:                 zap.NewNop(),
			EntityCapacity:         numEntities,
			TeardownIterationLimit: teardownLimit,
		})
		if err != nil {
			return frames, err
		}
		query := w.RequestSample(ecs.AllOf2[comp1, comp2](), 0)

		for it := 0; it < iters; it++ {
			for n := 0; n < numEntities; n++ {
				e := w.CreateEntity()
				ecs.AddComponent(e, &comp1{})
				ecs.AddComponent(e, &comp2{V: 1, W: 2})
			}
			w.Update(0)

			ecs.Each2(query, func(e *ecs.Entity, c1 *comp1, c2 *comp2) {
				c1.V += c2.V
				c1.W += c2.W
				w.RemoveEntity(e)
			})
			w.Update(0)
			frames += 2
		}
		query.Release()
		w.Destroy()
	}
	return frames, nil
}
