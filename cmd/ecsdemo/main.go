package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/ecsengine/internal/config"
	"github.com/l1jgo/ecsengine/internal/core/ecs"
	"github.com/l1jgo/ecsengine/internal/injector"
	"github.com/l1jgo/ecsengine/internal/input"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(out io.Writer, title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Fprintf(out, "  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(out io.Writer, label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Fprintf(out, "  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/ecs.toml"
	if p := os.Getenv("ECS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Optional terminal input; raw mode swallows Ctrl-C, so the TTY
	// reports it through Quit instead.
	var source ecs.InputSource
	var tty *input.TTY
	if cfg.Input.TTY {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		tty = input.NewTTY(screen, log)
		if err := tty.Start(); err != nil {
			return fmt.Errorf("start terminal input: %w", err)
		}
		defer tty.Stop()
		source = tty

		ttyCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-tty.Quit():
				cancel()
			case <-ttyCtx.Done():
			}
		}()
		ctx = ttyCtx
	}

	// 4. Run every instance on its own goroutine
	stats := make([]instanceStats, cfg.World.Instances)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.World.Instances; i++ {
		i := i
		g.Go(func() error {
			s, err := runInstance(ctx, cfg, log, injector.Index(i), source, tty)
			stats[i] = s
			return err
		})
	}
	printReady(fmt.Sprintf("running %d world(s) (tick: %s, frames: %d)",
		cfg.World.Instances, cfg.World.TickRate, cfg.World.Frames))
	err = g.Wait()

	report(os.Stdout, tty, stats)
	return err
}

// report prints per-world stats. The terminal is restored first so the
// report does not land inside the raw-mode screen.
func report(out io.Writer, tty *input.TTY, stats []instanceStats) {
	if tty != nil {
		tty.Stop()
	}
	for _, s := range stats {
		printSection(out, s.name)
		printStat(out, "frames", int(s.frames))
		printStat(out, "entities spawned", s.spawned)
		printStat(out, "entities removed", s.removed)
		printStat(out, "entities at shutdown", s.live)
		printStat(out, "input events", s.inputs)
	}
}

type instanceStats struct {
	name                   string
	frames                 uint64
	spawned, removed, live int
	inputs                 int
}

func runInstance(ctx context.Context, cfg *config.Config, log *zap.Logger, idx injector.Index, source ecs.InputSource, tty *input.TTY) (instanceStats, error) {
	inst, cleanup, err := injector.InitializeInstance(cfg, log, idx, source, builtinSystems(cfg))
	if err != nil {
		return instanceStats{}, fmt.Errorf("world %d: %w", idx, err)
	}
	w := inst.World
	stats := instanceStats{name: w.Name()}
	if err := attachCounters(w, &stats); err != nil {
		cleanup()
		return stats, fmt.Errorf("world %s: %w", w.Name(), err)
	}

	ticker := time.NewTicker(cfg.World.TickRate)
	defer ticker.Stop()

	log.Info("world running", zap.String("world", w.Name()), zap.Duration("tick_rate", cfg.World.TickRate))
loop:
	for cfg.World.Frames == 0 || w.Frame() < uint64(cfg.World.Frames) {
		select {
		case <-ticker.C:
			if tty != nil {
				tty.Dispatch()
			}
			inst.Runner.Tick(cfg.World.TickRate)
		case <-ctx.Done():
			log.Info("shutdown requested", zap.String("world", w.Name()), zap.Uint64("frame", w.Frame()))
			break loop
		}
	}

	stats.frames = w.Frame()
	stats.live = w.EntityCount()
	cleanup()
	log.Info("world stopped",
		zap.String("world", w.Name()),
		zap.Uint64("frames", stats.frames),
		zap.Int("spawned", stats.spawned),
		zap.Int("removed", stats.removed),
	)
	return stats, nil
}

// attachCounters records entity and input traffic for the shutdown report.
func attachCounters(w *ecs.World, s *instanceStats) error {
	handlers := []*ecs.Handler{
		ecs.NewHandler("stats.added", func(*ecs.World, ecs.Delivery[ecs.EntityAddedEvent]) { s.spawned++ }),
		ecs.NewHandler("stats.removed", func(*ecs.World, ecs.Delivery[ecs.EntityRemovedEvent]) { s.removed++ }),
		ecs.NewHandler("stats.input", func(*ecs.World, ecs.Delivery[ecs.InputEvent]) { s.inputs++ }),
	}
	for _, h := range handlers {
		if err := w.AddSystemHandler(h); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
