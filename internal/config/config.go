package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Logging   LoggingConfig   `toml:"logging"`
	Systems   SystemsConfig   `toml:"systems"`
	Scripting ScriptingConfig `toml:"scripting"`
	Input     InputConfig     `toml:"input"`
	Profile   ProfileConfig   `toml:"profile"`
}

type WorldConfig struct {
	Name                   string        `toml:"name"`
	TickRate               time.Duration `toml:"tick_rate"`
	Frames                 int           `toml:"frames"`    // 0 = run until interrupted
	Instances              int           `toml:"instances"` // worlds run side by side, one goroutine each
	TeardownIterationLimit int           `toml:"teardown_iteration_limit"`
	EntityCapacity         int           `toml:"entity_capacity"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type SystemsConfig struct {
	Manifest string `toml:"manifest"` // empty = no manifest
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type InputConfig struct {
	TTY bool `toml:"tty"`
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu", "mem", "trace", "block", "mutex"
	Dir  string `toml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	var errs []error
	if c.World.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("world.tick_rate must be positive, got %s", c.World.TickRate))
	}
	if c.World.Frames < 0 {
		errs = append(errs, fmt.Errorf("world.frames must not be negative, got %d", c.World.Frames))
	}
	if c.World.Instances < 1 || c.World.Instances > 15 {
		errs = append(errs, fmt.Errorf("world.instances must be in 1..15, got %d", c.World.Instances))
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem", "trace", "block", "mutex":
	default:
		errs = append(errs, fmt.Errorf("profile.mode %q is not supported", c.Profile.Mode))
	}
	if c.Input.TTY && c.World.Instances > 1 {
		errs = append(errs, errors.New("input.tty needs world.instances = 1"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			Name:                   "demo",
			TickRate:               16 * time.Millisecond,
			Frames:                 600,
			Instances:              1,
			TeardownIterationLimit: 1024,
			EntityCapacity:         1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Systems: SystemsConfig{
			Manifest: "data/systems.yaml",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Profile: ProfileConfig{
			Dir: ".",
		},
	}
}
