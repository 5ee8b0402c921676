package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecs.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[world]
name = "arena"
tick_rate = "50ms"
instances = 4

[logging]
format = "json"

[profile]
mode = "cpu"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "arena", cfg.World.Name)
	require.Equal(t, 50*time.Millisecond, cfg.World.TickRate)
	require.Equal(t, 4, cfg.World.Instances)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "cpu", cfg.Profile.Mode)

	// untouched keys keep their defaults
	require.Equal(t, 600, cfg.World.Frames)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "data/systems.yaml", cfg.Systems.Manifest)
	require.Equal(t, 1024, cfg.World.TeardownIterationLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for name, body := range map[string]string{
		"zero tick":       "[world]\ntick_rate = \"0s\"\n",
		"too many worlds": "[world]\ninstances = 16\n",
		"bad profile":     "[profile]\nmode = \"gpu\"\n",
		"tty fan-out":     "[world]\ninstances = 2\n[input]\ntty = true\n",
		"syntax":          "[world\n",
	} {
		_, err := Load(writeConfig(t, body))
		require.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().validate())
}
