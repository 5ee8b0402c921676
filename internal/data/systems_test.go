package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l1jgo/ecsengine/internal/core/system"
)

const manifestYAML = `
- name: input
  phase: pre_update
  before: [movement]
- name: movement
  tags: [logic]
- name: spinner
  phase: post_update
  after: [movement]
  script: scripts/spinner.lua
`

func TestParseSystemManifest(t *testing.T) {
	m, err := ParseSystemManifest([]byte(manifestYAML))
	require.NoError(t, err)
	require.Equal(t, 3, m.Count())

	c := m.Constraints()
	require.Equal(t, []string{"movement"}, c["input"].Before)
	require.NotNil(t, c["input"].Phase)
	require.Equal(t, system.PhasePreUpdate, *c["input"].Phase)

	// no phase in the manifest keeps the system's own
	require.Nil(t, c["movement"].Phase)
	require.Equal(t, []string{"logic"}, c["movement"].Tags)

	require.Equal(t, system.PhasePostUpdate, *c["spinner"].Phase)
	require.Nil(t, m.Get("missing"))
	require.Equal(t, []string{"scripts/spinner.lua"}, m.Scripts())
}

func TestParseSystemManifestRejectsBadEntries(t *testing.T) {
	for name, doc := range map[string]string{
		"missing name": "- phase: update\n",
		"duplicate":    "- name: a\n- name: a\n",
		"bad phase":    "- name: a\n  phase: render\n",
		"self order":   "- name: a\n  after: [a]\n",
		"not a list":   "name: a\n",
	} {
		_, err := ParseSystemManifest([]byte(doc))
		require.Error(t, err, name)
	}
}

func TestLoadSystemManifestResolvesScripts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o644))

	m, err := LoadSystemManifest(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "scripts", "spinner.lua")}, m.Scripts())

	_, err = LoadSystemManifest(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}
