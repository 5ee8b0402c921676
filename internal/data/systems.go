package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/ecsengine/internal/core/system"
)

// SystemEntry configures one system by name.
type SystemEntry struct {
	Name   string   `yaml:"name"`
	Phase  string   `yaml:"phase"`
	Before []string `yaml:"before"`
	After  []string `yaml:"after"`
	Tags   []string `yaml:"tags"`
	// Script is a Lua file that defines the system, relative to the
	// manifest. Empty for systems implemented in Go.
	Script string `yaml:"script"`
}

// SystemManifest is the parsed systems.yaml.
type SystemManifest struct {
	entries []SystemEntry
	phases  []system.Phase
	byName  map[string]int
}

// LoadSystemManifest loads systems.yaml. Script paths are resolved against
// the manifest's directory.
func LoadSystemManifest(path string) (*SystemManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read system manifest: %w", err)
	}
	m, err := ParseSystemManifest(raw)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range m.entries {
		if s := m.entries[i].Script; s != "" && !filepath.IsAbs(s) {
			m.entries[i].Script = filepath.Join(dir, s)
		}
	}
	return m, nil
}

func ParseSystemManifest(raw []byte) (*SystemManifest, error) {
	var entries []SystemEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse system manifest: %w", err)
	}
	m := &SystemManifest{
		entries: entries,
		phases:  make([]system.Phase, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	var errs []error
	for i := range entries {
		e := &entries[i]
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing name", i))
			continue
		}
		if _, dup := m.byName[e.Name]; dup {
			errs = append(errs, fmt.Errorf("system %q: listed twice", e.Name))
			continue
		}
		m.byName[e.Name] = i
		phase, err := system.ParsePhase(e.Phase)
		if err != nil {
			errs = append(errs, fmt.Errorf("system %q: %w", e.Name, err))
		}
		m.phases[i] = phase
		for _, n := range append(append([]string(nil), e.Before...), e.After...) {
			if n == e.Name {
				errs = append(errs, fmt.Errorf("system %q: ordered against itself", e.Name))
				break
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("validate system manifest: %w", errors.Join(errs...))
	}
	return m, nil
}

// Get returns the entry for name, or nil if the manifest does not list it.
func (m *SystemManifest) Get(name string) *SystemEntry {
	i, ok := m.byName[name]
	if !ok {
		return nil
	}
	return &m.entries[i]
}

// Count returns the number of systems listed.
func (m *SystemManifest) Count() int {
	return len(m.entries)
}

// Scripts returns the script paths in manifest order.
func (m *SystemManifest) Scripts() []string {
	var out []string
	for _, e := range m.entries {
		if e.Script != "" {
			out = append(out, e.Script)
		}
	}
	return out
}

// Constraints returns the phase, ordering and tags of every listed system,
// keyed by name.
func (m *SystemManifest) Constraints() map[string]system.Constraints {
	out := make(map[string]system.Constraints, len(m.entries))
	for i, e := range m.entries {
		c := system.Constraints{Before: e.Before, After: e.After, Tags: e.Tags}
		if e.Phase != "" {
			p := m.phases[i]
			c.Phase = &p
		}
		out[e.Name] = c
	}
	return out
}
