package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Loaded is the outcome of Load.
type Loaded struct {
	Path     string
	Source   Source
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at the resolved path. A missing file yields defaults;
// the not-found warning is informational unless the path was named with
// --config or HANDOFF_CONFIG.
func Load(explicitPath string) (Loaded, error) {
	path, source, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: path, Source: source, Config: Default()}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message:       fmt.Sprintf("config file %q not found; using defaults", path),
			Informational: !source.Named(),
		}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	loaded.Exists = true
	loaded.Config, loaded.Warnings, err = Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return loaded, nil
}

// Actionable drops informational warnings.
func (l Loaded) Actionable() []Warning {
	out := make([]Warning, 0, len(l.Warnings))
	for _, w := range l.Warnings {
		if !w.Informational {
			out = append(out, w)
		}
	}
	return out
}
