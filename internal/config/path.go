package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names a config file when --config is absent.
const EnvConfigPath = "HANDOFF_CONFIG"

// Source records which rule picked the config path.
type Source string

const (
	SourceFlag Source = "flag"
	SourceEnv  Source = "env"
	SourceXDG  Source = "xdg"
	SourceHome Source = "home"
)

// Named reports whether the user pointed at the file directly.
func (s Source) Named() bool {
	return s == SourceFlag || s == SourceEnv
}

// ResolvePath picks the config file: --config, then $HANDOFF_CONFIG, then
// $XDG_CONFIG_HOME/handoff/config.jsonc, then ~/.config/handoff/config.jsonc.
// Named paths may start with "~/".
func ResolvePath(explicit string) (string, Source, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		path, err := expandHome(explicit)
		return path, SourceFlag, err
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		path, err := expandHome(env)
		return path, SourceEnv, err
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "handoff", "config.jsonc"), SourceXDG, nil
	}

	home, err := userHome()
	if err != nil {
		return "", "", err
	}
	return filepath.Join(home, ".config", "handoff", "config.jsonc"), SourceHome, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := userHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func userHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config path")
	}
	return home, nil
}
