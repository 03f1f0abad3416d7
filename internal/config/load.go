package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load builds the startup config: defaults, then the config file if one is
// found, then command-line flags.
func Load() (*Config, error) {
	cfg := Default()
	if path := FilePath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without applying flags. The
// watcher uses it for reloads.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FilePath returns the config file Load reads: the -config flag, else
// ./config.yaml, else config.yaml in ConfigDir. It returns "" when none
// exists.
func FilePath() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	return findConfigFile()
}

func findConfigFile() string {
	for _, p := range []string{"./config.yaml", filepath.Join(ConfigDir(), "config.yaml")} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Sculptor")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Sculptor")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sculptor")
	}
	return filepath.Join(home, ".config", "sculptor")
}

// loadFromFile merges the YAML at path into cfg. Unknown keys are
// rejected so a misspelt tuning knob does not pass silently.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
