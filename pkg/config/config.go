// Package config reads tern.toml project files.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/vito/tern/pkg/infer"
)

// FileName is the name of the project file Find looks for.
const FileName = "tern.toml"

// Config represents a tern.toml project configuration file.
type Config struct {
	// Defs lists environment documents to load, in order. Relative paths
	// are resolved against the directory containing tern.toml.
	Defs []string `toml:"defs"`

	// Timeout bounds each analysis step, e.g. "5s". Zero means no limit.
	Timeout time.Duration `toml:"timeout"`

	// Policy overrides engine thresholds. Keys that are not set keep
	// their defaults.
	Policy infer.Policy `toml:"policy"`

	// Dir is the directory the configuration was loaded from.
	Dir string `toml:"-"`
}

// Default returns the configuration used when there is no tern.toml.
func Default() *Config {
	return &Config{Policy: infer.DefaultPolicy()}
}

// Load loads a tern.toml file from the given path.
func Load(path string) (*Config, error) {
	config := Default()
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		slog.Warn("ignoring unknown configuration keys", "path", path, "keys", keys)
	}
	if config.Timeout < 0 {
		return nil, errors.Errorf("parsing %s: negative timeout %s", path, config.Timeout)
	}
	config.Dir = filepath.Dir(path)
	return config, nil
}

// Find searches for a tern.toml file starting from dir and walking up to
// parent directories. It returns the path to tern.toml and the parsed
// config, or ("", nil, nil) if not found.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// DefPaths returns Defs with relative paths resolved against Dir.
func (c *Config) DefPaths() []string {
	paths := make([]string, len(c.Defs))
	for i, def := range c.Defs {
		if filepath.IsAbs(def) || c.Dir == "" {
			paths[i] = def
		} else {
			paths[i] = filepath.Join(c.Dir, def)
		}
	}
	return paths
}
