// Package imports resolves import placeholders inside expressions: it
// fetches the referenced content, runs it through the type checker and
// normalizer, verifies integrity hashes, and substitutes the result.
package imports

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents a godhall.toml resolver configuration.
type Config struct {
	Cache CacheConfig `toml:"cache"`
	Fetch FetchConfig `toml:"fetch"`

	// Dir is the directory containing the godhall.toml file (set at load time).
	Dir string `toml:"-"`
}

// CacheConfig configures the content-addressed cache.
type CacheConfig struct {
	// Path of the sqlite cache database. Empty disables the persistent
	// cache; the in-memory cache is always active.
	Path string `toml:"path"`
}

// FetchConfig restricts which import kinds the resolver will follow.
type FetchConfig struct {
	AllowEnv    bool   `toml:"allow-env"`
	AllowRemote bool   `toml:"allow-remote"`
	HTTPTimeout string `toml:"http-timeout"`
}

// DefaultConfig is what resolution uses when no godhall.toml is found:
// local and env imports allowed, remote imports off, no persistent cache.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{AllowEnv: true},
	}
}

// HTTPTimeout returns the configured remote fetch timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Fetch.HTTPTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Fetch.HTTPTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CachePath returns the absolute path of the persistent cache database,
// or "" when the persistent cache is disabled.
func (c *Config) CachePath() string {
	if c.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}

// LoadConfig parses a godhall.toml file from the given directory.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, "godhall.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := DefaultConfig()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindConfig walks up from startDir to find a godhall.toml file, then
// loads and returns it. Returns the default configuration if no file is
// found.
func FindConfig(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "godhall.toml")
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return DefaultConfig(), nil
		}
		dir = parent
	}
}
