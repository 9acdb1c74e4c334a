// Package config handles stasis.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/stasis/checkpoint"
	"github.com/chazu/stasis/store"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "stasis.toml"

// Config represents a stasis.toml file.
type Config struct {
	Checkpoint Checkpoint `toml:"checkpoint"`
	Store      Store      `toml:"store"`
	Log        Log        `toml:"log"`

	// Dir is the directory containing the stasis.toml file (set at load time).
	// For a default configuration it is the working directory.
	Dir string `toml:"-"`
}

// Checkpoint configures the checkpoint engine.
type Checkpoint struct {
	ReservedModules []string `toml:"reserved-modules"`
}

// Store configures the checkpoint store.
type Store struct {
	Dir         string `toml:"dir"`
	Compression string `toml:"compression"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no stasis.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	if wd, err := os.Getwd(); err == nil {
		c.Dir = wd
	}
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Checkpoint.ReservedModules) == 0 {
		c.Checkpoint.ReservedModules = append([]string(nil), checkpoint.DefaultReservedModules...)
	}
	if c.Store.Dir == "" {
		c.Store.Dir = ".stasis"
	}
	if c.Store.Compression == "" {
		c.Store.Compression = "zstd"
	}
}

// Load parses a stasis.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a stasis.toml file, then loads
// and returns it. Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			c := Default()
			c.Dir, _ = filepath.Abs(startDir)
			return c, nil
		}
		dir = parent
	}
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := store.ParseCompression(c.Store.Compression); err != nil {
		return fmt.Errorf("store.compression: %w", err)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity: must not be negative, got %d", c.Log.Verbosity)
	}
	for _, name := range c.Checkpoint.ReservedModules {
		if name == "" {
			return fmt.Errorf("checkpoint.reserved-modules: empty module name")
		}
	}
	return nil
}

// StoreDir returns the absolute store directory. A relative store.dir is
// taken relative to the configuration directory.
func (c *Config) StoreDir() string {
	if filepath.IsAbs(c.Store.Dir) {
		return c.Store.Dir
	}
	return filepath.Join(c.Dir, c.Store.Dir)
}

// StoreOptions returns the store options described by the configuration.
func (c *Config) StoreOptions() (store.Options, error) {
	comp, err := store.ParseCompression(c.Store.Compression)
	if err != nil {
		return store.Options{}, err
	}
	return store.Options{Compression: comp}, nil
}

// LogFile returns the configured log file, or nil to log to stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}
