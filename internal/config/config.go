// Package config loads quillpipe.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gaurav-prasanna/quillpipe/core"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no path is given.
const FileName = "quillpipe.yaml"

const (
	defaultRevokeDelay = time.Second
	defaultPreviewAddr = "127.0.0.1:8080"
)

// EngineConfig selects the renderer.
type EngineConfig struct {
	// Module is a .wasm renderer; empty means the built-in engine.
	Module   string `yaml:"module,omitempty"`
	PoolSize int    `yaml:"pool_size,omitempty"`
}

// PreviewConfig controls `quillpipe preview --serve`.
type PreviewConfig struct {
	Addr string `yaml:"addr,omitempty"`
	// Origin prefixes blob URLs in the preview page, e.g. http://localhost:8080.
	Origin string `yaml:"origin,omitempty"`
}

// Config models quillpipe.yaml.
type Config struct {
	OutputDir     string        `yaml:"output_dir,omitempty"`
	DefaultFormat string        `yaml:"default_format,omitempty"`
	RevokeDelay   string        `yaml:"revoke_delay,omitempty"`
	Engine        EngineConfig  `yaml:"engine"`
	Preview       PreviewConfig `yaml:"preview"`

	revokeDelay time.Duration
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		RevokeDelay: defaultRevokeDelay.String(),
		Preview:     PreviewConfig{Addr: defaultPreviewAddr},
		revokeDelay: defaultRevokeDelay,
	}
}

// Load reads path, or FileName when path is empty. A missing default file
// yields Default(); a missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if _, err := core.ParseFormat(c.DefaultFormat); err != nil {
		return fmt.Errorf("default_format: %w", err)
	}
	if c.Engine.PoolSize < 0 {
		return fmt.Errorf("engine.pool_size must be >= 0, got %d", c.Engine.PoolSize)
	}
	if c.RevokeDelay == "" {
		c.RevokeDelay = defaultRevokeDelay.String()
	}
	d, err := time.ParseDuration(c.RevokeDelay)
	if err != nil {
		return fmt.Errorf("revoke_delay: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("revoke_delay must not be negative, got %s", d)
	}
	c.revokeDelay = d
	if c.Preview.Addr == "" {
		c.Preview.Addr = defaultPreviewAddr
	}
	return nil
}

// Format returns the configured default format, empty when unset.
func (c *Config) Format() core.Format {
	f, _ := core.ParseFormat(c.DefaultFormat)
	return f
}

// RevokeAfter returns the parsed revoke_delay.
func (c *Config) RevokeAfter() time.Duration {
	return c.revokeDelay
}
