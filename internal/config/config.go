// Package config loads movieme settings from defaults and an optional YAML
// file, and validates them against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/movieme/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full application configuration.
type Config struct {
	Listen   string `yaml:"listen" json:"listen"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	Store    Store  `yaml:"store" json:"store"`
}

// Store selects and configures the record store backend.
type Store struct {
	Driver string `yaml:"driver" json:"driver"`
	// Path is the sqlite file or the badger/file directory.
	Path string `yaml:"path" json:"path"`
	Key  string `yaml:"key" json:"key"`

	// s3 only
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store: Store{
			Driver: store.DriverSQLite,
			Path:   "movieme.db",
			Key:    store.DefaultKey,
		},
	}
}

// Load reads path over Default and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML data onto cfg. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks cfg against the CUE schema, then checks the fields each
// store driver needs.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}

	switch cfg.Store.Driver {
	case store.DriverSQLite, store.DriverBadger, store.DriverFile:
		if cfg.Store.Path == "" {
			return fmt.Errorf("invalid config: store.path is required for the %s driver", cfg.Store.Driver)
		}
	case store.DriverS3:
		if cfg.Store.Bucket == "" {
			return fmt.Errorf("invalid config: store.bucket is required for the s3 driver")
		}
	}
	return nil
}

// Level maps LogLevel to a slog level. Unknown values mean info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// StoreOptions converts the store section for store.Open.
// Logger and metrics are left for the caller.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver: c.Store.Driver,
		Path:   c.Store.Path,
		Key:    c.Store.Key,
		S3: store.S3Config{
			Bucket:    c.Store.Bucket,
			Region:    c.Store.Region,
			Endpoint:  c.Store.Endpoint,
			PathStyle: c.Store.PathStyle,
			Prefix:    c.Store.Prefix,
		},
	}
}
