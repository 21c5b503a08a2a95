// Package config loads taskgraph settings from a TOML file.
//
// Every field has a default, so a missing file is the same as an empty one.
// Command-line flags are applied on top of the loaded values by the caller.
//
//	[theme]
//	header_height = 40
//	node_spacing = 24
//
//	[layout]
//	engine = "graphviz"
//	workers = 4
//	timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
package config

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

const (
	// DefaultTimeout bounds one layout run.
	DefaultTimeout = 30 * time.Second

	// DefaultAddr is the listen address of the API server.
	DefaultAddr = ":8080"

	// DefaultMaxBodyBytes bounds API request bodies.
	DefaultMaxBodyBytes = 1 << 20
)

// Config is the complete settings tree.
type Config struct {
	Theme  flow.Theme `toml:"theme"`
	Layout Layout     `toml:"layout"`
	Cache  Cache      `toml:"cache"`
	Server Server     `toml:"server"`
}

// Layout configures the pipeline.
type Layout struct {
	Engine     string        `toml:"engine"`
	Workers    int           `toml:"workers"`
	Timeout    time.Duration `toml:"timeout"`
	Limits     flow.Limits   `toml:"limits"`
	KnownTypes []string      `toml:"known_types"`
}

// Cache selects and configures the solve cache backend.
type Cache struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`

	// TTL is how long solver results are kept.
	TTL time.Duration `toml:"ttl"`
}

// Server configures the API server.
type Server struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Theme: flow.DefaultTheme(),
		Layout: Layout{
			Engine:  pipeline.DefaultEngine,
			Timeout: DefaultTimeout,
			Limits: flow.Limits{
				MaxDepth: pipeline.DefaultMaxDepth,
				MaxNodes: pipeline.DefaultMaxNodes,
			},
		},
		Cache: Cache{
			Backend: BackendFile,
			Prefix:  cache.DefaultRedisPrefix,
			TTL:     cache.TTLSolve,
		},
		Server: Server{
			Addr:         DefaultAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "taskgraph", "config.toml"), nil
}

// Load reads the file at path over the defaults and validates the result.
// Keys the file sets but Config does not know are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDefault loads path, or the default file when path is empty. A missing
// default file yields [Default]; a missing explicit file is an error.
func LoadDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	p, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(p)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Theme.Validate(); err != nil {
		return err
	}
	if err := pipeline.ValidateEngine(c.Layout.Engine); err != nil {
		return err
	}
	if c.Layout.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.workers must not be negative")
	}
	if c.Layout.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.timeout must not be negative")
	}
	if c.Layout.Limits.MaxDepth < 0 || c.Layout.Limits.MaxNodes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.limits must not be negative")
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid cache.backend: %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must not be negative")
	}
	return nil
}

// PipelineOptions returns the pipeline options the configuration implies.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Engine:     c.Layout.Engine,
		Theme:      c.Theme,
		Limits:     c.Layout.Limits,
		KnownTypes: c.Layout.KnownTypes,
	}
}

// OpenCache creates the configured cache backend.
func (c *Cache) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.Prefix,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to redis at %s", c.RedisAddr)
		}
		return rc, nil
	default:
		dir := c.Dir
		if dir == "" {
			d, err := cache.DefaultDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}
