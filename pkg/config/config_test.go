package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	if cfg.Theme != flow.DefaultTheme() {
		t.Errorf("Theme = %+v", cfg.Theme)
	}
	if cfg.Layout.Engine != pipeline.DefaultEngine || cfg.Layout.Timeout != DefaultTimeout {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if cfg.Cache.Backend != BackendFile || cfg.Server.Addr != DefaultAddr {
		t.Errorf("Cache = %+v, Server = %+v", cfg.Cache, cfg.Server)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[theme]
header_height = 32
node_spacing = 12

[layout]
engine = "stack"
workers = 2
timeout = "5s"
known_types = ["http", "shell"]

[layout.limits]
max_depth = 4

[cache]
backend = "none"
ttl = "1h"

[server]
addr = "127.0.0.1:9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"header height", cfg.Theme.HeaderHeight, 32.0},
		{"spacing", cfg.Theme.NodeSpacing, 12.0},
		{"unset theme value keeps default", cfg.Theme.MinNodeWidth, flow.DefaultMinNodeWidth},
		{"engine", cfg.Layout.Engine, "stack"},
		{"workers", cfg.Layout.Workers, 2},
		{"timeout", cfg.Layout.Timeout, 5 * time.Second},
		{"max depth", cfg.Layout.Limits.MaxDepth, 4},
		{"unset limit keeps default", cfg.Layout.Limits.MaxNodes, pipeline.DefaultMaxNodes},
		{"known types", len(cfg.Layout.KnownTypes), 2},
		{"backend", cfg.Cache.Backend, BackendNone},
		{"ttl", cfg.Cache.TTL, time.Hour},
		{"addr", cfg.Server.Addr, "127.0.0.1:9000"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	opts := cfg.PipelineOptions()
	if opts.Engine != "stack" || opts.Theme != cfg.Theme || opts.Limits != cfg.Layout.Limits {
		t.Errorf("PipelineOptions() = %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"syntax", "[layout\nengine = ", errors.ErrCodeInvalidConfig},
		{"unknown key", "[layout]\nengin = \"stack\"\n", errors.ErrCodeInvalidConfig},
		{"bad engine", "[layout]\nengine = \"neato\"\n", errors.ErrCodeInvalidEngine},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidConfig},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", errors.ErrCodeInvalidConfig},
		{"negative theme", "[theme]\nborder_width = -1\n", errors.ErrCodeInvalidConfig},
		{"negative workers", "[layout]\nworkers = -3\n", errors.ErrCodeInvalidConfig},
		{"negative ttl", "[cache]\nttl = \"-1m\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want code %s", err, tt.code)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if cfg.Layout.Engine != pipeline.DefaultEngine {
		t.Errorf("missing default file should give defaults, got %+v", cfg.Layout)
	}

	if _, err := LoadDefault(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing explicit file should fail")
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	none := Cache{Backend: BackendNone}
	c, err := none.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("none backend = %T, want NullCache", c)
	}

	dir := t.TempDir()
	file := Cache{Backend: BackendFile, Dir: dir}
	c, err = file.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := c.(*cache.FileCache); !ok || fc.Dir() != dir {
		t.Errorf("file backend = %T", c)
	}

	mr := miniredis.RunT(t)
	redis := Cache{Backend: BackendRedis, RedisAddr: mr.Addr(), Prefix: "test:"}
	c, err = redis.OpenCache(ctx)
	if err != nil {
		t.Fatalf("redis backend error: %v", err)
	}
	defer c.Close()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:k") {
		t.Error("redis backend should apply the prefix")
	}

	mr.Close()
	if _, err := redis.OpenCache(ctx); err == nil {
		t.Error("unreachable redis should fail")
	}
}
