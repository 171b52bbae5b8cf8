// Package testsupport provides builders shared by package tests: seeded
// configs with per-test temp directories and scripted worker doubles.
package testsupport

import (
	"path/filepath"
	"testing"

	"dicomstack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.TagCache.Path = filepath.Join(base, "cache", "tags.db")
	cfg.Worker.Binary = "fake-worker"
	cfg.Worker.StartupTimeout = 5
	cfg.Worker.MaxFrameMiB = 8

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithTagCacheEnabled switches the tag cache on for the test config.
func WithTagCacheEnabled() ConfigOption {
	return func(c *config.Config) {
		c.TagCache.Enabled = true
	}
}

// WithDiscoveryEndpoints sets worker discovery endpoints on the test config.
func WithDiscoveryEndpoints(endpoints ...string) ConfigOption {
	return func(c *config.Config) {
		c.Worker.DiscoveryEndpoints = endpoints
	}
}
