package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dicomstack/internal/config"
)

func TestLoadDefaultsExpandPathsAndReadEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("DICOM_WORKER_BINARY", "/opt/decoders/itk-worker")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "dicomstack", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	if cfg.Worker.Binary != "dicom-worker" {
		t.Fatalf("env binary must not override explicit default resolution order: %q", cfg.Worker.Binary)
	}
	if cfg.Worker.StartupTimeout != 60 {
		t.Fatalf("unexpected startup timeout: %d", cfg.Worker.StartupTimeout)
	}
	if cfg.Worker.MaxFrameMiB != 512 {
		t.Fatalf("unexpected frame limit: %d", cfg.Worker.MaxFrameMiB)
	}
	if cfg.TagCache.Enabled {
		t.Fatal("expected tag cache disabled by default")
	}
	if !strings.HasSuffix(cfg.TagCache.Path, filepath.Join("dicomstack", "tags.db")) {
		t.Fatalf("unexpected tag cache path: %q", cfg.TagCache.Path)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
}

func TestLoadReadsWorkerBinaryFromEnvWhenUnset(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DICOM_WORKER_BINARY", "/opt/decoders/itk-worker")

	path := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(path, []byte("[worker]\nbinary = \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Worker.Binary != "/opt/decoders/itk-worker" {
		t.Fatalf("expected worker binary from env, got %q", cfg.Worker.Binary)
	}
}

func TestLoadParsesWorkerSection(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	content := strings.Join([]string{
		"[worker]",
		`binary = "/usr/local/bin/dicom-worker"`,
		`args = ["--quiet"]`,
		`discovery_endpoints = ["https://assets.example.org/codecs"]`,
		"startup_timeout = 15",
		"max_frame_mib = 64",
		"",
		"[tag_cache]",
		"enabled = true",
		`path = "~/tags.db"`,
	}, "\n")
	path := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Worker.Binary != "/usr/local/bin/dicom-worker" {
		t.Fatalf("unexpected binary: %q", cfg.Worker.Binary)
	}
	if len(cfg.Worker.Args) != 1 || cfg.Worker.Args[0] != "--quiet" {
		t.Fatalf("unexpected args: %v", cfg.Worker.Args)
	}
	if got := cfg.MaxFrameBytes(); got != 64<<20 {
		t.Fatalf("unexpected frame byte limit: %d", got)
	}
	if !cfg.TagCache.Enabled {
		t.Fatal("expected tag cache enabled")
	}
	if cfg.TagCache.Path != filepath.Join(tempHome, "tags.db") {
		t.Fatalf("tag cache path not expanded: %q", cfg.TagCache.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero frame limit",
			mutate: func(c *config.Config) { c.Worker.MaxFrameMiB = 0 },
			want:   "worker.max_frame_mib",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "logfmt" },
			want:   "logging.format",
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Logging.Level = "trace" },
			want:   "logging.level",
		},
		{
			name: "endpoint with whitespace",
			mutate: func(c *config.Config) {
				c.Worker.DiscoveryEndpoints = []string{"https://a b"}
			},
			want: "discovery_endpoints",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	target := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, exists, err := config.Load(target); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	} else if !exists {
		t.Fatal("expected sample config to be detected")
	}
}
