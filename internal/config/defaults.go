package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultScratchDir     = "~/.local/share/dicomstack/scratch"
	defaultLogDir         = "~/.local/share/dicomstack/logs"
	defaultWorkerBinary   = "dicom-worker"
	defaultStartupTimeout = 60
	defaultMaxFrameMiB    = 512
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir(),
		},
		Worker: Worker{
			Binary:         defaultWorkerBinary,
			StartupTimeout: defaultStartupTimeout,
			MaxFrameMiB:    defaultMaxFrameMiB,
		},
		TagCache: TagCache{
			Enabled: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "dicomstack")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/dicomstack"
	}
	return filepath.Join(home, ".cache", "dicomstack")
}
