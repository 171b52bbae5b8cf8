package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorker(); err != nil {
		return err
	}
	if err := c.normalizeTagCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorker() error {
	if c.Worker.Binary == "" {
		if value, ok := os.LookupEnv("DICOM_WORKER_BINARY"); ok {
			c.Worker.Binary = value
		}
	}
	c.Worker.Binary = strings.TrimSpace(c.Worker.Binary)
	if c.Worker.Binary == "" {
		c.Worker.Binary = defaultWorkerBinary
	}
	if c.Worker.StartupTimeout <= 0 {
		c.Worker.StartupTimeout = defaultStartupTimeout
	}
	if c.Worker.MaxFrameMiB <= 0 {
		c.Worker.MaxFrameMiB = defaultMaxFrameMiB
	}
	endpoints := make([]string, 0, len(c.Worker.DiscoveryEndpoints))
	for _, endpoint := range c.Worker.DiscoveryEndpoints {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}
	c.Worker.DiscoveryEndpoints = endpoints
	return nil
}

func (c *Config) normalizeTagCache() error {
	if strings.TrimSpace(c.TagCache.Path) == "" {
		c.TagCache.Path = filepath.Join(c.Paths.CacheDir, "tags.db")
	}
	var err error
	if c.TagCache.Path, err = expandPath(c.TagCache.Path); err != nil {
		return fmt.Errorf("tag_cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
