package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorker() error {
	if strings.TrimSpace(c.Worker.Binary) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/dicomstack/config.toml"
		}
		return fmt.Errorf("worker.binary is required. Set DICOM_WORKER_BINARY env var or edit %s (create with 'dicomstack config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"worker.startup_timeout": c.Worker.StartupTimeout,
		"worker.max_frame_mib":   c.Worker.MaxFrameMiB,
	}); err != nil {
		return err
	}
	for _, endpoint := range c.Worker.DiscoveryEndpoints {
		if strings.ContainsAny(endpoint, " \t\n,") {
			return fmt.Errorf("worker.discovery_endpoints entry %q must not contain whitespace or commas", endpoint)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return errors.New(key + " must be greater than zero")
		}
	}
	return nil
}
