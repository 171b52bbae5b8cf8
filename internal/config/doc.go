// Package config loads, normalizes, and validates the TOML configuration for
// the engine: worker process settings, scratch and cache directories, the
// optional tag cache, and log output.
//
// Configuration is an explicit value passed at engine construction. There is
// no package-level mutable state; two engines with different configs can
// coexist in one process.
package config
