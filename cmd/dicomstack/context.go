package main

import (
	"context"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"dicomstack/internal/config"
	"dicomstack/internal/engine"
	"dicomstack/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// newEngine is swappable so command tests can run against a scripted
	// worker instead of a spawned process.
	newEngine func(cfg *config.Config) (*engine.Engine, error)
}

func newCommandContext(configFlag *string) *commandContext {
	ctx := &commandContext{configFlag: configFlag}
	ctx.newEngine = func(cfg *config.Config) (*engine.Engine, error) {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return engine.New(cfg, logger)
	}
	return ctx
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withEngine runs fn with a wired engine under a signal-aware context and
// tears the engine down afterwards.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(ctx context.Context, eng *engine.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	eng, err := c.newEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, eng)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
