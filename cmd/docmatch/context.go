package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"docmatch/internal/config"
	"docmatch/internal/ledger"
	"docmatch/internal/logging"
	"docmatch/internal/metrics"
	"docmatch/internal/notifications"
	"docmatch/internal/reconcile"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// pipeline resolves a configured pipeline by name.
func (c *commandContext) pipeline(name string) (reconcile.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return reconcile.Pipeline{}, err
	}
	return reconcile.PipelineFromConfig(cfg, name)
}

// pipelineNames returns args, or every configured pipeline when args is empty.
func (c *commandContext) pipelineNames(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cfg.PipelineNames(), nil
}

// withLedger opens the run ledger for the duration of fn.
func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// newRunner builds a runner recording into store and, when configured, the
// metrics textfile directory and the ntfy topic.
func (c *commandContext) newRunner(store *ledger.Store) (*reconcile.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	recorders := []reconcile.Recorder{store}
	if cfg.Metrics.TextfileDir != "" {
		recorders = append(recorders, metrics.NewExporter(cfg.Metrics.TextfileDir))
	}
	if notifier := notifications.New(cfg.Notifications); notifier != nil {
		recorders = append(recorders, notifier)
	}
	return reconcile.NewRunner(logger, cfg.Preflight.MinFreeMiB, recorders...), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
