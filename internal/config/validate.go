package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"

	"docmatch/internal/matching"
)

var pipelineNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be >= 0")
	}
	if len(c.Pipelines) == 0 {
		return errors.New("at least one pipeline must be configured")
	}
	for _, name := range c.PipelineNames() {
		if !pipelineNamePattern.MatchString(name) {
			return fmt.Errorf("pipeline name %q must use lowercase letters, digits, '-' or '_'", name)
		}
		if err := c.Pipelines[name].validate(); err != nil {
			return fmt.Errorf("pipelines.%s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	if n.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	if n.NtfyTopic == "" {
		return nil
	}
	u, err := url.Parse(n.NtfyTopic)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic: %q is not an http(s) URL", n.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (p Pipeline) validate() error {
	dirs := map[string]string{
		"primary_dir":  p.PrimaryDir,
		"support_dir":  p.SupportDir,
		"combined_dir": p.CombinedDir,
		"holding_dir":  p.HoldingDir,
	}
	for _, key := range []string{"primary_dir", "support_dir", "combined_dir", "holding_dir"} {
		if dirs[key] == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if filepath.Clean(p.PrimaryDir) == filepath.Clean(p.SupportDir) {
		return errors.New("primary_dir and support_dir must differ")
	}
	for _, out := range []string{"combined_dir", "holding_dir"} {
		for _, in := range []string{"primary_dir", "support_dir"} {
			if filepath.Clean(dirs[out]) == filepath.Clean(dirs[in]) {
				return fmt.Errorf("%s must differ from %s", out, in)
			}
		}
	}

	if _, err := matching.ParseDatePolicy(p.DatePolicy); err != nil {
		return fmt.Errorf("date_policy: %w", err)
	}
	if _, err := matching.ParseStrategy(p.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	switch p.OrphanCollision {
	case CollisionRename, CollisionReject, CollisionOverwrite:
	default:
		return fmt.Errorf("orphan_collision: unsupported value %q (want rename, reject or overwrite)", p.OrphanCollision)
	}
	if p.MinScore != nil && *p.MinScore < 1 {
		return fmt.Errorf("min_score must be at least 1, got %d; a threshold of 0 would pair documents that share no attributes", *p.MinScore)
	}
	for key, w := range map[string]*int{
		"date_match":            p.Weights.DateMatch,
		"date_single_sided":     p.Weights.DateSingleSided,
		"date_mismatch_penalty": p.Weights.DateMismatchPenalty,
		"amount":                p.Weights.Amount,
		"code":                  p.Weights.Code,
		"name":                  p.Weights.Name,
		"other_number":          p.Weights.OtherNumber,
	} {
		if w != nil && *w < 0 {
			return fmt.Errorf("weights.%s must be >= 0", key)
		}
	}
	return nil
}
