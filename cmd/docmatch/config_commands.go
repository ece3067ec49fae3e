package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docmatch/internal/config"
	"docmatch/internal/notifications"
	"docmatch/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigNotifyTestCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit paths.base_dir (or export DOCMATCH_BASE_DIR) to point at the folder holding the pipeline directories.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration and check pipeline directories",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")

			for _, name := range cfg.PipelineNames() {
				p := cfg.Pipelines[name]
				policy := p.ScoringPolicy()
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Pipeline "+name, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Policy", statusInfo,
					fmt.Sprintf("%s dates, min score %d, %s strategy, collisions: %s",
						p.DatePolicy, policy.MinScore, p.Strategy, p.OrphanCollision), colorize))
				results := preflight.Run(
					[]preflight.Target{{Name: "primary_dir", Path: p.PrimaryDir}, {Name: "support_dir", Path: p.SupportDir}},
					[]preflight.Target{{Name: "combined_dir", Path: p.CombinedDir}, {Name: "holding_dir", Path: p.HoldingDir}},
					cfg.Preflight.MinFreeMiB,
				)
				for _, r := range results {
					fmt.Fprintln(out, preflightLine(r, colorize))
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, cfg.LedgerPath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, metricsDetail(cfg), colorize))
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, notificationsDetail(cfg), colorize))
			return nil
		},
	}
}

func metricsDetail(cfg *config.Config) string {
	if cfg.Metrics.TextfileDir == "" {
		return "disabled"
	}
	return cfg.Metrics.TextfileDir
}

func notificationsDetail(cfg *config.Config) string {
	if cfg.Notifications.NtfyTopic == "" {
		return "disabled"
	}
	return cfg.Notifications.NtfyTopic
}

func newConfigNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			notifier := notifications.New(cfg.Notifications)
			if notifier == nil {
				return errors.New("notifications.ntfy_topic is not set")
			}
			if err := notifier.Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
