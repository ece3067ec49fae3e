package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"docmatch/internal/config"
	"docmatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	primary    string
	support    string
	combined   string
	holding    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	p := testsupport.TestPipeline(t, cfg)
	return cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(testsupport.BaseDir(cfg), "docmatch.toml"),
		primary:    p.PrimaryDir,
		support:    p.SupportDir,
		combined:   p.CombinedDir,
		holding:    p.HoldingDir,
	}
}

// seedPair writes one primary/support pair that matches and one unmatched
// support.
func (e cliTestEnv) seedPair(t *testing.T) {
	t.Helper()
	testsupport.WritePDF(t, filepath.Join(e.primary, "FC-2024-01-10-JUAN PEREZ-150000.pdf"), 1)
	testsupport.WritePDF(t, filepath.Join(e.support, "2024-01-10-JUAN PEREZ-150000.pdf"), 2)
	testsupport.WritePDF(t, filepath.Join(e.support, "2023-05-02-MARIA LOPEZ-9900.pdf"), 1)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
