package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/config"
	"docmatch/internal/matching"
)

// isolate points HOME and the working directory at temp dirs and clears the
// environment overrides so only the test's inputs are visible.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.BaseDirEnv, "")
	t.Setenv(config.UploadFolderEnv, "")
	t.Setenv(config.LogLevelEnv, "")
	// Equivalent of t.Chdir (Go 1.24+) for older toolchains.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsExpandPathsAndFillPresets(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists, "config file should be absent in temp HOME")
	assert.Equal(t, filepath.Join(home, ".config", "docmatch", "config.toml"), resolved)
	assert.Equal(t, filepath.Join(home, "docmatch"), cfg.Paths.BaseDir)
	assert.Equal(t, filepath.Join(home, ".local", "share", "docmatch", "ledger.db"), cfg.LedgerPath())
	assert.Equal(t, []string{"disbursements", "invoices"}, cfg.PipelineNames())

	inv, err := cfg.Pipeline(config.PipelineInvoices)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "docmatch", "ERP_FACTURAS"), inv.PrimaryDir)
	require.NotNil(t, inv.MinScore)
	assert.Equal(t, 40, *inv.MinScore)
	assert.Equal(t, matching.LenientPolicy(), inv.ScoringPolicy())

	dis, err := cfg.Pipeline(config.PipelineDisbursements)
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultPolicy(), dis.ScoringPolicy())
	assert.Equal(t, filepath.Join(home, "docmatch", "3 CE EMPRESA"), dis.CombinedDir)
}

func TestLoadBaseDirFromEnv(t *testing.T) {
	isolate(t)
	base := t.TempDir()
	t.Setenv(config.UploadFolderEnv, base)

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, base, cfg.Paths.BaseDir)

	preferred := t.TempDir()
	t.Setenv(config.BaseDirEnv, preferred)
	cfg, _, _, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, preferred, cfg.Paths.BaseDir, "DOCMATCH_BASE_DIR should win")
}

func TestLoadCustomPathReplacesPipelines(t *testing.T) {
	isolate(t)
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
base_dir = "`+base+`"

[logging]
level = "DEBUG"

[pipelines.receipts]
primary_dir = "in/primary"
support_dir = "/abs/support"
combined_dir = "out"
holding_dir = "hold"
extensions = ["PDF", "tif"]
date_policy = "Soft"
strategy = "optimal"

[pipelines.receipts.weights]
name = 0
`)

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"receipts"}, cfg.PipelineNames(), "only the declared pipeline should remain")

	p, err := cfg.Pipeline("receipts")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "in", "primary"), p.PrimaryDir)
	assert.Equal(t, "/abs/support", p.SupportDir)
	assert.Equal(t, []string{".pdf", ".tif"}, p.Extensions)

	policy := p.ScoringPolicy()
	assert.Equal(t, matching.DateSoft, policy.Dates)
	assert.Equal(t, 40, policy.MinScore)
	assert.Equal(t, 0, policy.Weights.Name)
	assert.Equal(t, 40, policy.Weights.Amount)
	assert.Equal(t, "optimal", p.Strategy)
	assert.Equal(t, config.CollisionRename, p.OrphanCollision)

	_, err = cfg.Pipeline("invoices")
	assert.Error(t, err, "built-in pipeline should be replaced")
}

func TestLoadPartialBuiltinPipelineKeepsDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[pipelines.invoices]
min_score = 55
orphan_collision = "reject"
`)
	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)
	p, err := cfg.Pipeline("invoices")
	require.NoError(t, err)

	require.NotNil(t, p.MinScore)
	assert.Equal(t, 55, *p.MinScore)
	assert.Equal(t, 55, p.ScoringPolicy().MinScore)
	assert.Equal(t, config.CollisionReject, p.OrphanCollision)
	assert.Equal(t, "MUISKA_FACTURAS", filepath.Base(p.SupportDir))
	assert.Equal(t, "soft", p.DatePolicy)
}

func TestLoadRejectsZeroMinScore(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[pipelines.invoices]\nmin_score = 0\n")

	_, _, _, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_score must be at least 1, got 0")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[logging]\ncolour = true\n")
	_, _, _, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadProjectFileFallback(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("docmatch.toml", []byte("[preflight]\nmin_free_mib = 1\n"), 0o644))

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "docmatch.toml", filepath.Base(resolved))
	assert.Equal(t, 1, cfg.Preflight.MinFreeMiB)
	assert.Empty(t, cfg.Notifications.NtfyTopic)
	assert.Equal(t, 10, cfg.Notifications.RequestTimeout)
}

func TestCreateSample(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	require.NoError(t, config.CreateSample(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw config.Config
	require.NoError(t, toml.Unmarshal(contents, &raw))
	assert.Len(t, raw.Pipelines, 2)

	cfg, _, _, err := config.Load(path)
	require.NoError(t, err, "sample config should validate")
	inv, _ := cfg.Pipeline(config.PipelineInvoices)
	assert.Equal(t, matching.LenientPolicy(), inv.ScoringPolicy())
	dis, _ := cfg.Pipeline(config.PipelineDisbursements)
	assert.Equal(t, matching.DefaultPolicy(), dis.ScoringPolicy())
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad format":         "[logging]\nformat = \"xml\"\n",
		"bad level":          "[logging]\nlevel = \"loud\"\n",
		"negative free":      "[preflight]\nmin_free_mib = -1\n",
		"ntfy topic not url": "[notifications]\nntfy_topic = \"ntfy.sh/docmatch\"\n",
		"negative ntfy wait": "[notifications]\nrequest_timeout = -1\n",
		"bad date policy":    "[pipelines.invoices]\ndate_policy = \"maybe\"\n",
		"bad strategy":       "[pipelines.invoices]\nstrategy = \"random\"\n",
		"bad collision":      "[pipelines.invoices]\norphan_collision = \"merge\"\n",
		"negative min score": "[pipelines.invoices]\nmin_score = -5\n",
		"negative weight":    "[pipelines.invoices.weights]\namount = -1\n",
		"bad name":           "[pipelines.Bad_Name]\nprimary_dir = \"a\"\nsupport_dir = \"b\"\ncombined_dir = \"c\"\nholding_dir = \"d\"\n",
		"missing dirs":       "[pipelines.custom]\nprimary_dir = \"a\"\n",
		"same inputs":        "[pipelines.invoices]\nsupport_dir = \"ERP_FACTURAS\"\n",
		"output over input":  "[pipelines.invoices]\nholding_dir = \"ERP_FACTURAS\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			_, _, _, err := config.Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
