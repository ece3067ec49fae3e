package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/metrics"
	"docmatch/internal/reconcile"
)

func summary() *reconcile.Summary {
	started := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return &reconcile.Summary{
		RunID:              "run-1",
		Pipeline:           "invoices",
		Status:             reconcile.StatusCompleted,
		StartedAt:          started,
		FinishedAt:         started.Add(2 * time.Second),
		Primaries:          3,
		Supports:           2,
		Matched:            2,
		Merged:             2,
		UnmatchedPrimaries: 1,
		OrphansCopied:      1,
		Pairs: []reconcile.PairResult{
			{Primary: "a.pdf", Support: "b.pdf", Score: 130},
			{Primary: "c.pdf", Support: "d.pdf", Score: 70},
		},
	}
}

func TestRecordRunWritesTextfile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "textfiles")
	exporter := metrics.NewExporter(dir)

	require.NoError(t, exporter.RecordRun(context.Background(), summary()))

	data, err := os.ReadFile(filepath.Join(dir, "docmatch_invoices.prom"))
	require.NoError(t, err)
	text := string(data)
	for _, line := range []string{
		`docmatch_run_documents{pipeline="invoices",side="primary"} 3`,
		`docmatch_run_pairs{pipeline="invoices",result="merged"} 2`,
		`docmatch_run_orphans{pipeline="invoices",side="primary"} 1`,
		`docmatch_run_orphan_copies{pipeline="invoices",result="copied"} 1`,
		`docmatch_run_pair_score_count{pipeline="invoices"} 2`,
		`docmatch_run_duration_seconds{pipeline="invoices"} 2`,
		`docmatch_run_success{pipeline="invoices"} 1`,
	} {
		assert.Contains(t, text, line)
	}
}

func TestRecordRunSkipsDryRunsAndDisabledExport(t *testing.T) {
	dir := t.TempDir()
	s := summary()
	s.DryRun = true
	require.NoError(t, metrics.NewExporter(dir).RecordRun(context.Background(), s))
	assert.NoFileExists(t, filepath.Join(dir, metrics.FileName("invoices")))

	require.NoError(t, metrics.NewExporter("").RecordRun(context.Background(), summary()))
}

func TestRecordRunMarksFailures(t *testing.T) {
	dir := t.TempDir()
	s := summary()
	s.Status = reconcile.StatusCompletedWithErrors
	s.MergeFailures = 1
	require.NoError(t, metrics.NewExporter(dir).RecordRun(context.Background(), s))

	data, err := os.ReadFile(filepath.Join(dir, metrics.FileName("invoices")))
	require.NoError(t, err)
	assert.Contains(t, string(data), `docmatch_run_success{pipeline="invoices"} 0`)
	assert.Contains(t, string(data), `docmatch_run_pairs{pipeline="invoices",result="failed"} 1`)
}

func TestFileNameSanitizesPipeline(t *testing.T) {
	assert.Equal(t, "docmatch_invoices.prom", metrics.FileName("invoices"))
	assert.Equal(t, "docmatch_cuentas_2024.prom", metrics.FileName("Cuentas 2024"))
	assert.Equal(t, "docmatch_a_b.prom", metrics.FileName("a/b"))
	assert.Equal(t, "docmatch_unknown.prom", metrics.FileName(" "))
}
