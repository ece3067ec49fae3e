package reconcile_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/config"
	"docmatch/internal/ledger"
	"docmatch/internal/logging"
	"docmatch/internal/merge"
	"docmatch/internal/reconcile"
	"docmatch/internal/runlock"
	"docmatch/internal/testsupport"
)

type fixture struct {
	cfg      *config.Config
	pipeline reconcile.Pipeline
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	p, err := reconcile.PipelineFromConfig(cfg, testsupport.PipelineName)
	require.NoError(t, err)
	return fixture{cfg: cfg, pipeline: p}
}

func (f fixture) primary(t *testing.T, name string, pages int) {
	t.Helper()
	testsupport.WritePDF(t, filepath.Join(f.pipeline.PrimaryDir, name), pages)
}

func (f fixture) support(t *testing.T, name string, pages int) {
	t.Helper()
	testsupport.WritePDF(t, filepath.Join(f.pipeline.SupportDir, name), pages)
}

// visible drops dot-files such as the run lock.
func visible(names []string) []string {
	out := []string{}
	for _, n := range names {
		if !strings.HasPrefix(n, ".") {
			out = append(out, n)
		}
	}
	return out
}

type captureRecorder struct {
	mu   sync.Mutex
	runs []*reconcile.Summary
	err  error
}

func (c *captureRecorder) RecordRun(_ context.Context, s *reconcile.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, s)
	return c.err
}

type failingConcat struct {
	inner merge.Concatenator
	fail  string
}

func (f failingConcat) Concatenate(ctx context.Context, dst string, sources ...string) error {
	if filepath.Base(sources[0]) == f.fail {
		return errors.New("unreadable source")
	}
	return f.inner.Concatenate(ctx, dst, sources...)
}

func TestScenarioMatchingPairIsMerged(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 2)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)

	recorder := &captureRecorder{}
	runner := reconcile.NewRunner(nil, 0, recorder)
	summary, err := runner.Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, reconcile.StatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Merged)
	assert.Zero(t, summary.Orphaned())
	assert.Zero(t, summary.Errored())
	require.Len(t, summary.Pairs, 1)
	assert.NotEmpty(t, summary.Pairs[0].Satisfied)

	const want = "FC-2024-01-10-JUAN PEREZ-150000-2024-01-10.pdf"
	assert.Equal(t, filepath.Join(f.pipeline.CombinedDir, want), summary.Pairs[0].Output)
	assert.Equal(t, []string{want}, testsupport.ListNames(t, f.pipeline.CombinedDir))
	pages, err := merge.PageCount(summary.Pairs[0].Output)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Empty(t, visible(testsupport.ListNames(t, f.pipeline.HoldingDir)))

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, summary.RunID, recorder.runs[0].RunID)
	assert.NotEmpty(t, summary.RunID)
}

func TestScenarioStrictDateConflictOrphansBoth(t *testing.T) {
	f := newFixture(t, testsupport.WithDatePolicy("strict"))
	f.primary(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-02-15-JUAN PEREZ-150000.pdf", 1)

	summary, err := reconcile.NewRunner(nil, 0).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)

	assert.Zero(t, summary.Matched)
	assert.Equal(t, 1, summary.UnmatchedPrimaries)
	assert.Equal(t, 1, summary.UnmatchedSupports)
	assert.Equal(t, 2, summary.OrphansCopied)
	assert.Empty(t, testsupport.ListNames(t, f.pipeline.CombinedDir))
	assert.Equal(t,
		[]string{"2024-01-10-JUAN PEREZ-150000.pdf", "2024-02-15-JUAN PEREZ-150000.pdf"},
		visible(testsupport.ListNames(t, f.pipeline.HoldingDir)))
	assert.FileExists(t, filepath.Join(f.pipeline.PrimaryDir, "2024-01-10-JUAN PEREZ-150000.pdf"))
}

func TestOrphanCompleteness(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.primary(t, "FC-2024-03-01-ANA GOMEZ-98000.pdf", 1)
	f.primary(t, "notas.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "extracto.pdf", 1)

	summary, err := reconcile.NewRunner(nil, 0).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Primaries)
	assert.Equal(t, 2, summary.Supports)
	assert.Equal(t, summary.Primaries, summary.Matched+summary.UnmatchedPrimaries)
	assert.Equal(t, summary.Supports, summary.Matched+summary.UnmatchedSupports)
	assert.Len(t, summary.Orphans, summary.Orphaned())
	assert.Len(t, visible(testsupport.ListNames(t, f.pipeline.HoldingDir)), summary.Orphaned())
}

func TestDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "extracto.pdf", 1)

	recorder := &captureRecorder{}
	summary, err := reconcile.NewRunner(nil, 0, recorder).Run(context.Background(), f.pipeline, reconcile.Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Matched)
	assert.Zero(t, summary.Merged)
	assert.Equal(t, 1, summary.UnmatchedSupports)
	assert.Zero(t, summary.OrphansCopied)
	assert.Contains(t, summary.Pairs[0].Output, "-2024-01-10.pdf")
	assert.Nil(t, testsupport.ListNames(t, f.pipeline.CombinedDir))
	assert.Nil(t, testsupport.ListNames(t, f.pipeline.HoldingDir))
	assert.Len(t, recorder.runs, 1)
}

func TestMergeFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.primary(t, "FC-2024-03-01-ANA GOMEZ-98000.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-03-01-ANA GOMEZ-98000.pdf", 1)

	runner := reconcile.NewRunner(nil, 0)
	runner.Concat = failingConcat{inner: runner.Concat, fail: "FC-2024-01-10-JUAN PEREZ-150000.pdf"}
	summary, err := runner.Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, reconcile.StatusCompletedWithErrors, summary.Status)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Merged)
	assert.Equal(t, 1, summary.MergeFailures)
	assert.Equal(t, 1, summary.Errored())
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "merge", summary.Failures[0].Stage)
	assert.Contains(t, summary.Failures[0].Documents, "FC-2024-01-10-JUAN PEREZ-150000.pdf")
	assert.Equal(t, []string{"FC-2024-03-01-ANA GOMEZ-98000-2024-03-01.pdf"}, testsupport.ListNames(t, f.pipeline.CombinedDir))
}

func TestRerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "extracto.pdf", 1)

	runner := reconcile.NewRunner(nil, 0)
	for i := 0; i < 2; i++ {
		_, err := runner.Run(context.Background(), f.pipeline, reconcile.Options{})
		require.NoError(t, err)
	}
	assert.Len(t, testsupport.ListNames(t, f.pipeline.CombinedDir), 1)
	assert.Equal(t, []string{"extracto.pdf"}, visible(testsupport.ListNames(t, f.pipeline.HoldingDir)))
}

func TestEnumerationFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.pipeline.SupportDir = filepath.Join(testsupport.BaseDir(f.cfg), "missing")

	summary, err := reconcile.NewRunner(nil, 0).Run(context.Background(), f.pipeline, reconcile.Options{DryRun: true})
	require.ErrorIs(t, err, reconcile.ErrEnumeration)
	assert.Nil(t, summary)

	_, err = reconcile.NewRunner(nil, 0).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.ErrorIs(t, err, reconcile.ErrPreflight)
	assert.Nil(t, testsupport.ListNames(t, f.pipeline.CombinedDir))
}

func TestConcurrentRunIsRejected(t *testing.T) {
	f := newFixture(t)
	lock, err := runlock.Acquire(f.pipeline.HoldingDir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = reconcile.NewRunner(nil, 0).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.ErrorIs(t, err, runlock.ErrLocked)
}

func TestCancelledRunKeepsSummary(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recorder := &captureRecorder{}
	summary, err := reconcile.NewRunner(nil, 0, recorder).Run(ctx, f.pipeline, reconcile.Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, reconcile.StatusCancelled, summary.Status)
	assert.Zero(t, summary.Merged)
	assert.Len(t, recorder.runs, 1)
}

func TestRecorderFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	recorder := &captureRecorder{err: errors.New("disk full")}
	summary, err := reconcile.NewRunner(nil, 0, recorder).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusCompleted, summary.Status)
}

func TestRunIsRecordedInLedger(t *testing.T) {
	f := newFixture(t)
	f.primary(t, "FC-2024-01-10-JUAN PEREZ-150000.pdf", 1)
	f.support(t, "2024-01-10-JUAN PEREZ-150000.pdf", 1)

	store, err := ledger.Open(f.cfg.LedgerPath())
	require.NoError(t, err)
	defer store.Close()

	summary, err := reconcile.NewRunner(nil, 0, store).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)

	got, err := store.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, testsupport.PipelineName, got.Pipeline)
	assert.Equal(t, summary.Pairs, got.Pairs)
}

func TestPipelineFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDatePolicy("soft"), testsupport.WithStrategy("optimal"), testsupport.WithCollision("reject"))
	p, err := reconcile.PipelineFromConfig(cfg, testsupport.PipelineName)
	require.NoError(t, err)
	assert.Equal(t, "optimal", string(p.Strategy))
	assert.Equal(t, "soft", string(p.Policy.Dates))
	assert.Equal(t, 40, p.Policy.MinScore)
	assert.Equal(t, "reject", string(p.Collision))
	assert.Equal(t, []string{".pdf"}, p.Extensions)

	_, err = reconcile.PipelineFromConfig(cfg, "nope")
	assert.ErrorIs(t, err, reconcile.ErrConfiguration)
}

func TestRunLogsLockPath(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	_, err = reconcile.NewRunner(logger, 0).Run(context.Background(), f.pipeline, reconcile.Options{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"lock_path":"`+filepath.Join(f.pipeline.HoldingDir, runlock.FileName)+`"`)

	buf.Reset()
	_, err = reconcile.NewRunner(logger, 0).Run(context.Background(), f.pipeline, reconcile.Options{DryRun: true})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "lock_path", "dry runs never take the lock")
}
