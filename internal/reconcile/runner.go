package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docmatch/internal/attributes"
	"docmatch/internal/logging"
	"docmatch/internal/matching"
	"docmatch/internal/merge"
	"docmatch/internal/orphans"
	"docmatch/internal/preflight"
	"docmatch/internal/runlock"
)

// Recorder receives every finished run, including cancelled ones.
type Recorder interface {
	RecordRun(ctx context.Context, summary *Summary) error
}

// Options tune a single run.
type Options struct {
	// DryRun computes the assignment without writing anything.
	DryRun bool
}

// Runner executes pipelines.
type Runner struct {
	Concat     merge.Concatenator
	Recorders  []Recorder
	Logger     *slog.Logger
	MinFreeMiB int

	now   func() time.Time
	newID func() string
}

// NewRunner returns a runner merging PDFs with pdfcpu.
func NewRunner(logger *slog.Logger, minFreeMiB int, recorders ...Recorder) *Runner {
	return &Runner{
		Concat:     merge.NewPDFConcatenator(),
		Recorders:  recorders,
		Logger:     logger,
		MinFreeMiB: minFreeMiB,
	}
}

// Run executes p once. The returned summary is non-nil whenever the inputs
// were enumerated, including when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, p Pipeline, opts Options) (*Summary, error) {
	summary := &Summary{
		RunID:      r.id(),
		Pipeline:   p.Name,
		Strategy:   string(p.Strategy),
		DatePolicy: string(p.Policy.Dates),
		MinScore:   p.Policy.MinScore,
		DryRun:     opts.DryRun,
		StartedAt:  r.clock(),
		Pairs:      []PairResult{},
		Orphans:    []OrphanResult{},
	}
	ctx = logging.WithPipeline(logging.WithRunID(ctx, summary.RunID), p.Name)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "reconcile"))
	logger.Info("run started",
		logging.String("primary_dir", p.PrimaryDir),
		logging.String("support_dir", p.SupportDir),
		logging.String("strategy", summary.Strategy),
		logging.String("date_policy", summary.DatePolicy),
		logging.Int("min_score", summary.MinScore),
		logging.Bool("dry_run", opts.DryRun),
	)

	if !opts.DryRun {
		release, err := r.prepare(p, logger)
		if err != nil {
			logging.ErrorWithContext(logger, "run aborted", "run_aborted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)
			return nil, err
		}
		defer release()
	}

	primaries, supports, err := p.Collect(ctx, r.Logger)
	if err != nil {
		logging.ErrorWithContext(logger, "input enumeration failed", "enumeration_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that both input directories exist and are readable"),
		)
		return nil, err
	}
	summary.Primaries = len(primaries)
	summary.Supports = len(supports)

	assignment := p.assigner().Assign(primaries, supports)
	r.logDecisions(ctx, p, primaries, supports, assignment)

	jobs := make([]merge.Job, 0, len(assignment.Pairs))
	for _, pair := range assignment.Pairs {
		primary, support := primaries[pair.Primary], supports[pair.Support]
		jobs = append(jobs, merge.Job{Primary: primary, Support: support, Score: pair.Score})
		summary.Pairs = append(summary.Pairs, PairResult{
			Primary:   primary.Identifier,
			Support:   support.Identifier,
			Score:     pair.Score,
			Satisfied: append([]string{}, pair.Satisfied...),
			Output:    filepath.Join(p.CombinedDir, merge.OutputName(primary, support, p.MergedMarker)),
		})
	}
	summary.Matched = len(assignment.Pairs)
	summary.UnmatchedPrimaries = len(assignment.UnmatchedPrimaries)
	summary.UnmatchedSupports = len(assignment.UnmatchedSupports)

	unmatchedPrimaries := pick(primaries, assignment.UnmatchedPrimaries)
	unmatchedSupports := pick(supports, assignment.UnmatchedSupports)
	for _, rec := range unmatchedPrimaries {
		summary.Orphans = append(summary.Orphans, OrphanResult{Identifier: rec.Identifier, Side: string(orphans.SidePrimary)})
	}
	for _, rec := range unmatchedSupports {
		summary.Orphans = append(summary.Orphans, OrphanResult{Identifier: rec.Identifier, Side: string(orphans.SideSupport)})
	}

	if opts.DryRun {
		return r.finish(ctx, logger, summary, nil), nil
	}

	stage := &merge.Stage{Concat: r.Concat, OutputDir: p.CombinedDir, Marker: p.MergedMarker, Logger: r.Logger}
	mergeReport, err := stage.Run(ctx, jobs)
	r.applyMerge(summary, mergeReport)
	if err != nil {
		return r.finish(ctx, logger, summary, err), err
	}

	router := &orphans.Router{HoldingDir: p.HoldingDir, Collision: p.Collision, Logger: r.Logger}
	routeReport, err := router.Route(ctx, unmatchedPrimaries, unmatchedSupports)
	r.applyRoute(summary, routeReport)
	if err != nil {
		return r.finish(ctx, logger, summary, err), err
	}
	return r.finish(ctx, logger, summary, nil), nil
}

// prepare checks the pipeline directories, takes the run lock and creates
// the output directories. The returned func releases the lock.
func (r *Runner) prepare(p Pipeline, logger *slog.Logger) (func(), error) {
	results := preflight.Run(
		[]preflight.Target{
			{Name: "primary_dir", Path: p.PrimaryDir},
			{Name: "support_dir", Path: p.SupportDir},
		},
		[]preflight.Target{
			{Name: "combined_dir", Path: p.CombinedDir},
			{Name: "holding_dir", Path: p.HoldingDir},
		},
		r.MinFreeMiB,
	)
	if failed := preflight.Failed(results); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, f := range failed {
			details = append(details, f.Name+": "+f.Detail)
		}
		return nil, Wrap(ErrPreflight, "preflight", p.Name, strings.Join(details, "; "), nil)
	}

	lock, err := runlock.Acquire(p.HoldingDir)
	if err != nil {
		return nil, Wrap(nil, "lock", p.Name, "", err)
	}
	if err := os.MkdirAll(p.CombinedDir, 0o755); err != nil {
		_ = lock.Release()
		return nil, Wrap(ErrConfiguration, "prepare", "create combined_dir", "", err)
	}
	logger.Debug("run lock acquired", logging.String("lock_path", lock.Path()))
	return func() { _ = lock.Release() }, nil
}

func (r *Runner) logDecisions(ctx context.Context, p Pipeline, primaries, supports []attributes.Record, a matching.Assignment) {
	logger := logging.WithContext(logging.WithStage(ctx, "assign"), logging.NewComponentLogger(r.Logger, "reconcile"))
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, pair := range a.Pairs {
		attrs := logging.MatchDecision("accepted", strings.Join(pair.Satisfied, "; "))
		attrs = append(attrs, logging.Pair(primaries[pair.Primary].Identifier, supports[pair.Support].Identifier)...)
		attrs = append(attrs, logging.Int("score", pair.Score))
		logger.Debug("pair accepted", logging.Args(attrs...)...)
	}
	for _, idx := range a.UnmatchedPrimaries {
		reason := fmt.Sprintf("no unclaimed support reached %d", p.Policy.MinScore)
		attrs := logging.MatchDecision("unmatched", reason)
		attrs = append(attrs, logging.String(logging.FieldPrimary, primaries[idx].Identifier))
		logger.Debug("primary unmatched", logging.Args(attrs...)...)
	}
}

func (r *Runner) applyMerge(summary *Summary, report merge.Report) {
	summary.Merged = report.Merged
	summary.MergeFailures = report.Failed
	for i, outcome := range report.Outcomes {
		if i >= len(summary.Pairs) {
			break
		}
		summary.Pairs[i].Output = outcome.Output
		if outcome.Err != nil {
			summary.Pairs[i].Error = outcome.Err.Error()
			summary.Failures = append(summary.Failures, Failure{
				Stage:     "merge",
				Documents: []string{outcome.Primary, outcome.Support},
				Message:   Wrap(ErrMerge, "merge", "", "", outcome.Err).Error(),
			})
		}
	}
}

func (r *Runner) applyRoute(summary *Summary, report orphans.Report) {
	summary.OrphansCopied = report.Copied
	summary.OrphansReused = report.Reused
	summary.RoutingFailures = report.Failed
	for i, outcome := range report.Outcomes {
		if i >= len(summary.Orphans) {
			break
		}
		summary.Orphans[i].Target = outcome.Target
		summary.Orphans[i].Reused = outcome.Reused
		if outcome.Err != nil {
			summary.Orphans[i].Error = outcome.Err.Error()
			summary.Failures = append(summary.Failures, Failure{
				Stage:     "route",
				Documents: []string{outcome.Identifier},
				Message:   Wrap(ErrRouting, "route", "", "", outcome.Err).Error(),
			})
		}
	}
}

// finish stamps the summary, logs it and hands it to every recorder.
// Recorder failures are logged and never fail the run.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, summary *Summary, runErr error) *Summary {
	summary.FinishedAt = r.clock()
	switch {
	case runErr != nil:
		summary.Status = StatusCancelled
	case summary.Errored() > 0:
		summary.Status = StatusCompletedWithErrors
	default:
		summary.Status = StatusCompleted
	}

	fields := []logging.Attr{
		logging.String("status", string(summary.Status)),
		logging.Int("primaries", summary.Primaries),
		logging.Int("supports", summary.Supports),
		logging.Int("matched", summary.Matched),
		logging.Int("merged", summary.Merged),
		logging.Int("merge_failures", summary.MergeFailures),
		logging.Int("orphans", summary.Orphaned()),
		logging.Int("orphans_copied", summary.OrphansCopied),
		logging.Int("routing_failures", summary.RoutingFailures),
		logging.Duration("duration", summary.Duration()),
	}
	if summary.Status == StatusCompletedWithErrors {
		fields = append(fields, logging.Alert("leftovers need manual review"))
	}
	if runErr != nil {
		fields = append(fields,
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "remaining pairs and orphans were not processed; outputs already written are kept"),
			logging.String(logging.FieldErrorHint, "re-run the pipeline; existing outputs are reused"),
		)
		logging.WarnWithContext(logger, "run stopped early", "run_cancelled", fields...)
	} else {
		logger.Info("run finished", logging.Args(fields...)...)
	}

	recordCtx := context.WithoutCancel(ctx)
	for _, rec := range r.Recorders {
		if rec == nil {
			continue
		}
		if err := rec.RecordRun(recordCtx, summary); err != nil {
			logging.WarnWithContext(logger, "run record failed", "record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state directory and metrics textfile directory"),
				logging.String(logging.FieldImpact, "run is missing from history or metrics"),
			)
		}
	}
	return summary
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

func (r *Runner) id() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.NewString()
}

func pick(records []attributes.Record, idx []int) []attributes.Record {
	out := make([]attributes.Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, records[i])
	}
	return out
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, runlock.ErrLocked):
		return "wait for the other run on this holding directory to finish"
	case errors.Is(err, ErrPreflight):
		return "fix the listed directories or lower preflight.min_free_mib"
	default:
		return "check the pipeline configuration"
	}
}
