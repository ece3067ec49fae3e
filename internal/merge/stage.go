// Package merge concatenates every accepted pair into one output document.
package merge

import (
	"context"
	"log/slog"
	"path/filepath"

	"docmatch/internal/attributes"
	"docmatch/internal/logging"
)

// Job is one accepted pair to merge, primary first.
type Job struct {
	Primary attributes.Record
	Support attributes.Record
	Score   int
}

// Outcome records what happened to one job.
type Outcome struct {
	Primary string
	Support string
	Output  string
	Err     error
}

// Report aggregates a stage run.
type Report struct {
	Merged   int
	Failed   int
	Outcomes []Outcome
}

// Stage writes merged documents into OutputDir.
type Stage struct {
	Concat    Concatenator
	OutputDir string
	Marker    string
	Logger    *slog.Logger
}

// Run merges every job in order. A failing pair is logged and counted and
// never stops the batch. Run returns early with the context error when ctx is
// done; outputs already written are left in place.
func (s *Stage) Run(ctx context.Context, jobs []Job) (Report, error) {
	logger := logging.WithContext(logging.WithStage(ctx, "merge"), logging.NewComponentLogger(s.Logger, "merge"))
	report := Report{Outcomes: make([]Outcome, 0, len(jobs))}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := OutputName(job.Primary, job.Support, s.Marker)
		outcome := Outcome{
			Primary: job.Primary.Identifier,
			Support: job.Support.Identifier,
			Output:  filepath.Join(s.OutputDir, name),
		}
		if err := s.Concat.Concatenate(ctx, outcome.Output, job.Primary.Source, job.Support.Source); err != nil {
			outcome.Err = err
			report.Failed++
			attrs := append(logging.Pair(job.Primary.Identifier, job.Support.Identifier),
				logging.String("output", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that both PDFs open and the output directory is writable"),
				logging.String(logging.FieldImpact, "pair left unmerged; sources are untouched"),
			)
			logging.WarnWithContext(logger, "merge failed", "merge_failed", attrs...)
		} else {
			report.Merged++
			attrs := append(logging.Pair(job.Primary.Identifier, job.Support.Identifier),
				logging.String("output", name),
				logging.Int("score", job.Score),
			)
			logger.Debug("pair merged", logging.Args(attrs...)...)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}
