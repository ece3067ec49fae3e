package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docmatch/internal/reconcile"
)

var (
	// ErrNotFound reports that no run matches the requested ID.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous reports that an ID prefix matches more than one run.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

const runColumns = `id, pipeline, status, dry_run, strategy, date_policy, min_score,
	started_at, finished_at, primaries, supports, matched, merged, merge_failures,
	unmatched_primaries, unmatched_supports, orphans_copied, orphans_reused, routing_failures`

// RecordRun stores a finished run with its pairs and orphans. Recording the
// same run ID again replaces the earlier record.
func (s *Store) RecordRun(ctx context.Context, summary *reconcile.Summary) error {
	if summary == nil {
		return errors.New("record run: nil summary")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.recordRun(ctx, summary)
	})
}

func (s *Store) recordRun(ctx context.Context, summary *reconcile.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"pairs", "orphans"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, summary.RunID); err != nil {
			return fmt.Errorf("replace %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, summary.RunID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Pipeline,
		string(summary.Status),
		boolToInt(summary.DryRun),
		summary.Strategy,
		summary.DatePolicy,
		summary.MinScore,
		formatTime(summary.StartedAt),
		formatTime(summary.FinishedAt),
		summary.Primaries,
		summary.Supports,
		summary.Matched,
		summary.Merged,
		summary.MergeFailures,
		summary.UnmatchedPrimaries,
		summary.UnmatchedSupports,
		summary.OrphansCopied,
		summary.OrphansReused,
		summary.RoutingFailures,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, pair := range summary.Pairs {
		satisfied, err := json.Marshal(nonNil(pair.Satisfied))
		if err != nil {
			return fmt.Errorf("encode criteria: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO pairs
			(run_id, position, primary_name, support_name, score, satisfied, output, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID, i, pair.Primary, pair.Support, pair.Score, string(satisfied),
			nullableString(pair.Output), nullableString(pair.Error),
		); err != nil {
			return fmt.Errorf("insert pair: %w", err)
		}
	}
	for i, orphan := range summary.Orphans {
		if _, err := tx.ExecContext(ctx, `INSERT INTO orphans
			(run_id, position, identifier, side, target, reused, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID, i, orphan.Identifier, orphan.Side,
			nullableString(orphan.Target), boolToInt(orphan.Reused), nullableString(orphan.Error),
		); err != nil {
			return fmt.Errorf("insert orphan: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, without pairs or
// orphans. An empty pipeline lists every pipeline; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, pipeline string, limit int) ([]reconcile.Summary, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if pipeline != "" {
		query += ` WHERE pipeline = ?`
		args = append(args, pipeline)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []reconcile.Summary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its pairs and orphans. id may be a unique prefix
// of a run ID.
func (s *Store) GetRun(ctx context.Context, id string) (*reconcile.Summary, error) {
	ctx = ensureContext(ctx)
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*reconcile.Summary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].RunID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	run := matches[0]
	if run.Pairs, err = s.pairs(ctx, run.RunID); err != nil {
		return nil, err
	}
	if run.Orphans, err = s.orphans(ctx, run.RunID); err != nil {
		return nil, err
	}
	for _, p := range run.Pairs {
		if p.Error != "" {
			run.Failures = append(run.Failures, reconcile.Failure{Stage: "merge", Documents: []string{p.Primary, p.Support}, Message: p.Error})
		}
	}
	for _, o := range run.Orphans {
		if o.Error != "" {
			run.Failures = append(run.Failures, reconcile.Failure{Stage: "route", Documents: []string{o.Identifier}, Message: o.Error})
		}
	}
	return run, nil
}

// DeleteBefore removes runs that started before cutoff and returns how many
// were removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func (s *Store) pairs(ctx context.Context, runID string) ([]reconcile.PairResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT primary_name, support_name, score, satisfied, output, error
		FROM pairs WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	pairs := []reconcile.PairResult{}
	for rows.Next() {
		var (
			p         reconcile.PairResult
			satisfied string
			output    sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&p.Primary, &p.Support, &p.Score, &satisfied, &output, &errText); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		if err := json.Unmarshal([]byte(satisfied), &p.Satisfied); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
		p.Output = output.String
		p.Error = errText.String
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *Store) orphans(ctx context.Context, runID string) ([]reconcile.OrphanResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier, side, target, reused, error
		FROM orphans WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer rows.Close()

	orphans := []reconcile.OrphanResult{}
	for rows.Next() {
		var (
			o       reconcile.OrphanResult
			target  sql.NullString
			reused  int
			errText sql.NullString
		)
		if err := rows.Scan(&o.Identifier, &o.Side, &target, &reused, &errText); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		o.Target = target.String
		o.Reused = reused != 0
		o.Error = errText.String
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*reconcile.Summary, error) {
	var (
		run        reconcile.Summary
		status     string
		dryRun     int
		startedAt  string
		finishedAt string
	)
	err := scanner.Scan(
		&run.RunID, &run.Pipeline, &status, &dryRun, &run.Strategy, &run.DatePolicy, &run.MinScore,
		&startedAt, &finishedAt, &run.Primaries, &run.Supports, &run.Matched, &run.Merged, &run.MergeFailures,
		&run.UnmatchedPrimaries, &run.UnmatchedSupports, &run.OrphansCopied, &run.OrphansReused, &run.RoutingFailures,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Status = reconcile.Status(status)
	run.DryRun = dryRun != 0
	if run.StartedAt, err = parseTimeString(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTimeString(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// formatTime uses a fixed-width layout so stored values sort chronologically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
