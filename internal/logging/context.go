package logging

import (
	"context"
	"log/slog"
)

// Field keys shared by every docmatch log line.
const (
	FieldComponent      = "component"
	FieldRunID          = "run_id"
	FieldPipeline       = "pipeline"
	FieldStage          = "stage"
	FieldDocument       = "document"
	FieldPrimary        = "primary"
	FieldSupport        = "support"
	FieldEventType      = "event_type"
	FieldErrorHint      = "error_hint"
	FieldImpact         = "impact"
	FieldAlert          = "alert"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

type contextKey int

const (
	runIDKey contextKey = iota
	pipelineKey
	stageKey
)

// contextFields lists the context keys in the order they are logged.
var contextFields = []struct {
	key   contextKey
	field string
}{
	{runIDKey, FieldRunID},
	{pipelineKey, FieldPipeline},
	{stageKey, FieldStage},
}

// WithRunID tags ctx with a run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithPipeline tags ctx with a pipeline name.
func WithPipeline(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pipelineKey, name)
}

// WithStage tags ctx with a run stage (assign, merge, route).
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// WithContext returns logger tagged with the run, pipeline and stage stored
// on ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, f := range contextFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			args = append(args, slog.String(f.field, v))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
