// Package metrics exports run results as Prometheus metrics in the
// node-exporter textfile format.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"docmatch/internal/reconcile"
	"docmatch/internal/textutil"
)

const namespace = "docmatch"

// Exporter writes one docmatch_<pipeline>.prom file per pipeline, replaced
// after every non dry run.
type Exporter struct {
	Dir string
}

// NewExporter returns an exporter writing into dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// FileName returns the textfile name used for pipeline. The pipeline name is
// reduced to a lowercase token so any configured name yields a safe path.
func FileName(pipeline string) string {
	return fmt.Sprintf("%s_%s.prom", namespace, textutil.SanitizeToken(pipeline))
}

// RecordRun implements reconcile.Recorder.
func (e *Exporter) RecordRun(_ context.Context, s *reconcile.Summary) error {
	if e == nil || e.Dir == "" || s == nil || s.DryRun {
		return nil
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	reg := prometheus.NewRegistry()
	if err := register(reg, s); err != nil {
		return err
	}
	path := filepath.Join(e.Dir, FileName(s.Pipeline))
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func register(reg *prometheus.Registry, s *reconcile.Summary) error {
	constLabels := prometheus.Labels{"pipeline": s.Pipeline}

	documents := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_documents",
		Help:        "Documents enumerated by the last run, by side.",
		ConstLabels: constLabels,
	}, []string{"side"})
	documents.WithLabelValues("primary").Set(float64(s.Primaries))
	documents.WithLabelValues("support").Set(float64(s.Supports))

	pairs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_pairs",
		Help:        "Pairs handled by the last run, by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	pairs.WithLabelValues("matched").Set(float64(s.Matched))
	pairs.WithLabelValues("merged").Set(float64(s.Merged))
	pairs.WithLabelValues("failed").Set(float64(s.MergeFailures))

	orphans := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_orphans",
		Help:        "Unmatched documents left by the last run, by side.",
		ConstLabels: constLabels,
	}, []string{"side"})
	orphans.WithLabelValues("primary").Set(float64(s.UnmatchedPrimaries))
	orphans.WithLabelValues("support").Set(float64(s.UnmatchedSupports))

	copies := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_orphan_copies",
		Help:        "Orphan copies made by the last run, by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	copies.WithLabelValues("copied").Set(float64(s.OrphansCopied - s.OrphansReused))
	copies.WithLabelValues("reused").Set(float64(s.OrphansReused))
	copies.WithLabelValues("failed").Set(float64(s.RoutingFailures))

	scores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "run_pair_score",
		Help:        "Scores of the pairs accepted by the last run.",
		ConstLabels: constLabels,
		Buckets:     prometheus.LinearBuckets(20, 20, 10),
	})
	for _, p := range s.Pairs {
		scores.Observe(float64(p.Score))
	}

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_duration_seconds",
		Help:        "Wall-clock duration of the last run.",
		ConstLabels: constLabels,
	})
	duration.Set(s.Duration().Seconds())

	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_last_finished_timestamp_seconds",
		Help:        "Unix time the last run finished.",
		ConstLabels: constLabels,
	})
	finished.Set(float64(s.FinishedAt.Unix()))

	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_success",
		Help:        "1 when the last run completed without per-item failures.",
		ConstLabels: constLabels,
	})
	if s.Status == reconcile.StatusCompleted {
		success.Set(1)
	}

	for _, c := range []prometheus.Collector{documents, pairs, orphans, copies, scores, duration, finished, success} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}
	return nil
}
