package reconcile

import (
	"context"
	"log/slog"

	"docmatch/internal/attributes"
	"docmatch/internal/config"
	"docmatch/internal/documents"
	"docmatch/internal/logging"
	"docmatch/internal/matching"
	"docmatch/internal/orphans"
)

// Pipeline is a resolved, runnable pipeline.
type Pipeline struct {
	Name           string
	PrimaryDir     string
	SupportDir     string
	CombinedDir    string
	HoldingDir     string
	Extensions     []string
	BodyTextSuffix string
	MergedMarker   string
	Strategy       matching.Strategy
	Policy         matching.Policy
	Collision      orphans.CollisionPolicy
	Extractor      *attributes.Extractor
	Assigner       matching.Assigner
}

// PipelineFromConfig resolves the named pipeline of a loaded config.
func PipelineFromConfig(cfg *config.Config, name string) (Pipeline, error) {
	if cfg == nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "config is nil", nil)
	}
	p, err := cfg.Pipeline(name)
	if err != nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "", err)
	}
	strategy, err := matching.ParseStrategy(p.Strategy)
	if err != nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "strategy", err)
	}
	if _, err := matching.ParseDatePolicy(p.DatePolicy); err != nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "date_policy", err)
	}
	collision, err := orphans.ParseCollisionPolicy(p.OrphanCollision)
	if err != nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "orphan_collision", err)
	}
	policy := p.ScoringPolicy()
	assigner, err := matching.NewAssigner(strategy, policy)
	if err != nil {
		return Pipeline{}, Wrap(ErrConfiguration, "pipeline", name, "assigner", err)
	}
	return Pipeline{
		Name:           name,
		PrimaryDir:     p.PrimaryDir,
		SupportDir:     p.SupportDir,
		CombinedDir:    p.CombinedDir,
		HoldingDir:     p.HoldingDir,
		Extensions:     append([]string(nil), p.Extensions...),
		BodyTextSuffix: p.BodyTextSuffix,
		MergedMarker:   p.MergedMarker,
		Strategy:       strategy,
		Policy:         policy,
		Collision:      collision,
		Extractor:      attributes.NewExtractor(p.ExtractorOptions()),
		Assigner:       assigner,
	}, nil
}

// Collect enumerates both input collections and extracts their records, in
// directory order. A collection that cannot be listed fails with
// ErrEnumeration.
func (p Pipeline) Collect(ctx context.Context, logger *slog.Logger) (primaries, supports []attributes.Record, err error) {
	logger = logging.WithContext(logging.WithStage(ctx, "extract"), logging.NewComponentLogger(logger, "reconcile"))
	if primaries, err = p.collect(p.PrimaryDir, logger); err != nil {
		return nil, nil, Wrap(ErrEnumeration, "extract", "list primaries", "", err)
	}
	if supports, err = p.collect(p.SupportDir, logger); err != nil {
		return nil, nil, Wrap(ErrEnumeration, "extract", "list supports", "", err)
	}
	return primaries, supports, nil
}

// Record extracts the attributes of a single document.
func (p Pipeline) Record(doc documents.Document) attributes.Record {
	return p.extractor().Extract(attributes.Input{
		Identifier: doc.Name,
		Source:     doc.Path,
		BodyText:   doc.BodyText,
	})
}

// ListOptions returns the document listing options of the pipeline.
func (p Pipeline) ListOptions(logger *slog.Logger) documents.ListOptions {
	return documents.ListOptions{
		Extensions:     p.Extensions,
		BodyTextSuffix: p.BodyTextSuffix,
		Logger:         logger,
	}
}

func (p Pipeline) collect(dir string, logger *slog.Logger) ([]attributes.Record, error) {
	docs, err := documents.List(dir, p.ListOptions(logger))
	if err != nil {
		return nil, err
	}
	records := make([]attributes.Record, 0, len(docs))
	for _, doc := range docs {
		rec := p.Record(doc)
		logger.Debug("document extracted",
			logging.Document(rec.Identifier),
			logging.String("attributes", rec.Summary()),
		)
		records = append(records, rec)
	}
	return records, nil
}

func (p Pipeline) extractor() *attributes.Extractor {
	if p.Extractor != nil {
		return p.Extractor
	}
	return attributes.NewExtractor(attributes.DefaultOptions())
}

func (p Pipeline) assigner() matching.Assigner {
	if p.Assigner != nil {
		return p.Assigner
	}
	assigner, err := matching.NewAssigner(p.Strategy, p.Policy)
	if err != nil {
		return matching.Greedy{Scorer: p.Policy, MinScore: p.Policy.MinScore}
	}
	return assigner
}
