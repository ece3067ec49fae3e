// Package orphans copies unmatched documents into the holding directory for
// manual review. Sources are never moved or modified.
package orphans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docmatch/internal/attributes"
	"docmatch/internal/fileutil"
	"docmatch/internal/logging"
	"docmatch/internal/textutil"
)

// Side tells which collection an orphan came from.
type Side string

const (
	SidePrimary Side = "primary"
	SideSupport Side = "support"
)

// CollisionPolicy decides what happens when the holding directory already
// has a file with the orphan's name.
type CollisionPolicy string

const (
	// CollisionRename writes <base>-<n><ext>, reusing an existing file with
	// identical content instead of writing a duplicate.
	CollisionRename CollisionPolicy = "rename"
	// CollisionReject records a routing failure.
	CollisionReject CollisionPolicy = "reject"
	// CollisionOverwrite replaces the existing file.
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// ErrCollision reports a rejected name collision in the holding directory.
var ErrCollision = errors.New("holding directory already has a file with this name")

const maxRenameAttempts = 10000

// ParseCollisionPolicy validates a configured collision policy.
func ParseCollisionPolicy(value string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case CollisionRename, CollisionReject, CollisionOverwrite:
		return p, nil
	case "":
		return CollisionRename, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", value)
	}
}

// Outcome records what happened to one orphan.
type Outcome struct {
	Identifier string
	Source     string
	Side       Side
	Target     string
	// Reused is set when an identical copy was already present.
	Reused bool
	Err    error
}

// Report aggregates a routing run. Copied includes reused targets.
type Report struct {
	Copied   int
	Reused   int
	Failed   int
	Outcomes []Outcome
}

// Router copies orphans into HoldingDir.
type Router struct {
	HoldingDir string
	Collision  CollisionPolicy
	Logger     *slog.Logger
}

// Route copies every unmatched primary, then every unmatched support. A copy
// failure is logged and counted and never stops the batch. Route returns
// early with the context error when ctx is done.
func (r *Router) Route(ctx context.Context, primaries, supports []attributes.Record) (Report, error) {
	logger := logging.WithContext(logging.WithStage(ctx, "route"), logging.NewComponentLogger(r.Logger, "orphans"))
	report := Report{Outcomes: make([]Outcome, 0, len(primaries)+len(supports))}

	for _, batch := range []struct {
		side    Side
		records []attributes.Record
	}{
		{SidePrimary, primaries},
		{SideSupport, supports},
	} {
		for _, rec := range batch.records {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			outcome := r.route(rec, batch.side)
			switch {
			case outcome.Err != nil:
				report.Failed++
				logging.WarnWithContext(logger, "orphan copy failed", "orphan_copy_failed",
					logging.Document(rec.Identifier),
					logging.String("side", string(batch.side)),
					logging.Error(outcome.Err),
					logging.String(logging.FieldErrorHint, "check the holding directory permissions and free space"),
					logging.String(logging.FieldImpact, "document is not in the holding directory; review it from its source folder"),
				)
			case outcome.Reused:
				report.Copied++
				report.Reused++
				logger.Debug("orphan already held",
					logging.Document(rec.Identifier),
					logging.String("target", filepath.Base(outcome.Target)),
				)
			default:
				report.Copied++
				logger.Debug("orphan copied",
					logging.Document(rec.Identifier),
					logging.String("side", string(batch.side)),
					logging.String("target", filepath.Base(outcome.Target)),
				)
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	return report, nil
}

func (r *Router) route(rec attributes.Record, side Side) Outcome {
	outcome := Outcome{Identifier: rec.Identifier, Source: rec.Source, Side: side}

	name := textutil.SanitizeFileName(rec.Identifier)
	if name == "" {
		name = textutil.SanitizeFileName(filepath.Base(rec.Source))
	}
	if name == "" {
		outcome.Err = fmt.Errorf("document has no usable name")
		return outcome
	}

	target, reused, err := r.resolveTarget(rec.Source, name)
	outcome.Target = target
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if reused {
		outcome.Reused = true
		return outcome
	}
	if err := fileutil.CopyFilePreserve(rec.Source, target); err != nil {
		outcome.Err = fmt.Errorf("copy to holding: %w", err)
	}
	return outcome
}

// resolveTarget picks the destination path for source under the collision
// policy and reports whether an identical file is already there.
func (r *Router) resolveTarget(source, name string) (string, bool, error) {
	target := filepath.Join(r.HoldingDir, name)
	exists, err := pathExists(target)
	if err != nil || !exists {
		return target, false, err
	}

	switch r.Collision {
	case CollisionOverwrite:
		return target, false, nil
	case CollisionReject:
		return target, false, fmt.Errorf("%w: %s", ErrCollision, name)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for attempt := 0; attempt <= maxRenameAttempts; attempt++ {
		candidate := target
		if attempt > 0 {
			candidate = filepath.Join(r.HoldingDir, fmt.Sprintf("%s-%d%s", base, attempt, ext))
		}
		exists, err := pathExists(candidate)
		if err != nil {
			return candidate, false, err
		}
		if !exists {
			return candidate, false, nil
		}
		same, err := fileutil.SameContent(source, candidate)
		if err != nil {
			return candidate, false, err
		}
		if same {
			return candidate, true, nil
		}
	}
	return target, false, fmt.Errorf("exhausted holding filename slots for %s", name)
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
