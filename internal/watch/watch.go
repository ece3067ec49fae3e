// Package watch re-runs a pipeline when its input directories change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"docmatch/internal/logging"
)

// DefaultSettle is the quiet period that must follow the last change before a
// run is triggered.
const DefaultSettle = 5 * time.Second

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Watcher triggers a callback once the watched directories have been quiet
// for Settle after a change. Hidden files and permission-only changes are
// ignored.
type Watcher struct {
	Dirs   []string
	Settle time.Duration
	// Initial triggers one run before waiting for changes.
	Initial bool
	Logger  *slog.Logger
}

// Run blocks until ctx is done. Trigger errors are logged and watching
// continues. Triggers never overlap.
func (w *Watcher) Run(ctx context.Context, trigger func(context.Context) error) error {
	logger := logging.NewComponentLogger(w.Logger, "watch")
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	defer fw.Close()
	for _, dir := range w.Dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Info("watching for changes",
		logging.String("dirs", strings.Join(w.Dirs, ", ")),
		logging.Duration("settle", settle),
	)

	fire := func() {
		if err := trigger(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(logger, "triggered run failed", "watch_run_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the reported problem; the next change triggers another run"),
				logging.String(logging.FieldImpact, "documents from this change are not reconciled yet"),
			)
		}
	}
	if w.Initial {
		fire()
	}

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("change detected",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)
			timer.Reset(settle)
			pending = true
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the watch if changes stop being picked up"),
				logging.String(logging.FieldImpact, "some changes may be missed"),
			)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			fire()
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
