// Package notifications pushes runs that need manual follow-up to an ntfy
// topic. A run that finishes with failed merges or copies leaves documents
// behind, and the push is what tells an operator to go look.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docmatch/internal/config"
	"docmatch/internal/reconcile"
)

const userAgent = "docmatch/1"

const defaultTimeout = 10 * time.Second

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Notifier publishes to one ntfy topic URL.
type Notifier struct {
	endpoint string
	client   *http.Client
}

// New returns a notifier for cfg, or nil when no topic is configured.
func New(cfg config.Notifications) *Notifier {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return nil
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

// RecordRun implements reconcile.Recorder. Only runs that completed with
// failed merges or copies are published.
func (n *Notifier) RecordRun(ctx context.Context, s *reconcile.Summary) error {
	if n == nil || s == nil || s.DryRun || s.Status != reconcile.StatusCompletedWithErrors {
		return nil
	}
	return n.send(ctx, reviewPayload(s))
}

// Test publishes a low priority message to check the topic is reachable.
func (n *Notifier) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "docmatch - test",
		message:  "Notification test",
		tags:     []string{"docmatch", "test"},
		priority: "low",
	})
}

func reviewPayload(s *reconcile.Summary) payload {
	var b strings.Builder
	fmt.Fprintf(&b, "%d merged, %d merge failure(s), %d copy failure(s)", s.Merged, s.MergeFailures, s.RoutingFailures)
	if orphans := s.Orphaned(); orphans > 0 {
		fmt.Fprintf(&b, ", %d orphan(s)", orphans)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n%s: %s", f.Stage, strings.Join(f.Documents, " + "))
	}
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nRun %s", s.RunID)
	}
	return payload{
		title:    fmt.Sprintf("docmatch - %s needs review", s.Pipeline),
		message:  b.String(),
		tags:     []string{"docmatch", s.Pipeline, "review"},
		priority: "high",
	}
}

func (n *Notifier) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
