package reconcile

import "time"

// Status is the final state of a run.
type Status string

const (
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusCancelled           Status = "cancelled"
)

// Summary is the structured result of one run. Successes and failures are
// counted separately so leftovers can be reconciled by hand.
type Summary struct {
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Strategy   string    `json:"strategy"`
	DatePolicy string    `json:"date_policy"`
	MinScore   int       `json:"min_score"`
	DryRun     bool      `json:"dry_run"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Primaries          int `json:"primaries"`
	Supports           int `json:"supports"`
	Matched            int `json:"matched"`
	Merged             int `json:"merged"`
	MergeFailures      int `json:"merge_failures"`
	UnmatchedPrimaries int `json:"unmatched_primaries"`
	UnmatchedSupports  int `json:"unmatched_supports"`
	OrphansCopied      int `json:"orphans_copied"`
	OrphansReused      int `json:"orphans_reused"`
	RoutingFailures    int `json:"routing_failures"`

	Pairs    []PairResult   `json:"pairs"`
	Orphans  []OrphanResult `json:"orphans"`
	Failures []Failure      `json:"failures,omitempty"`
}

// PairResult is one accepted pair. Output is the planned path on dry runs.
type PairResult struct {
	Primary   string   `json:"primary"`
	Support   string   `json:"support"`
	Score     int      `json:"score"`
	Satisfied []string `json:"satisfied"`
	Output    string   `json:"output"`
	Error     string   `json:"error,omitempty"`
}

// OrphanResult is one unmatched document. Target is empty on dry runs.
type OrphanResult struct {
	Identifier string `json:"identifier"`
	Side       string `json:"side"`
	Target     string `json:"target,omitempty"`
	Reused     bool   `json:"reused,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Failure is a per-item error captured during a run.
type Failure struct {
	Stage     string   `json:"stage"`
	Documents []string `json:"documents"`
	Message   string   `json:"message"`
}

// Errored returns the number of failed merges and copies.
func (s *Summary) Errored() int {
	return s.MergeFailures + s.RoutingFailures
}

// Orphaned returns the number of unmatched documents on both sides.
func (s *Summary) Orphaned() int {
	return s.UnmatchedPrimaries + s.UnmatchedSupports
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
