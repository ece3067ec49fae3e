// Package reconcile runs a pipeline end to end.
//
// A run enumerates both input collections, extracts an attribute record per
// document, assigns primaries to supports, merges every accepted pair into the
// combined directory and copies every leftover document into the holding
// directory. Steps execute sequentially in one goroutine. Per-item merge and
// copy failures are counted in the Summary; only a failure to enumerate an
// input collection, invalid configuration, failed preflight checks or a held
// run lock abort the run.
//
// Runs against the same holding directory are serialized with an advisory
// lock. A context deadline stops the run between items; outputs already
// written stay in place.
package reconcile
