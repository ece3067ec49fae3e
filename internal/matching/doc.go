// Package matching scores primary/support attribute records against each
// other and assigns supports to primaries one-to-one.
//
// A Policy carries the date policy, the weight table and the acceptance
// threshold. Two Assigner implementations share it: Greedy claims the best
// unclaimed support for each primary in input order, Optimal maximizes the
// total score with the Hungarian algorithm.
package matching
