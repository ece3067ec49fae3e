package matching

import (
	"fmt"
	"strings"

	"docmatch/internal/attributes"
)

// Pair is one accepted primary/support assignment, by input index.
type Pair struct {
	Primary   int
	Support   int
	Score     int
	Satisfied []string
}

// Assignment is an injective partial mapping from primaries to supports plus
// both complement sets. Indices refer to the slices given to Assign.
type Assignment struct {
	Pairs              []Pair
	UnmatchedPrimaries []int
	UnmatchedSupports  []int
}

// Assigner pairs primaries with supports.
type Assigner interface {
	Assign(primaries, supports []attributes.Record) Assignment
}

// Strategy names an Assigner implementation.
type Strategy string

const (
	StrategyGreedy  Strategy = "greedy"
	StrategyOptimal Strategy = "optimal"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyGreedy, "":
		return StrategyGreedy, nil
	case StrategyOptimal:
		return StrategyOptimal, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want greedy or optimal)", value)
	}
}

// NewAssigner returns the assigner for strategy scoring with policy.
func NewAssigner(strategy Strategy, policy Policy) (Assigner, error) {
	policy = policy.normalized()
	switch strategy {
	case StrategyGreedy, "":
		return Greedy{Scorer: policy, MinScore: policy.MinScore}, nil
	case StrategyOptimal:
		return Optimal{Scorer: policy, MinScore: policy.MinScore}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// Greedy walks primaries in input order and gives each the highest-scoring
// support nobody has claimed yet. A claim is never revisited. Ties go to the
// support with the lowest index.
type Greedy struct {
	Scorer   Scorer
	MinScore int
}

// Assign implements Assigner.
func (g Greedy) Assign(primaries, supports []attributes.Record) Assignment {
	claimed := make([]bool, len(supports))
	matched := make([]bool, len(primaries))
	var pairs []Pair

	for i := range primaries {
		best := -1
		var bestCandidate Candidate
		for j := range supports {
			if claimed[j] {
				continue
			}
			c := g.Scorer.Score(primaries[i], supports[j])
			if c.Rejected {
				continue
			}
			if best < 0 || c.Score > bestCandidate.Score {
				best = j
				bestCandidate = c
			}
		}
		if best < 0 || bestCandidate.Score < g.MinScore {
			continue
		}
		claimed[best] = true
		matched[i] = true
		pairs = append(pairs, Pair{
			Primary:   i,
			Support:   best,
			Score:     bestCandidate.Score,
			Satisfied: bestCandidate.Satisfied,
		})
	}
	return Assignment{
		Pairs:              pairs,
		UnmatchedPrimaries: unset(matched),
		UnmatchedSupports:  unset(claimed),
	}
}

func unset(flags []bool) []int {
	out := []int{}
	for i, f := range flags {
		if !f {
			out = append(out, i)
		}
	}
	return out
}
