package matching

import (
	"math"

	"docmatch/internal/attributes"
)

// Optimal maximizes the summed score of all accepted pairs. Pairs that are
// rejected or fall under MinScore are never assigned.
type Optimal struct {
	Scorer   Scorer
	MinScore int
}

// Assign implements Assigner.
func (o Optimal) Assign(primaries, supports []attributes.Record) Assignment {
	n, m := len(primaries), len(supports)
	matched := make([]bool, n)
	claimed := make([]bool, m)
	if n == 0 || m == 0 {
		return Assignment{UnmatchedPrimaries: unset(matched), UnmatchedSupports: unset(claimed)}
	}

	candidates := make([][]Candidate, n)
	valid := make([][]bool, n)
	maxScore := 0
	for i := range primaries {
		candidates[i] = make([]Candidate, m)
		valid[i] = make([]bool, m)
		for j := range supports {
			c := o.Scorer.Score(primaries[i], supports[j])
			candidates[i][j] = c
			if c.Rejected || c.Score < o.MinScore || c.Score <= 0 {
				continue
			}
			valid[i][j] = true
			maxScore = max(maxScore, c.Score)
		}
	}

	// The solver needs a square matrix, so the shorter side is padded with
	// dummy primaries or supports. A real primary left on a dummy support is
	// unmatched; a dummy primary holding a real support leaves it unclaimed.
	// Every cell costs ceiling - score, and padded, rejected or sub-threshold
	// cells cost the full ceiling: taking one is never cheaper than leaving
	// both documents out, so they only fill otherwise empty rows.
	size := max(n, m)
	ceiling := maxScore + 1
	cost := make([][]int, size)
	for i := 0; i < size; i++ {
		cost[i] = make([]int, size)
		for j := 0; j < size; j++ {
			cost[i][j] = ceiling
			if i < n && j < m && valid[i][j] {
				cost[i][j] = ceiling - candidates[i][j].Score
			}
		}
	}

	var pairs []Pair
	for i, j := range minCostAssignment(cost) {
		if i >= n || j >= m || !valid[i][j] {
			continue
		}
		matched[i] = true
		claimed[j] = true
		pairs = append(pairs, Pair{
			Primary:   i,
			Support:   j,
			Score:     candidates[i][j].Score,
			Satisfied: candidates[i][j].Satisfied,
		})
	}
	return Assignment{
		Pairs:              pairs,
		UnmatchedPrimaries: unset(matched),
		UnmatchedSupports:  unset(claimed),
	}
}

// minCostAssignment is the O(n^3) Hungarian method with row and column
// potentials over a square integer matrix. It returns, for every row, the
// column assigned to it. Rows are added one at a time, each by a shortest
// augmenting path found against the current potentials.
func minCostAssignment(cost [][]int) []int {
	n := len(cost)
	const unreachable = math.MaxInt / 2

	// Index 0 is a virtual column used to start each augmenting path; real
	// rows and columns are 1-based.
	rowPot := make([]int, n+1)
	colPot := make([]int, n+1)
	rowOf := make([]int, n+1)
	prevCol := make([]int, n+1)

	for row := 1; row <= n; row++ {
		rowOf[0] = row
		col := 0
		slack := make([]int, n+1)
		for j := range slack {
			slack[j] = unreachable
		}
		visited := make([]bool, n+1)
		for rowOf[col] != 0 {
			visited[col] = true
			r := rowOf[col]
			delta, next := unreachable, 0
			for j := 1; j <= n; j++ {
				if visited[j] {
					continue
				}
				if reduced := cost[r-1][j-1] - rowPot[r] - colPot[j]; reduced < slack[j] {
					slack[j] = reduced
					prevCol[j] = col
				}
				if slack[j] < delta {
					delta, next = slack[j], j
				}
			}
			for j := 0; j <= n; j++ {
				if visited[j] {
					rowPot[rowOf[j]] += delta
					colPot[j] -= delta
				} else {
					slack[j] -= delta
				}
			}
			col = next
		}
		for col != 0 {
			prev := prevCol[col]
			rowOf[col] = rowOf[prev]
			col = prev
		}
	}

	assign := make([]int, n)
	for j := 1; j <= n; j++ {
		assign[rowOf[j]-1] = j - 1
	}
	return assign
}
