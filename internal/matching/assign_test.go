package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/attributes"
)

// tableScorer scores by identifier lookup; missing entries score zero.
type tableScorer map[string]Candidate

func (s tableScorer) Score(primary, support attributes.Record) Candidate {
	return s[primary.Identifier+"|"+support.Identifier]
}

func records(ids ...string) []attributes.Record {
	out := make([]attributes.Record, len(ids))
	for i, id := range ids {
		out[i] = attributes.Record{Identifier: id}
	}
	return out
}

func TestGreedyFirstPrimaryClaimsContestedSupport(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 45},
		"p2|s1": {Score: 45},
	}
	got := Greedy{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2"), records("s1"))

	require.Len(t, got.Pairs, 1)
	assert.Equal(t, 0, got.Pairs[0].Primary)
	assert.Equal(t, 0, got.Pairs[0].Support)
	assert.Equal(t, []int{1}, got.UnmatchedPrimaries)
	assert.Empty(t, got.UnmatchedSupports)
}

func TestGreedyClaimIsNotRevisited(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 50},
		"p2|s1": {Score: 200},
		"p2|s2": {Score: 45},
	}
	got := Greedy{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2"), records("s1", "s2"))

	require.Len(t, got.Pairs, 2)
	assert.Equal(t, Pair{Primary: 0, Support: 0, Score: 50}, got.Pairs[0])
	assert.Equal(t, Pair{Primary: 1, Support: 1, Score: 45}, got.Pairs[1])
}

func TestGreedyTieGoesToLowestSupportIndex(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 70},
		"p1|s2": {Score: 70},
	}
	got := Greedy{Scorer: scorer, MinScore: 60}.Assign(records("p1"), records("s1", "s2"))
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, 0, got.Pairs[0].Support)
	assert.Equal(t, []int{1}, got.UnmatchedSupports)
}

func TestGreedySkipsRejectedEvenWhenHighest(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 500, Rejected: true},
		"p1|s2": {Score: 65},
	}
	got := Greedy{Scorer: scorer, MinScore: 60}.Assign(records("p1"), records("s1", "s2"))
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, 1, got.Pairs[0].Support)
}

func TestGreedyBelowThresholdStaysUnmatched(t *testing.T) {
	scorer := tableScorer{"p1|s1": {Score: 59}}
	got := Greedy{Scorer: scorer, MinScore: 60}.Assign(records("p1"), records("s1"))
	assert.Empty(t, got.Pairs)
	assert.Equal(t, []int{0}, got.UnmatchedPrimaries)
	assert.Equal(t, []int{0}, got.UnmatchedSupports)
}

func TestAssignEmptySides(t *testing.T) {
	for _, strategy := range []Strategy{StrategyGreedy, StrategyOptimal} {
		t.Run(string(strategy), func(t *testing.T) {
			a, err := NewAssigner(strategy, DefaultPolicy())
			require.NoError(t, err)

			got := a.Assign(nil, records("s1", "s2"))
			assert.Empty(t, got.Pairs)
			assert.Empty(t, got.UnmatchedPrimaries)
			assert.Equal(t, []int{0, 1}, got.UnmatchedSupports)

			got = a.Assign(records("p1"), nil)
			assert.Empty(t, got.Pairs)
			assert.Equal(t, []int{0}, got.UnmatchedPrimaries)
			assert.Empty(t, got.UnmatchedSupports)
		})
	}
}

func TestAssignDisjointInputsMatchNothing(t *testing.T) {
	ex := attributes.NewExtractor(attributes.DefaultOptions())
	primaries := []attributes.Record{
		ex.Extract(attributes.Input{Identifier: "FC 10-01-2024 JUAN PEREZ 12345.pdf"}),
		ex.Extract(attributes.Input{Identifier: "FC 11-01-2024 ANA GOMEZ 23456.pdf"}),
	}
	supports := []attributes.Record{
		ex.Extract(attributes.Input{Identifier: "recibo 2023-05-05 CARLOS RUIZ 99999.pdf"}),
	}
	for _, strategy := range []Strategy{StrategyGreedy, StrategyOptimal} {
		a, err := NewAssigner(strategy, DefaultPolicy())
		require.NoError(t, err)
		got := a.Assign(primaries, supports)
		assert.Empty(t, got.Pairs, strategy)
		assert.Equal(t, []int{0, 1}, got.UnmatchedPrimaries, strategy)
		assert.Equal(t, []int{0}, got.UnmatchedSupports, strategy)
	}
}

func TestAssignDuplicateRecordsMatchedByPosition(t *testing.T) {
	ex := attributes.NewExtractor(attributes.DefaultOptions())
	rec := ex.Extract(attributes.Input{Identifier: "2024-01-10 JUAN PEREZ 150000.pdf"})
	primaries := []attributes.Record{rec, rec}
	supports := []attributes.Record{rec}

	a, err := NewAssigner(StrategyGreedy, DefaultPolicy())
	require.NoError(t, err)
	got := a.Assign(primaries, supports)
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, 0, got.Pairs[0].Primary)
	assert.Equal(t, []int{1}, got.UnmatchedPrimaries)
}

func TestAssignIsInjectiveAndComplete(t *testing.T) {
	scorer := tableScorer{}
	var primaries, supports []string
	for i := 0; i < 6; i++ {
		primaries = append(primaries, fmt.Sprintf("p%d", i))
		supports = append(supports, fmt.Sprintf("s%d", i))
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			scorer[fmt.Sprintf("p%d|s%d", i, j)] = Candidate{Score: 40 + (i*7+j*3)%11}
		}
	}
	for _, a := range []Assigner{
		Greedy{Scorer: scorer, MinScore: 45},
		Optimal{Scorer: scorer, MinScore: 45},
	} {
		got := a.Assign(records(primaries...), records(supports[:4]...))
		seenP := map[int]bool{}
		seenS := map[int]bool{}
		for _, pair := range got.Pairs {
			assert.False(t, seenP[pair.Primary], "primary assigned twice")
			assert.False(t, seenS[pair.Support], "support assigned twice")
			assert.GreaterOrEqual(t, pair.Score, 45)
			seenP[pair.Primary] = true
			seenS[pair.Support] = true
		}
		assert.Equal(t, 6, len(got.Pairs)+len(got.UnmatchedPrimaries))
		assert.Equal(t, 4, len(got.Pairs)+len(got.UnmatchedSupports))
	}
}

func TestOptimalBeatsGreedyOnCrossedScores(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 90},
		"p1|s2": {Score: 80},
		"p2|s1": {Score: 85},
	}
	greedy := Greedy{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2"), records("s1", "s2"))
	require.Len(t, greedy.Pairs, 1)

	optimal := Optimal{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2"), records("s1", "s2"))
	require.Len(t, optimal.Pairs, 2)
	assert.Equal(t, Pair{Primary: 0, Support: 1, Score: 80}, optimal.Pairs[0])
	assert.Equal(t, Pair{Primary: 1, Support: 0, Score: 85}, optimal.Pairs[1])
	assert.Empty(t, optimal.UnmatchedPrimaries)
	assert.Empty(t, optimal.UnmatchedSupports)
}

func TestOptimalIgnoresRejectedAndLowScores(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 100, Rejected: true},
		"p2|s1": {Score: 30},
	}
	got := Optimal{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2"), records("s1"))
	assert.Empty(t, got.Pairs)
	assert.Equal(t, []int{0, 1}, got.UnmatchedPrimaries)
	assert.Equal(t, []int{0}, got.UnmatchedSupports)
}

func TestNewAssignerUnknownStrategy(t *testing.T) {
	_, err := NewAssigner("random", DefaultPolicy())
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, s)
	s, err = ParseStrategy("OPTIMAL")
	require.NoError(t, err)
	assert.Equal(t, StrategyOptimal, s)
}

func TestMinCostAssignmentSquare(t *testing.T) {
	cost := [][]int{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	assert.Equal(t, []int{1, 0, 2}, minCostAssignment(cost))
	assert.Empty(t, minCostAssignment(nil))
}

func TestOptimalPadsShorterSide(t *testing.T) {
	scorer := tableScorer{
		"p1|s1": {Score: 50},
		"p1|s2": {Score: 70},
		"p1|s3": {Score: 60},
	}
	got := Optimal{Scorer: scorer, MinScore: 40}.Assign(records("p1"), records("s1", "s2", "s3"))
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, 1, got.Pairs[0].Support)
	assert.Equal(t, []int{0, 2}, got.UnmatchedSupports)

	scorer = tableScorer{
		"p2|s1": {Score: 45},
		"p3|s1": {Score: 90},
	}
	got = Optimal{Scorer: scorer, MinScore: 40}.Assign(records("p1", "p2", "p3"), records("s1"))
	require.Len(t, got.Pairs, 1)
	assert.Equal(t, Pair{Primary: 2, Support: 0, Score: 90}, got.Pairs[0])
	assert.Equal(t, []int{0, 1}, got.UnmatchedPrimaries)
}
