package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmatch/internal/attributes"
)

func date(y int, m time.Month, d int) attributes.Date {
	return attributes.Date{Year: y, Month: m, Day: d}
}

func amounts(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestScoreCriteria(t *testing.T) {
	p := DefaultPolicy()
	primary := attributes.Record{
		Date:         date(2024, time.January, 10),
		Amounts:      amounts("1500.5", "20"),
		Codes:        []string{"12345", "4455"},
		Names:        []string{"JUAN PEREZ"},
		OtherNumbers: []string{"7"},
	}
	support := attributes.Record{
		Date:         date(2024, time.January, 10),
		Amounts:      amounts("1500.50"),
		Codes:        []string{"4455", "12345"},
		Names:        []string{"JUAN PEREZ", "ACME LTDA"},
		OtherNumbers: []string{"7", "99"},
	}

	c := p.Score(primary, support)
	require.False(t, c.Rejected)
	assert.Equal(t, 50+40+2*40+30+10, c.Score)
	assert.Equal(t, []string{
		"date: 2024-01-10",
		"amounts: 1500.5",
		"codes: 12345, 4455",
		"names: JUAN PEREZ",
		"other numbers: 7",
	}, c.Satisfied)
}

func TestScoreSingleSidedDate(t *testing.T) {
	p := DefaultPolicy()
	withDate := attributes.Record{Date: date(2024, time.March, 1)}
	without := attributes.Record{}

	c := p.Score(withDate, without)
	assert.Equal(t, 20, c.Score)
	assert.Equal(t, []string{"date available: 2024-03-01"}, c.Satisfied)

	c = p.Score(without, withDate)
	assert.Equal(t, 20, c.Score)
}

func TestScoreStrictRejectsDateMismatch(t *testing.T) {
	primary := attributes.Record{
		Date:    date(2024, time.January, 10),
		Amounts: amounts("150000"),
		Names:   []string{"JUAN PEREZ"},
		Codes:   []string{"12345"},
	}
	support := primary
	support.Date = date(2024, time.February, 15)

	c := DefaultPolicy().Score(primary, support)
	assert.True(t, c.Rejected)
	assert.Zero(t, c.Score)
	assert.Empty(t, c.Satisfied)
	assert.Contains(t, c.Reason, "2024-01-10 vs 2024-02-15")
}

func TestScoreSoftPenalizesDateMismatch(t *testing.T) {
	p := LenientPolicy()
	primary := attributes.Record{Date: date(2024, time.January, 10), Amounts: amounts("99.90")}
	support := attributes.Record{Date: date(2024, time.January, 11), Amounts: amounts("99.9")}

	c := p.Score(primary, support)
	assert.False(t, c.Rejected)
	assert.Equal(t, 40-10, c.Score)
	assert.Equal(t, []string{"amounts: 99.9"}, c.Satisfied)
}

func TestScoreClampsAtZero(t *testing.T) {
	p := LenientPolicy()
	c := p.Score(
		attributes.Record{Date: date(2024, time.January, 10)},
		attributes.Record{Date: date(2023, time.January, 10)},
	)
	assert.False(t, c.Rejected)
	assert.Equal(t, 0, c.Score)
}

func TestScoreIdenticalAmountsReachAmountWeight(t *testing.T) {
	p := DefaultPolicy()
	rec := attributes.Record{Amounts: amounts("10.5", "99")}
	c := p.Score(rec, rec)
	assert.GreaterOrEqual(t, c.Score, p.Weights.Amount)
}

func TestScoreZeroWeightIsNotListed(t *testing.T) {
	p := DefaultPolicy()
	p.Weights.OtherNumber = 0
	rec := attributes.Record{OtherNumbers: []string{"7"}}
	c := p.Score(rec, rec)
	assert.Zero(t, c.Score)
	assert.Empty(t, c.Satisfied)
}

func TestPolicyNormalized(t *testing.T) {
	p := Policy{Dates: "bogus", MinScore: -1, Weights: Weights{Amount: -5, Code: 7}}
	n := p.normalized()
	assert.Equal(t, DateStrict, n.Dates)
	assert.Equal(t, 60, n.MinScore)
	assert.Equal(t, 40, n.Weights.Amount)
	assert.Equal(t, 7, n.Weights.Code)
}

func TestParseDatePolicy(t *testing.T) {
	got, err := ParseDatePolicy(" Soft ")
	require.NoError(t, err)
	assert.Equal(t, DateSoft, got)
	_, err = ParseDatePolicy("maybe")
	assert.Error(t, err)
}
