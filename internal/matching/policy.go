package matching

import (
	"fmt"
	"strings"
)

// DatePolicy decides what happens when both records carry different dates.
type DatePolicy string

const (
	// DateStrict rejects the pair outright.
	DateStrict DatePolicy = "strict"
	// DateSoft subtracts the mismatch penalty and keeps scoring.
	DateSoft DatePolicy = "soft"
)

// ParseDatePolicy validates a configured date policy name.
func ParseDatePolicy(value string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case DateStrict:
		return DateStrict, nil
	case DateSoft:
		return DateSoft, nil
	default:
		return "", fmt.Errorf("unknown date policy %q (want strict or soft)", value)
	}
}

// Weights is the per-criterion contribution table. Set-valued criteria are
// weighted per shared element.
type Weights struct {
	DateMatch           int
	DateSingleSided     int
	DateMismatchPenalty int
	Amount              int
	Code                int
	Name                int
	OtherNumber         int
}

// Policy centralizes scoring weights and the acceptance threshold.
type Policy struct {
	Dates    DatePolicy
	Weights  Weights
	MinScore int
}

// DefaultPolicy returns the strict policy used for disbursement vouchers.
func DefaultPolicy() Policy {
	return Policy{
		Dates: DateStrict,
		Weights: Weights{
			DateMatch:           50,
			DateSingleSided:     20,
			DateMismatchPenalty: 10,
			Amount:              40,
			Code:                40,
			Name:                30,
			OtherNumber:         10,
		},
		MinScore: 60,
	}
}

// LenientPolicy returns the soft policy used for invoices, where scans often
// carry the issue date on one side and the payment date on the other.
func LenientPolicy() Policy {
	return Policy{
		Dates: DateSoft,
		Weights: Weights{
			DateMatch:           50,
			DateSingleSided:     20,
			DateMismatchPenalty: 10,
			Amount:              40,
			Code:                30,
			Name:                35,
			OtherNumber:         15,
		},
		MinScore: 40,
	}
}

// normalized replaces out-of-range fields with the defaults.
func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.Dates != DateStrict && p.Dates != DateSoft {
		p.Dates = d.Dates
	}
	if p.MinScore <= 0 {
		p.MinScore = d.MinScore
	}
	w := &p.Weights
	for _, f := range []struct {
		v   *int
		def int
	}{
		{&w.DateMatch, d.Weights.DateMatch},
		{&w.DateSingleSided, d.Weights.DateSingleSided},
		{&w.DateMismatchPenalty, d.Weights.DateMismatchPenalty},
		{&w.Amount, d.Weights.Amount},
		{&w.Code, d.Weights.Code},
		{&w.Name, d.Weights.Name},
		{&w.OtherNumber, d.Weights.OtherNumber},
	} {
		if *f.v < 0 {
			*f.v = f.def
		}
	}
	return p
}
