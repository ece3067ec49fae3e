package matching

import (
	"fmt"
	"sort"
	"strings"

	"docmatch/internal/attributes"
)

// Candidate is the outcome of scoring one primary/support pair.
type Candidate struct {
	Score     int
	Satisfied []string
	// Rejected marks a hard date mismatch. A rejected candidate is never
	// assigned, whatever else it shares.
	Rejected bool
	Reason   string
}

// Scorer computes the compatibility of a primary and a support record.
type Scorer interface {
	Score(primary, support attributes.Record) Candidate
}

// Score evaluates every criterion and sums the contributions. The result is
// clamped at zero so a soft date penalty never yields a negative score.
func (p Policy) Score(primary, support attributes.Record) Candidate {
	p = p.normalized()
	w := p.Weights
	var c Candidate

	switch {
	case primary.HasDate() && support.HasDate():
		if primary.Date == support.Date {
			c.add(w.DateMatch, "date: "+primary.Date.String())
			break
		}
		if p.Dates == DateStrict {
			return Candidate{
				Rejected: true,
				Reason:   fmt.Sprintf("date mismatch: %s vs %s", primary.Date, support.Date),
			}
		}
		c.Score -= w.DateMismatchPenalty
		c.Reason = fmt.Sprintf("date mismatch penalty: %s vs %s", primary.Date, support.Date)
	case primary.HasDate():
		c.add(w.DateSingleSided, "date available: "+primary.Date.String())
	case support.HasDate():
		c.add(w.DateSingleSided, "date available: "+support.Date.String())
	}

	if shared := intersect(primary.AmountKeys(), support.AmountKeys()); len(shared) > 0 {
		c.add(w.Amount*len(shared), "amounts: "+strings.Join(shared, ", "))
	}
	if shared := intersect(primary.Codes, support.Codes); len(shared) > 0 {
		c.add(w.Code*len(shared), "codes: "+strings.Join(shared, ", "))
	}
	if shared := intersect(primary.Names, support.Names); len(shared) > 0 {
		c.add(w.Name*len(shared), "names: "+strings.Join(shared, ", "))
	}
	if shared := intersect(primary.OtherNumbers, support.OtherNumbers); len(shared) > 0 {
		c.add(w.OtherNumber*len(shared), "other numbers: "+strings.Join(shared, ", "))
	}

	if c.Score < 0 {
		c.Score = 0
	}
	return c
}

func (c *Candidate) add(points int, criterion string) {
	if points <= 0 {
		return
	}
	c.Score += points
	c.Satisfied = append(c.Satisfied, criterion)
}

// intersect returns the sorted values present in both slices.
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := set[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
