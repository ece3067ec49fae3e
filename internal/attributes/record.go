package attributes

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar date without time or zone. The zero value means absent.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for y-m-d and false when the triple is not a real
// calendar day.
func NewDate(y, m, d int) (Date, bool) {
	if y < 1 || m < 1 || m > 12 || d < 1 || d > 31 {
		return Date{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, true
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String renders the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText renders the date as YYYY-MM-DD, or empty when absent.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts YYYY-MM-DD or an empty value for an absent date.
func (d *Date) UnmarshalText(b []byte) error {
	text := strings.TrimSpace(string(b))
	if text == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, text)
	if err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", text)
	}
	parsed, ok := NewDate(t.Year(), int(t.Month()), t.Day())
	if !ok {
		return fmt.Errorf("invalid date %q", text)
	}
	*d = parsed
	return nil
}

// Record holds the attributes extracted from one document.
type Record struct {
	Identifier   string            `json:"identifier"`
	Source       string            `json:"source"`
	Date         Date              `json:"date"`
	Amounts      []decimal.Decimal `json:"amounts"`
	Codes        []string          `json:"codes"`
	OtherNumbers []string          `json:"other_numbers"`
	Names        []string          `json:"names"`
}

// HasDate reports whether a date was extracted.
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// AmountKeys returns the canonical string form of every amount, in order.
func (r Record) AmountKeys() []string {
	keys := make([]string, len(r.Amounts))
	for i, a := range r.Amounts {
		keys[i] = a.String()
	}
	return keys
}

// Summary renders the record in one line for logs and CLI listings.
func (r Record) Summary() string {
	parts := []string{}
	if r.HasDate() {
		parts = append(parts, "date="+r.Date.String())
	}
	if len(r.Amounts) > 0 {
		parts = append(parts, "amounts="+strings.Join(r.AmountKeys(), ","))
	}
	if len(r.Codes) > 0 {
		parts = append(parts, "codes="+strings.Join(r.Codes, ","))
	}
	if len(r.OtherNumbers) > 0 {
		parts = append(parts, "other="+strings.Join(r.OtherNumbers, ","))
	}
	if len(r.Names) > 0 {
		parts = append(parts, "names="+strings.Join(r.Names, "|"))
	}
	if len(parts) == 0 {
		return "(no attributes)"
	}
	return strings.Join(parts, " ")
}
