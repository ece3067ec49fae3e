package attributes

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches grouped values such as 1.234.567,89 first, then any
// plain decimal such as 1234.56 or 12,5.
var amountPattern = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+[.,]\d+`)

// parseAmount normalizes thousands and decimal separators and returns the
// fixed-point value.
//
// When both separators appear the last one is the decimal point. A separator
// that repeats is a thousands separator. A single separator followed by
// exactly three digits, with one to three digits before it and no leading
// zero, is read as a thousands separator too; anything else is the decimal point.
func parseAmount(raw string) (decimal.Decimal, bool) {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")

	var canonical string
	switch {
	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(raw, ".,")
		intPart := strings.NewReplacer(".", "", ",", "").Replace(raw[:last])
		canonical = intPart + "." + raw[last+1:]
	case dots+commas > 1:
		canonical = strings.NewReplacer(".", "", ",", "").Replace(raw)
	default:
		idx := strings.IndexAny(raw, ".,")
		if idx < 0 {
			canonical = raw
			break
		}
		whole, frac := raw[:idx], raw[idx+1:]
		if len(frac) == 3 && len(whole) <= 3 && whole[0] != '0' {
			canonical = whole + frac
		} else {
			canonical = whole + "." + frac
		}
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
