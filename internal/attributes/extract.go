package attributes

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"docmatch/internal/textutil"
)

// DefaultStopwords are the conjunctions and articles skipped inside a name run.
var DefaultStopwords = []string{"DE", "LA", "EL", "DEL", "LAS", "LOS", "Y"}

// DefaultPrefixTokens are literal tokens ignored when they open an identifier.
var DefaultPrefixTokens = []string{"FC"}

const (
	codeMinDigits    = 4
	codeMaxDigits    = 6
	maxIntegerDigits = 10
	minNameWords     = 2
)

var (
	dmyPattern     = regexp.MustCompile(`(?:^|\D)(\d{1,2})-(\d{1,2})-(\d{4})(?:\D|$)`)
	ymdPattern     = regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{2})-(\d{2})(?:\D|$)`)
	integerPattern = regexp.MustCompile(`\b\d+\b`)
	segmentPattern = regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})\s*-\s*(.*?)\s*-\s*(\d+[.,]?\d*)`)
)

// Options tunes name extraction.
type Options struct {
	Stopwords    []string
	PrefixTokens []string
}

// DefaultOptions returns the stopwords and prefix tokens used by the shipped
// pipelines.
func DefaultOptions() Options {
	return Options{
		Stopwords:    append([]string(nil), DefaultStopwords...),
		PrefixTokens: append([]string(nil), DefaultPrefixTokens...),
	}
}

// Input is one document handed to the extractor.
type Input struct {
	Identifier string
	Source     string
	BodyText   string
}

// Extractor builds Records. It holds no mutable state after construction.
type Extractor struct {
	stopwords map[string]struct{}
	prefixes  map[string]struct{}
}

// NewExtractor returns an extractor for opts. Empty option lists fall back to
// the defaults.
func NewExtractor(opts Options) *Extractor {
	if len(opts.Stopwords) == 0 {
		opts.Stopwords = DefaultStopwords
	}
	if len(opts.PrefixTokens) == 0 {
		opts.PrefixTokens = DefaultPrefixTokens
	}
	return &Extractor{
		stopwords: wordSet(opts.Stopwords),
		prefixes:  wordSet(opts.PrefixTokens),
	}
}

// Extract derives the attribute record for in. The identifier (without its
// extension) is searched before the body text for a date; amounts, numbers
// and names are collected from both.
func (e *Extractor) Extract(in Input) Record {
	stem := stripExtension(in.Identifier)
	rec := Record{Identifier: in.Identifier, Source: in.Source}

	sources := []string{stem}
	if body := strings.TrimSpace(in.BodyText); body != "" {
		sources = append(sources, body)
	}

	amounts := map[string]decimal.Decimal{}
	codes := map[string]struct{}{}
	others := map[string]struct{}{}
	names := map[string]struct{}{}

	for i, text := range sources {
		date, dateSpans := findDates(text)
		if rec.Date.IsZero() && !date.IsZero() {
			rec.Date = date
		}

		masked := []byte(text)
		for _, span := range dateSpans {
			blank(masked, span[0], span[1])
		}
		for _, loc := range amountPattern.FindAllStringIndex(string(masked), -1) {
			if d, ok := parseAmount(string(masked[loc[0]:loc[1]])); ok {
				amounts[d.String()] = d
			}
			blank(masked, loc[0], loc[1])
		}
		for _, tok := range integerPattern.FindAllString(string(masked), -1) {
			if len(tok) > maxIntegerDigits {
				continue
			}
			n := strings.TrimLeft(tok, "0")
			if n == "" {
				n = "0"
			}
			if len(n) >= codeMinDigits && len(n) <= codeMaxDigits {
				codes[n] = struct{}{}
			} else {
				others[n] = struct{}{}
			}
		}

		for _, name := range e.names(text, i == 0) {
			names[name] = struct{}{}
		}
	}

	rec.Amounts = sortedAmounts(amounts)
	rec.Codes = sortedKeys(codes)
	rec.OtherNumbers = sortedKeys(others)
	rec.Names = sortedKeys(names)
	return rec
}

// names scans text for runs of upper-case words. When fromIdentifier is set a
// leading prefix token is dropped and the "date - NAME - value" segment of
// the identifier is also taken as a name.
func (e *Extractor) names(text string, fromIdentifier bool) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if fromIdentifier && len(tokens) > 0 {
		if _, ok := e.prefixes[strings.ToUpper(tokens[0])]; ok {
			tokens = tokens[1:]
		}
	}

	var out []string
	for i := 0; i < len(tokens); {
		if !isNameWord(tokens[i]) || e.isStopword(tokens[i]) {
			i++
			continue
		}
		run := []string{tokens[i]}
		j := i + 1
		for j < len(tokens) && isNameWord(tokens[j]) {
			if !e.isStopword(tokens[j]) {
				run = append(run, tokens[j])
			}
			j++
		}
		if len(run) >= minNameWords {
			out = append(out, textutil.NormalizeName(strings.Join(run, " ")))
		}
		i = j
	}

	if fromIdentifier {
		if m := segmentPattern.FindStringSubmatch(text); m != nil {
			segment := textutil.NormalizeName(strings.NewReplacer("-", " ", "_", " ").Replace(m[2]))
			if strings.IndexFunc(segment, unicode.IsLetter) >= 0 {
				out = append(out, segment)
			}
		}
	}
	return out
}

func (e *Extractor) isStopword(token string) bool {
	_, ok := e.stopwords[textutil.NormalizeName(token)]
	return ok
}

func isNameWord(token string) bool {
	return textutil.IsUpperToken(token) && len([]rune(token)) > 1
}

// findDates returns the first calendar-valid date in text, trying DD-MM-YYYY
// before YYYY-MM-DD, and the byte span of every date-shaped token, valid or
// not, so none of them is later read as a number.
func findDates(text string) (Date, [][2]int) {
	var (
		found Date
		spans [][2]int
	)
	for _, pattern := range []struct {
		re               *regexp.Regexp
		year, month, day int
	}{
		{dmyPattern, 3, 2, 1},
		{ymdPattern, 1, 2, 3},
	} {
		for _, m := range submatches(pattern.re, text) {
			spans = append(spans, [2]int{m[2], m[7]})
			if !found.IsZero() {
				continue
			}
			group := func(n int) int {
				v, _ := strconv.Atoi(text[m[2*n]:m[2*n+1]])
				return v
			}
			if d, ok := NewDate(group(pattern.year), group(pattern.month), group(pattern.day)); ok {
				found = d
			}
		}
	}
	return found, spans
}

// submatches is FindAllStringSubmatchIndex that resumes right after the last
// group instead of after the trailing separator, so "10-01-2024 15-02-2024"
// yields both dates.
func submatches(re *regexp.Regexp, text string) [][]int {
	var out [][]int
	for offset := 0; offset < len(text); {
		m := re.FindStringSubmatchIndex(text[offset:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += offset
			}
		}
		out = append(out, m)
		offset = m[len(m)-1]
	}
	return out
}

// stripExtension removes a trailing extension only when it looks like one,
// so "150.000,50" keeps its digits.
func stripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || strings.IndexFunc(ext, unicode.IsLetter) < 0 {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

func blank(b []byte, start, end int) {
	for i := start; i < end; i++ {
		b[i] = ' '
	}
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = textutil.NormalizeName(w)
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedAmounts(set map[string]decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(set))
	for _, d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}
