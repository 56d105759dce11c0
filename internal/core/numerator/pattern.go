// Package numerator provides document auto-numbering: the pattern grammar,
// the generator and the contract of the sequence store it allocates from.
//
// A pattern mixes literal characters with tokens:
//
//	{YYYY} four-digit year
//	{YY}   two-digit year
//	{MM}   two-digit month
//	{DD}   two-digit day
//	{SEQ:n} counter, zero-padded to at least n digits (1 <= n <= 6)
//
// e.g. "FA-{SEQ:3}-{YY}" renders as FA-001-25.
package numerator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MinPadding and MaxPadding bound the n of {SEQ:n}.
	MinPadding = 1
	MaxPadding = 6
)

var (
	seqToken   = regexp.MustCompile(`\{SEQ:(\d+)\}`)
	knownToken = regexp.MustCompile(`\{(?:YYYY|YY|MM|DD|SEQ:\d+)\}`)
	yearToken  = regexp.MustCompile(`\{(?:YYYY|YY)\}`)
	monthToken = regexp.MustCompile(`\{MM\}`)
)

// ValidationResult describes a pattern.
// On failure Kind and Error are set; on success Padding, HasYear and HasMonth are.
type ValidationResult struct {
	Valid bool

	Kind       ErrorKind
	Error      string
	Disallowed []rune

	// Padding is the n of the {SEQ:n} token.
	Padding int
	// HasYear is true when {YYYY} or {YY} is present (yearly reset).
	HasYear bool
	// HasMonth is true when {MM} is present (monthly reset together with a year token).
	HasMonth bool
}

// Err returns the result as *PatternError, or nil when the pattern is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &PatternError{Kind: r.Kind, Message: r.Error, Disallowed: r.Disallowed}
}

// Reset periods reported by ValidationResult.Period.
const (
	ResetNever   = "global"
	ResetYearly  = "yearly"
	ResetMonthly = "monthly"
)

// Period tells how often the counter of a valid pattern restarts.
// Empty for an invalid pattern.
func (r ValidationResult) Period() string {
	switch {
	case !r.Valid:
		return ""
	case r.HasYear && r.HasMonth:
		return ResetMonthly
	case r.HasYear:
		return ResetYearly
	default:
		return ResetNever
	}
}

func invalid(kind ErrorKind, disallowed []rune) ValidationResult {
	return ValidationResult{
		Kind:       kind,
		Error:      messageFor(kind, disallowed),
		Disallowed: disallowed,
	}
}

// Validate checks pattern against the grammar. It accepts any string.
func Validate(pattern string) ValidationResult {
	if strings.TrimSpace(pattern) == "" {
		return invalid(EmptyPattern, nil)
	}

	matches := seqToken.FindAllStringSubmatch(pattern, -1)
	switch {
	case len(matches) == 0:
		return invalid(MissingCounterToken, nil)
	case len(matches) > 1:
		return invalid(AmbiguousCounterToken, nil)
	}

	padding, err := strconv.Atoi(matches[0][1])
	if err != nil || padding < MinPadding || padding > MaxPadding {
		return invalid(InvalidCounterWidth, nil)
	}

	if bad := disallowedRunes(knownToken.ReplaceAllLiteralString(pattern, "")); len(bad) > 0 {
		return invalid(DisallowedCharacters, bad)
	}

	return ValidationResult{
		Valid:    true,
		Padding:  padding,
		HasYear:  yearToken.MatchString(pattern),
		HasMonth: monthToken.MatchString(pattern),
	}
}

// disallowedRunes returns the offending runes of literal, deduplicated,
// in order of first appearance.
func disallowedRunes(literal string) []rune {
	var (
		bad  []rune
		seen map[rune]struct{}
	)
	for _, r := range literal {
		if literalAllowed(r) {
			continue
		}
		if seen == nil {
			seen = make(map[rune]struct{})
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		bad = append(bad, r)
	}
	return bad
}

func literalAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '-', '/', '_', '.':
		return true
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Substitute renders pattern for date and seq. The pattern must already be valid.
// seq is padded to at least padding digits and never truncated.
func Substitute(pattern string, date time.Time, seq int64, padding int) string {
	dates := strings.NewReplacer(
		"{YYYY}", fmt.Sprintf("%04d", date.Year()),
		"{YY}", fmt.Sprintf("%02d", date.Year()%100),
		"{MM}", fmt.Sprintf("%02d", int(date.Month())),
		"{DD}", fmt.Sprintf("%02d", date.Day()),
	)
	return seqToken.ReplaceAllLiteralString(dates.Replace(pattern), fmt.Sprintf("%0*d", padding, seq))
}

// Parse extracts the counter value from a number rendered by pattern.
func Parse(pattern, number string) (int64, error) {
	res := Validate(pattern)
	if !res.Valid {
		return 0, res.Err()
	}

	var expr strings.Builder
	expr.WriteString("^")
	last := 0
	for _, loc := range knownToken.FindAllStringIndex(pattern, -1) {
		expr.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		switch tok := pattern[loc[0]:loc[1]]; tok {
		case "{YYYY}":
			expr.WriteString(`\d{4}`)
		case "{YY}", "{MM}", "{DD}":
			expr.WriteString(`\d{2}`)
		default:
			fmt.Fprintf(&expr, `(\d{%d,})`, res.Padding)
		}
		last = loc[1]
	}
	expr.WriteString(regexp.QuoteMeta(pattern[last:]))
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return 0, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	m := re.FindStringSubmatch(number)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrNumberMismatch, number)
	}
	seq, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNumberMismatch, number)
	}
	return seq, nil
}
