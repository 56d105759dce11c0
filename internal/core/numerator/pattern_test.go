package numerator

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		wantKind ErrorKind
		padding  int
		hasYear  bool
		hasMonth bool
	}{
		{name: "default invoice", pattern: "FA-{SEQ:3}-{YY}", padding: 3, hasYear: true},
		{name: "default quote", pattern: "DEV-{SEQ:3}-{YY}", padding: 3, hasYear: true},
		{name: "year and month", pattern: "INV-{YYYY}-{MM}-{SEQ:4}", padding: 4, hasYear: true, hasMonth: true},
		{name: "month without year", pattern: "{MM}-{SEQ:2}", padding: 2, hasMonth: true},
		{name: "counter only", pattern: "{SEQ:1}", padding: 1},
		{name: "day token", pattern: "{DD}/{SEQ:6}", padding: 6},
		{name: "whitespace literal", pattern: "FA {SEQ:3}\t{YYYY}", padding: 3, hasYear: true},
		{name: "all literal classes", pattern: "aZ09-/_. {SEQ:2}", padding: 2},

		{name: "empty", pattern: "", wantKind: EmptyPattern},
		{name: "whitespace only", pattern: " \t\n ", wantKind: EmptyPattern},
		{name: "no counter", pattern: "FA-{YY}", wantKind: MissingCounterToken},
		{name: "counter without width", pattern: "FA-{SEQ:}", wantKind: MissingCounterToken},
		{name: "lowercase counter", pattern: "FA-{seq:3}", wantKind: MissingCounterToken},
		{name: "two counters", pattern: "FA-{SEQ:3}-{SEQ:2}", wantKind: AmbiguousCounterToken},
		{name: "width too large", pattern: "FA-{SEQ:7}", wantKind: InvalidCounterWidth},
		{name: "width zero", pattern: "FA-{SEQ:0}", wantKind: InvalidCounterWidth},
		{name: "width overflows int", pattern: "FA-{SEQ:99999999999999999999999}", wantKind: InvalidCounterWidth},
		{name: "hash", pattern: "FA#{SEQ:3}", wantKind: DisallowedCharacters},
		{name: "unknown token", pattern: "FA-{Q}-{SEQ:3}", wantKind: DisallowedCharacters},
		{name: "unicode", pattern: "Fé-{SEQ:3}", wantKind: DisallowedCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.pattern)

			if tt.wantKind != KindNone {
				assert.False(t, res.Valid)
				assert.Equal(t, tt.wantKind, res.Kind)
				assert.NotEmpty(t, res.Error)
				assert.Error(t, res.Err())
				return
			}

			require.True(t, res.Valid, "unexpected error: %s", res.Error)
			assert.Equal(t, KindNone, res.Kind)
			assert.Empty(t, res.Error)
			assert.NoError(t, res.Err())
			assert.Equal(t, tt.padding, res.Padding)
			assert.Equal(t, tt.hasYear, res.HasYear)
			assert.Equal(t, tt.hasMonth, res.HasMonth)
		})
	}
}

func TestValidate_DisallowedCharactersReported(t *testing.T) {
	res := Validate("F#A@-{SEQ:3}#{YY}@é")

	require.Equal(t, DisallowedCharacters, res.Kind)
	assert.Equal(t, []rune{'#', '@', 'é'}, res.Disallowed)
	assert.Equal(t, `pattern contains disallowed characters: '#', '@', 'é'`, res.Error)

	pe, ok := AsPatternError(res.Err())
	require.True(t, ok)
	assert.Equal(t, []string{"#", "@", "é"}, pe.Characters())
}

func TestValidate_Total(t *testing.T) {
	inputs := []string{
		strings.Repeat("{SEQ:", 10000),
		strings.Repeat("A", 1<<20) + "{SEQ:3}",
		strings.Repeat("{SEQ:3}", 500),
		"{YYYY}{YY}{MM}{DD}",
		"{}{}{{}}",
		"\xff\xfe{SEQ:3}",
		"\x00{SEQ:3}",
		"日本-{SEQ:3}",
		"{SEQ:3",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			assert.NotPanics(t, func() {
				res := Validate(in)
				if res.Valid {
					assert.Equal(t, KindNone, res.Kind)
					assert.Positive(t, res.Padding)
				} else {
					assert.NotEqual(t, KindNone, res.Kind)
					assert.NotEmpty(t, res.Error)
				}
			})
		})
	}

	res := Validate("\xff{SEQ:3}")
	assert.Equal(t, []rune{utf8.RuneError}, res.Disallowed)
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		date    time.Time
		seq     int64
		padding int
		want    string
	}{
		{name: "year and month compact", pattern: "F{YY}{MM}-{SEQ:3}", date: date(2025, time.January, 15), seq: 1, padding: 3, want: "F2501-001"},
		{name: "default invoice", pattern: "FA-{SEQ:3}-{YY}", date: date(2025, time.May, 2), seq: 1, padding: 3, want: "FA-001-25"},
		{name: "four digit year", pattern: "INV-{YYYY}-{MM}-{SEQ:4}", date: date(2025, time.March, 9), seq: 7, padding: 4, want: "INV-2025-03-0007"},
		{name: "two digit year 2005", pattern: "{YY}-{SEQ:1}", date: date(2005, time.June, 1), seq: 3, padding: 1, want: "05-3"},
		{name: "two digit year 2099", pattern: "{YY}-{SEQ:1}", date: date(2099, time.June, 1), seq: 3, padding: 1, want: "99-3"},
		{name: "day", pattern: "{YYYY}/{MM}/{DD}-{SEQ:2}", date: date(2025, time.March, 7), seq: 7, padding: 2, want: "2025/03/07-07"},
		{name: "exceeds width", pattern: "FA-{SEQ:3}", date: date(2025, time.March, 7), seq: 1000, padding: 3, want: "FA-1000"},
		{name: "exact width", pattern: "FA-{SEQ:3}", date: date(2025, time.March, 7), seq: 999, padding: 3, want: "FA-999"},
		{name: "repeated date tokens", pattern: "{YY}{YY}-{SEQ:2}", date: date(2031, time.March, 7), seq: 5, padding: 2, want: "3131-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.pattern, tt.date, tt.seq, tt.padding))
		})
	}
}

func TestSubstitute_RoundTrip(t *testing.T) {
	patterns := []string{
		"FA-{SEQ:3}-{YY}",
		"INV-{YYYY}-{MM}-{SEQ:4}",
		"{SEQ:1}",
		"{DD}{MM}{YY}{SEQ:6}",
		"Q 2024 {SEQ:2} {YYYY}",
	}
	d := date(2025, time.February, 28)

	for _, pattern := range patterns {
		res := Validate(pattern)
		require.True(t, res.Valid, pattern)

		loc := seqToken.FindStringIndex(pattern)
		before, after := pattern[:loc[0]], pattern[loc[1]:]

		limit := int64(1)
		for i := 0; i < res.Padding; i++ {
			limit *= 10
		}
		for _, v := range []int64{1, 2, limit / 2, limit - 1} {
			if v <= 0 || v >= limit {
				continue
			}
			got := Substitute(pattern, d, v, res.Padding)
			want := Substitute(before, d, v, res.Padding) +
				fmt.Sprintf("%0*d", res.Padding, v) +
				Substitute(after, d, v, res.Padding)
			assert.Equal(t, want, got, "pattern %q value %d", pattern, v)

			parsed, err := Parse(pattern, got)
			require.NoError(t, err)
			assert.Equal(t, v, parsed)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		number  string
		want    int64
		wantErr error
	}{
		{name: "default invoice", pattern: "FA-{SEQ:3}-{YY}", number: "FA-042-25", want: 42},
		{name: "beyond width", pattern: "FA-{SEQ:3}-{YY}", number: "FA-1000-25", want: 1000},
		{name: "adjacent digits", pattern: "{SEQ:3}{YY}", number: "00125", want: 1},
		{name: "literal dot is quoted", pattern: "A.{SEQ:2}", number: "AX07", wantErr: ErrNumberMismatch},
		{name: "other prefix", pattern: "FA-{SEQ:3}-{YY}", number: "FB-042-25", wantErr: ErrNumberMismatch},
		{name: "too few digits", pattern: "FA-{SEQ:3}-{YY}", number: "FA-42-25", wantErr: ErrNumberMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.pattern, tt.number)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("FA-{YY}", "FA-25")
	pe, ok := AsPatternError(err)
	require.True(t, ok)
	assert.Equal(t, MissingCounterToken, pe.Kind)
}

func TestPeriodKey(t *testing.T) {
	d := date(2025, time.March, 9)

	assert.Equal(t, GlobalPeriod, PeriodKey(false, false, d))
	assert.Equal(t, GlobalPeriod, PeriodKey(false, true, d))
	assert.Equal(t, "2025", PeriodKey(true, false, d))
	assert.Equal(t, "2025-03", PeriodKey(true, true, d))
}

func TestValidationResult_Period(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"FA-{SEQ:3}-{YY}", ResetYearly},
		{"INV-{YYYY}-{MM}-{SEQ:4}", ResetMonthly},
		{"{MM}-{SEQ:2}", ResetNever},
		{"{DD}/{SEQ:6}", ResetNever},
		{"FA-{YY}", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Validate(tt.pattern).Period(), tt.pattern)
	}
}

func TestParseDocType(t *testing.T) {
	dt, err := ParseDocType(" Invoice ")
	require.NoError(t, err)
	assert.Equal(t, DocTypeInvoice, dt)
	assert.Equal(t, DefaultInvoicePattern, dt.DefaultPattern())

	dt, err = ParseDocType("quote")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuotePattern, dt.DefaultPattern())

	_, err = ParseDocType("credit_note")
	assert.ErrorIs(t, err, ErrUnknownDocType)

	for _, dt := range DocTypes() {
		assert.True(t, Validate(dt.DefaultPattern()).Valid, dt)
	}
}
