package numerator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestSubstitute_Golden(t *testing.T) {
	rows := []struct {
		pattern string
		date    time.Time
		seq     int64
	}{
		{"FA-{SEQ:3}-{YY}", date(2025, time.January, 15), 1},
		{"INV-{YYYY}-{MM}-{SEQ:4}", date(2025, time.March, 9), 7},
		{"F{YY}{MM}-{SEQ:3}", date(2025, time.January, 15), 1},
		{"DEV-{SEQ:3}-{YY}", date(2005, time.June, 30), 1000},
		{"{DD}.{MM}.{YYYY} / {SEQ:6}", date(2099, time.December, 31), 42},
		{"Q_{SEQ:1}", date(2026, time.October, 19), 9},
	}

	var out strings.Builder
	for _, r := range rows {
		res := Validate(r.pattern)
		require.True(t, res.Valid, r.pattern)
		fmt.Fprintf(&out, "%s\t%s\t%d\t%s\t%s\n",
			r.pattern,
			r.date.Format("2006-01-02"),
			r.seq,
			PeriodKey(res.HasYear, res.HasMonth, r.date),
			Substitute(r.pattern, r.date, r.seq, res.Padding),
		)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "rendering", []byte(out.String()))
}
