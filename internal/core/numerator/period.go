package numerator

import "time"

// GlobalPeriod scopes counters of patterns without a year token: they never reset.
const GlobalPeriod = "global"

// PeriodKey derives the counter period from the pattern's tokens and date.
// A month token without a year token does not reset the counter.
func PeriodKey(hasYear, hasMonth bool, date time.Time) string {
	switch {
	case !hasYear:
		return GlobalPeriod
	case hasMonth:
		return date.Format("2006-01")
	default:
		return date.Format("2006")
	}
}
