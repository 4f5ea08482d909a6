// Package core holds the ledger domain: entities, closed enumerations and
// the calendar arithmetic used by budget periods and recurring schedules.
package core

import "time"

// Advance moves date forward by one period of the given frequency.
// Weekly is a fixed seven days; Monthly and Yearly are calendar-aware and
// clamp to the last day of the target month (Jan 31 -> Feb 28, not Mar 3).
func Advance(date time.Time, f Frequency) time.Time {
	switch f {
	case Weekly:
		return date.AddDate(0, 0, 7)
	case Yearly:
		return addMonths(date, 12)
	default:
		return addMonths(date, 1)
	}
}

// OccurrenceAt replays the schedule from start: it advances n whole periods
// and returns the resulting date. Replaying from the fixed start date keeps
// the schedule drift-free across pauses and missed runs, because the result
// depends only on (start, f, n) and never on a previously stored date.
func OccurrenceAt(start time.Time, f Frequency, n int64) time.Time {
	occ := start
	for i := int64(0); i < n; i++ {
		occ = Advance(occ, f)
	}
	return occ
}

// PeriodEnd returns the exclusive end of a budget period starting at start.
func PeriodEnd(start time.Time, f Frequency) time.Time {
	return Advance(start, f)
}

func addMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOnly truncates t to midnight UTC, the granularity used for
// transaction dates and daily snapshots.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
