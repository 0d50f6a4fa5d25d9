package generic

import (
	"time"
)

// =============================================================================
// CALENDAR DATES - Fund rules work on whole days in UTC
// =============================================================================

// Date returns t truncated to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Clock supplies the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }

// Comparison at day granularity
func DayBefore(a, b time.Time) bool        { return Date(a).Before(Date(b)) }
func DayAfter(a, b time.Time) bool         { return Date(a).After(Date(b)) }
func SameDay(a, b time.Time) bool          { return Date(a).Equal(Date(b)) }
func DayBeforeOrEqual(a, b time.Time) bool { return !DayAfter(a, b) }
func DayAfterOrEqual(a, b time.Time) bool  { return !DayBefore(a, b) }

// Arithmetic
func AddDays(t time.Time, n int) time.Time { return Date(t).AddDate(0, 0, n) }

// AddMonths moves n calendar months, clamping the day to the target month's
// last day: 2024-07-31 minus 5 months is 2024-02-29, not 2024-03-02.
func AddMonths(t time.Time, n int) time.Time {
	d := Date(t)
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := EndOfMonth(first.Year(), first.Month())
	if d.Day() > last.Day() {
		return last
	}
	return first.AddDate(0, 0, d.Day()-1)
}

// DaysBetween returns the whole days from -> to (negative if to is earlier).
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// AgeOn returns completed years between birth and asOf.
func AgeOn(birth, asOf time.Time) int {
	b, a := Date(birth), Date(asOf)
	years := a.Year() - b.Year()
	if a.Month() < b.Month() || (a.Month() == b.Month() && a.Day() < b.Day()) {
		years--
	}
	return years
}

func StartOfYear(year int) time.Time { return NewDate(year, time.January, 1) }
func EndOfYear(year int) time.Time   { return NewDate(year, time.December, 31) }

func StartOfMonth(year int, month time.Month) time.Time { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string { return Date(t).Format("2006-01-02") }

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}
