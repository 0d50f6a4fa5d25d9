package generic

import "time"

// =============================================================================
// PERIOD - The window a recurring contribution covers
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days.
//
// Examples:
//   - Monthly plan, payment in March 2024: Mar 1 - Mar 31
//   - Weekly plan: Monday - Sunday of the payment's week
//   - Annual plan: Jan 1 - Dec 31
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if the day is within the period [Start, End]
func (p Period) Contains(t time.Time) bool {
	return DayAfterOrEqual(t, p.Start) && DayBeforeOrEqual(t, p.End)
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool { return !DayBefore(p.End, p.Start) }

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + FormatDate(p.Start) + ", " + FormatDate(p.End) + "]"
}

// Frequency is how often a contribution falls due.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return true
	}
	return false
}

// =============================================================================
// PERIOD CALCULATOR - Determines which period a date falls into
// =============================================================================

// PeriodFor returns the period of the given frequency that contains date.
// Weeks start on Monday. Unknown frequencies fall back to the calendar month.
func (f Frequency) PeriodFor(date time.Time) Period {
	d := Date(date)
	switch f {
	case FrequencyDaily:
		return Period{Start: d, End: d}

	case FrequencyWeekly:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		start := AddDays(d, -offset)
		return Period{Start: start, End: AddDays(start, 6)}

	case FrequencyQuarterly:
		firstMonth := time.Month((int(d.Month())-1)/3*3 + 1)
		return Period{
			Start: StartOfMonth(d.Year(), firstMonth),
			End:   EndOfMonth(d.Year(), firstMonth+2),
		}

	case FrequencyAnnual:
		return Period{Start: StartOfYear(d.Year()), End: EndOfYear(d.Year())}

	default:
		return Period{Start: StartOfMonth(d.Year(), d.Month()), End: EndOfMonth(d.Year(), d.Month())}
	}
}

// NextPeriod returns the period following p for the same frequency.
func (f Frequency) NextPeriod(p Period) Period {
	return f.PeriodFor(AddDays(p.End, 1))
}
