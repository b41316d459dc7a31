package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - One payroll cycle: a (month, year) pair
// =============================================================================

// Period identifies one payroll cycle. Unlike a date range, a Period is
// a natural key: salary results are unique per (employee, Period).
type Period struct {
	Month time.Month
	Year  int
}

// Validate reports whether the period is well-formed. An invalid period
// is fatal to a batch run; it is never silently clamped.
func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d not in [1,12]", ErrInvalidPeriod, p.Month)
	}
	if p.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Start returns midnight UTC on the first day of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the last day of the month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Contains reports whether t falls inside the period's month.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Previous returns the preceding month, rolling the year back across
// January.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Month: time.December, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the following month, rolling the year forward across
// December.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// =============================================================================
// TARGET-PERIOD RESOLUTION - Date-based inference for the trigger surface
// =============================================================================

// ResolveTarget applies the scheduled-trigger policy when no explicit
// period is given:
//
//   - On the 1st of a month, the target is the previous month (payday
//     for the month that just closed).
//   - On or after the 28th, the target is the current month (end-of-
//     month run; 28 covers February).
//   - Any other day is not a trigger day: ok is false and the scheduler
//     does nothing.
//
// Explicit (month, year) pairs bypass this entirely; callers pass them
// verbatim to the batch runner.
func ResolveTarget(now time.Time) (p Period, ok bool) {
	switch {
	case now.Day() == 1:
		return PeriodOf(now).Previous(), true
	case now.Day() >= 28:
		return PeriodOf(now), true
	default:
		return Period{}, false
	}
}

// DefaultTarget is the fallback for manual invocations that omit the
// period on a non-trigger day: the previous month, which is the period
// most recently closed.
func DefaultTarget(now time.Time) Period {
	return PeriodOf(now).Previous()
}
