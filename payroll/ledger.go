/*
ledger.go - Attendance aggregation primitives

PURPOSE:
  Pure helpers the Calculator composes to turn a month of attendance
  records into counts and a rate. No storage access, no side effects:
  callers fetch records through AttendanceStore and aggregate here.

THE RATE FORMULA:
  rate = (present + 0.5*halfDay) / total * 100

  - HALF_DAY contributes 0.5 to the numerator but a full 1 to total
  - ABSENT and LEAVE contribute 0 to the numerator; the engine does not
    distinguish excused from unexcused absence for pay purposes
  - The result is rounded half-up to 2 decimal places ONCE, here.
    Everything downstream (threshold comparison, persistence, display)
    uses the rounded value so the stored rate and the deduction can
    never disagree.
*/
package payroll

import "github.com/shopspring/decimal"

var (
	half    = decimal.New(5, -1)  // 0.5
	hundred = decimal.New(100, 0) // 100
)

// CountByStatus returns how many records carry the given status.
func CountByStatus(records []AttendanceRecord, status AttendanceStatus) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// AttendanceRate computes the attendance percentage for a set of
// records, rounded half-up to 2 decimal places. Records must be
// non-empty; a zero-record month is a Skip, decided by the caller
// before the rate is ever computed.
func AttendanceRate(records []AttendanceRecord) decimal.Decimal {
	present := decimal.NewFromInt(int64(CountByStatus(records, StatusPresent)))
	halfDays := decimal.NewFromInt(int64(CountByStatus(records, StatusHalfDay)))
	total := decimal.NewFromInt(int64(len(records)))

	numerator := present.Add(halfDays.Mul(half))
	return numerator.Div(total).Mul(hundred).Round(2)
}

// Summarize aggregates a month of records into per-status counts and
// the rate. Rate is zero when there are no records.
func Summarize(records []AttendanceRecord) MonthSummary {
	s := MonthSummary{
		Present: CountByStatus(records, StatusPresent),
		Absent:  CountByStatus(records, StatusAbsent),
		HalfDay: CountByStatus(records, StatusHalfDay),
		Leave:   CountByStatus(records, StatusLeave),
		Total:   len(records),
		Rate:    decimal.Zero,
	}
	if s.Total > 0 {
		s.Rate = AttendanceRate(records)
	}
	return s
}
