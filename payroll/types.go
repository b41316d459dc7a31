/*
Package payroll provides the attendance-to-payroll computation engine.

PURPOSE:
  This package contains the core types and algorithms that turn daily
  attendance records into monthly salary figures. It owns the attendance
  rate formula, the deduction policy, the idempotency/override rules for
  recomputation, and the whole-roster batch run.

KEY CONCEPTS IN THIS FILE (types.go):
  - AttendanceRecord: One row per (employee, calendar day) with a status
  - EmployeeSnapshot: Read-only roster input (id, base salary, active)
  - SalaryResult: One computed payroll row per (employee, month, year)
  - MonthSummary: Aggregated attendance counts for one period

DESIGN PRINCIPLES:
  1. Precision: All currency and percentage math uses decimal.Decimal.
     Binary floating point never touches money.
  2. Natural keys: Attendance is keyed by (employee, date), results by
     (employee, month, year). No synthetic IDs in the core.
  3. Snapshots: SalaryResult captures base salary at computation time;
     a later salary change is only picked up by a forced recompute.

SEE ALSO:
  - calculator.go: Rate, deduction, and upsert rules
  - batch.go: Whole-roster batch run
  - ledger.go: Attendance aggregation helpers
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// ATTENDANCE - One record per (employee, calendar day)
// =============================================================================

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusHalfDay AttendanceStatus = "HALF_DAY"
	StatusLeave   AttendanceStatus = "LEAVE"
)

// Valid reports whether s is one of the four known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusLeave:
		return true
	}
	return false
}

// AttendanceRecord is a single day's attendance mark.
//
// INVARIANT: exactly one record per (EmployeeID, Date). Re-marking the
// same day overwrites the existing record in place; no history is kept.
type AttendanceRecord struct {
	EmployeeID EmployeeID
	Date       time.Time // calendar day, time-of-day ignored
	Status     AttendanceStatus
	CheckIn    *time.Time
	CheckOut   *time.Time
	Note       string
	MarkedBy   string
}

// Day returns the record's date truncated to midnight UTC. Attendance
// identity is per calendar day, so all comparisons go through this.
func (r AttendanceRecord) Day() time.Time {
	y, m, d := r.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// EMPLOYEE SNAPSHOT - Read-only roster input
// =============================================================================

// EmployeeSnapshot is the roster's view of one employee at computation
// time. The engine only reads it; it never writes back to the roster.
type EmployeeSnapshot struct {
	ID         EmployeeID
	Name       string
	Email      string
	Department string
	Role       string
	BaseSalary decimal.Decimal
	HireDate   time.Time
	Active     bool
}

// =============================================================================
// SALARY RESULT - One computed payroll row per (employee, month, year)
// =============================================================================

// SalaryResult is the Calculator's output for one employee and period.
//
// INVARIANTS:
//   - NetSalary = BaseSalary - Deduction
//   - Deduction is zero unless AttendancePct < 75.00
//   - AttendancePct is rounded to 2 decimal places (half-up), and the
//     deduction threshold is compared against the rounded value
type SalaryResult struct {
	EmployeeID    EmployeeID
	Period        Period
	BaseSalary    decimal.Decimal
	AttendancePct decimal.Decimal
	Deduction     decimal.Decimal
	NetSalary     decimal.Decimal
	Paid          bool
	ComputedAt    time.Time
}

// Totals aggregates salary results across a period.
type Totals struct {
	Base      decimal.Decimal
	Deduction decimal.Decimal
	Net       decimal.Decimal
}

// Add folds one result into the running totals.
func (t Totals) Add(r SalaryResult) Totals {
	return Totals{
		Base:      t.Base.Add(r.BaseSalary),
		Deduction: t.Deduction.Add(r.Deduction),
		Net:       t.Net.Add(r.NetSalary),
	}
}

// =============================================================================
// MONTH SUMMARY - Aggregated attendance for one period
// =============================================================================

type MonthSummary struct {
	Present int
	Absent  int
	HalfDay int
	Leave   int
	Total   int
	Rate    decimal.Decimal // 0 when Total == 0
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses s, returning zero on malformed input.
// Intended for literals in configuration and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
