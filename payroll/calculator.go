/*
calculator.go - Per-employee payroll computation

PURPOSE:
  Turns one employee's attendance for one period into a SalaryResult,
  applying the fixed deduction policy and the idempotency/override rules
  that govern recomputation.

THE DEDUCTION POLICY (fixed):
  If the rounded attendance rate is strictly below 75.00%, deduct 15% of
  base salary. Exactly 75.00% incurs NO deduction. Net = base - deduction.

OUTCOMES (not errors):
  Computed:        A result was written (created or, under force, overwritten)
  Skipped:         Zero attendance records for the period. A month nobody
                   marked is not computable; it must not silently become a
                   zero-rate result with a full deduction.
  AlreadyComputed: A result exists and force was false. The stored row is
                   untouched - an idempotence guarantee, not a failure.

FORCED RECOMPUTE:
  force=true recomputes every field and overwrites the existing row in
  place, taking a FRESH base-salary snapshot from the EmployeeSnapshot
  passed in. A salary change after the fact is therefore picked up by a
  forced recompute but never by a plain one.

SEE ALSO:
  - ledger.go: Rate formula and rounding
  - store.go: The atomic Save contract behind the upsert
  - batch.go: Whole-roster driver
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

var (
	// DeductionThreshold is the rate below which the deduction applies.
	// The comparison is strict: exactly 75.00 deducts nothing.
	DeductionThreshold = MustParseDecimal("75")

	// DeductionRate is the fraction of base salary deducted when the
	// attendance rate falls below the threshold.
	DeductionRate = MustParseDecimal("0.15")
)

// =============================================================================
// OUTCOME - Per-employee computation result
// =============================================================================

type OutcomeKind string

const (
	OutcomeComputed        OutcomeKind = "computed"
	OutcomeSkipped         OutcomeKind = "skipped"
	OutcomeAlreadyComputed OutcomeKind = "already_computed"
)

// Outcome is what one Compute call produced. Result is non-nil only for
// OutcomeComputed.
type Outcome struct {
	Kind   OutcomeKind
	Result *SalaryResult
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator derives salary results from the attendance ledger.
type Calculator struct {
	Attendance AttendanceStore
	Results    ResultStore

	// Now is the clock used for ComputedAt stamps. Defaults to time.Now.
	Now func() time.Time
}

func NewCalculator(attendance AttendanceStore, results ResultStore) *Calculator {
	return &Calculator{Attendance: attendance, Results: results, Now: time.Now}
}

// Compute derives and persists the salary result for one employee and
// period.
//
// The write is delegated to ResultStore.Save, which performs the
// exists/force state check and the write as one atomic operation; the
// Calculator itself never does a read-then-write.
func (c *Calculator) Compute(ctx context.Context, emp EmployeeSnapshot, p Period, force bool) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}

	records, err := c.Attendance.RecordsFor(ctx, emp.ID, p)
	if err != nil {
		return Outcome{}, fmt.Errorf("load attendance for %s %s: %w", emp.ID, p, err)
	}

	if len(records) == 0 {
		return Outcome{Kind: OutcomeSkipped}, nil
	}

	rate := AttendanceRate(records)

	deduction := MustParseDecimal("0")
	if rate.LessThan(DeductionThreshold) {
		deduction = emp.BaseSalary.Mul(DeductionRate)
	}

	result := SalaryResult{
		EmployeeID:    emp.ID,
		Period:        p,
		BaseSalary:    emp.BaseSalary,
		AttendancePct: rate,
		Deduction:     deduction,
		NetSalary:     emp.BaseSalary.Sub(deduction),
		ComputedAt:    c.now(),
	}

	err = c.Results.Save(ctx, result, force)
	if errors.Is(err, ErrAlreadyComputed) {
		return Outcome{Kind: OutcomeAlreadyComputed}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("save salary result for %s %s: %w", emp.ID, p, err)
	}

	return Outcome{Kind: OutcomeComputed, Result: &result}, nil
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
