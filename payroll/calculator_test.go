package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestCalculator() (*payroll.Calculator, *store.Memory) {
	mem := store.NewMemory()
	return payroll.NewCalculator(mem, mem), mem
}

func money(s string) decimal.Decimal {
	return payroll.MustParseDecimal(s)
}

func employee(id, salary string) payroll.EmployeeSnapshot {
	return payroll.EmployeeSnapshot{
		ID:         payroll.EmployeeID(id),
		Name:       "Test " + id,
		BaseSalary: money(salary),
		HireDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	}
}

func march2025() payroll.Period {
	return payroll.Period{Month: time.March, Year: 2025}
}

// markMonth writes one record per status, on consecutive days of the period.
func markMonth(t *testing.T, mem *store.Memory, id string, p payroll.Period, statuses []payroll.AttendanceStatus) {
	t.Helper()
	ctx := context.Background()
	for i, status := range statuses {
		rec := payroll.AttendanceRecord{
			EmployeeID: payroll.EmployeeID(id),
			Date:       p.Start().AddDate(0, 0, i),
			Status:     status,
		}
		if err := mem.Mark(ctx, rec); err != nil {
			t.Fatalf("failed to mark attendance: %v", err)
		}
	}
}

// repeat builds a status slice like 16 PRESENT + 4 ABSENT.
func repeat(counts map[payroll.AttendanceStatus]int) []payroll.AttendanceStatus {
	var out []payroll.AttendanceStatus
	for _, status := range []payroll.AttendanceStatus{
		payroll.StatusPresent, payroll.StatusHalfDay, payroll.StatusAbsent, payroll.StatusLeave,
	} {
		for i := 0; i < counts[status]; i++ {
			out = append(out, status)
		}
	}
	return out
}

// =============================================================================
// DEDUCTION POLICY SCENARIOS
// =============================================================================

func TestCompute_FullAttendance_NoDeduction(t *testing.T) {
	// GIVEN: base 3000.00, 20 days: 16 PRESENT, 4 ABSENT
	// WHEN: computing the month
	// THEN: rate 80.00, no deduction, net 3000.00

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 16,
		payroll.StatusAbsent:  4,
	}))

	outcome, err := calc.Compute(ctx, employee("emp-1", "3000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != payroll.OutcomeComputed {
		t.Fatalf("expected computed outcome, got %s", outcome.Kind)
	}

	res := outcome.Result
	if !res.AttendancePct.Equal(money("80")) {
		t.Errorf("expected rate 80.00, got %s", res.AttendancePct)
	}
	if !res.Deduction.IsZero() {
		t.Errorf("expected no deduction, got %s", res.Deduction)
	}
	if !res.NetSalary.Equal(money("3000")) {
		t.Errorf("expected net 3000.00, got %s", res.NetSalary)
	}
}

func TestCompute_LowAttendance_Deducts15Percent(t *testing.T) {
	// GIVEN: base 3000.00, 20 days: 10 PRESENT, 4 HALF_DAY, 6 ABSENT
	// WHEN: computing the month
	// THEN: numerator 10 + 2 = 12, rate 60.00, deduction 450.00, net 2550.00

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 10,
		payroll.StatusHalfDay: 4,
		payroll.StatusAbsent:  6,
	}))

	outcome, err := calc.Compute(ctx, employee("emp-1", "3000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := outcome.Result
	if !res.AttendancePct.Equal(money("60")) {
		t.Errorf("expected rate 60.00, got %s", res.AttendancePct)
	}
	if !res.Deduction.Equal(money("450")) {
		t.Errorf("expected deduction 450.00, got %s", res.Deduction)
	}
	if !res.NetSalary.Equal(money("2550")) {
		t.Errorf("expected net 2550.00, got %s", res.NetSalary)
	}
}

func TestCompute_ExactThreshold_NoDeduction(t *testing.T) {
	// GIVEN: base 2000.00, 20 days: 15 PRESENT, 5 ABSENT -> rate exactly 75.00
	// WHEN: computing the month
	// THEN: the strict < comparison means NO deduction at the boundary

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 15,
		payroll.StatusAbsent:  5,
	}))

	outcome, err := calc.Compute(ctx, employee("emp-1", "2000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := outcome.Result
	if !res.AttendancePct.Equal(money("75")) {
		t.Fatalf("expected rate exactly 75.00, got %s", res.AttendancePct)
	}
	if !res.Deduction.IsZero() {
		t.Errorf("rate of exactly 75.00 must not deduct, got %s", res.Deduction)
	}
	if !res.NetSalary.Equal(money("2000")) {
		t.Errorf("expected net 2000.00, got %s", res.NetSalary)
	}
}

func TestCompute_JustBelowThreshold_Deducts(t *testing.T) {
	// GIVEN: a full 31-day March: 23 PRESENT, 8 LEAVE
	// WHEN: computing the month
	// THEN: 23/31 rounds to 74.19, just under the threshold, so 15% is deducted

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 23,
		payroll.StatusLeave:   8,
	}))

	outcome, err := calc.Compute(ctx, employee("emp-1", "2000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := outcome.Result
	if !res.AttendancePct.Equal(money("74.19")) {
		t.Fatalf("expected rate 74.19, got %s", res.AttendancePct)
	}
	if !res.Deduction.Equal(money("300")) {
		t.Errorf("expected deduction 300.00 (15%% of 2000), got %s", res.Deduction)
	}
}

func TestCompute_LeaveAndAbsentReduceRateIdentically(t *testing.T) {
	// GIVEN: two employees, one with 5 ABSENT, one with 5 LEAVE
	// THEN: both get the same rate; the policy does not distinguish them

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-a", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 15,
		payroll.StatusAbsent:  5,
	}))
	markMonth(t, mem, "emp-b", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 15,
		payroll.StatusLeave:   5,
	}))

	outA, err := calc.Compute(ctx, employee("emp-a", "2000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outB, err := calc.Compute(ctx, employee("emp-b", "2000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outA.Result.AttendancePct.Equal(outB.Result.AttendancePct) {
		t.Errorf("ABSENT and LEAVE must reduce the rate identically: %s vs %s",
			outA.Result.AttendancePct, outB.Result.AttendancePct)
	}
}

// =============================================================================
// SKIP AND IDEMPOTENCE
// =============================================================================

func TestCompute_NoAttendance_Skips(t *testing.T) {
	// GIVEN: zero attendance records for the period
	// WHEN: computing
	// THEN: Skip outcome, no result written

	calc, mem := newTestCalculator()
	ctx := context.Background()

	outcome, err := calc.Compute(ctx, employee("emp-1", "3000.00"), march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != payroll.OutcomeSkipped {
		t.Fatalf("expected skipped outcome, got %s", outcome.Kind)
	}
	if outcome.Result != nil {
		t.Error("skip must not produce a result")
	}

	_, err = mem.Result(ctx, "emp-1", march2025())
	if !errors.Is(err, payroll.ErrResultNotFound) {
		t.Errorf("skip must not persist anything, got %v", err)
	}
}

func TestCompute_SecondCall_ReportsAlreadyComputed(t *testing.T) {
	// GIVEN: a computed result
	// WHEN: computing again without force and unchanged attendance
	// THEN: AlreadyComputed outcome, stored result byte-for-byte identical

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 20,
	}))
	emp := employee("emp-1", "3000.00")

	first, err := calc.Compute(ctx, emp, march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Kind != payroll.OutcomeComputed {
		t.Fatalf("expected computed, got %s", first.Kind)
	}
	stored1, err := mem.Result(ctx, "emp-1", march2025())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := calc.Compute(ctx, emp, march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Kind != payroll.OutcomeAlreadyComputed {
		t.Fatalf("expected already_computed, got %s", second.Kind)
	}

	stored2, err := mem.Result(ctx, "emp-1", march2025())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored1.NetSalary.Equal(stored2.NetSalary) ||
		!stored1.AttendancePct.Equal(stored2.AttendancePct) ||
		!stored1.ComputedAt.Equal(stored2.ComputedAt) {
		t.Error("non-forced recompute must leave the stored result untouched")
	}
}

func TestCompute_ForcedRecompute_PicksUpNewSalary(t *testing.T) {
	// GIVEN: a computed result at base 3000.00, then a raise to 4000.00
	// WHEN: recomputing WITHOUT force, then WITH force
	// THEN: plain recompute keeps the old snapshot; forced takes the new one

	calc, mem := newTestCalculator()
	ctx := context.Background()
	markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
		payroll.StatusPresent: 10,
		payroll.StatusAbsent:  10,
	}))

	if _, err := calc.Compute(ctx, employee("emp-1", "3000.00"), march2025(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raised := employee("emp-1", "4000.00")

	// Plain call after the raise: stored row unchanged.
	outcome, err := calc.Compute(ctx, raised, march2025(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != payroll.OutcomeAlreadyComputed {
		t.Fatalf("expected already_computed, got %s", outcome.Kind)
	}
	stored, _ := mem.Result(ctx, "emp-1", march2025())
	if !stored.BaseSalary.Equal(money("3000")) {
		t.Errorf("plain recompute must keep the old salary snapshot, got %s", stored.BaseSalary)
	}

	// Forced call: fresh snapshot, all fields recomputed.
	outcome, err = calc.Compute(ctx, raised, march2025(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != payroll.OutcomeComputed {
		t.Fatalf("expected computed, got %s", outcome.Kind)
	}
	stored, _ = mem.Result(ctx, "emp-1", march2025())
	if !stored.BaseSalary.Equal(money("4000")) {
		t.Errorf("forced recompute must take a fresh salary snapshot, got %s", stored.BaseSalary)
	}
	// Rate 50.00 < 75: deduction 15% of the NEW salary.
	if !stored.Deduction.Equal(money("600")) {
		t.Errorf("expected deduction 600.00, got %s", stored.Deduction)
	}
	if !stored.NetSalary.Equal(money("3400")) {
		t.Errorf("expected net 3400.00, got %s", stored.NetSalary)
	}
}

func TestCompute_InvalidPeriod_Rejected(t *testing.T) {
	calc, _ := newTestCalculator()
	ctx := context.Background()

	_, err := calc.Compute(ctx, employee("emp-1", "3000.00"), payroll.Period{Month: 13, Year: 2025}, false)
	if !errors.Is(err, payroll.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

// =============================================================================
// INVARIANTS ACROSS MIXES
// =============================================================================

func TestCompute_RateAlwaysWithinBounds_NetAlwaysConsistent(t *testing.T) {
	// Sweep a grid of attendance mixes and check the structural
	// invariants: 0 <= rate <= 100 and net = base - deduction.

	ctx := context.Background()
	for present := 0; present <= 8; present += 2 {
		for halfDay := 0; halfDay <= 4; halfDay += 2 {
			for absent := 0; absent <= 4; absent += 2 {
				if present+halfDay+absent == 0 {
					continue
				}
				name := fmt.Sprintf("p%d_h%d_a%d", present, halfDay, absent)
				t.Run(name, func(t *testing.T) {
					calc, mem := newTestCalculator()
					markMonth(t, mem, "emp-1", march2025(), repeat(map[payroll.AttendanceStatus]int{
						payroll.StatusPresent: present,
						payroll.StatusHalfDay: halfDay,
						payroll.StatusAbsent:  absent,
					}))

					outcome, err := calc.Compute(ctx, employee("emp-1", "1234.56"), march2025(), false)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					res := outcome.Result

					if res.AttendancePct.IsNegative() || res.AttendancePct.GreaterThan(money("100")) {
						t.Errorf("rate out of bounds: %s", res.AttendancePct)
					}
					if !res.NetSalary.Equal(res.BaseSalary.Sub(res.Deduction)) {
						t.Errorf("net %s != base %s - deduction %s",
							res.NetSalary, res.BaseSalary, res.Deduction)
					}
					if res.AttendancePct.GreaterThanOrEqual(money("75")) && !res.Deduction.IsZero() {
						t.Errorf("rate %s >= 75 must not deduct", res.AttendancePct)
					}
				})
			}
		}
	}
}
