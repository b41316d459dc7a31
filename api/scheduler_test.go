package api

import (
	"context"
	"testing"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newSchedulerFixture(t *testing.T) (*PayrollScheduler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sched := NewPayrollScheduler(NewHandler(store))
	return sched, store
}

func seedMarch(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	err := store.SaveEmployee(ctx, payroll.EmployeeSnapshot{
		ID:         "emp-1",
		Name:       "Scheduled Employee",
		BaseSalary: payroll.MustParseDecimal("3000.00"),
		HireDate:   time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	})
	if err != nil {
		t.Fatalf("failed to seed employee: %v", err)
	}
	for day := 1; day <= 20; day++ {
		err := store.Mark(ctx, payroll.AttendanceRecord{
			EmployeeID: "emp-1",
			Date:       time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
			Status:     payroll.StatusPresent,
		})
		if err != nil {
			t.Fatalf("failed to seed attendance: %v", err)
		}
	}
}

func TestScheduler_TriggerDay_RunsPreviousMonth(t *testing.T) {
	sched, store := newSchedulerFixture(t)
	seedMarch(t, store)

	// April 1st: the March batch should fire.
	sched.Now = func() time.Time {
		return time.Date(2025, time.April, 1, 2, 0, 0, 0, time.UTC)
	}
	sched.RunNow()

	ctx := context.Background()
	res, err := store.Result(ctx, "emp-1", payroll.Period{Month: time.March, Year: 2025})
	if err != nil {
		t.Fatalf("expected a computed result: %v", err)
	}
	if !res.NetSalary.Equal(payroll.MustParseDecimal("3000")) {
		t.Errorf("expected net 3000.00, got %s", res.NetSalary)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "completed" {
		t.Fatalf("expected one completed scheduled run, got %+v", runs)
	}
}

func TestScheduler_NonTriggerDay_DoesNothing(t *testing.T) {
	sched, store := newSchedulerFixture(t)
	seedMarch(t, store)

	sched.Now = func() time.Time {
		return time.Date(2025, time.April, 15, 2, 0, 0, 0, time.UTC)
	}
	sched.RunNow()

	runs, err := store.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("mid-month check must not launch a run, got %d", len(runs))
	}
}

func TestScheduler_AlreadyComputed_AbortsQuietly(t *testing.T) {
	sched, store := newSchedulerFixture(t)
	seedMarch(t, store)

	sched.Now = func() time.Time {
		return time.Date(2025, time.April, 1, 2, 0, 0, 0, time.UTC)
	}
	sched.RunNow()
	// Second check on the same trigger day: the whole-period guard fires
	// and the stored result survives untouched.
	sched.RunNow()

	ctx := context.Background()
	count, err := store.CountForPeriod(ctx, payroll.Period{Month: time.March, Year: 2025})
	if err != nil {
		t.Fatalf("failed to count results: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one result, got %d", count)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 run records, got %d", len(runs))
	}
	statuses := map[string]int{}
	for _, run := range runs {
		statuses[run.Status]++
	}
	if statuses["completed"] != 1 || statuses["aborted"] != 1 {
		t.Errorf("expected 1 completed + 1 aborted, got %v", statuses)
	}
}
