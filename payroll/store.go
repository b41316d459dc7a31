/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the computation engine and its storage
  collaborators. The engine never talks SQL; it talks these interfaces.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  AttendanceStore: The attendance ledger (one row per employee+day)
  ResultStore:     Salary results with the conditional-overwrite upsert
  EmployeeStore:   The roster (read by the trigger surface, not the core)

UPSERT CONTRACT:
  ResultStore.Save is the single atomic write behind the Calculator's
  idempotency rules. The exists-check and the write happen inside ONE
  store-level operation (a database transaction or a lock), never as a
  separate read followed by a write. Concurrent writers targeting the
  same (employee, month, year) are serialized by the store.

SEE ALSO:
  - calculator.go: The only caller of ResultStore.Save
  - store/memory.go: In-memory implementation for tests
  - ../store/sqlite/sqlite.go: Production SQLite implementation
*/
package payroll

import "context"

// =============================================================================
// ATTENDANCE STORE - The attendance ledger
// =============================================================================

// AttendanceStore persists attendance records.
//
// INVARIANT: one record per (employee, calendar day). Mark overwrites
// the existing record for the same day in place; no history is kept.
type AttendanceStore interface {
	// Mark creates or overwrites the record for (rec.EmployeeID, rec.Day()).
	Mark(ctx context.Context, rec AttendanceRecord) error

	// RecordsFor returns all records for the employee whose date falls in
	// the period. Order is unspecified; the Calculator does not depend on it.
	RecordsFor(ctx context.Context, id EmployeeID, p Period) ([]AttendanceRecord, error)
}

// =============================================================================
// RESULT STORE - Salary results with conditional overwrite
// =============================================================================

// ResultStore persists salary results keyed by (employee, month, year).
type ResultStore interface {
	// Save upserts a result atomically.
	//
	// force=false: insert only. If a result already exists for the key,
	// nothing is written and ErrAlreadyComputed is returned.
	//
	// force=true: insert or overwrite all computed fields in place
	// (same identity, new values).
	Save(ctx context.Context, res SalaryResult, force bool) error

	// Result returns the stored result for (id, p), or ErrResultNotFound.
	Result(ctx context.Context, id EmployeeID, p Period) (SalaryResult, error)

	// ResultsForPeriod returns every stored result for the period,
	// ordered by employee ID.
	ResultsForPeriod(ctx context.Context, p Period) ([]SalaryResult, error)

	// ResultsForEmployee returns every stored result for the employee,
	// newest period first.
	ResultsForEmployee(ctx context.Context, id EmployeeID) ([]SalaryResult, error)

	// CountForPeriod returns how many results exist for the period.
	// The batch runner's whole-period guard uses this.
	CountForPeriod(ctx context.Context, p Period) (int, error)
}

// =============================================================================
// EMPLOYEE STORE - The roster collaborator
// =============================================================================

// EmployeeStore is the roster. The engine core only ever receives
// EmployeeSnapshot values; this interface exists for the trigger surface
// (API, scheduler) to fetch them.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp EmployeeSnapshot) error

	// Employee returns the snapshot for id, or ErrEmployeeNotFound.
	Employee(ctx context.Context, id EmployeeID) (EmployeeSnapshot, error)

	// ActiveEmployees returns all active employees ordered by ID.
	// Active filtering is the roster's responsibility, not the engine's.
	ActiveEmployees(ctx context.Context) ([]EmployeeSnapshot, error)
}
