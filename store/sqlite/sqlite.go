/*
Package sqlite provides a SQLite-backed implementation of the payroll
storage interfaces.

PURPOSE:
  Implements payroll.AttendanceStore, payroll.ResultStore and
  payroll.EmployeeStore using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:      Roster records (id, base salary, active flag)
  attendance:     One row per (employee_id, date), overwritten on re-mark
  salary_results: One row per (employee_id, month, year)
  payroll_runs:   History of batch runs for audit and UI display

UPSERT SEMANTICS:
  Both conditional writes are single SQL statements, so the exists-check
  and the write cannot race:
  - Attendance mark: INSERT .. ON CONFLICT(employee_id, date) DO UPDATE.
    Marking the same day twice mutates the same row.
  - Salary save, force=false: plain INSERT; the primary key on
    (employee_id, month, year) rejects a second write and the constraint
    error is mapped to payroll.ErrAlreadyComputed.
  - Salary save, force=true: INSERT .. ON CONFLICT DO UPDATE overwrites
    every computed field in place.

DECIMALS:
  Currency columns are stored as TEXT holding the decimal string
  representation. REAL would reintroduce binary floating point drift.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

const dayFormat = "2006-01-02"

// Store implements all payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Roster
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department TEXT,
		role TEXT,
		base_salary TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_active
		ON employees(active);

	-- Attendance ledger: exactly one row per (employee, calendar day).
	-- Re-marking a day overwrites the row; no history is kept.
	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		note TEXT,
		marked_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	-- Month queries are the hot path; date is stored as YYYY-MM-DD so a
	-- range scan on the key prefix covers a calendar month
	CREATE INDEX IF NOT EXISTS idx_attendance_status
		ON attendance(status);

	-- Salary results: one row per (employee, month, year). The primary
	-- key is what makes the non-forced save an atomic insert-or-reject.
	CREATE TABLE IF NOT EXISTS salary_results (
		employee_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		base_salary TEXT NOT NULL,
		attendance_pct TEXT NOT NULL,
		deduction TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		computed_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_salary_results_period
		ON salary_results(year, month);

	-- Batch run history (for audit and the UI)
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		forced INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		computed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		total_base TEXT,
		total_deduction TEXT,
		total_net TEXT,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_period
		ON payroll_runs(year, month);
	CREATE INDEX IF NOT EXISTS idx_payroll_runs_status
		ON payroll_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE STORE (payroll.AttendanceStore interface)
// =============================================================================

// Mark creates or overwrites the attendance record for the day.
func (s *Store) Mark(ctx context.Context, rec payroll.AttendanceRecord) error {
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: %q", payroll.ErrInvalidStatus, rec.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance
		(employee_id, date, status, check_in, check_out, note, marked_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			status = excluded.status,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			note = excluded.note,
			marked_by = excluded.marked_by,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		rec.EmployeeID,
		rec.Day().Format(dayFormat),
		rec.Status,
		nullTime(rec.CheckIn),
		nullTime(rec.CheckOut),
		nullString(rec.Note),
		nullString(rec.MarkedBy),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to mark attendance: %w", err)
	}
	return nil
}

// RecordsFor returns all attendance records in the period's month.
func (s *Store) RecordsFor(ctx context.Context, id payroll.EmployeeID, p payroll.Period) ([]payroll.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, status, check_in, check_out, note, marked_by
		FROM attendance
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query,
		id, p.Start().Format(dayFormat), p.End().Format(dayFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []payroll.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAttendance(rows *sql.Rows) (payroll.AttendanceRecord, error) {
	var (
		rec      payroll.AttendanceRecord
		date     string
		checkIn  sql.NullString
		checkOut sql.NullString
		note     sql.NullString
		markedBy sql.NullString
	)

	err := rows.Scan(&rec.EmployeeID, &date, &rec.Status, &checkIn, &checkOut, &note, &markedBy)
	if err != nil {
		return rec, fmt.Errorf("failed to scan attendance: %w", err)
	}

	rec.Date, _ = time.Parse(dayFormat, date)
	if checkIn.Valid {
		t, _ := time.Parse(time.RFC3339, checkIn.String)
		rec.CheckIn = &t
	}
	if checkOut.Valid {
		t, _ := time.Parse(time.RFC3339, checkOut.String)
		rec.CheckOut = &t
	}
	rec.Note = note.String
	rec.MarkedBy = markedBy.String
	return rec, nil
}

// =============================================================================
// RESULT STORE (payroll.ResultStore interface)
// =============================================================================

// Save upserts a salary result. Both branches are single statements, so
// the exists/force state check and the write are one atomic operation.
func (s *Store) Save(ctx context.Context, res payroll.SalaryResult, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	computedAt := res.ComputedAt.UTC().Format(time.RFC3339)

	if force {
		query := `
			INSERT INTO salary_results
			(employee_id, month, year, base_salary, attendance_pct, deduction, net_salary, paid, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(employee_id, month, year) DO UPDATE SET
				base_salary = excluded.base_salary,
				attendance_pct = excluded.attendance_pct,
				deduction = excluded.deduction,
				net_salary = excluded.net_salary,
				computed_at = excluded.computed_at
		`
		_, err := s.db.ExecContext(ctx, query,
			res.EmployeeID, int(res.Period.Month), res.Period.Year,
			res.BaseSalary.String(), res.AttendancePct.String(),
			res.Deduction.String(), res.NetSalary.String(),
			boolToInt(res.Paid), computedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save salary result: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO salary_results
		(employee_id, month, year, base_salary, attendance_pct, deduction, net_salary, paid, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		res.EmployeeID, int(res.Period.Month), res.Period.Year,
		res.BaseSalary.String(), res.AttendancePct.String(),
		res.Deduction.String(), res.NetSalary.String(),
		boolToInt(res.Paid), computedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrAlreadyComputed
		}
		return fmt.Errorf("failed to save salary result: %w", err)
	}
	return nil
}

// Result returns the stored result for one employee and period.
func (s *Store) Result(ctx context.Context, id payroll.EmployeeID, p payroll.Period) (payroll.SalaryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, month, year, base_salary, attendance_pct, deduction, net_salary, paid, computed_at
		FROM salary_results
		WHERE employee_id = ? AND month = ? AND year = ?
	`, id, int(p.Month), p.Year)

	res, err := scanResult(row)
	if err == sql.ErrNoRows {
		return payroll.SalaryResult{}, payroll.ErrResultNotFound
	}
	return res, err
}

// ResultsForPeriod returns all results for a period, ordered by employee ID.
func (s *Store) ResultsForPeriod(ctx context.Context, p payroll.Period) ([]payroll.SalaryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryResults(ctx, `
		SELECT employee_id, month, year, base_salary, attendance_pct, deduction, net_salary, paid, computed_at
		FROM salary_results
		WHERE month = ? AND year = ?
		ORDER BY employee_id ASC
	`, int(p.Month), p.Year)
}

// ResultsForEmployee returns all results for an employee, newest first.
func (s *Store) ResultsForEmployee(ctx context.Context, id payroll.EmployeeID) ([]payroll.SalaryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryResults(ctx, `
		SELECT employee_id, month, year, base_salary, attendance_pct, deduction, net_salary, paid, computed_at
		FROM salary_results
		WHERE employee_id = ?
		ORDER BY year DESC, month DESC
	`, id)
}

// CountForPeriod returns how many results exist for a period.
func (s *Store) CountForPeriod(ctx context.Context, p payroll.Period) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM salary_results WHERE month = ? AND year = ?",
		int(p.Month), p.Year,
	).Scan(&count)
	return count, err
}

// MarkPaid flips the paid flag on a stored result.
func (s *Store) MarkPaid(ctx context.Context, id payroll.EmployeeID, p payroll.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE salary_results SET paid = 1 WHERE employee_id = ? AND month = ? AND year = ?",
		id, int(p.Month), p.Year,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return payroll.ErrResultNotFound
	}
	return nil
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]payroll.SalaryResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary results: %w", err)
	}
	defer rows.Close()

	var results []payroll.SalaryResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (payroll.SalaryResult, error) {
	var (
		res         payroll.SalaryResult
		month, year int
		base        string
		pct         string
		deduction   string
		net         string
		paid        int
		computedAt  string
	)

	err := row.Scan(&res.EmployeeID, &month, &year, &base, &pct, &deduction, &net, &paid, &computedAt)
	if err != nil {
		return res, err
	}

	res.Period = payroll.Period{Month: time.Month(month), Year: year}
	res.BaseSalary = payroll.MustParseDecimal(base)
	res.AttendancePct = payroll.MustParseDecimal(pct)
	res.Deduction = payroll.MustParseDecimal(deduction)
	res.NetSalary = payroll.MustParseDecimal(net)
	res.Paid = paid != 0
	res.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	return res, nil
}

// =============================================================================
// EMPLOYEE STORE (payroll.EmployeeStore interface)
// =============================================================================

// SaveEmployee inserts or updates a roster record.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.EmployeeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, department, role, base_salary, hire_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			role = excluded.role,
			base_salary = excluded.base_salary,
			hire_date = excluded.hire_date,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email, emp.Department, emp.Role,
		emp.BaseSalary.String(),
		emp.HireDate.Format(dayFormat),
		boolToInt(emp.Active),
		now, now,
	)
	return err
}

// Employee returns the roster snapshot for one employee.
func (s *Store) Employee(ctx context.Context, id payroll.EmployeeID) (payroll.EmployeeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, department, role, base_salary, hire_date, active
		FROM employees WHERE id = ?
	`, id)

	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return payroll.EmployeeSnapshot{}, payroll.ErrEmployeeNotFound
	}
	return emp, err
}

// ActiveEmployees returns all active employees ordered by ID.
func (s *Store) ActiveEmployees(ctx context.Context) ([]payroll.EmployeeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx, `
		SELECT id, name, email, department, role, base_salary, hire_date, active
		FROM employees WHERE active = 1 ORDER BY id ASC
	`)
}

// ListEmployees returns every employee, active or not, ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.EmployeeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx, `
		SELECT id, name, email, department, role, base_salary, hire_date, active
		FROM employees ORDER BY id ASC
	`)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.EmployeeSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []payroll.EmployeeSnapshot
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (payroll.EmployeeSnapshot, error) {
	var (
		emp        payroll.EmployeeSnapshot
		email      sql.NullString
		department sql.NullString
		role       sql.NullString
		base       string
		hireDate   string
		active     int
	)

	err := row.Scan(&emp.ID, &emp.Name, &email, &department, &role, &base, &hireDate, &active)
	if err != nil {
		return emp, err
	}

	emp.Email = email.String
	emp.Department = department.String
	emp.Role = role.String
	emp.BaseSalary = payroll.MustParseDecimal(base)
	emp.HireDate, _ = time.Parse(dayFormat, hireDate)
	emp.Active = active != 0
	return emp, nil
}

// =============================================================================
// PAYROLL RUN HISTORY
// =============================================================================

// RunRecord is one stored batch run.
type RunRecord struct {
	ID             string
	Period         payroll.Period
	Forced         bool
	Status         string // "running", "completed", "aborted", "failed"
	Computed       int
	Skipped        int
	Failed         int
	TotalBase      decimal.Decimal
	TotalDeduction decimal.Decimal
	TotalNet       decimal.Decimal
	Error          string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_runs
		(id, month, year, forced, status, computed, skipped, failed,
		 total_base, total_deduction, total_net, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			computed = excluded.computed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			total_base = excluded.total_base,
			total_deduction = excluded.total_deduction,
			total_net = excluded.total_net,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, int(run.Period.Month), run.Period.Year,
		boolToInt(run.Forced), run.Status,
		run.Computed, run.Skipped, run.Failed,
		run.TotalBase.String(), run.TotalDeduction.String(), run.TotalNet.String(),
		nullString(run.Error),
		nullTime(run.StartedAt), nullTime(run.CompletedAt),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListRuns returns run history, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, month, year, forced, status, computed, skipped, failed,
		       total_base, total_deduction, total_net, error, started_at, completed_at, created_at
		FROM payroll_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			run           RunRecord
			month, year   int
			forced        int
			base          sql.NullString
			ded           sql.NullString
			net           sql.NullString
			errMsg        sql.NullString
			started       sql.NullString
			completed     sql.NullString
			createdAtText string
		)
		if err := rows.Scan(&run.ID, &month, &year, &forced, &run.Status,
			&run.Computed, &run.Skipped, &run.Failed,
			&base, &ded, &net, &errMsg, &started, &completed, &createdAtText); err != nil {
			return nil, fmt.Errorf("failed to scan payroll run: %w", err)
		}

		run.Period = payroll.Period{Month: time.Month(month), Year: year}
		run.Forced = forced != 0
		if base.Valid {
			run.TotalBase = payroll.MustParseDecimal(base.String)
		}
		if ded.Valid {
			run.TotalDeduction = payroll.MustParseDecimal(ded.String)
		}
		if net.Valid {
			run.TotalNet = payroll.MustParseDecimal(net.String)
		}
		run.Error = errMsg.String
		if started.Valid {
			t, _ := time.Parse(time.RFC3339, started.String)
			run.StartedAt = &t
		}
		if completed.Valid {
			t, _ := time.Parse(time.RFC3339, completed.String)
			run.CompletedAt = &t
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAtText)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
