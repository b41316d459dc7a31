// Package store provides in-memory implementations of the payroll
// storage interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.AttendanceStore, payroll.ResultStore and
// payroll.EmployeeStore behind a single mutex. The ResultStore Save
// performs the exists/force check and the write under the same lock,
// which is what makes the upsert atomic.
type Memory struct {
	mu         sync.RWMutex
	attendance map[attendanceKey]payroll.AttendanceRecord
	results    map[resultKey]payroll.SalaryResult
	employees  map[payroll.EmployeeID]payroll.EmployeeSnapshot
}

type attendanceKey struct {
	EmployeeID payroll.EmployeeID
	Day        string // 2006-01-02
}

type resultKey struct {
	EmployeeID payroll.EmployeeID
	Period     payroll.Period
}

func NewMemory() *Memory {
	return &Memory{
		attendance: make(map[attendanceKey]payroll.AttendanceRecord),
		results:    make(map[resultKey]payroll.SalaryResult),
		employees:  make(map[payroll.EmployeeID]payroll.EmployeeSnapshot),
	}
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

func (m *Memory) Mark(_ context.Context, rec payroll.AttendanceRecord) error {
	if !rec.Status.Valid() {
		return payroll.ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := attendanceKey{EmployeeID: rec.EmployeeID, Day: rec.Day().Format("2006-01-02")}
	m.attendance[k] = rec
	return nil
}

func (m *Memory) RecordsFor(_ context.Context, id payroll.EmployeeID, p payroll.Period) ([]payroll.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.EmployeeID == id && p.Contains(rec.Day()) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// =============================================================================
// RESULT STORE
// =============================================================================

func (m *Memory) Save(_ context.Context, res payroll.SalaryResult, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := resultKey{EmployeeID: res.EmployeeID, Period: res.Period}
	if _, exists := m.results[k]; exists && !force {
		return payroll.ErrAlreadyComputed
	}
	m.results[k] = res
	return nil
}

func (m *Memory) Result(_ context.Context, id payroll.EmployeeID, p payroll.Period) (payroll.SalaryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.results[resultKey{EmployeeID: id, Period: p}]
	if !ok {
		return payroll.SalaryResult{}, payroll.ErrResultNotFound
	}
	return res, nil
}

func (m *Memory) ResultsForPeriod(_ context.Context, p payroll.Period) ([]payroll.SalaryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.SalaryResult
	for k, res := range m.results {
		if k.Period == p {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *Memory) ResultsForEmployee(_ context.Context, id payroll.EmployeeID) ([]payroll.SalaryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.SalaryResult
	for k, res := range m.results {
		if k.EmployeeID == id {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Period, out[j].Period
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	return out, nil
}

func (m *Memory) CountForPeriod(_ context.Context, p payroll.Period) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for k := range m.results {
		if k.Period == p {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp payroll.EmployeeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) Employee(_ context.Context, id payroll.EmployeeID) (payroll.EmployeeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return payroll.EmployeeSnapshot{}, payroll.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *Memory) ActiveEmployees(_ context.Context) ([]payroll.EmployeeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.EmployeeSnapshot
	for _, emp := range m.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
