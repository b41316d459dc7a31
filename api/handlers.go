/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the attendance ledger and the payroll engine via REST. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic. Inputs are validated here; the engine receives clean values.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List employees
    POST   /api/employees                       Create/update employee
    GET    /api/employees/{id}                  Get employee
    GET    /api/employees/{id}/attendance       Month's attendance
    GET    /api/employees/{id}/attendance/summary  Month counts + rate
    GET    /api/employees/{id}/salaries         Salary history

  Attendance:
    POST   /api/attendance                      Mark one day (upsert)

  Payroll:
    POST   /api/payroll/run                     Run batch {month?, year?, force}
    GET    /api/payroll/results                 Results + totals for a period
    POST   /api/payroll/results/{id}/paid       Flip the paid flag
    GET    /api/payroll/runs                    Batch run history

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (payroll already computed, batch abort)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Automated trigger using the same run path
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Calculator *payroll.Calculator
	Runner     *payroll.Runner
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	calc := payroll.NewCalculator(store, store)
	return &Handler{
		Store:      store,
		Calculator: calc,
		Runner:     payroll.NewRunner(calc),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]EmployeeResponse, 0, len(employees))
	for _, emp := range employees {
		resp = append(resp, toEmployeeResponse(emp))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" || req.Name == "" {
		writeBadRequest(w, "id and name are required")
		return
	}

	salary, err := decimal.NewFromString(req.BaseSalary)
	if err != nil {
		writeBadRequest(w, "baseSalary must be a decimal number")
		return
	}
	if salary.IsNegative() {
		writeBadRequest(w, "baseSalary must not be negative")
		return
	}

	hireDate := time.Now().UTC()
	if req.HireDate != "" {
		hireDate, err = time.Parse("2006-01-02", req.HireDate)
		if err != nil {
			writeBadRequest(w, "hireDate must be YYYY-MM-DD")
			return
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	emp := payroll.EmployeeSnapshot{
		ID:         payroll.EmployeeID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Role:       req.Role,
		BaseSalary: salary,
		HireDate:   hireDate,
		Active:     active,
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeBadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	status := payroll.AttendanceStatus(req.Status)
	if !status.Valid() {
		writeBadRequest(w, fmt.Sprintf("status must be one of PRESENT, ABSENT, HALF_DAY, LEAVE; got %q", req.Status))
		return
	}

	// The employee must exist in the roster before attendance can be marked.
	if _, err := h.Store.Employee(r.Context(), payroll.EmployeeID(req.EmployeeID)); err != nil {
		writeError(w, err)
		return
	}

	rec := payroll.AttendanceRecord{
		EmployeeID: payroll.EmployeeID(req.EmployeeID),
		Date:       date,
		Status:     status,
		Note:       req.Note,
		MarkedBy:   req.MarkedBy,
	}
	if req.CheckIn != "" {
		t, err := time.Parse(time.RFC3339, req.CheckIn)
		if err != nil {
			writeBadRequest(w, "checkIn must be RFC3339")
			return
		}
		rec.CheckIn = &t
	}
	if req.CheckOut != "" {
		t, err := time.Parse(time.RFC3339, req.CheckOut)
		if err != nil {
			writeBadRequest(w, "checkOut must be RFC3339")
			return
		}
		rec.CheckOut = &t
	}

	if err := h.Store.Mark(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceResponse(rec))
}

func (h *Handler) GetEmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.Store.RecordsFor(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]AttendanceResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toAttendanceResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.Store.RecordsFor(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}

	s := payroll.Summarize(records)
	writeJSON(w, http.StatusOK, MonthSummaryResponse{
		Period:  p.String(),
		Present: s.Present,
		Absent:  s.Absent,
		HalfDay: s.HalfDay,
		Leave:   s.Leave,
		Total:   s.Total,
		Rate:    s.Rate.StringFixed(2),
	})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	var req RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := resolvePeriod(req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.ExecuteRun(r.Context(), p, req.Force, "manual")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchReportResponse(report))
}

// ExecuteRun fetches the roster, runs the batch, and records the run in
// payroll_runs. Shared by the HTTP handler and the scheduler.
func (h *Handler) ExecuteRun(ctx context.Context, p payroll.Period, force bool, trigger string) (payroll.BatchReport, error) {
	roster, err := h.Store.ActiveEmployees(ctx)
	if err != nil {
		return payroll.BatchReport{}, fmt.Errorf("fetch roster: %w", err)
	}

	started := time.Now().UTC()
	run := sqlite.RunRecord{
		ID:        fmt.Sprintf("run-%s-%d", trigger, started.UnixNano()),
		Period:    p,
		Forced:    force,
		Status:    "running",
		StartedAt: &started,
	}
	if err := h.Store.SaveRun(ctx, run); err != nil {
		return payroll.BatchReport{}, fmt.Errorf("record run: %w", err)
	}

	report, err := h.Runner.Run(ctx, p, roster, force)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Computed = report.Computed
	run.Skipped = report.Skipped
	run.Failed = report.Failed
	run.TotalBase = report.Totals.Base
	run.TotalDeduction = report.Totals.Deduction
	run.TotalNet = report.Totals.Net

	switch {
	case err == nil:
		run.Status = "completed"
	case errors.As(err, new(*payroll.BatchAbortError)):
		run.Status = "aborted"
		run.Error = err.Error()
	default:
		run.Status = "failed"
		run.Error = err.Error()
	}
	if saveErr := h.Store.SaveRun(ctx, run); saveErr != nil {
		// The batch already ran; losing the history row is not fatal.
		log.Printf("[Payroll] failed to update run record %s: %v", run.ID, saveErr)
	}

	return report, err
}

func (h *Handler) GetPeriodResults(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.Store.ResultsForPeriod(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}

	var totals payroll.Totals
	resp := PeriodResultsResponse{Period: p.String(), Results: make([]SalaryResultResponse, 0, len(results))}
	for _, res := range results {
		totals = totals.Add(res)
		resp.Results = append(resp.Results, toSalaryResultResponse(res))
	}
	resp.Totals = TotalsResponse{
		Base:      totals.Base.StringFixed(2),
		Deduction: totals.Deduction.StringFixed(2),
		Net:       totals.Net.StringFixed(2),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetEmployeeSalaries(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	results, err := h.Store.ResultsForEmployee(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]SalaryResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, toSalaryResultResponse(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Store.MarkPaid(r.Context(), id, p); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Store.Result(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSalaryResultResponse(res))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]RunRecordResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunRecordResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// resolvePeriod applies the trigger policy: explicit (month, year) pairs
// are used verbatim; an omitted period falls back to date inference,
// and outside trigger days to the most recently closed month.
func resolvePeriod(req RunPayrollRequest, now time.Time) (payroll.Period, error) {
	if req.Month != 0 || req.Year != 0 {
		p := payroll.Period{Month: time.Month(req.Month), Year: req.Year}
		if p.Year == 0 {
			p.Year = now.Year()
		}
		return p, p.Validate()
	}

	if p, ok := payroll.ResolveTarget(now); ok {
		return p, nil
	}
	return payroll.DefaultTarget(now), nil
}

func periodFromQuery(r *http.Request) (payroll.Period, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return payroll.Period{}, fmt.Errorf("%w: month query parameter required", payroll.ErrInvalidPeriod)
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return payroll.Period{}, fmt.Errorf("%w: year query parameter required", payroll.ErrInvalidPeriod)
	}

	p := payroll.Period{Month: time.Month(month), Year: year}
	return p, p.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func writeError(w http.ResponseWriter, err error) {
	var abort *payroll.BatchAbortError
	switch {
	case errors.As(err, &abort), errors.Is(err, payroll.ErrAlreadyComputed):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case payroll.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case payroll.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
