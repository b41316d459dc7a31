/*
dto.go - Request/response shapes for the HTTP API

PURPOSE:
  JSON-facing structs, kept separate from the domain types so the wire
  format can evolve without touching the engine. Currency values are
  serialized as strings to preserve decimal exactness.
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
	BaseSalary string `json:"baseSalary"`
	HireDate   string `json:"hireDate"` // YYYY-MM-DD
	Active     *bool  `json:"active"`   // defaults to true
}

type EmployeeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
	BaseSalary string `json:"baseSalary"`
	HireDate   string `json:"hireDate"`
	Active     bool   `json:"active"`
}

func toEmployeeResponse(emp payroll.EmployeeSnapshot) EmployeeResponse {
	return EmployeeResponse{
		ID:         string(emp.ID),
		Name:       emp.Name,
		Email:      emp.Email,
		Department: emp.Department,
		Role:       emp.Role,
		BaseSalary: emp.BaseSalary.StringFixed(2),
		HireDate:   emp.HireDate.Format("2006-01-02"),
		Active:     emp.Active,
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type MarkAttendanceRequest struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"` // YYYY-MM-DD
	Status     string `json:"status"`
	CheckIn    string `json:"checkIn,omitempty"`  // RFC3339, optional
	CheckOut   string `json:"checkOut,omitempty"` // RFC3339, optional
	Note       string `json:"note,omitempty"`
	MarkedBy   string `json:"markedBy,omitempty"`
}

type AttendanceResponse struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	CheckIn    string `json:"checkIn,omitempty"`
	CheckOut   string `json:"checkOut,omitempty"`
	Note       string `json:"note,omitempty"`
	MarkedBy   string `json:"markedBy,omitempty"`
}

func toAttendanceResponse(rec payroll.AttendanceRecord) AttendanceResponse {
	resp := AttendanceResponse{
		EmployeeID: string(rec.EmployeeID),
		Date:       rec.Day().Format("2006-01-02"),
		Status:     string(rec.Status),
		Note:       rec.Note,
		MarkedBy:   rec.MarkedBy,
	}
	if rec.CheckIn != nil {
		resp.CheckIn = rec.CheckIn.Format(time.RFC3339)
	}
	if rec.CheckOut != nil {
		resp.CheckOut = rec.CheckOut.Format(time.RFC3339)
	}
	return resp
}

type MonthSummaryResponse struct {
	Period  string `json:"period"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	HalfDay int    `json:"halfDay"`
	Leave   int    `json:"leave"`
	Total   int    `json:"total"`
	Rate    string `json:"rate"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type RunPayrollRequest struct {
	Month int  `json:"month,omitempty"` // 1-12; 0 means "infer from date"
	Year  int  `json:"year,omitempty"`
	Force bool `json:"force"`
}

type SalaryResultResponse struct {
	EmployeeID    string `json:"employeeId"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	BaseSalary    string `json:"baseSalary"`
	AttendancePct string `json:"attendancePct"`
	Deduction     string `json:"deduction"`
	NetSalary     string `json:"netSalary"`
	Paid          bool   `json:"paid"`
	ComputedAt    string `json:"computedAt"`
}

func toSalaryResultResponse(res payroll.SalaryResult) SalaryResultResponse {
	return SalaryResultResponse{
		EmployeeID:    string(res.EmployeeID),
		Month:         int(res.Period.Month),
		Year:          res.Period.Year,
		BaseSalary:    res.BaseSalary.StringFixed(2),
		AttendancePct: res.AttendancePct.StringFixed(2),
		Deduction:     res.Deduction.StringFixed(2),
		NetSalary:     res.NetSalary.StringFixed(2),
		Paid:          res.Paid,
		ComputedAt:    res.ComputedAt.UTC().Format(time.RFC3339),
	}
}

type TotalsResponse struct {
	Base      string `json:"base"`
	Deduction string `json:"deduction"`
	Net       string `json:"net"`
}

type BatchReportResponse struct {
	Period   string         `json:"period"`
	Forced   bool           `json:"forced"`
	Computed int            `json:"computed"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Failures []FailureEntry `json:"failures,omitempty"`
	Totals   TotalsResponse `json:"totals"`
}

type FailureEntry struct {
	EmployeeID string `json:"employeeId"`
	Error      string `json:"error"`
}

func toBatchReportResponse(report payroll.BatchReport) BatchReportResponse {
	resp := BatchReportResponse{
		Period:   report.Period.String(),
		Forced:   report.Forced,
		Computed: report.Computed,
		Skipped:  report.Skipped,
		Failed:   report.Failed,
		Totals: TotalsResponse{
			Base:      report.Totals.Base.StringFixed(2),
			Deduction: report.Totals.Deduction.StringFixed(2),
			Net:       report.Totals.Net.StringFixed(2),
		},
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, FailureEntry{
			EmployeeID: string(f.EmployeeID),
			Error:      f.Err,
		})
	}
	return resp
}

type PeriodResultsResponse struct {
	Period  string                 `json:"period"`
	Results []SalaryResultResponse `json:"results"`
	Totals  TotalsResponse         `json:"totals"`
}

type RunRecordResponse struct {
	ID          string         `json:"id"`
	Period      string         `json:"period"`
	Forced      bool           `json:"forced"`
	Status      string         `json:"status"`
	Computed    int            `json:"computed"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	Totals      TotalsResponse `json:"totals"`
	Error       string         `json:"error,omitempty"`
	StartedAt   string         `json:"startedAt,omitempty"`
	CompletedAt string         `json:"completedAt,omitempty"`
}

func toRunRecordResponse(run sqlite.RunRecord) RunRecordResponse {
	resp := RunRecordResponse{
		ID:       run.ID,
		Period:   run.Period.String(),
		Forced:   run.Forced,
		Status:   run.Status,
		Computed: run.Computed,
		Skipped:  run.Skipped,
		Failed:   run.Failed,
		Totals: TotalsResponse{
			Base:      run.TotalBase.StringFixed(2),
			Deduction: run.TotalDeduction.StringFixed(2),
			Net:       run.TotalNet.StringFixed(2),
		},
		Error: run.Error,
	}
	if run.StartedAt != nil {
		resp.StartedAt = run.StartedAt.UTC().Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
