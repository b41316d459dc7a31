/*
batch.go - Whole-roster payroll run

PURPOSE:
  Iterates every active employee for a target period, invokes the
  Calculator for each, and aggregates the outcomes into a BatchReport.

TWO GUARDS, TWO GRANULARITIES:
  1. Whole-period guard (here): a non-forced run that finds ANY existing
     result for the period aborts before touching a single employee,
     returning BatchAbortError with the existing count. This stops an
     accidental re-launch that would walk the whole roster doing nothing.
  2. Per-employee guard (calculator.go): under force=false an existing
     row is left untouched and counted as AlreadyComputed.

FAILURE ISOLATION:
  One employee's computation failing must not abort the batch. The error
  is recorded, the Failed counter is bumped, and the loop continues.
  Only a malformed period or a roster-fetch failure (the caller's
  responsibility) is fatal to the whole run.

TOTALS:
  After the loop, totals sum base/deduction/net over ALL stored results
  for the period - not just the rows touched in this run - so a partial
  re-run still reports the full period picture.
*/
package payroll

import (
	"context"
	"log"
	"sort"
)

// =============================================================================
// BATCH REPORT
// =============================================================================

// EmployeeFailure records one contained per-employee error.
type EmployeeFailure struct {
	EmployeeID EmployeeID
	Err        string
}

// BatchReport summarizes one batch run.
type BatchReport struct {
	Period   Period
	Forced   bool
	Computed int
	Skipped  int
	Failed   int
	Failures []EmployeeFailure
	Totals   Totals
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes whole-roster payroll runs.
type Runner struct {
	Calculator *Calculator
	Results    ResultStore
}

func NewRunner(calc *Calculator) *Runner {
	return &Runner{Calculator: calc, Results: calc.Results}
}

// Run computes payroll for every active employee in the roster.
//
// The roster is iterated in employee-ID order so logs and failure lists
// are reproducible regardless of how the caller fetched it.
func (r *Runner) Run(ctx context.Context, p Period, roster []EmployeeSnapshot, force bool) (BatchReport, error) {
	report := BatchReport{Period: p, Forced: force}

	if err := p.Validate(); err != nil {
		return report, err
	}

	if !force {
		existing, err := r.Results.CountForPeriod(ctx, p)
		if err != nil {
			return report, err
		}
		if existing > 0 {
			return report, &BatchAbortError{Period: p, Existing: existing}
		}
	}

	ordered := make([]EmployeeSnapshot, 0, len(roster))
	for _, emp := range roster {
		if emp.Active {
			ordered = append(ordered, emp)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, emp := range ordered {
		outcome, err := r.Calculator.Compute(ctx, emp, p, force)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, EmployeeFailure{EmployeeID: emp.ID, Err: err.Error()})
			log.Printf("[Payroll] %s %s: %v", p, emp.ID, err)
			continue
		}

		switch outcome.Kind {
		case OutcomeComputed:
			report.Computed++
		case OutcomeSkipped:
			report.Skipped++
			log.Printf("[Payroll] %s %s: no attendance records, skipped", p, emp.ID)
		case OutcomeAlreadyComputed:
			// Per-employee idempotence under force=false. Can only be hit
			// when a result appeared after the whole-period guard ran.
			report.Skipped++
		}
	}

	totals, err := r.totalsForPeriod(ctx, p)
	if err != nil {
		return report, err
	}
	report.Totals = totals

	log.Printf("[Payroll] %s complete: %d computed, %d skipped, %d failed (net total %s)",
		p, report.Computed, report.Skipped, report.Failed, report.Totals.Net)

	return report, nil
}

// totalsForPeriod sums every stored result for the period.
func (r *Runner) totalsForPeriod(ctx context.Context, p Period) (Totals, error) {
	results, err := r.Results.ResultsForPeriod(ctx, p)
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, res := range results {
		t = t.Add(res)
	}
	return t, nil
}
