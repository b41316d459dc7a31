/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Guard outcomes surfaced as errors at the store boundary
     (ErrAlreadyComputed) - expected, not faults
  2. Validation errors - malformed periods, unknown statuses
  3. Lookup errors - missing employees or results

NOTE:
  Skip ("no attendance data") and per-employee AlreadyComputed are NOT
  errors in this engine - they are defined outcomes carried by
  calculator.Outcome. Only the store-level write rejection and the
  whole-batch guard use the error channel.
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyComputed is returned by a non-forced result write when a
	// salary result already exists for the (employee, month, year). This
	// is the idempotence guard, not a fault: the existing row is intact.
	ErrAlreadyComputed = errors.New("salary already computed for period")

	// ErrInvalidPeriod is returned when a period is malformed
	// (month outside [1,12] or non-positive year).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidStatus is returned when an attendance mark carries an
	// unknown status.
	ErrInvalidStatus = errors.New("invalid attendance status")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrResultNotFound is returned when no salary result exists for the
	// requested (employee, month, year).
	ErrResultNotFound = errors.New("salary result not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BatchAbortError is returned by the batch runner's whole-period guard:
// a non-forced run found existing results and refused to start. Distinct
// from a per-employee failure, which is counted and does not abort.
type BatchAbortError struct {
	Period   Period
	Existing int
}

func (e *BatchAbortError) Error() string {
	return fmt.Sprintf("payroll for %s already computed (%d employees); use force to recompute",
		e.Period, e.Existing)
}

func (e *BatchAbortError) Unwrap() error {
	return ErrAlreadyComputed
}

// IsClientError returns true if the error is due to invalid caller input
// rather than a storage or computation fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrResultNotFound)
}
