/*
scheduler.go - Automated payroll trigger

PURPOSE:
  Periodically checks the calendar and launches the monthly batch when a
  trigger day is reached, without any operator action.

TRIGGER POLICY (see payroll.ResolveTarget):
  - 1st of the month: compute the month that just closed
  - 28th or later:    compute the current month
  - any other day:    do nothing

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Never forces: if results already exist for the target period the
    batch aborts on its whole-period guard and the scheduler moves on
  - Every launched run is recorded in payroll_runs (by ExecuteRun)

USAGE:
  scheduler := NewPayrollScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ExecuteRun (shared run path with the manual endpoint)
  - payroll/period.go: ResolveTarget
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// PayrollScheduler launches the monthly batch on trigger days.
type PayrollScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	// Now is the clock used for trigger-day checks. Defaults to time.Now.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(handler *Handler) *PayrollScheduler {
	return &PayrollScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.wg.Add(1)

	go ps.run()

	log.Printf("[Scheduler] Started with check interval: %v", ps.CheckInterval)
}

// Stop stops the scheduler.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ps *PayrollScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.checkAndProcess()

	for {
		select {
		case <-ps.ticker.C:
			ps.checkAndProcess()
		case <-ps.stop:
			return
		}
	}
}

func (ps *PayrollScheduler) checkAndProcess() {
	ctx := context.Background()
	now := ps.Now()

	target, ok := payroll.ResolveTarget(now)
	if !ok {
		// Not a trigger day.
		return
	}

	log.Printf("[Scheduler] Trigger day %s: payroll target is %s", now.Format("2006-01-02"), target)

	report, err := ps.Handler.ExecuteRun(ctx, target, false, "scheduled")
	if err != nil {
		var abort *payroll.BatchAbortError
		if errors.As(err, &abort) {
			log.Printf("[Scheduler] %s already computed (%d employees), nothing to do", target, abort.Existing)
			return
		}
		log.Printf("[Scheduler] Payroll run for %s failed: %v", target, err)
		return
	}

	log.Printf("[Scheduler] Payroll run for %s: %d computed, %d skipped, %d failed",
		target, report.Computed, report.Skipped, report.Failed)
}

// RunNow triggers an immediate check (for testing/admin).
func (ps *PayrollScheduler) RunNow() {
	ps.checkAndProcess()
}
