// Package scheduler repeats scan runs at a fixed interval for as long as the process
// lives. A run's failure, including a panic, is logged and the loop waits for the
// next turn.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"docsweep/internal/logger"
	"docsweep/internal/scan"
)

// DefaultInterval is the wait between the end of one run and the start of the next.
const DefaultInterval = time.Hour

// Runner performs one scan.
type Runner interface {
	Run(ctx context.Context) (*scan.Report, error)
}

// Status describes the most recent run.
type Status struct {
	Running    bool
	Runs       int
	LastStart  time.Time
	LastReport *scan.Report
	LastErr    error
}

// Scheduler runs scans sequentially: immediately, then once per interval, plus any
// run requested through Trigger.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	trigger  chan struct{}
	log      zerolog.Logger

	mu     sync.Mutex
	status Status
}

// New creates a scheduler. A non-positive interval uses DefaultInterval.
func New(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		log:      logger.WithComponent("scheduler"),
	}
}

// Run loops until ctx is canceled. It never returns early because of a failed run.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("Scheduler started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler stopped")
			return
		case <-timer.C:
		case <-s.trigger:
			s.log.Info().Msg("Scan requested")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		s.runOnce(ctx)

		if ctx.Err() != nil {
			s.log.Info().Msg("Scheduler stopped")
			return
		}
		timer.Reset(s.interval)
		s.log.Info().Time("next_run", time.Now().Add(s.interval)).Msg("Waiting for next scan")
	}
}

// Trigger asks for a run as soon as the current one, if any, finishes. It returns
// false when a request is already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Status returns a copy of the scheduler's state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.status.Running = true
	s.status.LastStart = time.Now()
	s.mu.Unlock()

	report, err := s.safeRun(ctx)

	s.mu.Lock()
	s.status.Running = false
	s.status.Runs++
	s.status.LastReport = report
	s.status.LastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("Scan failed")
		return
	}
	if report != nil && report.SyncErr != nil {
		s.log.Warn().Err(report.SyncErr).Msg("Scan finished but the ledger was not uploaded")
	}
}

// safeRun turns a panic into an error.
func (s *Scheduler) safeRun(ctx context.Context) (report *scan.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Scan panicked")
			err = fmt.Errorf("scan panicked: %v", r)
		}
	}()
	return s.runner.Run(ctx)
}
