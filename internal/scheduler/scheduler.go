// Package scheduler runs the background due-scan loop. It periodically
// asks the reminder engine to fire everything that has come due, and can
// be woken early after mutating writes so new reminders do not wait a
// full tick.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// DueRunner is the slice of the reminder engine the scheduler needs.
type DueRunner interface {
	CheckAndTriggerDue(ctx context.Context, userID int64) ([]domain.Reminder, error)
}

// Scheduler drives periodic due-scans for one owner.
type Scheduler struct {
	runner   DueRunner
	userID   int64
	interval time.Duration
	notifyCh chan struct{}
	log      zerolog.Logger
}

// New constructs a Scheduler scanning for userID every interval.
// Non-positive intervals default to one minute.
func New(runner DueRunner, userID int64, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		runner:   runner,
		userID:   userID,
		interval: interval,
		notifyCh: make(chan struct{}, 1),
		log:      log,
	}
}

// Notify requests an immediate scan. Non-blocking; coalesces with a scan
// that is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the scan loop until ctx is cancelled. An initial scan runs
// right away so reminders overdue at startup fire without waiting a tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.scan(ctx)
		case <-s.notifyCh:
			s.scan(ctx)
		}
	}
}

// scan runs one due-scan pass. Only store-level failures surface here;
// per-reminder failures are handled inside the engine.
func (s *Scheduler) scan(ctx context.Context) {
	fired, err := s.runner.CheckAndTriggerDue(ctx, s.userID)
	if err != nil {
		s.log.Error().Err(err).Msg("due-scan failed")
		return
	}
	if len(fired) > 0 {
		s.log.Info().Int("fired", len(fired)).Msg("due-scan pass complete")
	}
}
