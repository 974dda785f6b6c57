// Package sweeper runs the periodic maintenance loop that reclaims rooms from
// no-shows, sends check-in reminders, and pseudonymizes old bookings.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/circle-time/internal/application"
)

// Sweeper drives MaintenanceService.Sweep on a fixed interval. At most one
// sweep runs at a time: a tick that arrives while a sweep is still in flight
// is skipped rather than queued.
type Sweeper struct {
	maintenance *application.MaintenanceService
	interval    time.Duration
	logger      *slog.Logger

	mu sync.Mutex
}

// New constructs a sweeper. A non-positive interval falls back to one minute.
func New(maintenance *application.MaintenanceService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{maintenance: maintenance, interval: interval, logger: logger}
}

// Run blocks, sweeping every interval until ctx is cancelled. The first sweep
// fires immediately so a freshly started service reclaims stale state without
// waiting a full period.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "sweeper started", "interval", s.interval.String())

	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep unless one is already in flight, in which
// case it reports false and does nothing.
func (s *Sweeper) SweepOnce(ctx context.Context) bool {
	if !s.mu.TryLock() {
		s.logger.WarnContext(ctx, "sweep skipped, previous sweep still running")
		return false
	}
	defer s.mu.Unlock()

	stats, err := s.maintenance.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep finished with errors", "error", err,
			"released_count", stats.Released,
			"reminder_count", stats.RemindersSent,
			"pseudonymized_count", stats.Pseudonymized,
		)
		return true
	}

	if stats.Released > 0 || stats.RemindersSent > 0 || stats.Pseudonymized > 0 {
		s.logger.InfoContext(ctx, "sweep finished",
			"released_count", stats.Released,
			"reminder_count", stats.RemindersSent,
			"pseudonymized_count", stats.Pseudonymized,
		)
	}
	return true
}
