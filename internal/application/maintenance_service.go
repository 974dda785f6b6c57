package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaintenanceRepository captures the bulk operations the sweeper drives.
type MaintenanceRepository interface {
	// ReleaseNoShows transitions every confirmed, never-checked-in booking
	// whose start is at or before staleBefore and whose end is at or after
	// stillRunningAt to no-show, in one batch, and returns the released rows.
	ReleaseNoShows(ctx context.Context, staleBefore, stillRunningAt time.Time) ([]Booking, error)
	// ListDueReminders returns confirmed bookings without a sent reminder
	// whose start falls within [from, until].
	ListDueReminders(ctx context.Context, from, until time.Time) ([]Booking, error)
	MarkReminderSent(ctx context.Context, bookingID string) error
	// PseudonymizeBefore blanks title and description on bookings that
	// started before cutoff and returns the number of rows touched.
	PseudonymizeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepStats reports what a single sweep changed.
type SweepStats struct {
	Released      int
	RemindersSent int
	Pseudonymized int64
}

// MaintenanceService implements the periodic reclamation work: auto-releasing
// no-shows, sending check-in reminders, and pseudonymizing old bookings.
type MaintenanceService struct {
	bookings MaintenanceRepository
	notifier Notifier
	policy   BookingPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// NewMaintenanceService wires dependencies for sweep operations.
func NewMaintenanceService(bookings MaintenanceRepository, notifier Notifier, policy BookingPolicy, now func() time.Time) *MaintenanceService {
	return NewMaintenanceServiceWithLogger(bookings, notifier, policy, now, nil)
}

// NewMaintenanceServiceWithLogger constructs a maintenance service with a specified logger.
func NewMaintenanceServiceWithLogger(bookings MaintenanceRepository, notifier Notifier, policy BookingPolicy, now func() time.Time, logger *slog.Logger) *MaintenanceService {
	if now == nil {
		now = time.Now
	}
	if policy == (BookingPolicy{}) {
		policy = DefaultBookingPolicy()
	}
	return &MaintenanceService{
		bookings: bookings,
		notifier: notifier,
		policy:   policy,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *MaintenanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaintenanceService", operation, attrs...)
}

// ReleaseNoShows force-releases bookings whose check-in grace period elapsed
// while the meeting is still nominally running. Bookings that already ended
// are left alone. Returns the number released; a sweep with no matches is not
// an error.
func (s *MaintenanceService) ReleaseNoShows(ctx context.Context) (released int, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	now := s.now()
	logger := s.loggerWith(ctx, "ReleaseNoShows")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to release no-shows", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if released > 0 {
			logger.With("released_count", released).InfoContext(ctx, "no-shows released")
		}
	}()

	staleBefore := now.Add(-s.policy.AutoReleaseAfter)

	bookings, releaseErr := s.bookings.ReleaseNoShows(ctx, staleBefore, now)
	if releaseErr != nil {
		err = mapBookingRepoError(releaseErr)
		return
	}

	for _, booking := range bookings {
		dispatchNotification(logger.With("booking_id", booking.ID, "event", "no_show"), s.notifier, "no_show", booking)
	}

	released = len(bookings)
	return
}

// SendCheckinReminders sends a reminder for each confirmed booking starting
// within the check-in window that has not been reminded yet. The reminder is
// marked sent before dispatch so repeated sweeps never double-send.
func (s *MaintenanceService) SendCheckinReminders(ctx context.Context) (sent int, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	now := s.now()
	logger := s.loggerWith(ctx, "SendCheckinReminders")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send check-in reminders", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if sent > 0 {
			logger.With("reminder_count", sent).InfoContext(ctx, "check-in reminders sent")
		}
	}()

	due, listErr := s.bookings.ListDueReminders(ctx, now, now.Add(s.policy.CheckinWindow))
	if listErr != nil {
		err = mapBookingRepoError(listErr)
		return
	}

	for _, booking := range due {
		if markErr := s.bookings.MarkReminderSent(ctx, booking.ID); markErr != nil {
			// The booking may have been cancelled between list and mark;
			// skip it rather than risk a duplicate reminder later.
			logger.WarnContext(ctx, "could not mark reminder sent",
				"booking_id", booking.ID,
				"error", markErr,
			)
			continue
		}
		dispatchNotification(logger.With("booking_id", booking.ID, "event", "reminder"), s.notifier, "reminder", booking)
		sent++
	}
	return
}

// PseudonymizeOldBookings blanks identifying text on bookings older than the
// retention window. Returns the number of rows rewritten.
func (s *MaintenanceService) PseudonymizeOldBookings(ctx context.Context) (count int64, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "PseudonymizeOldBookings")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to pseudonymize bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if count > 0 {
			logger.With("pseudonymized_count", count).InfoContext(ctx, "old bookings pseudonymized")
		}
	}()

	cutoff := s.now().Add(-s.policy.PseudonymizeAfter)

	count, err = s.bookings.PseudonymizeBefore(ctx, cutoff)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

// Sweep runs one full maintenance pass: no-show release, reminder dispatch,
// and pseudonymization. Each phase runs even when an earlier one fails; the
// combined error is returned alongside the stats for what did succeed.
func (s *MaintenanceService) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	if s == nil {
		return stats, fmt.Errorf("MaintenanceService is nil")
	}

	var errs []error

	released, err := s.ReleaseNoShows(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("release no-shows: %w", err))
	}
	stats.Released = released

	sent, err := s.SendCheckinReminders(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("send reminders: %w", err))
	}
	stats.RemindersSent = sent

	pseudonymized, err := s.PseudonymizeOldBookings(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("pseudonymize: %w", err))
	}
	stats.Pseudonymized = pseudonymized

	return stats, errors.Join(errs...)
}
