package notify

import (
	"context"
	"errors"

	"github.com/example/circle-time/internal/application"
)

// Multi fans one notification out to several notifiers. Every notifier is
// attempted; the errors are joined so the caller's log shows each failure.
type Multi struct {
	notifiers []application.Notifier
}

// NewMulti combines the given notifiers. Nil entries are dropped.
func NewMulti(notifiers ...application.Notifier) *Multi {
	kept := make([]application.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept}
}

func (m *Multi) each(fn func(application.Notifier) error) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendConfirmation implements application.Notifier.
func (m *Multi) SendConfirmation(ctx context.Context, booking application.Booking) error {
	return m.each(func(n application.Notifier) error { return n.SendConfirmation(ctx, booking) })
}

// SendReminder implements application.Notifier.
func (m *Multi) SendReminder(ctx context.Context, booking application.Booking) error {
	return m.each(func(n application.Notifier) error { return n.SendReminder(ctx, booking) })
}

// SendNoShow implements application.Notifier.
func (m *Multi) SendNoShow(ctx context.Context, booking application.Booking) error {
	return m.each(func(n application.Notifier) error { return n.SendNoShow(ctx, booking) })
}

// SendCancellation implements application.Notifier.
func (m *Multi) SendCancellation(ctx context.Context, booking application.Booking) error {
	return m.each(func(n application.Notifier) error { return n.SendCancellation(ctx, booking) })
}
