package notify

import (
	"context"
	"log/slog"

	"github.com/example/circle-time/internal/application"
)

// LogNotifier records notifications on the structured log instead of
// delivering them. It is the default notifier for development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) log(ctx context.Context, event string, booking application.Booking) error {
	msg := renderMessage(event, booking)
	n.logger.InfoContext(ctx, "notification",
		"event", msg.Event,
		"booking_id", booking.ID,
		"organizer_id", booking.OrganizerID,
		"subject", msg.Subject,
	)
	return nil
}

// SendConfirmation implements application.Notifier.
func (n *LogNotifier) SendConfirmation(ctx context.Context, booking application.Booking) error {
	return n.log(ctx, EventConfirmed, booking)
}

// SendReminder implements application.Notifier.
func (n *LogNotifier) SendReminder(ctx context.Context, booking application.Booking) error {
	return n.log(ctx, EventReminder, booking)
}

// SendNoShow implements application.Notifier.
func (n *LogNotifier) SendNoShow(ctx context.Context, booking application.Booking) error {
	return n.log(ctx, EventNoShow, booking)
}

// SendCancellation implements application.Notifier.
func (n *LogNotifier) SendCancellation(ctx context.Context, booking application.Booking) error {
	return n.log(ctx, EventCancelled, booking)
}
