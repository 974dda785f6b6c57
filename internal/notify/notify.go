// Package notify implements the outbound notification port. Every notifier is
// best effort: the application layer dispatches sends asynchronously and logs
// failures, so implementations only need to report errors, never retry.
package notify

import (
	"fmt"
	"time"

	"github.com/example/circle-time/internal/application"
)

// Event names shared by the email subjects and the queue routing keys.
const (
	EventConfirmed = "booking.confirmed"
	EventReminder  = "booking.reminder"
	EventNoShow    = "booking.no_show"
	EventCancelled = "booking.cancelled"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Event   string
	Subject string
	Body    string
}

func renderMessage(event string, booking application.Booking) Message {
	window := fmt.Sprintf("%s to %s",
		booking.Start.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		booking.End.UTC().Format("15:04 MST"),
	)

	switch event {
	case EventConfirmed:
		return Message{
			Event:   event,
			Subject: fmt.Sprintf("Booking confirmed: %s", booking.Title),
			Body:    fmt.Sprintf("Your booking %q is confirmed for %s.", booking.Title, window),
		}
	case EventReminder:
		return Message{
			Event:   event,
			Subject: fmt.Sprintf("Check-in reminder: %s", booking.Title),
			Body:    fmt.Sprintf("Your booking %q starts at %s. Check in on arrival or the room will be released.", booking.Title, booking.Start.UTC().Format("15:04 MST")),
		}
	case EventNoShow:
		return Message{
			Event:   event,
			Subject: fmt.Sprintf("Booking released: %s", booking.Title),
			Body:    fmt.Sprintf("Your booking %q for %s was released because nobody checked in.", booking.Title, window),
		}
	case EventCancelled:
		return Message{
			Event:   event,
			Subject: fmt.Sprintf("Booking cancelled: %s", booking.Title),
			Body:    fmt.Sprintf("Your booking %q for %s has been cancelled.", booking.Title, window),
		}
	default:
		return Message{
			Event:   event,
			Subject: fmt.Sprintf("Booking update: %s", booking.Title),
			Body:    fmt.Sprintf("Your booking %q for %s was updated.", booking.Title, window),
		}
	}
}

// BookingEvent is the wire payload published to the message broker.
type BookingEvent struct {
	Event       string    `json:"event"`
	BookingID   string    `json:"booking_id"`
	RoomID      string    `json:"room_id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newBookingEvent(event string, booking application.Booking, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		Event:       event,
		BookingID:   booking.ID,
		RoomID:      booking.RoomID,
		OrganizerID: booking.OrganizerID,
		Title:       booking.Title,
		Start:       booking.Start.UTC(),
		End:         booking.End.UTC(),
		Status:      string(booking.Status),
		OccurredAt:  occurredAt.UTC(),
	}
}
