package persistence

import (
	"context"
	"time"
)

// BookingFilter narrows booking queries. Nil fields are ignored.
type BookingFilter struct {
	RoomID          string
	OrganizerID     string
	Statuses        []string
	StartsBefore    *time.Time // start < value
	StartsAtOrAfter *time.Time // start >= value
	EndsAfter       *time.Time // end > value
	OnDate          *time.Time // start falls on the value's UTC calendar day
}

// BookingRepository stores bookings, their attendees, and extension records.
//
// CreateBooking and UpdateBooking perform the overlap check and the write in
// a single transaction: when the booking occupies its room (confirmed or
// checked-in status) and another active booking overlaps the interval, the
// write is rejected with ErrConflict and no state changes.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)

	// ReleaseNoShows transitions every confirmed, unchecked booking whose
	// check-in grace expired (start <= staleBefore) but whose scheduled end
	// has not passed (end >= stillRunningAt) to no_show in one batch update,
	// and returns the released bookings.
	ReleaseNoShows(ctx context.Context, staleBefore, stillRunningAt time.Time) ([]Booking, error)

	// ListDueReminders returns confirmed bookings starting within
	// [from, until] that have not had a reminder sent yet.
	ListDueReminders(ctx context.Context, from, until time.Time) ([]Booking, error)
	MarkReminderSent(ctx context.Context, id string) error

	// PseudonymizeBefore blanks title and description of bookings that
	// started before the cutoff, skipping already-redacted rows, and
	// returns the number of rows changed.
	PseudonymizeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RoomRepository exposes CRUD operations for the room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}
