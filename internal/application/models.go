package application

import (
	"time"

	"github.com/example/circle-time/internal/recurrence"
)

// Status is the closed set of booking lifecycle states.
type Status string

const (
	// StatusPending models the slot between submission and first persistence.
	// Bookings are confirmed on creation under current rules; the state is
	// kept reachable for future moderated-approval flows.
	StatusPending Status = "pending"
	// StatusConfirmed is a booked interval that occupies its room.
	StatusConfirmed Status = "confirmed"
	// StatusCheckedIn is a confirmed booking whose organizer has checked in.
	StatusCheckedIn Status = "checked_in"
	// StatusCompleted is a booking that ran (or was ended early).
	StatusCompleted Status = "completed"
	// StatusCancelled is a booking withdrawn by a client.
	StatusCancelled Status = "cancelled"
	// StatusNoShow is a booking force-released by the sweeper for lack of check-in.
	StatusNoShow Status = "no_show"
)

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// OccupiesRoom reports whether bookings in this status contend for the room's
// interval timeline. Only these statuses participate in conflict detection.
func (s Status) OccupiesRoom() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCheckedIn || next == StatusCompleted || next == StatusCancelled || next == StatusNoShow
	case StatusCheckedIn:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Extension records one applied booking extension.
type Extension struct {
	ExtendedBy string
	Minutes    int
	At         time.Time
}

// Booking represents a reserved room interval with its lifecycle state.
// Intervals are half-open [Start, End).
type Booking struct {
	ID                string
	RoomID            string
	OrganizerID       string
	Title             string
	Description       string
	Start             time.Time
	End               time.Time
	Status            Status
	CheckedIn         bool
	CheckedInAt       *time.Time
	AttendeeIDs       []string
	IsRecurring       bool
	RecurrenceType    recurrence.Type
	RecurrenceEndDate *time.Time
	RecurrencePattern recurrence.Pattern
	ParentID          *string
	ReminderSent      bool
	Extensions        []Extension
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AttendeeCount returns the number of invited attendees.
func (b Booking) AttendeeCount() int {
	return len(b.AttendeeIDs)
}

// RoomStatus is the closed set of room availability states.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusReserved    RoomStatus = "reserved"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Valid reports whether the value is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusReserved, RoomStatusMaintenance:
		return true
	}
	return false
}

// Room represents a bookable meeting room.
type Room struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Capacity  int
	Amenities []string
	Status    RoomStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	RoomID      string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
}

// CreateBookingParams wraps the data required to create a single booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// RecurrenceInput captures caller provided recurrence fields.
type RecurrenceInput struct {
	Type    recurrence.Type
	EndDate time.Time
	Pattern recurrence.Pattern
}

// CreateRecurringParams wraps the data required to create a recurring series.
type CreateRecurringParams struct {
	Principal  Principal
	Input      BookingInput
	Recurrence RecurrenceInput
}

// RecurringCreateResult reports the outcome of a recurring series creation.
// CreatedCount includes the series anchor; SkippedDates lists occurrence
// dates dropped because the room was already booked.
type RecurringCreateResult struct {
	Parent       Booking
	CreatedCount int
	SkippedDates []time.Time
}

// BookingPatch carries a partial booking update; nil fields are left unchanged.
type BookingPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	AttendeeIDs *[]string
}

// UpdateBookingParams wraps the data required to update a booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Patch     BookingPatch
}

// ExtendBookingParams wraps the data required to extend a booking.
type ExtendBookingParams struct {
	Principal Principal
	BookingID string
	Minutes   int
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name      string
	Building  string
	Floor     int
	Capacity  int
	Amenities []string
	Status    RoomStatus
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// BookingPolicy carries the organisation-wide scheduling knobs. It is passed
// explicitly into the services and the sweeper so tests can vary windows
// without touching ambient state.
type BookingPolicy struct {
	CheckinWindow           time.Duration
	AutoReleaseAfter        time.Duration
	MaxExtensions           int
	ExtensionIncrement      time.Duration
	MinExtension            time.Duration
	MaxExtension            time.Duration
	MaxRecurringOccurrences int
	PseudonymizeAfter       time.Duration
}

// DefaultBookingPolicy returns the stock organisation settings.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		CheckinWindow:           15 * time.Minute,
		AutoReleaseAfter:        15 * time.Minute,
		MaxExtensions:           4,
		ExtensionIncrement:      15 * time.Minute,
		MinExtension:            15 * time.Minute,
		MaxExtension:            120 * time.Minute,
		MaxRecurringOccurrences: 52,
		PseudonymizeAfter:       30 * 24 * time.Hour,
	}
}
