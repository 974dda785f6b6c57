// Package testfixtures provides deterministic clocks, identifier generators,
// and record builders shared by tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/circle-time/internal/application"
	"github.com/example/circle-time/internal/persistence"
	"github.com/example/circle-time/internal/recurrence"
)

var (
	roomCounter    uint64
	bookingCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record that can be
// materialised for application or persistence tests.
type RoomFixture struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Capacity  int
	Amenities []string
	Status    application.RoomStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Building:  "Main Office",
		Floor:     int(1 + idx%3),
		Capacity:  int(4 + idx%4),
		Status:    application.RoomStatusAvailable,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomLocation sets the building and floor on the fixture.
func WithRoomLocation(building string, floor int) RoomOption {
	return func(f *RoomFixture) {
		f.Building = building
		f.Floor = floor
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomAmenities sets the amenity list on the fixture.
func WithRoomAmenities(amenities ...string) RoomOption {
	return func(f *RoomFixture) {
		f.Amenities = amenities
	}
}

// WithRoomStatus overrides the generated status.
func WithRoomStatus(status application.RoomStatus) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:        f.ID,
		Name:      f.Name,
		Building:  f.Building,
		Floor:     f.Floor,
		Capacity:  f.Capacity,
		Amenities: f.Amenities,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Building:  f.Building,
		Floor:     f.Floor,
		Capacity:  f.Capacity,
		Amenities: f.Amenities,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:      f.Name,
		Building:  f.Building,
		Floor:     f.Floor,
		Capacity:  f.Capacity,
		Amenities: f.Amenities,
		Status:    f.Status,
	}
}

// --------------------------- Booking fixtures ---------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	ID                string
	RoomID            string
	OrganizerID       string
	Title             string
	Description       string
	Start             time.Time
	End               time.Time
	Status            application.Status
	CheckedIn         bool
	CheckedInAt       *time.Time
	AttendeeIDs       []string
	IsRecurring       bool
	RecurrenceType    recurrence.Type
	RecurrenceEndDate *time.Time
	RecurrencePattern recurrence.Pattern
	ParentID          *string
	ReminderSent      bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture. Each fixture
// occupies its own hour so that uncustomised fixtures never collide.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * 2 * time.Hour)
	created := start.Add(-24 * time.Hour)
	fixture := BookingFixture{
		ID:             id,
		RoomID:         "room-001",
		OrganizerID:    fmt.Sprintf("user-%03d", idx),
		Title:          fmt.Sprintf("Meeting %03d", idx),
		Start:          start,
		End:            start.Add(time.Hour),
		Status:         application.StatusConfirmed,
		RecurrenceType: recurrence.TypeNone,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom overrides the room the booking occupies.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingOrganizer overrides the organizer.
func WithBookingOrganizer(userID string) BookingOption {
	return func(f *BookingFixture) {
		f.OrganizerID = userID
	}
}

// WithBookingInterval sets the start and end instants on the fixture.
func WithBookingInterval(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingStatus overrides the generated status.
func WithBookingStatus(status application.Status) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingAttendees sets the attendee list on the fixture.
func WithBookingAttendees(userIDs ...string) BookingOption {
	return func(f *BookingFixture) {
		f.AttendeeIDs = userIDs
	}
}

// WithBookingCheckedIn marks the fixture checked in at the given instant.
func WithBookingCheckedIn(at time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Status = application.StatusCheckedIn
		f.CheckedIn = true
		f.CheckedInAt = &at
	}
}

// WithBookingRecurrence attaches a recurrence pattern to the fixture.
func WithBookingRecurrence(typ recurrence.Type, pattern recurrence.Pattern, endDate time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.IsRecurring = true
		f.RecurrenceType = typ
		f.RecurrencePattern = pattern
		f.RecurrenceEndDate = &endDate
	}
}

// WithBookingParent marks the fixture as a child occurrence of the given parent.
func WithBookingParent(parentID string) BookingOption {
	return func(f *BookingFixture) {
		f.IsRecurring = true
		f.ParentID = &parentID
	}
}

// Application returns the fixture as an application.Booking value.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:                f.ID,
		RoomID:            f.RoomID,
		OrganizerID:       f.OrganizerID,
		Title:             f.Title,
		Description:       f.Description,
		Start:             f.Start,
		End:               f.End,
		Status:            f.Status,
		CheckedIn:         f.CheckedIn,
		CheckedInAt:       f.CheckedInAt,
		AttendeeIDs:       f.AttendeeIDs,
		IsRecurring:       f.IsRecurring,
		RecurrenceType:    f.RecurrenceType,
		RecurrenceEndDate: f.RecurrenceEndDate,
		RecurrencePattern: f.RecurrencePattern,
		ParentID:          f.ParentID,
		ReminderSent:      f.ReminderSent,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:                   f.ID,
		RoomID:               f.RoomID,
		OrganizerID:          f.OrganizerID,
		Title:                f.Title,
		Description:          f.Description,
		Start:                f.Start,
		End:                  f.End,
		Status:               string(f.Status),
		CheckedIn:            f.CheckedIn,
		CheckedInAt:          f.CheckedInAt,
		AttendeeIDs:          f.AttendeeIDs,
		IsRecurring:          f.IsRecurring,
		RecurrenceType:       string(f.RecurrenceType),
		RecurrenceEndDate:    f.RecurrenceEndDate,
		RecurrenceInterval:   f.RecurrencePattern.Interval,
		RecurrenceWeekdays:   f.RecurrencePattern.Weekdays,
		RecurrenceDayOfMonth: f.RecurrencePattern.DayOfMonth,
		ParentID:             f.ParentID,
		ReminderSent:         f.ReminderSent,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Input returns the fixture as an application.BookingInput.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		RoomID:      f.RoomID,
		Title:       f.Title,
		Description: f.Description,
		Start:       f.Start,
		End:         f.End,
		AttendeeIDs: f.AttendeeIDs,
	}
}

// Principal returns the organizer as an application.Principal.
func (f BookingFixture) Principal() application.Principal {
	return application.Principal{UserID: f.OrganizerID}
}
