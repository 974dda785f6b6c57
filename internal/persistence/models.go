package persistence

import "time"

// Booking represents a reserved room interval as stored.
//
// Status holds the raw string form; the application layer owns the closed
// status type and its transition rules.
type Booking struct {
	ID                   string
	RoomID               string
	OrganizerID          string
	Title                string
	Description          string
	Start                time.Time
	End                  time.Time
	Status               string
	CheckedIn            bool
	CheckedInAt          *time.Time
	AttendeeIDs          []string
	IsRecurring          bool
	RecurrenceType       string
	RecurrenceEndDate    *time.Time
	RecurrenceInterval   int
	RecurrenceWeekdays   []int
	RecurrenceDayOfMonth int
	ParentID             *string
	ReminderSent         bool
	Extensions           []Extension
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Extension records one applied booking extension, oldest first.
type Extension struct {
	BookingID  string
	ExtendedBy string
	Minutes    int
	CreatedAt  time.Time
}

// Room represents a bookable meeting room catalog entry.
type Room struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Capacity  int
	Amenities []string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
