package scheduler

import "time"

// Interval is a half-open time range [Start, End). Two intervals that merely
// touch at a boundary do not overlap, so back-to-back bookings coexist.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsValid reports whether the interval has positive length.
func (i Interval) IsValid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Booking is the minimal view of a reservation needed for conflict detection.
// Callers are expected to pass only bookings whose status occupies the room
// (confirmed or checked-in); terminal and cancelled bookings do not contend.
type Booking struct {
	ID       string
	RoomID   string
	Interval Interval
}

// Conflict identifies an existing booking that collides with a candidate.
type Conflict struct {
	WithBookingID string
	RoomID        string
	Interval      Interval
}

// DetectConflicts returns every existing booking on the candidate's room whose
// interval overlaps the candidate's. A booking with the excludeID is ignored,
// which lets updates and extensions check against all other bookings only.
func DetectConflicts(existing []Booking, candidate Booking, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, booked := range existing {
		if booked.RoomID != candidate.RoomID {
			continue
		}
		if excludeID != "" && booked.ID == excludeID {
			continue
		}
		if booked.Interval.Overlaps(candidate.Interval) {
			conflicts = append(conflicts, Conflict{
				WithBookingID: booked.ID,
				RoomID:        booked.RoomID,
				Interval:      booked.Interval,
			})
		}
	}
	return conflicts
}

// HasConflict reports whether any existing booking collides with the candidate.
func HasConflict(existing []Booking, candidate Booking, excludeID string) bool {
	return len(DetectConflicts(existing, candidate, excludeID)) > 0
}
