package main

import (
	"context"
	"time"

	"github.com/example/circle-time/internal/application"
	"github.com/example/circle-time/internal/persistence"
	"github.com/example/circle-time/internal/recurrence"
)

// bookingRepositoryAdapter bridges the persistence booking repository to the
// application interfaces. It serves both the booking service and the
// maintenance sweeps.
type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		RoomID:      filter.RoomID,
		OrganizerID: filter.OrganizerID,
		Statuses:    statuses,
		OnDate:      filter.OnDate,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) ReleaseNoShows(ctx context.Context, staleBefore, stillRunningAt time.Time) ([]application.Booking, error) {
	models, err := a.repo.ReleaseNoShows(ctx, staleBefore, stillRunningAt)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) ListDueReminders(ctx context.Context, from, until time.Time) ([]application.Booking, error) {
	models, err := a.repo.ListDueReminders(ctx, from, until)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) MarkReminderSent(ctx context.Context, bookingID string) error {
	return a.repo.MarkReminderSent(ctx, bookingID)
}

func (a *bookingRepositoryAdapter) PseudonymizeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.repo.PseudonymizeBefore(ctx, cutoff)
}

// roomRepositoryAdapter bridges the persistence room repository to the
// application room repository and the booking service's room catalog.
type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:                model.ID,
		RoomID:            model.RoomID,
		OrganizerID:       model.OrganizerID,
		Title:             model.Title,
		Description:       model.Description,
		Start:             model.Start,
		End:               model.End,
		Status:            application.Status(model.Status),
		CheckedIn:         model.CheckedIn,
		CheckedInAt:       cloneTime(model.CheckedInAt),
		AttendeeIDs:       append([]string(nil), model.AttendeeIDs...),
		IsRecurring:       model.IsRecurring,
		RecurrenceType:    recurrence.Type(model.RecurrenceType),
		RecurrenceEndDate: cloneTime(model.RecurrenceEndDate),
		RecurrencePattern: recurrence.Pattern{
			Interval:   model.RecurrenceInterval,
			Weekdays:   append([]int(nil), model.RecurrenceWeekdays...),
			DayOfMonth: model.RecurrenceDayOfMonth,
		},
		ParentID:     cloneString(model.ParentID),
		ReminderSent: model.ReminderSent,
		Extensions:   toApplicationExtensions(model.Extensions),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toApplicationBookings(models []persistence.Booking) []application.Booking {
	if len(models) == 0 {
		return nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	recurrenceType := booking.RecurrenceType
	if recurrenceType == "" {
		recurrenceType = recurrence.TypeNone
	}
	return persistence.Booking{
		ID:                   booking.ID,
		RoomID:               booking.RoomID,
		OrganizerID:          booking.OrganizerID,
		Title:                booking.Title,
		Description:          booking.Description,
		Start:                booking.Start,
		End:                  booking.End,
		Status:               string(booking.Status),
		CheckedIn:            booking.CheckedIn,
		CheckedInAt:          cloneTime(booking.CheckedInAt),
		AttendeeIDs:          append([]string(nil), booking.AttendeeIDs...),
		IsRecurring:          booking.IsRecurring,
		RecurrenceType:       string(recurrenceType),
		RecurrenceEndDate:    cloneTime(booking.RecurrenceEndDate),
		RecurrenceInterval:   booking.RecurrencePattern.Interval,
		RecurrenceWeekdays:   append([]int(nil), booking.RecurrencePattern.Weekdays...),
		RecurrenceDayOfMonth: booking.RecurrencePattern.DayOfMonth,
		ParentID:             cloneString(booking.ParentID),
		ReminderSent:         booking.ReminderSent,
		Extensions:           toPersistenceExtensions(booking.ID, booking.Extensions),
		CreatedAt:            booking.CreatedAt,
		UpdatedAt:            booking.UpdatedAt,
	}
}

func toApplicationExtensions(models []persistence.Extension) []application.Extension {
	if len(models) == 0 {
		return nil
	}
	extensions := make([]application.Extension, 0, len(models))
	for _, model := range models {
		extensions = append(extensions, application.Extension{
			ExtendedBy: model.ExtendedBy,
			Minutes:    model.Minutes,
			At:         model.CreatedAt,
		})
	}
	return extensions
}

func toPersistenceExtensions(bookingID string, extensions []application.Extension) []persistence.Extension {
	if len(extensions) == 0 {
		return nil
	}
	models := make([]persistence.Extension, 0, len(extensions))
	for _, ext := range extensions {
		models = append(models, persistence.Extension{
			BookingID:  bookingID,
			ExtendedBy: ext.ExtendedBy,
			Minutes:    ext.Minutes,
			CreatedAt:  ext.At,
		})
	}
	return models
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:        model.ID,
		Name:      model.Name,
		Building:  model.Building,
		Floor:     model.Floor,
		Capacity:  model.Capacity,
		Amenities: append([]string(nil), model.Amenities...),
		Status:    application.RoomStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Building:  room.Building,
		Floor:     room.Floor,
		Capacity:  room.Capacity,
		Amenities: append([]string(nil), room.Amenities...),
		Status:    string(room.Status),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
