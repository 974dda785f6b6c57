package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/circle-time/internal/persistence"
	"github.com/example/circle-time/internal/recurrence"
)

// BookingRepository captures the persistence interactions needed by the service.
// Implementations must make the conflict check and the subsequent write a
// single atomic unit: CreateBooking and UpdateBooking return ErrConflict (or
// persistence.ErrConflict) when the booking's interval would overlap another
// room-occupying booking.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	RoomID      string
	OrganizerID string
	Statuses    []Status
	OnDate      *time.Time
}

// RoomCatalog exposes the room lookups the booking service needs.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// Notifier delivers outbound booking notifications. All sends are best effort:
// the service dispatches them asynchronously and logs failures without ever
// surfacing them to the caller.
type Notifier interface {
	SendConfirmation(ctx context.Context, booking Booking) error
	SendReminder(ctx context.Context, booking Booking) error
	SendNoShow(ctx context.Context, booking Booking) error
	SendCancellation(ctx context.Context, booking Booking) error
}

const notifyTimeout = 10 * time.Second

// BookingService orchestrates validation, conflict handling, and lifecycle
// transitions for bookings.
type BookingService struct {
	bookings    BookingRepository
	rooms       RoomCatalog
	notifier    Notifier
	policy      BookingPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, rooms RoomCatalog, notifier Notifier, policy BookingPolicy, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, notifier, policy, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, rooms RoomCatalog, notifier Notifier, policy BookingPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if policy == (BookingPolicy{}) {
		policy = DefaultBookingPolicy()
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		notifier:    notifier,
		policy:      policy,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Create validates the request, checks the room, and persists a confirmed
// booking. The repository enforces the no-overlap invariant atomically with
// the insert; an overlapping active booking yields ErrConflict.
func (s *BookingService) Create(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"room_id", params.Input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if err = s.validateBookingInput(params.Input); err != nil {
		return
	}
	if err = s.ensureRoomBookable(ctx, params.Input.RoomID); err != nil {
		return
	}

	draft := s.newBooking(params.Principal, params.Input)

	booking, err = s.bookings.CreateBooking(ctx, draft)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	s.notify(ctx, "confirmation", booking)
	return
}

// CreateRecurring expands the recurrence pattern and creates one booking per
// occurrence. The first occurrence is the series anchor: a conflict there
// fails the whole request with ErrConflict. Later occurrences that conflict
// are skipped and reported in SkippedDates; any other persistence failure
// aborts the series.
func (s *BookingService) CreateRecurring(ctx context.Context, params CreateRecurringParams) (result RecurringCreateResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRecurring",
		"principal_id", params.Principal.UserID,
		"room_id", params.Input.RoomID,
		"recurrence_type", string(params.Recurrence.Type),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create recurring series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"parent_id", result.Parent.ID,
			"created_count", result.CreatedCount,
			"skipped_count", len(result.SkippedDates),
		).InfoContext(ctx, "recurring series created")
	}()

	if err = s.validateBookingInput(params.Input); err != nil {
		return
	}
	if err = validateRecurrenceInput(params.Input, params.Recurrence); err != nil {
		return
	}
	if err = s.ensureRoomBookable(ctx, params.Input.RoomID); err != nil {
		return
	}

	dates, expandErr := recurrence.Expand(params.Input.Start, params.Recurrence.EndDate, params.Recurrence.Type, params.Recurrence.Pattern)
	if expandErr != nil {
		if errors.Is(expandErr, recurrence.ErrInvalidPattern) {
			err = fmt.Errorf("%w: %v", ErrInvalidPattern, expandErr)
			return
		}
		err = expandErr
		return
	}
	if len(dates) == 0 {
		vErr := &ValidationError{}
		vErr.add("recurrence", "pattern produces no occurrences in the requested range")
		err = vErr
		return
	}
	if len(dates) > s.policy.MaxRecurringOccurrences {
		err = fmt.Errorf("%w: %d occurrences exceed the limit of %d", ErrInvalidPattern, len(dates), s.policy.MaxRecurringOccurrences)
		return
	}

	duration := params.Input.End.Sub(params.Input.Start)

	parentInput := params.Input
	parentInput.Start = combineDateTime(dates[0], params.Input.Start)
	parentInput.End = parentInput.Start.Add(duration)

	parentDraft := s.newBooking(params.Principal, parentInput)
	parentDraft.IsRecurring = true
	parentDraft.RecurrenceType = params.Recurrence.Type
	endDate := params.Recurrence.EndDate
	parentDraft.RecurrenceEndDate = &endDate
	parentDraft.RecurrencePattern = params.Recurrence.Pattern

	parent, createErr := s.bookings.CreateBooking(ctx, parentDraft)
	if createErr != nil {
		err = mapBookingRepoError(createErr)
		return
	}

	result.Parent = parent
	result.CreatedCount = 1

	for _, date := range dates[1:] {
		childInput := params.Input
		childInput.Start = combineDateTime(date, params.Input.Start)
		childInput.End = childInput.Start.Add(duration)

		childDraft := s.newBooking(params.Principal, childInput)
		childDraft.IsRecurring = true
		childDraft.ParentID = &parent.ID

		if _, createErr := s.bookings.CreateBooking(ctx, childDraft); createErr != nil {
			mapped := mapBookingRepoError(createErr)
			if errors.Is(mapped, ErrConflict) {
				result.SkippedDates = append(result.SkippedDates, date)
				logger.InfoContext(ctx, "skipped conflicting occurrence", "occurrence_date", date.Format("2006-01-02"))
				continue
			}
			err = mapped
			return
		}
		result.CreatedCount++
	}

	s.notify(ctx, "confirmation", parent)
	return
}

// Get retrieves a booking by id.
func (s *BookingService) Get(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// ListRoomBookings returns a room's bookings ordered by start time, optionally
// narrowed to a single calendar day.
func (s *BookingService) ListRoomBookings(ctx context.Context, principal Principal, roomID string, onDate *time.Time) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListRoomBookings",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list room bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "room bookings listed")
	}()

	if s.rooms != nil {
		if _, roomErr := s.rooms.GetRoom(ctx, roomID); roomErr != nil {
			err = mapBookingRepoError(roomErr)
			return
		}
	}

	raw, listErr := s.bookings.ListBookings(ctx, BookingRepositoryFilter{RoomID: roomID, OnDate: onDate})
	if listErr != nil {
		err = mapBookingRepoError(listErr)
		return
	}

	// Cancelled bookings no longer occupy the timeline and are not shown.
	bookings = make([]Booking, 0, len(raw))
	for _, b := range raw {
		if b.Status == StatusCancelled {
			continue
		}
		bookings = append(bookings, b)
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
	return
}

// Update applies a partial edit to a booking. Interval changes on a
// room-occupying booking re-run the conflict check, excluding the booking
// itself, atomically with the write.
func (s *BookingService) Update(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.Status.Terminal() {
		err = ErrInvalidState
		return
	}

	updated := existing
	if params.Patch.Title != nil {
		updated.Title = strings.TrimSpace(*params.Patch.Title)
	}
	if params.Patch.Description != nil {
		updated.Description = *params.Patch.Description
	}
	if params.Patch.Start != nil {
		updated.Start = *params.Patch.Start
	}
	if params.Patch.End != nil {
		updated.End = *params.Patch.End
	}
	if params.Patch.AttendeeIDs != nil {
		updated.AttendeeIDs = sortStrings(uniqueStrings(*params.Patch.AttendeeIDs))
	}

	if updated.Title == "" {
		vErr := &ValidationError{}
		vErr.add("title", "title is required")
		err = vErr
		return
	}
	if !updated.Start.Before(updated.End) {
		err = ErrInvalidInterval
		return
	}

	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

// Cancel withdraws a booking. Cancelling an already cancelled booking is a
// no-op; completed and no-show bookings cannot be cancelled.
func (s *BookingService) Cancel(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.Status == StatusCancelled {
		booking = existing
		return
	}
	if existing.Status == StatusCompleted || existing.Status == StatusNoShow {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Status = StatusCancelled
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	s.notify(ctx, "cancellation", booking)
	return
}

// CheckIn marks the organizer as present. Only the upper bound of the
// check-in window is enforced: checking in before the nominal start is
// allowed, checking in after start plus the window fails with
// ErrWindowExpired.
func (s *BookingService) CheckIn(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckIn",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check in", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking checked in")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.CheckedIn {
		err = ErrAlreadyCheckedIn
		return
	}
	if !existing.Status.CanTransitionTo(StatusCheckedIn) {
		err = ErrInvalidState
		return
	}

	now := s.now()
	if now.After(existing.Start.Add(s.policy.CheckinWindow)) {
		err = ErrWindowExpired
		return
	}

	updated := existing
	updated.Status = StatusCheckedIn
	updated.CheckedIn = true
	checkedInAt := now
	updated.CheckedInAt = &checkedInAt
	updated.UpdatedAt = now

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

// EndEarly truncates the booking to the current instant and completes it,
// regardless of prior status. It returns the number of whole minutes freed
// on the room's timeline.
func (s *BookingService) EndEarly(ctx context.Context, principal Principal, bookingID string) (booking Booking, freedMinutes int, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EndEarly",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to end booking early", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("freed_minutes", freedMinutes).InfoContext(ctx, "booking ended early")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	now := s.now()
	if existing.End.After(now) {
		freedMinutes = int(existing.End.Sub(now) / time.Minute)
	}

	updated := existing
	updated.End = now
	updated.Status = StatusCompleted
	updated.UpdatedAt = now

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		freedMinutes = 0
		err = mapBookingRepoError(err)
		return
	}

	s.notify(ctx, "cancellation", booking)
	return
}

// Extend grows the booking's end by the requested minutes. Only the organizer
// or an administrator may extend; the delta window is conflict-checked against
// every other active booking on the room atomically with the write.
func (s *BookingService) Extend(ctx context.Context, params ExtendBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Extend",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"minutes", params.Minutes,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to extend booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking extended")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.OrganizerID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrForbidden
		return
	}
	if existing.Status == StatusCompleted || existing.Status == StatusCancelled {
		err = ErrInvalidState
		return
	}

	extension := time.Duration(params.Minutes) * time.Minute
	if extension < s.policy.MinExtension || extension > s.policy.MaxExtension {
		err = ErrInvalidExtension
		return
	}
	if s.policy.ExtensionIncrement > 0 && extension%s.policy.ExtensionIncrement != 0 {
		err = ErrInvalidExtension
		return
	}
	if len(existing.Extensions) >= s.policy.MaxExtensions {
		err = ErrLimitReached
		return
	}

	now := s.now()
	updated := existing
	updated.End = existing.End.Add(extension)
	updated.Extensions = append(append([]Extension(nil), existing.Extensions...), Extension{
		ExtendedBy: params.Principal.UserID,
		Minutes:    params.Minutes,
		At:         now,
	})
	updated.UpdatedAt = now

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

func (s *BookingService) newBooking(principal Principal, input BookingInput) Booking {
	createdAt := s.now()
	booking := Booking{
		ID:             s.idGenerator(),
		RoomID:         input.RoomID,
		OrganizerID:    principal.UserID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Start:          input.Start,
		End:            input.End,
		Status:         StatusPending,
		AttendeeIDs:    sortStrings(uniqueStrings(input.AttendeeIDs)),
		RecurrenceType: recurrence.TypeNone,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	// Requests are auto-approved under current rules; a moderated flow would
	// leave the booking pending here.
	if booking.Status.CanTransitionTo(StatusConfirmed) {
		booking.Status = StatusConfirmed
	}
	return booking
}

func (s *BookingService) validateBookingInput(input BookingInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if !input.Start.Before(input.End) {
		return ErrInvalidInterval
	}
	return nil
}

func validateRecurrenceInput(input BookingInput, rec RecurrenceInput) error {
	switch rec.Type {
	case recurrence.TypeDaily, recurrence.TypeWeekly, recurrence.TypeMonthly:
	default:
		return fmt.Errorf("%w: unsupported recurrence type %q", ErrInvalidPattern, rec.Type)
	}

	vErr := &ValidationError{}
	if rec.EndDate.IsZero() {
		vErr.add("recurrence_end_date", "recurrence end date is required")
	} else if dateOnlyUTC(rec.EndDate).Before(dateOnlyUTC(input.Start)) {
		// End dates arrive at date granularity (midnight), so the comparison
		// must ignore the start's time of day.
		vErr.add("recurrence_end_date", "recurrence end date must not precede the first day")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func dateOnlyUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *BookingService) ensureRoomBookable(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return mapBookingRepoError(err)
	}
	if room.Status == RoomStatusMaintenance {
		return ErrInvalidState
	}
	return nil
}

// notify dispatches a notification on its own goroutine with a detached
// context so that slow or failing delivery never affects the caller.
func (s *BookingService) notify(ctx context.Context, event string, booking Booking) {
	logger := s.loggerWith(ctx, "notify",
		"event", event,
		"booking_id", booking.ID,
	)
	dispatchNotification(logger, s.notifier, event, booking)
}

// dispatchNotification delivers one notification asynchronously. Failures and
// panics are logged and never reach the scheduling path.
func dispatchNotification(logger *slog.Logger, notifier Notifier, event string, booking Booking) {
	if notifier == nil {
		return
	}

	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("notification dispatch panicked", "panic", p)
			}
		}()

		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		var err error
		switch event {
		case "confirmation":
			err = notifier.SendConfirmation(sendCtx, booking)
		case "cancellation":
			err = notifier.SendCancellation(sendCtx, booking)
		case "reminder":
			err = notifier.SendReminder(sendCtx, booking)
		case "no_show":
			err = notifier.SendNoShow(sendCtx, booking)
		}
		if err != nil {
			logger.Error("notification delivery failed", "error", err)
		}
	}()
}

// combineDateTime places the time of day carried by tod onto the given
// occurrence date, in UTC.
func combineDateTime(date, tod time.Time) time.Time {
	t := tod.UTC()
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, persistence.ErrConflict) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrConflict
	}
	return err
}
