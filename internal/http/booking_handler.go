package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/circle-time/internal/application"
	"github.com/example/circle-time/internal/recurrence"
)

type bookingService interface {
	Create(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	CreateRecurring(ctx context.Context, params application.CreateRecurringParams) (application.RecurringCreateResult, error)
	Get(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListRoomBookings(ctx context.Context, principal application.Principal, roomID string, onDate *time.Time) ([]application.Booking, error)
	Update(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	Cancel(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	CheckIn(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	EndEarly(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, int, error)
	Extend(ctx context.Context, params application.ExtendBookingParams) (application.Booking, error)
}

// BookingHandler translates booking HTTP requests into service calls.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler constructs a booking handler.
func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

type recurrenceRequest struct {
	Type       string    `json:"type"`
	EndDate    time.Time `json:"end_date"`
	Interval   int       `json:"interval"`
	Weekdays   []int     `json:"weekdays"`
	DayOfMonth int       `json:"day_of_month"`
}

type bookingRequest struct {
	RoomID      string             `json:"room_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	AttendeeIDs []string           `json:"attendee_ids"`
	Recurrence  *recurrenceRequest `json:"recurrence,omitempty"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		RoomID:      r.RoomID,
		Title:       r.Title,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
		AttendeeIDs: r.AttendeeIDs,
	}
}

func (r recurrenceRequest) toInput() application.RecurrenceInput {
	return application.RecurrenceInput{
		Type:    recurrence.Type(r.Type),
		EndDate: r.EndDate,
		Pattern: recurrence.Pattern{
			Interval:   r.Interval,
			Weekdays:   r.Weekdays,
			DayOfMonth: r.DayOfMonth,
		},
	}
}

type bookingPatchRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	AttendeeIDs *[]string  `json:"attendee_ids"`
}

type extendRequest struct {
	Minutes int `json:"minutes"`
}

type extensionDTO struct {
	ExtendedBy string    `json:"extended_by"`
	Minutes    int       `json:"minutes"`
	At         time.Time `json:"at"`
}

type bookingDTO struct {
	ID          string         `json:"id"`
	RoomID      string         `json:"room_id"`
	OrganizerID string         `json:"organizer_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Status      string         `json:"status"`
	CheckedIn   bool           `json:"checked_in"`
	CheckedInAt *time.Time     `json:"checked_in_at,omitempty"`
	AttendeeIDs []string       `json:"attendee_ids,omitempty"`
	IsRecurring bool           `json:"is_recurring"`
	ParentID    *string        `json:"parent_id,omitempty"`
	Extensions  []extensionDTO `json:"extensions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	dto := bookingDTO{
		ID:          booking.ID,
		RoomID:      booking.RoomID,
		OrganizerID: booking.OrganizerID,
		Title:       booking.Title,
		Description: booking.Description,
		Start:       booking.Start,
		End:         booking.End,
		Status:      string(booking.Status),
		CheckedIn:   booking.CheckedIn,
		CheckedInAt: booking.CheckedInAt,
		AttendeeIDs: booking.AttendeeIDs,
		IsRecurring: booking.IsRecurring,
		ParentID:    booking.ParentID,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
	}
	for _, ext := range booking.Extensions {
		dto.Extensions = append(dto.Extensions, extensionDTO{
			ExtendedBy: ext.ExtendedBy,
			Minutes:    ext.Minutes,
			At:         ext.At,
		})
	}
	return dto
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type bookingListResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type recurringResponse struct {
	Parent       bookingDTO `json:"parent"`
	CreatedCount int        `json:"created_count"`
	SkippedDates []string   `json:"skipped_dates"`
}

type endEarlyResponse struct {
	Booking      bookingDTO `json:"booking"`
	FreedMinutes int        `json:"freed_minutes"`
}

// Create handles POST /bookings; a request with a recurrence object creates a
// recurring series.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", req.RoomID)

	if req.Recurrence != nil {
		result, err := h.service.CreateRecurring(r.Context(), application.CreateRecurringParams{
			Principal:  principal,
			Input:      req.toInput(),
			Recurrence: req.Recurrence.toInput(),
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "recurring booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}

		skipped := make([]string, 0, len(result.SkippedDates))
		for _, date := range result.SkippedDates {
			skipped = append(skipped, date.Format("2006-01-02"))
		}

		logger.With("parent_id", result.Parent.ID, "created_count", result.CreatedCount).InfoContext(r.Context(), "recurring series created")
		h.responder.writeJSON(r.Context(), w, http.StatusCreated, recurringResponse{
			Parent:       toBookingDTO(result.Parent),
			CreatedCount: result.CreatedCount,
			SkippedDates: skipped,
		})
		return
	}

	booking, err := h.service.Create(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := h.service.Get(r.Context(), principal, bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).ErrorContext(r.Context(), "booking lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// Update handles PATCH /bookings/{id}.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "booking_id", bookingID)

	booking, err := h.service.Update(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Patch: application.BookingPatch{
			Title:       req.Title,
			Description: req.Description,
			Start:       req.Start,
			End:         req.End,
			AttendeeIDs: req.AttendeeIDs,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// Cancel handles DELETE /bookings/{id}.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "booking_id", bookingID)

	booking, err := h.service.Cancel(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// CheckIn handles POST /bookings/{id}/check-in.
func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CheckIn", "principal_id", principal.UserID, "booking_id", bookingID)

	booking, err := h.service.CheckIn(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "check-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking checked in")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// EndEarly handles POST /bookings/{id}/end.
func (h *BookingHandler) EndEarly(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "EndEarly", "principal_id", principal.UserID, "booking_id", bookingID)

	booking, freedMinutes, err := h.service.EndEarly(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "end-early failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("freed_minutes", freedMinutes).InfoContext(r.Context(), "booking ended early")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, endEarlyResponse{
		Booking:      toBookingDTO(booking),
		FreedMinutes: freedMinutes,
	})
}

// Extend handles POST /bookings/{id}/extend.
func (h *BookingHandler) Extend(w http.ResponseWriter, r *http.Request, bookingID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Extend", "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode extend request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Extend", "principal_id", principal.UserID, "booking_id", bookingID, "minutes", req.Minutes)

	booking, err := h.service.Extend(r.Context(), application.ExtendBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Minutes:   req.Minutes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "extension failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking extended")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// ListForRoom handles GET /rooms/{id}/bookings.
func (h *BookingHandler) ListForRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var onDate *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		onDate = &parsed
	}

	bookings, err := h.service.ListRoomBookings(r.Context(), principal, roomID, onDate)
	if err != nil {
		h.log(r.Context(), "ListForRoom", "room_id", roomID).ErrorContext(r.Context(), "room booking listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		dtos = append(dtos, toBookingDTO(booking))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingListResponse{Bookings: dtos})
}
