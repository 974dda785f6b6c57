package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/circle-time/internal/application"
)

type bookingServiceStub struct {
	create          func(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	createRecurring func(ctx context.Context, params application.CreateRecurringParams) (application.RecurringCreateResult, error)
	get             func(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	listRoom        func(ctx context.Context, principal application.Principal, roomID string, onDate *time.Time) ([]application.Booking, error)
	update          func(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	cancel          func(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	checkIn         func(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	endEarly        func(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, int, error)
	extend          func(ctx context.Context, params application.ExtendBookingParams) (application.Booking, error)
}

func (s *bookingServiceStub) Create(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	if s.create == nil {
		return application.Booking{}, errors.New("unexpected Create call")
	}
	return s.create(ctx, params)
}

func (s *bookingServiceStub) CreateRecurring(ctx context.Context, params application.CreateRecurringParams) (application.RecurringCreateResult, error) {
	if s.createRecurring == nil {
		return application.RecurringCreateResult{}, errors.New("unexpected CreateRecurring call")
	}
	return s.createRecurring(ctx, params)
}

func (s *bookingServiceStub) Get(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	if s.get == nil {
		return application.Booking{}, errors.New("unexpected Get call")
	}
	return s.get(ctx, principal, bookingID)
}

func (s *bookingServiceStub) ListRoomBookings(ctx context.Context, principal application.Principal, roomID string, onDate *time.Time) ([]application.Booking, error) {
	if s.listRoom == nil {
		return nil, errors.New("unexpected ListRoomBookings call")
	}
	return s.listRoom(ctx, principal, roomID, onDate)
}

func (s *bookingServiceStub) Update(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error) {
	if s.update == nil {
		return application.Booking{}, errors.New("unexpected Update call")
	}
	return s.update(ctx, params)
}

func (s *bookingServiceStub) Cancel(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	if s.cancel == nil {
		return application.Booking{}, errors.New("unexpected Cancel call")
	}
	return s.cancel(ctx, principal, bookingID)
}

func (s *bookingServiceStub) CheckIn(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	if s.checkIn == nil {
		return application.Booking{}, errors.New("unexpected CheckIn call")
	}
	return s.checkIn(ctx, principal, bookingID)
}

func (s *bookingServiceStub) EndEarly(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, int, error) {
	if s.endEarly == nil {
		return application.Booking{}, 0, errors.New("unexpected EndEarly call")
	}
	return s.endEarly(ctx, principal, bookingID)
}

func (s *bookingServiceStub) Extend(ctx context.Context, params application.ExtendBookingParams) (application.Booking, error) {
	if s.extend == nil {
		return application.Booking{}, errors.New("unexpected Extend call")
	}
	return s.extend(ctx, params)
}

type roomServiceStub struct {
	createRoom func(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	updateRoom func(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	deleteRoom func(ctx context.Context, principal application.Principal, roomID string) error
	getRoom    func(ctx context.Context, principal application.Principal, roomID string) (application.Room, error)
	listRooms  func(ctx context.Context, principal application.Principal) ([]application.Room, error)
}

func (s *roomServiceStub) CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
	if s.createRoom == nil {
		return application.Room{}, errors.New("unexpected CreateRoom call")
	}
	return s.createRoom(ctx, params)
}

func (s *roomServiceStub) UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error) {
	if s.updateRoom == nil {
		return application.Room{}, errors.New("unexpected UpdateRoom call")
	}
	return s.updateRoom(ctx, params)
}

func (s *roomServiceStub) DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error {
	if s.deleteRoom == nil {
		return errors.New("unexpected DeleteRoom call")
	}
	return s.deleteRoom(ctx, principal, roomID)
}

func (s *roomServiceStub) GetRoom(ctx context.Context, principal application.Principal, roomID string) (application.Room, error) {
	if s.getRoom == nil {
		return application.Room{}, errors.New("unexpected GetRoom call")
	}
	return s.getRoom(ctx, principal, roomID)
}

func (s *roomServiceStub) ListRooms(ctx context.Context, principal application.Principal) ([]application.Room, error) {
	if s.listRooms == nil {
		return nil, errors.New("unexpected ListRooms call")
	}
	return s.listRooms(ctx, principal)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, bookings *bookingServiceStub, rooms *roomServiceStub) http.Handler {
	t.Helper()
	logger := quietLogger()
	return NewRouter(NewBookingHandler(bookings, logger), NewRoomHandler(rooms, logger), logger)
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-User-ID", "user-7")
	if admin {
		req.Header.Set("X-Admin", "true")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func testBooking(id string) application.Booking {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return application.Booking{
		ID:          id,
		RoomID:      "room-1",
		OrganizerID: "user-7",
		Title:       "Sprint planning",
		Start:       start,
		End:         start.Add(time.Hour),
		Status:      application.StatusConfirmed,
		CreatedAt:   start.Add(-24 * time.Hour),
		UpdatedAt:   start.Add(-24 * time.Hour),
	}
}

func TestRouter_MissingIdentity(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &bookingServiceStub{}, &roomServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.Message, "X-User-ID") {
		t.Errorf("expected message to name the missing header, got %q", resp.Message)
	}
}

func TestBookingHandler_Create(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		create: func(_ context.Context, params application.CreateBookingParams) (application.Booking, error) {
			if params.Principal.UserID != "user-7" {
				t.Errorf("expected principal user-7, got %q", params.Principal.UserID)
			}
			if params.Input.RoomID != "room-1" {
				t.Errorf("expected room-1, got %q", params.Input.RoomID)
			}
			return testBooking("bk-1"), nil
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	body := `{"room_id":"room-1","title":"Sprint planning","start":"2026-03-02T14:00:00Z","end":"2026-03-02T15:00:00Z"}`
	rec := doRequest(t, router, http.MethodPost, "/bookings", body, false)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp bookingResponse
	decodeBody(t, rec, &resp)
	if resp.Booking.ID != "bk-1" {
		t.Errorf("expected booking bk-1, got %q", resp.Booking.ID)
	}
	if resp.Booking.Status != "confirmed" {
		t.Errorf("expected status confirmed, got %q", resp.Booking.Status)
	}
}

func TestBookingHandler_CreateMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &bookingServiceStub{}, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodPost, "/bookings", "{not json", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBookingHandler_CreateRecurring(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		createRecurring: func(_ context.Context, params application.CreateRecurringParams) (application.RecurringCreateResult, error) {
			if string(params.Recurrence.Type) != "weekly" {
				t.Errorf("expected weekly recurrence, got %q", params.Recurrence.Type)
			}
			parent := testBooking("bk-parent")
			parent.IsRecurring = true
			return application.RecurringCreateResult{
				Parent:       parent,
				CreatedCount: 4,
				SkippedDates: []time.Time{time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	body := `{
		"room_id": "room-1",
		"title": "Weekly sync",
		"start": "2026-03-02T14:00:00Z",
		"end": "2026-03-02T15:00:00Z",
		"recurrence": {"type": "weekly", "end_date": "2026-03-30T00:00:00Z", "weekdays": [1]}
	}`
	rec := doRequest(t, router, http.MethodPost, "/bookings", body, false)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp recurringResponse
	decodeBody(t, rec, &resp)
	if resp.Parent.ID != "bk-parent" {
		t.Errorf("expected parent bk-parent, got %q", resp.Parent.ID)
	}
	if resp.CreatedCount != 4 {
		t.Errorf("expected created_count 4, got %d", resp.CreatedCount)
	}
	if len(resp.SkippedDates) != 1 || resp.SkippedDates[0] != "2026-03-16" {
		t.Errorf("expected skipped dates [2026-03-16], got %v", resp.SkippedDates)
	}
}

func TestBookingHandler_CreateConflict(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		create: func(context.Context, application.CreateBookingParams) (application.Booking, error) {
			return application.Booking{}, application.ErrConflict
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	body := `{"room_id":"room-1","title":"Standup","start":"2026-03-02T14:00:00Z","end":"2026-03-02T15:00:00Z"}`
	rec := doRequest(t, router, http.MethodPost, "/bookings", body, false)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "CONFLICT" {
		t.Errorf("expected error code CONFLICT, got %q", resp.ErrorCode)
	}
}

func TestBookingHandler_CreateValidationFailure(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		create: func(context.Context, application.CreateBookingParams) (application.Booking, error) {
			return application.Booking{}, &application.ValidationError{
				FieldErrors: map[string]string{"title": "a title is required"},
			}
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	body := `{"room_id":"room-1","start":"2026-03-02T14:00:00Z","end":"2026-03-02T15:00:00Z"}`
	rec := doRequest(t, router, http.MethodPost, "/bookings", body, false)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "VALIDATION_FAILED" {
		t.Errorf("expected error code VALIDATION_FAILED, got %q", resp.ErrorCode)
	}
	if resp.Errors["title"] != "a title is required" {
		t.Errorf("expected field error for title, got %v", resp.Errors)
	}
}

func TestBookingHandler_GetNotFound(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		get: func(context.Context, application.Principal, string) (application.Booking, error) {
			return application.Booking{}, application.ErrNotFound
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodGet, "/bookings/bk-missing", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestBookingHandler_CheckInWindowExpired(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		checkIn: func(context.Context, application.Principal, string) (application.Booking, error) {
			return application.Booking{}, application.ErrWindowExpired
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodPost, "/bookings/bk-1/check-in", "", false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "WINDOW_EXPIRED" {
		t.Errorf("expected error code WINDOW_EXPIRED, got %q", resp.ErrorCode)
	}
}

func TestBookingHandler_EndEarly(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		endEarly: func(_ context.Context, _ application.Principal, bookingID string) (application.Booking, int, error) {
			ended := testBooking(bookingID)
			ended.Status = application.StatusCompleted
			return ended, 40, nil
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodPost, "/bookings/bk-1/end", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp endEarlyResponse
	decodeBody(t, rec, &resp)
	if resp.FreedMinutes != 40 {
		t.Errorf("expected 40 freed minutes, got %d", resp.FreedMinutes)
	}
	if resp.Booking.Status != "completed" {
		t.Errorf("expected completed booking, got %q", resp.Booking.Status)
	}
}

func TestBookingHandler_ExtendInvalidLength(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		extend: func(_ context.Context, params application.ExtendBookingParams) (application.Booking, error) {
			if params.Minutes != 25 {
				t.Errorf("expected 25 minutes, got %d", params.Minutes)
			}
			return application.Booking{}, application.ErrInvalidExtension
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodPost, "/bookings/bk-1/extend", `{"minutes":25}`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "INVALID_EXTENSION" {
		t.Errorf("expected error code INVALID_EXTENSION, got %q", resp.ErrorCode)
	}
}

func TestBookingHandler_Cancel(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		cancel: func(_ context.Context, _ application.Principal, bookingID string) (application.Booking, error) {
			cancelled := testBooking(bookingID)
			cancelled.Status = application.StatusCancelled
			return cancelled, nil
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodDelete, "/bookings/bk-1", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp bookingResponse
	decodeBody(t, rec, &resp)
	if resp.Booking.Status != "cancelled" {
		t.Errorf("expected cancelled booking, got %q", resp.Booking.Status)
	}
}

func TestBookingHandler_ListForRoom(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{
		listRoom: func(_ context.Context, _ application.Principal, roomID string, onDate *time.Time) ([]application.Booking, error) {
			if roomID != "room-1" {
				t.Errorf("expected room-1, got %q", roomID)
			}
			if onDate == nil || !onDate.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("expected date filter 2026-03-02, got %v", onDate)
			}
			return []application.Booking{testBooking("bk-1"), testBooking("bk-2")}, nil
		},
	}
	router := newTestRouter(t, stub, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodGet, "/rooms/room-1/bookings?date=2026-03-02", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp bookingListResponse
	decodeBody(t, rec, &resp)
	if len(resp.Bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(resp.Bookings))
	}
}

func TestBookingHandler_ListForRoomBadDate(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &bookingServiceStub{}, &roomServiceStub{})

	rec := doRequest(t, router, http.MethodGet, "/rooms/room-1/bookings?date=03-02-2026", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.Message, "YYYY-MM-DD") {
		t.Errorf("expected message to describe the date format, got %q", resp.Message)
	}
}

func TestRoomHandler_CreateForbidden(t *testing.T) {
	t.Parallel()

	stub := &roomServiceStub{
		createRoom: func(_ context.Context, params application.CreateRoomParams) (application.Room, error) {
			if params.Principal.IsAdmin {
				t.Error("expected non-admin principal")
			}
			return application.Room{}, application.ErrForbidden
		},
	}
	router := newTestRouter(t, &bookingServiceStub{}, stub)

	rec := doRequest(t, router, http.MethodPost, "/rooms", `{"name":"Atrium","capacity":8}`, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "FORBIDDEN" {
		t.Errorf("expected error code FORBIDDEN, got %q", resp.ErrorCode)
	}
}

func TestRoomHandler_CreateAsAdmin(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stub := &roomServiceStub{
		createRoom: func(_ context.Context, params application.CreateRoomParams) (application.Room, error) {
			if !params.Principal.IsAdmin {
				t.Error("expected admin principal")
			}
			return application.Room{
				ID:        "room-9",
				Name:      params.Input.Name,
				Capacity:  params.Input.Capacity,
				Amenities: params.Input.Amenities,
				Status:    application.RoomStatusAvailable,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		},
	}
	router := newTestRouter(t, &bookingServiceStub{}, stub)

	body := `{"name":"Atrium","capacity":8,"amenities":["projector","whiteboard"]}`
	rec := doRequest(t, router, http.MethodPost, "/rooms", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp roomResponse
	decodeBody(t, rec, &resp)
	if resp.Room.ID != "room-9" {
		t.Errorf("expected room-9, got %q", resp.Room.ID)
	}
	if len(resp.Room.Amenities) != 2 {
		t.Errorf("expected 2 amenities, got %v", resp.Room.Amenities)
	}
}

func TestRoomHandler_Delete(t *testing.T) {
	t.Parallel()

	stub := &roomServiceStub{
		deleteRoom: func(_ context.Context, _ application.Principal, roomID string) error {
			if roomID != "room-9" {
				t.Errorf("expected room-9, got %q", roomID)
			}
			return nil
		},
	}
	router := newTestRouter(t, &bookingServiceStub{}, stub)

	rec := doRequest(t, router, http.MethodDelete, "/rooms/room-9", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
}

func TestRoomHandler_List(t *testing.T) {
	t.Parallel()

	stub := &roomServiceStub{
		listRooms: func(context.Context, application.Principal) ([]application.Room, error) {
			return []application.Room{
				{ID: "room-1", Name: "Annex", Capacity: 4, Status: application.RoomStatusAvailable},
				{ID: "room-2", Name: "Den", Capacity: 6, Status: application.RoomStatusMaintenance},
			}, nil
		},
	}
	router := newTestRouter(t, &bookingServiceStub{}, stub)

	rec := doRequest(t, router, http.MethodGet, "/rooms", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp roomListResponse
	decodeBody(t, rec, &resp)
	if len(resp.Rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(resp.Rooms))
	}
	if resp.Rooms[1].Status != "maintenance" {
		t.Errorf("expected maintenance status, got %q", resp.Rooms[1].Status)
	}
}
