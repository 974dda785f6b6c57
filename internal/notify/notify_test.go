package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/circle-time/internal/application"
)

func sampleBooking() application.Booking {
	return application.Booking{
		ID:          "booking-1",
		RoomID:      "room-1",
		OrganizerID: "user-1",
		Title:       "Design review",
		Status:      application.StatusConfirmed,
		Start:       time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC),
		End:         time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestRenderMessage(t *testing.T) {
	t.Parallel()

	booking := sampleBooking()

	cases := []struct {
		event       string
		wantSubject string
		wantInBody  string
	}{
		{event: EventConfirmed, wantSubject: "Booking confirmed: Design review", wantInBody: "confirmed"},
		{event: EventReminder, wantSubject: "Check-in reminder: Design review", wantInBody: "Check in"},
		{event: EventNoShow, wantSubject: "Booking released: Design review", wantInBody: "nobody checked in"},
		{event: EventCancelled, wantSubject: "Booking cancelled: Design review", wantInBody: "cancelled"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.event, func(t *testing.T) {
			t.Parallel()

			msg := renderMessage(tc.event, booking)
			if msg.Subject != tc.wantSubject {
				t.Fatalf("expected subject %q, got %q", tc.wantSubject, msg.Subject)
			}
			if !strings.Contains(msg.Body, tc.wantInBody) {
				t.Fatalf("expected body to mention %q, got %q", tc.wantInBody, msg.Body)
			}
		})
	}
}

func TestLogNotifier_WritesStructuredEntry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	notifier := NewLogNotifier(logger)

	if err := notifier.SendReminder(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("SendReminder returned error: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["event"] != EventReminder {
		t.Fatalf("expected event %q, got %v", EventReminder, entry["event"])
	}
	if entry["booking_id"] != "booking-1" {
		t.Fatalf("expected booking id in entry, got %v", entry["booking_id"])
	}
}

type failingNotifier struct {
	err error
}

func (f *failingNotifier) SendConfirmation(ctx context.Context, booking application.Booking) error {
	return f.err
}

func (f *failingNotifier) SendReminder(ctx context.Context, booking application.Booking) error {
	return f.err
}

func (f *failingNotifier) SendNoShow(ctx context.Context, booking application.Booking) error {
	return f.err
}

func (f *failingNotifier) SendCancellation(ctx context.Context, booking application.Booking) error {
	return f.err
}

func TestMulti_AttemptsAllAndJoinsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logNotifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	sentinel := errors.New("broker down")

	multi := NewMulti(&failingNotifier{err: sentinel}, nil, logNotifier)

	err := multi.SendConfirmation(context.Background(), sampleBooking())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected joined error to carry sentinel, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected log notifier to run despite earlier failure")
	}
}

func TestNewBookingEvent(t *testing.T) {
	t.Parallel()

	occurredAt := time.Date(2026, time.March, 10, 13, 0, 0, 0, time.UTC)
	event := newBookingEvent(EventNoShow, sampleBooking(), occurredAt)

	if event.Event != EventNoShow {
		t.Fatalf("expected event %q, got %q", EventNoShow, event.Event)
	}
	if event.Status != string(application.StatusConfirmed) {
		t.Fatalf("expected status carried over, got %q", event.Status)
	}
	if !event.OccurredAt.Equal(occurredAt) {
		t.Fatalf("expected occurred_at %v, got %v", occurredAt, event.OccurredAt)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if !strings.Contains(string(payload), `"booking_id":"booking-1"`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}
