package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/circle-time/internal/persistence"
	"github.com/example/circle-time/internal/testfixtures"
)

func TestRoomRepository_CreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	created := mustCreateRoom(t, harness,
		testfixtures.WithRoomName("Atrium"),
		testfixtures.WithRoomAmenities("projector", "whiteboard"),
	)

	got, err := harness.Rooms.GetRoom(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if got.Name != "Atrium" {
		t.Errorf("expected name Atrium, got %q", got.Name)
	}
	if len(got.Amenities) != 2 || got.Amenities[0] != "projector" {
		t.Errorf("unexpected amenities: %v", got.Amenities)
	}
}

func TestRoomRepository_DuplicateID(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	room := mustCreateRoom(t, harness)
	if err := harness.Rooms.CreateRoom(context.Background(), room); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRoomRepository_UpdateMissing(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	ghost := testfixtures.NewRoomFixture().Persistence()
	if err := harness.Rooms.UpdateRoom(context.Background(), ghost); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepository_ListOrder(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	mustCreateRoom(t, harness, testfixtures.WithRoomName("Den"), testfixtures.WithRoomLocation("West", 2))
	mustCreateRoom(t, harness, testfixtures.WithRoomName("Annex"), testfixtures.WithRoomLocation("East", 1))
	mustCreateRoom(t, harness, testfixtures.WithRoomName("Atrium"), testfixtures.WithRoomLocation("East", 1))

	rooms, err := harness.Rooms.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms returned error: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	if rooms[0].Name != "Annex" || rooms[1].Name != "Atrium" || rooms[2].Name != "Den" {
		t.Errorf("unexpected order: %q, %q, %q", rooms[0].Name, rooms[1].Name, rooms[2].Name)
	}
}

func TestRoomRepository_DeleteCascades(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	room := mustCreateRoom(t, harness)
	booking := mustCreateBooking(t, harness, testfixtures.WithBookingRoom(room.ID))

	if err := harness.Rooms.DeleteRoom(context.Background(), room.ID); err != nil {
		t.Fatalf("DeleteRoom returned error: %v", err)
	}

	if _, err := harness.Bookings.GetBooking(context.Background(), booking.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected booking to cascade away, got %v", err)
	}

	if err := harness.Rooms.DeleteRoom(context.Background(), room.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}
