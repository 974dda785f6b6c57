package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/circle-time/internal/persistence"
)

type roomRepoFake struct {
	mu    sync.Mutex
	rooms map[string]Room
}

func newRoomRepoFake(rooms ...Room) *roomRepoFake {
	fake := &roomRepoFake{rooms: make(map[string]Room)}
	for _, room := range rooms {
		fake.rooms[room.ID] = room
	}
	return fake
}

func (f *roomRepoFake) CreateRoom(ctx context.Context, room Room) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; ok {
		return Room{}, persistence.ErrDuplicate
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *roomRepoFake) GetRoom(ctx context.Context, id string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (f *roomRepoFake) UpdateRoom(ctx context.Context, room Room) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; !ok {
		return Room{}, persistence.ErrNotFound
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *roomRepoFake) DeleteRoom(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(f.rooms, id)
	return nil
}

func (f *roomRepoFake) ListRooms(ctx context.Context) ([]Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Room, 0, len(f.rooms))
	for _, room := range f.rooms {
		out = append(out, room)
	}
	return out, nil
}

func TestRoomService_CreateRoom_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(newRoomRepoFake(), func() string { return "room-1" }, nil)

	_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "user-1"},
		Input:     RoomInput{Name: "Boardroom", Capacity: 8},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRoomService_CreateRoom_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(newRoomRepoFake(), nil, nil)

	_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		Input:     RoomInput{Capacity: 0, Status: RoomStatus("haunted")},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "capacity", "status"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestRoomService_CreateRoom_DefaultsToAvailable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := NewRoomService(newRoomRepoFake(),
		func() string { return "room-1" },
		func() time.Time { return now },
	)

	room, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		Input: RoomInput{
			Name:      "  Boardroom  ",
			Building:  "HQ",
			Floor:     3,
			Capacity:  8,
			Amenities: []string{"whiteboard", "display", "whiteboard"},
		},
	})
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	if room.Status != RoomStatusAvailable {
		t.Fatalf("expected available status, got %q", room.Status)
	}
	if room.Name != "Boardroom" {
		t.Fatalf("expected trimmed name, got %q", room.Name)
	}
	if len(room.Amenities) != 2 {
		t.Fatalf("expected deduplicated amenities, got %v", room.Amenities)
	}
	if !room.CreatedAt.Equal(now) || !room.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps from clock, got %v / %v", room.CreatedAt, room.UpdatedAt)
	}
}

func TestRoomService_UpdateRoom_UnknownRoom(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(newRoomRepoFake(), nil, nil)

	_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		RoomID:    "missing",
		Input:     RoomInput{Name: "Boardroom", Capacity: 8},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomService_UpdateRoom_KeepsStatusWhenOmitted(t *testing.T) {
	t.Parallel()

	repo := newRoomRepoFake(Room{ID: "room-1", Name: "Boardroom", Capacity: 8, Status: RoomStatusMaintenance})
	svc := NewRoomService(repo, nil, func() time.Time {
		return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	})

	room, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		RoomID:    "room-1",
		Input:     RoomInput{Name: "Boardroom", Capacity: 10},
	})
	if err != nil {
		t.Fatalf("UpdateRoom returned error: %v", err)
	}
	if room.Status != RoomStatusMaintenance {
		t.Fatalf("expected status preserved, got %q", room.Status)
	}
	if room.Capacity != 10 {
		t.Fatalf("expected capacity 10, got %d", room.Capacity)
	}
}

func TestRoomService_DeleteRoom_RequiresAdmin(t *testing.T) {
	t.Parallel()

	repo := newRoomRepoFake(Room{ID: "room-1", Name: "Boardroom", Capacity: 8})
	svc := NewRoomService(repo, nil, nil)

	if err := svc.DeleteRoom(context.Background(), Principal{UserID: "user-1"}, "room-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := svc.DeleteRoom(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, "room-1"); err != nil {
		t.Fatalf("DeleteRoom returned error: %v", err)
	}

	if err := svc.DeleteRoom(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, "room-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestRoomService_ListRooms_SortsByLocation(t *testing.T) {
	t.Parallel()

	repo := newRoomRepoFake(
		Room{ID: "r3", Name: "Atrium", Building: "West", Floor: 1, Capacity: 20},
		Room{ID: "r1", Name: "Den", Building: "East", Floor: 2, Capacity: 4},
		Room{ID: "r2", Name: "Annex", Building: "East", Floor: 1, Capacity: 6},
	)
	svc := NewRoomService(repo, nil, nil)

	rooms, err := svc.ListRooms(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListRooms returned error: %v", err)
	}

	gotOrder := []string{rooms[0].ID, rooms[1].ID, rooms[2].ID}
	wantOrder := []string{"r2", "r1", "r3"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("expected order %v, got %v", wantOrder, gotOrder)
		}
	}
}
