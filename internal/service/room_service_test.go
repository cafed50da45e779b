package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/repository"
)

func newTestEnv(t *testing.T) (*repository.InMemoryStore, *RoomService, *SeatService) {
	t.Helper()

	store := repository.NewInMemoryStore()
	locks := NewRoomLocks()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	rooms := NewRoomService(store.Rooms(), store.Memberships(), store.Seats(), store.Messages(), store.Users(), locks, nil, nil, log)
	seats := NewSeatService(store.Rooms(), store.Seats(), store.MicRequests(), locks, log)
	return store, rooms, seats
}

func mustUser(t *testing.T, store *repository.InMemoryStore, name string) *domain.User {
	t.Helper()

	user := domain.NewUser(name, "", "")
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func mustRoom(t *testing.T, rooms *RoomService, host *domain.User, kind domain.RoomKind) *domain.Room {
	t.Helper()

	room, err := rooms.CreateRoom(context.Background(), host.ID, "test room", kind, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestCreateRoomSeatsHost(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	if room.Capacity != 8 {
		t.Fatalf("group room capacity = %d, want 8", room.Capacity)
	}
	if room.MemberCount != 1 {
		t.Fatalf("member count = %d, want 1", room.MemberCount)
	}
	if len(room.Code) == 0 {
		t.Fatal("room code is empty")
	}

	detail, err := rooms.GetRoomDetail(ctx, room.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if len(detail.Seats) != 8 {
		t.Fatalf("seat count = %d, want 8", len(detail.Seats))
	}
	if detail.Seats[0].OccupantID != host.ID {
		t.Fatal("seat 0 is not occupied by the host")
	}
	for _, seat := range detail.Seats[1:] {
		if seat.Occupied() || seat.IsLocked {
			t.Fatalf("seat %d should start empty and unlocked", seat.SeatIndex)
		}
	}
}

func TestCreateRoomValidation(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()
	host := mustUser(t, store, "host")

	if _, err := rooms.CreateRoom(ctx, host.ID, "   ", domain.RoomKindGroup, false, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: got %v, want ErrInvalidInput", err)
	}
	if _, err := rooms.CreateRoom(ctx, host.ID, "secret", domain.RoomKindGroup, true, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("private without password: got %v, want ErrInvalidInput", err)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	member := mustUser(t, store, "member")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	if _, err := rooms.JoinRoom(ctx, room.ID, member.ID, ""); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := rooms.JoinRoom(ctx, room.ID, member.ID, ""); err != nil {
		t.Fatalf("second join should be a no-op: %v", err)
	}

	got, err := rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", got.MemberCount)
	}
}

func TestJoinRoomConcurrentCounts(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	const joiners = 5
	users := make([]*domain.User, 0, joiners)
	for i := 0; i < joiners; i++ {
		users = append(users, mustUser(t, store, "joiner"))
	}

	var wg sync.WaitGroup
	counts := make(chan int, joiners)
	for _, user := range users {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			joined, err := rooms.JoinRoom(ctx, room.ID, id, "")
			if err != nil {
				t.Errorf("join: %v", err)
				return
			}
			counts <- joined.MemberCount
		}(user.ID)
	}
	wg.Wait()
	close(counts)

	// Each join returns the store's count read under the room lock, so the
	// five results are exactly 2 through 6 in some order.
	seen := make(map[int]bool, joiners)
	for count := range counts {
		if seen[count] {
			t.Fatalf("member count %d returned twice", count)
		}
		seen[count] = true
	}
	for want := 2; want <= joiners+1; want++ {
		if !seen[want] {
			t.Fatalf("no join observed member count %d", want)
		}
	}
}

func TestJoinPrivateRoomPassword(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	member := mustUser(t, store, "member")

	room, err := rooms.CreateRoom(ctx, host.ID, "private", domain.RoomKindGroup, true, "hunter2")
	if err != nil {
		t.Fatalf("create private room: %v", err)
	}

	if _, err := rooms.JoinRoom(ctx, room.ID, member.ID, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password: got %v, want ErrInvalidPassword", err)
	}
	if _, err := rooms.JoinRoom(ctx, room.ID, member.ID, "hunter2"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
}

func TestJoinFullRoom(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	first := mustUser(t, store, "first")
	second := mustUser(t, store, "second")

	// Private kind caps at two members including the host.
	room, err := rooms.CreateRoom(ctx, host.ID, "duo", domain.RoomKindPrivate, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := rooms.JoinRoom(ctx, room.ID, first.ID, ""); err != nil {
		t.Fatalf("join within capacity: %v", err)
	}
	if _, err := rooms.JoinRoom(ctx, room.ID, second.ID, ""); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("join over capacity: got %v, want ErrRoomFull", err)
	}
}

func TestHostLifecycle(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	member := mustUser(t, store, "member")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	if err := rooms.LeaveRoom(ctx, room.ID, host.ID); !errors.Is(err, ErrHostCannotLeave) {
		t.Fatalf("host leave: got %v, want ErrHostCannotLeave", err)
	}
	if err := rooms.CloseRoom(ctx, room.ID, member.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-host close: got %v, want ErrPermissionDenied", err)
	}

	if err := rooms.CloseRoom(ctx, room.ID, host.ID); err != nil {
		t.Fatalf("host close: %v", err)
	}
	if _, err := rooms.GetRoom(ctx, room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("closed room lookup: got %v, want ErrRoomNotFound", err)
	}
	// Closing an already-closed room stays idempotent.
	if err := rooms.CloseRoom(ctx, room.ID, host.ID); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestLeaveRoomVacatesSeat(t *testing.T) {
	store, rooms, seats := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	member := mustUser(t, store, "member")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	if _, err := rooms.JoinRoom(ctx, room.ID, member.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	req, err := seats.RequestSeat(ctx, room.ID, member.ID, 2)
	if err != nil {
		t.Fatalf("request seat: %v", err)
	}
	if _, err := seats.ApproveRequest(ctx, room.ID, req.ID, host.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := rooms.LeaveRoom(ctx, room.ID, member.ID); err != nil {
		t.Fatalf("leave room: %v", err)
	}

	seat, err := store.Seats().Get(ctx, room.ID, 2)
	if err != nil {
		t.Fatalf("get seat: %v", err)
	}
	if seat.Occupied() {
		t.Fatal("seat should be vacated when its occupant leaves the room")
	}
	got, err := rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.MemberCount != 1 {
		t.Fatalf("member count = %d, want 1", got.MemberCount)
	}

	// Leaving again is a no-op, like the idempotent join.
	if err := rooms.LeaveRoom(ctx, room.ID, member.ID); err != nil {
		t.Fatalf("repeat leave: %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	if _, err := rooms.SendMessage(ctx, room.ID, host.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank message: got %v, want ErrInvalidInput", err)
	}

	first, err := rooms.SendMessage(ctx, room.ID, host.ID, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	second, err := rooms.SendMessage(ctx, room.ID, host.ID, "world")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	page, err := rooms.ListMessages(ctx, room.ID, 1, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if page.Total != 2 || len(page.Messages) != 2 {
		t.Fatalf("got %d messages (total %d), want 2", len(page.Messages), page.Total)
	}
	// Newest first.
	if page.Messages[0].ID != second.ID || page.Messages[1].ID != first.ID {
		t.Fatal("messages are not ordered newest first")
	}
	if _, ok := page.Senders[host.ID]; !ok {
		t.Fatal("sender profile missing from page")
	}
}

func TestListRoomsFilters(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")

	open := mustRoom(t, rooms, host, domain.RoomKindGroup)
	if _, err := rooms.CreateRoom(ctx, host.ID, "hidden", domain.RoomKindGroup, true, "pw"); err != nil {
		t.Fatalf("create private room: %v", err)
	}
	closed := mustRoom(t, rooms, host, domain.RoomKindGroup)
	if err := rooms.CloseRoom(ctx, closed.ID, host.ID); err != nil {
		t.Fatalf("close room: %v", err)
	}

	page, err := rooms.ListRooms(ctx, domain.RoomKindGroup, 1, 20)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if page.Total != 1 || len(page.Rooms) != 1 {
		t.Fatalf("got %d rooms (total %d), want exactly the open public room", len(page.Rooms), page.Total)
	}
	if page.Rooms[0].ID != open.ID {
		t.Fatal("listing returned the wrong room")
	}
	if _, ok := page.Hosts[host.ID]; !ok {
		t.Fatal("host profile missing from listing")
	}
}

func TestGetRoomByCode(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	got, err := rooms.GetRoomByCode(ctx, room.Code)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.ID != room.ID {
		t.Fatal("code resolved to the wrong room")
	}

	if _, err := rooms.GetRoomByCode(ctx, "NOSUCH00"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("unknown code: got %v, want ErrRoomNotFound", err)
	}

	if err := rooms.CloseRoom(ctx, room.ID, host.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := rooms.GetRoomByCode(ctx, room.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("closed room code: got %v, want ErrRoomNotFound", err)
	}
}

func TestUpdateRoomHostOnly(t *testing.T) {
	store, rooms, _ := newTestEnv(t)
	ctx := context.Background()

	host := mustUser(t, store, "host")
	member := mustUser(t, store, "member")
	room := mustRoom(t, rooms, host, domain.RoomKindGroup)

	name := "renamed"
	if _, err := rooms.UpdateRoom(ctx, room.ID, member.ID, RoomUpdate{Name: &name}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-host update: got %v, want ErrPermissionDenied", err)
	}

	notice := "welcome"
	updated, err := rooms.UpdateRoom(ctx, room.ID, host.ID, RoomUpdate{Name: &name, Notice: &notice})
	if err != nil {
		t.Fatalf("host update: %v", err)
	}
	if updated.Name != "renamed" || updated.Notice != "welcome" {
		t.Fatalf("update not applied: name=%q notice=%q", updated.Name, updated.Notice)
	}
}
