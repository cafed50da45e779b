package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
)

// fakeHandle records deliveries; it can be told to fail or observe Close.
type fakeHandle struct {
	mu     sync.Mutex
	events []domain.Event
	fail   bool
	closed bool
}

func (h *fakeHandle) Send(event domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("send failed")
	}
	h.events = append(h.events, event)
	return nil
}

func (h *fakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *fakeHandle) delivered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func TestBroadcastIsScopedToRoom(t *testing.T) {
	reg := NewRegistry(nil)
	roomA, roomB := uuid.New(), uuid.New()

	inA := &fakeHandle{}
	alsoInA := &fakeHandle{}
	inB := &fakeHandle{}
	reg.Connect(roomA, uuid.New(), inA)
	reg.Connect(roomA, uuid.New(), alsoInA)
	reg.Connect(roomB, uuid.New(), inB)

	reg.Broadcast(roomA, domain.Event{Type: domain.EventMessage})

	if inA.delivered() != 1 || alsoInA.delivered() != 1 {
		t.Fatal("room members did not receive the broadcast")
	}
	if inB.delivered() != 0 {
		t.Fatal("broadcast leaked into another room")
	}
}

func TestBroadcastSurvivesFailingHandle(t *testing.T) {
	reg := NewRegistry(nil)
	roomID := uuid.New()

	broken := &fakeHandle{fail: true}
	healthy := &fakeHandle{}
	reg.Connect(roomID, uuid.New(), broken)
	reg.Connect(roomID, uuid.New(), healthy)

	reg.Broadcast(roomID, domain.Event{Type: domain.EventMessage})

	if healthy.delivered() != 1 {
		t.Fatal("healthy handle missed the broadcast because a sibling failed")
	}
}

func TestLastConnectWins(t *testing.T) {
	reg := NewRegistry(nil)
	roomID, userID := uuid.New(), uuid.New()

	old := &fakeHandle{}
	replacement := &fakeHandle{}
	reg.Connect(roomID, userID, old)
	reg.Connect(roomID, userID, replacement)

	if !old.isClosed() {
		t.Fatal("replaced handle was not closed")
	}
	reg.Broadcast(roomID, domain.Event{Type: domain.EventMessage})
	if old.delivered() != 0 || replacement.delivered() != 1 {
		t.Fatal("broadcast went to the replaced handle")
	}
	if reg.RoomSize(roomID) != 1 {
		t.Fatalf("room size = %d, want 1", reg.RoomSize(roomID))
	}
}

func TestDisconnectIgnoresStaleHandle(t *testing.T) {
	reg := NewRegistry(nil)
	roomID, userID := uuid.New(), uuid.New()

	old := &fakeHandle{}
	replacement := &fakeHandle{}
	reg.Connect(roomID, userID, old)
	reg.Connect(roomID, userID, replacement)

	// The replaced connection's deferred cleanup must not evict the new one.
	reg.Disconnect(roomID, userID, old)
	if !reg.Connected(roomID, userID) {
		t.Fatal("stale disconnect removed the current handle")
	}

	reg.Disconnect(roomID, userID, replacement)
	if reg.Connected(roomID, userID) {
		t.Fatal("current handle not removed")
	}
	if reg.RoomSize(roomID) != 0 {
		t.Fatal("empty room entry not dropped")
	}
}

func TestSendToAbsentUserIsNoop(t *testing.T) {
	reg := NewRegistry(nil)
	// Must not panic or error on an unknown room/user.
	reg.SendTo(uuid.New(), uuid.New(), domain.PongEvent())
}

func TestConcurrentConnectBroadcast(t *testing.T) {
	reg := NewRegistry(nil)
	roomID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			h := &fakeHandle{}
			reg.Connect(roomID, userID, h)
			reg.Broadcast(roomID, domain.Event{Type: domain.EventMessage})
			reg.Disconnect(roomID, userID, h)
		}()
	}
	wg.Wait()

	if reg.RoomSize(roomID) != 0 {
		t.Fatalf("room size = %d after all disconnects, want 0", reg.RoomSize(roomID))
	}
}
