package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/lib/logger/sl"
)

// Handle is one live client transport. Send must be safe for concurrent
// use and must not block the caller; a dead handle simply returns an error.
type Handle interface {
	Send(event domain.Event) error
	Close()
}

// Registry maps room -> user -> live handle. It is the process's only
// shared mutable runtime state and is constructed explicitly (no package
// global) so tests can run isolated instances.
type Registry struct {
	log   *slog.Logger
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]Handle
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:   log,
		rooms: make(map[uuid.UUID]map[uuid.UUID]Handle),
	}
}

// Connect registers the handle under (room, user). A prior handle for the
// same user in the same room is replaced and closed: last connect wins.
func (r *Registry) Connect(roomID, userID uuid.UUID, h Handle) {
	r.mu.Lock()
	conns := r.rooms[roomID]
	if conns == nil {
		conns = make(map[uuid.UUID]Handle)
		r.rooms[roomID] = conns
	}
	prev := conns[userID]
	conns[userID] = h
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

// Disconnect removes the mapping, but only if it still points at h, so a
// stale connection's cleanup cannot evict its replacement. Empty room
// entries are dropped to bound memory to active rooms.
func (r *Registry) Disconnect(roomID, userID uuid.UUID, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.rooms[roomID]
	if conns == nil {
		return
	}
	if current, ok := conns[userID]; !ok || current != h {
		return
	}
	delete(conns, userID)
	if len(conns) == 0 {
		delete(r.rooms, roomID)
	}
}

// Broadcast delivers the event to every handle in the room. The recipient
// set is snapshotted before sending so a racing disconnect cannot corrupt
// the iteration, and an individual delivery failure never aborts the rest.
func (r *Registry) Broadcast(roomID uuid.UUID, event domain.Event) {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.rooms[roomID]))
	for _, h := range r.rooms[roomID] {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		if err := h.Send(event); err != nil {
			r.log.Debug("dropping broadcast delivery",
				slog.String("room_id", roomID.String()),
				slog.String("type", event.Type),
				sl.Err(err),
			)
		}
	}
}

// SendTo delivers to one user's handle; a user with no connection is a
// no-op, not an error.
func (r *Registry) SendTo(roomID, userID uuid.UUID, event domain.Event) {
	r.mu.RLock()
	h := r.rooms[roomID][userID]
	r.mu.RUnlock()

	if h == nil {
		return
	}
	if err := h.Send(event); err != nil {
		r.log.Debug("dropping targeted delivery",
			slog.String("room_id", roomID.String()),
			slog.String("user_id", userID.String()),
			sl.Err(err),
		)
	}
}

// Connected reports whether the user currently has a handle in the room.
func (r *Registry) Connected(roomID, userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][userID]
	return ok
}

// RoomSize returns the number of live connections in the room.
func (r *Registry) RoomSize(roomID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
