package service

import (
	"sync"

	"github.com/google/uuid"
)

// RoomLocks serializes room-scoped mutations. One mutex per room covers
// seat transitions and membership count changes; independent rooms never
// contend. Room and seat services share a single instance.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Of returns the mutex for a room, creating it on first use. Entries are
// kept for the process lifetime; the per-room footprint is one mutex.
func (l *RoomLocks) Of(roomID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	return m
}
