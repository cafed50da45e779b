package domain

import (
	"time"

	"github.com/google/uuid"
)

// Seat is one of a room's fixed voice slots. The room owns the seat; the
// OccupantID is only a back-reference to whoever currently sits on it.
// A locked seat rejects new requests but does not evict its occupant.
type Seat struct {
	RoomID     uuid.UUID
	SeatIndex  int
	OccupantID uuid.UUID
	IsMuted    bool
	IsLocked   bool
	UpdatedAt  time.Time
}

func (s *Seat) Occupied() bool {
	return s.OccupantID != uuid.Nil
}

// SeatsForRoom builds the initial seat batch for a freshly created room:
// seat 0 occupied by the host, the rest empty and unlocked.
func SeatsForRoom(room *Room) []*Seat {
	seats := make([]*Seat, 0, room.Capacity)
	for i := 0; i < room.Capacity; i++ {
		seat := &Seat{
			RoomID:    room.ID,
			SeatIndex: i,
			UpdatedAt: room.CreatedAt,
		}
		if i == 0 {
			seat.OccupantID = room.HostID
		}
		seats = append(seats, seat)
	}
	return seats
}
