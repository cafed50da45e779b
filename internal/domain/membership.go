package domain

import (
	"time"

	"github.com/google/uuid"
)

type MemberRole string

const (
	MemberRoleHost   MemberRole = "host"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Membership records one user's active presence in a room. A user has at
// most one active membership per room; the host's is never removed while
// the room is open.
type Membership struct {
	RoomID   uuid.UUID
	UserID   uuid.UUID
	Role     MemberRole
	JoinedAt time.Time
}

func NewMembership(roomID, userID uuid.UUID, role MemberRole) *Membership {
	return &Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
}
