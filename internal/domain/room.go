package domain

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RoomKind string

const (
	// RoomKindGroup is a multi-seat room with up to eight mic seats.
	RoomKindGroup RoomKind = "group"
	// RoomKindPrivate is a one-on-one room with exactly two seats.
	RoomKindPrivate RoomKind = "private"
)

var ErrUnknownRoomKind = errors.New("unknown room kind")

func ParseRoomKind(s string) (RoomKind, error) {
	switch RoomKind(s) {
	case RoomKindGroup, RoomKindPrivate:
		return RoomKind(s), nil
	}
	return "", ErrUnknownRoomKind
}

// Capacity returns the fixed seat count for the kind.
func (k RoomKind) Capacity() int {
	if k == RoomKindPrivate {
		return 2
	}
	return 8
}

type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "open"
	RoomStatusClosed RoomStatus = "closed"
)

// Room is a bounded social space with mic seats and a single host.
type Room struct {
	ID            uuid.UUID
	HostID        uuid.UUID
	Name          string
	Notice        string
	Code          string
	Kind          RoomKind
	CoverURL      string
	BackgroundURL string
	IsPrivate     bool
	PasswordHash  string
	Capacity      int
	MemberCount   int
	Status        RoomStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      time.Time
}

// NewRoom constructs an open room with a generated id and share code.
// The capacity is fixed by the kind and never changes afterwards.
func NewRoom(hostID uuid.UUID, name string, kind RoomKind, isPrivate bool, passwordHash string) *Room {
	now := time.Now().UTC()
	return &Room{
		ID:           uuid.New(),
		HostID:       hostID,
		Name:         name,
		Code:         generateRoomCode(),
		Kind:         kind,
		IsPrivate:    isPrivate,
		PasswordHash: passwordHash,
		Capacity:     kind.Capacity(),
		MemberCount:  1,
		Status:       RoomStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *Room) IsOpen() bool {
	return r != nil && r.Status == RoomStatusOpen
}

func (r *Room) IsHost(userID uuid.UUID) bool {
	return r != nil && r.HostID == userID
}

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 8
)

func generateRoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:roomCodeLength]
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}
