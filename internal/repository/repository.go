package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomCodeExists     = errors.New("room code already exists")
	ErrRoomFull           = errors.New("room is full")
	ErrSeatNotFound       = errors.New("seat not found")
	ErrSeatTaken          = errors.New("seat occupied or locked")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrRequestNotFound    = errors.New("mic request not found")
	ErrRequestResolved    = errors.New("mic request already resolved")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserPhoneExists    = errors.New("user with phone already exists")
)

type RoomRepository interface {
	// CreateWithSetup persists the room, its host membership and the full
	// seat batch in one transaction.
	CreateWithSetup(ctx context.Context, room *domain.Room, host *domain.Membership, seats []*domain.Seat) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	// ListOpenPublic returns open non-private rooms ordered by member count
	// descending then recency, with the total count for pagination. A zero
	// kind means no kind filter.
	ListOpenPublic(ctx context.Context, kind domain.RoomKind, offset, limit int) ([]*domain.Room, int64, error)
}

type MembershipRepository interface {
	// Join inserts the membership and increments the room's member count in
	// one transaction. Returns ErrRoomFull when the count has reached the
	// room's capacity.
	Join(ctx context.Context, m *domain.Membership) error
	// Leave removes the membership and decrements the member count, floored
	// at zero, in one transaction.
	Leave(ctx context.Context, roomID, userID uuid.UUID) error
	Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Membership, error)
	CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type SeatRepository interface {
	Get(ctx context.Context, roomID uuid.UUID, seatIndex int) (*domain.Seat, error)
	GetByOccupant(ctx context.Context, roomID, userID uuid.UUID) (*domain.Seat, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Seat, error)
	Vacate(ctx context.Context, roomID uuid.UUID, seatIndex int) error
	SetMuted(ctx context.Context, roomID uuid.UUID, seatIndex int, muted bool) error
	SetLocked(ctx context.Context, roomID uuid.UUID, seatIndex int, locked bool) error
}

type MicRequestRepository interface {
	Create(ctx context.Context, req *domain.MicRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MicRequest, error)
	ListPending(ctx context.Context, roomID uuid.UUID) ([]*domain.MicRequest, error)
	// Resolve transitions a pending request to approved or rejected exactly
	// once, recording the handler. Returns ErrRequestResolved when the
	// request is no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, status domain.MicRequestStatus, handlerID uuid.UUID) error
	// ApproveAndOccupy occupies the request's seat and marks the request
	// approved in one transaction, so a failure writes neither. Returns
	// ErrSeatTaken when the seat is no longer empty and unlocked,
	// ErrRequestResolved when the request is no longer pending.
	ApproveAndOccupy(ctx context.Context, req *domain.MicRequest, handlerID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.RoomMessage) error
	// ListByRoom returns active messages newest first with the total count.
	ListByRoom(ctx context.Context, roomID uuid.UUID, offset, limit int) ([]*domain.RoomMessage, int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}
