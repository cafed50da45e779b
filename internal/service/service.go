package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
)

// RoomUpdate carries the host-editable room fields; nil means unchanged.
type RoomUpdate struct {
	Name          *string
	Notice        *string
	BackgroundURL *string
}

// RoomPage is one page of the public room listing.
type RoomPage struct {
	Rooms []*domain.Room
	Hosts map[uuid.UUID]domain.Profile
	Total int64
}

// RoomDetail is a room plus its host profile and ordered seat snapshot.
type RoomDetail struct {
	Room      *domain.Room
	Host      domain.Profile
	Seats     []*domain.Seat
	Occupants map[uuid.UUID]domain.Profile
}

// MessagePage is one page of room chat history, newest first.
type MessagePage struct {
	Messages []*domain.RoomMessage
	Senders  map[uuid.UUID]domain.Profile
	Total    int64
}

type RoomInteractor interface {
	CreateRoom(ctx context.Context, hostID uuid.UUID, name string, kind domain.RoomKind, isPrivate bool, password string) (*domain.Room, error)
	JoinRoom(ctx context.Context, roomID, userID uuid.UUID, password string) (*domain.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error
	CloseRoom(ctx context.Context, roomID, actorID uuid.UUID) error
	UpdateRoom(ctx context.Context, roomID, actorID uuid.UUID, update RoomUpdate) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	GetRoomDetail(ctx context.Context, roomID uuid.UUID) (*RoomDetail, error)
	ListRooms(ctx context.Context, kind domain.RoomKind, page, pageSize int) (*RoomPage, error)
	ListMessages(ctx context.Context, roomID uuid.UUID, page, pageSize int) (*MessagePage, error)
	SendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*domain.RoomMessage, error)
}

type SeatInteractor interface {
	RequestSeat(ctx context.Context, roomID, userID uuid.UUID, seatIndex int) (*domain.MicRequest, error)
	ApproveRequest(ctx context.Context, roomID, requestID, actorID uuid.UUID) (*domain.MicRequest, error)
	RejectRequest(ctx context.Context, roomID, requestID, actorID uuid.UUID) (*domain.MicRequest, error)
	LeaveSeat(ctx context.Context, roomID, userID uuid.UUID) (*domain.Seat, error)
	ToggleMute(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) (bool, error)
	LockSeat(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) error
	UnlockSeat(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) error
	ListPendingRequests(ctx context.Context, roomID, actorID uuid.UUID) ([]*domain.MicRequest, error)
}

type UserInteractor interface {
	CreateUser(ctx context.Context, name, avatarURL, bio string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetActiveUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
