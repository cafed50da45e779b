package domain

import (
	"time"

	"github.com/google/uuid"
)

type MicRequestStatus string

const (
	MicRequestPending  MicRequestStatus = "pending"
	MicRequestApproved MicRequestStatus = "approved"
	MicRequestRejected MicRequestStatus = "rejected"
)

// MicRequest is a user's pending ask to occupy a specific seat. It is
// resolved to approved or rejected exactly once and never reopened.
type MicRequest struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	UserID    uuid.UUID
	SeatIndex int
	Status    MicRequestStatus
	HandlerID uuid.UUID
	HandledAt time.Time
	CreatedAt time.Time
}

func NewMicRequest(roomID, userID uuid.UUID, seatIndex int) *MicRequest {
	return &MicRequest{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		SeatIndex: seatIndex,
		Status:    MicRequestPending,
		CreatedAt: time.Now().UTC(),
	}
}
