package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

type MessageStatus string

const (
	MessageStatusActive  MessageStatus = "active"
	MessageStatusDeleted MessageStatus = "deleted"
)

// RoomMessage is an immutable append-only chat record. Deletion is a
// status flip; rows are never physically removed.
type RoomMessage struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	Type      MessageType
	Content   string
	Status    MessageStatus
	CreatedAt time.Time
}

func NewRoomMessage(roomID, senderID uuid.UUID, msgType MessageType, content string) *RoomMessage {
	return &RoomMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Type:      msgType,
		Content:   content,
		Status:    MessageStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}
