package queue

import "time"

// Queue names for the events published to downstream consumers
// (feed enrichment, moderation).
const (
	QueueRoomClosed     = "room.closed"
	QueueMessageCreated = "message.created"
)

type RoomClosedEvent struct {
	RoomID   string    `json:"room_id"`
	HostID   string    `json:"host_id"`
	ClosedAt time.Time `json:"closed_at"`
}

type MessageCreatedEvent struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}
