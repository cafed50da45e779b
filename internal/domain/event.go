package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds delivered to room participants over the gateway.
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventMessage    = "message"
	EventPong       = "pong"
)

// Event is one outbound gateway frame. Only the fields relevant to the
// event type are set; the rest are omitted from the wire encoding.
type Event struct {
	Type      string   `json:"type"`
	MessageID string   `json:"message_id,omitempty"`
	User      *Profile `json:"user,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Content   string   `json:"content,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// InboundEvent is one client frame read by the gateway. Unknown types are
// ignored so newer clients do not break older servers.
type InboundEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func UserJoinedEvent(user *User, at string) Event {
	p := user.Profile()
	return Event{Type: EventUserJoined, User: &p, Timestamp: at}
}

func UserLeftEvent(userID uuid.UUID, at string) Event {
	return Event{Type: EventUserLeft, UserID: userID.String(), Timestamp: at}
}

func MessageEvent(msg *RoomMessage, sender *User) Event {
	p := sender.Profile()
	return Event{
		Type:      EventMessage,
		MessageID: msg.ID.String(),
		User:      &p,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func PongEvent() Event {
	return Event{Type: EventPong}
}
