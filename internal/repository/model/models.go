package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	HostID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"size:100;not null"`
	Notice        string    `gorm:"size:500"`
	Code          string    `gorm:"size:16;uniqueIndex;not null"`
	Kind          string    `gorm:"size:20;not null;index"`
	CoverURL      string    `gorm:"size:500"`
	BackgroundURL string    `gorm:"size:500"`
	IsPrivate     bool      `gorm:"not null"`
	PasswordHash  string    `gorm:"size:255"`
	Capacity      int       `gorm:"not null"`
	MemberCount   int       `gorm:"not null"`
	Status        string    `gorm:"size:16;not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
	ClosedAt      *time.Time
	Seats         []Seat       `gorm:"constraint:OnDelete:CASCADE"`
	Members       []Membership `gorm:"constraint:OnDelete:CASCADE"`
}

type Seat struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement"`
	RoomID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_seats_room_index"`
	SeatIndex  int        `gorm:"not null;uniqueIndex:idx_seats_room_index"`
	OccupantID *uuid.UUID `gorm:"type:uuid;index"`
	IsMuted    bool       `gorm:"not null"`
	IsLocked   bool       `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

type Membership struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_room_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_room_user"`
	Role     string    `gorm:"size:20;not null"`
	JoinedAt time.Time `gorm:"not null"`
}

type RoomMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"size:20;not null"`
	Content   string    `gorm:"type:text"`
	Status    string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type MicRequest struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	SeatIndex int        `gorm:"not null"`
	Status    string     `gorm:"size:20;not null;index"`
	HandlerID *uuid.UUID `gorm:"type:uuid"`
	HandledAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Phone        *string   `gorm:"size:20;uniqueIndex:idx_users_phone,where:phone IS NOT NULL"`
	PasswordHash string    `gorm:"size:255"`
	Name         string    `gorm:"size:50;not null"`
	AvatarURL    string    `gorm:"size:500"`
	Bio          string    `gorm:"size:200"`
	Status       string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
