package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is a participant profile. Phone and PasswordHash never leave the
// process; room events and API responses carry only the Profile projection.
type User struct {
	ID           uuid.UUID
	Phone        string
	PasswordHash string
	Name         string
	AvatarURL    string
	Bio          string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(name, avatarURL, bio string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Name:      name,
		AvatarURL: avatarURL,
		Bio:       bio,
		Status:    UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// Profile is the public projection of a user: never phone, never password.
type Profile struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{UserID: u.ID, Name: u.Name, Avatar: u.AvatarURL}
}
