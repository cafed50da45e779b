package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/service"
)

type RoomResponse struct {
	ID            uuid.UUID       `json:"id"`
	HostID        uuid.UUID       `json:"host_id"`
	Name          string          `json:"name"`
	Notice        string          `json:"notice,omitempty"`
	Code          string          `json:"code"`
	Kind          domain.RoomKind `json:"kind"`
	CoverURL      string          `json:"cover_url,omitempty"`
	BackgroundURL string          `json:"background_url,omitempty"`
	IsPrivate     bool            `json:"is_private"`
	Capacity      int             `json:"capacity"`
	MemberCount   int             `json:"member_count"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type SeatResponse struct {
	SeatIndex int             `json:"seat_index"`
	Occupant  *domain.Profile `json:"occupant,omitempty"`
	IsMuted   bool            `json:"is_muted"`
	IsLocked  bool            `json:"is_locked"`
}

type RoomDetailResponse struct {
	Room  *RoomResponse  `json:"room"`
	Host  domain.Profile `json:"host"`
	Seats []SeatResponse `json:"seats"`
}

type MicRequestResponse struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	SeatIndex int       `json:"seat_index"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID        uuid.UUID       `json:"id"`
	Sender    *domain.Profile `json:"sender,omitempty"`
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		ID:            r.ID,
		HostID:        r.HostID,
		Name:          r.Name,
		Notice:        r.Notice,
		Code:          r.Code,
		Kind:          r.Kind,
		CoverURL:      r.CoverURL,
		BackgroundURL: r.BackgroundURL,
		IsPrivate:     r.IsPrivate,
		Capacity:      r.Capacity,
		MemberCount:   r.MemberCount,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

func RoomDetailToApi(d *service.RoomDetail) *RoomDetailResponse {
	seats := make([]SeatResponse, 0, len(d.Seats))
	for _, seat := range d.Seats {
		resp := SeatResponse{
			SeatIndex: seat.SeatIndex,
			IsMuted:   seat.IsMuted,
			IsLocked:  seat.IsLocked,
		}
		if seat.Occupied() {
			if p, ok := d.Occupants[seat.OccupantID]; ok {
				resp.Occupant = &p
			}
		}
		seats = append(seats, resp)
	}
	return &RoomDetailResponse{
		Room:  RoomToApi(d.Room),
		Host:  d.Host,
		Seats: seats,
	}
}

func MicRequestToApi(r *domain.MicRequest) *MicRequestResponse {
	return &MicRequestResponse{
		ID:        r.ID,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		SeatIndex: r.SeatIndex,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func MessageToApi(m *domain.RoomMessage, senders map[uuid.UUID]domain.Profile) *MessageResponse {
	resp := &MessageResponse{
		ID:        m.ID,
		Type:      string(m.Type),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if p, ok := senders[m.SenderID]; ok {
		resp.Sender = &p
	}
	return resp
}
