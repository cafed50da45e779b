package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soniva/soniva/internal/auth"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/queue"
	"github.com/soniva/soniva/internal/repository"
	"github.com/soniva/soniva/lib/logger/sl"
)

const (
	maxRoomNameLength = 50
	maxNoticeLength   = 500
	maxMessageLength  = 500

	listCacheTTL = 10 * time.Second
)

type RoomService struct {
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	seats       repository.SeatRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	locks       *RoomLocks
	cache       *redis.Client
	events      *queue.Publisher
	log         *slog.Logger
}

func NewRoomService(
	rooms repository.RoomRepository,
	memberships repository.MembershipRepository,
	seats repository.SeatRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	locks *RoomLocks,
	cache *redis.Client,
	events *queue.Publisher,
	log *slog.Logger,
) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:       rooms,
		memberships: memberships,
		seats:       seats,
		messages:    messages,
		users:       users,
		locks:       locks,
		cache:       cache,
		events:      events,
		log:         log,
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, hostID uuid.UUID, name string, kind domain.RoomKind, isPrivate bool, password string) (*domain.Room, error) {
	const op = "service.room.create"
	log := s.log.With(slog.String("op", op), slog.String("host_id", hostID.String()))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: room name is too long", ErrInvalidInput)
	}
	if isPrivate && password == "" {
		return nil, fmt.Errorf("%w: private room requires a password", ErrInvalidInput)
	}

	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	passwordHash := ""
	if isPrivate {
		passwordHash, err = auth.HashPassword(password)
		if err != nil {
			return nil, err
		}
	}

	for {
		room := domain.NewRoom(host.ID, name, kind, isPrivate, passwordHash)
		membership := domain.NewMembership(room.ID, host.ID, domain.MemberRoleHost)
		seats := domain.SeatsForRoom(room)

		if err := s.rooms.CreateWithSetup(ctx, room, membership, seats); err != nil {
			if errors.Is(err, repository.ErrRoomCodeExists) {
				continue
			}
			return nil, err
		}

		log.Info("room created",
			slog.String("room_id", room.ID.String()),
			slog.String("code", room.Code),
			slog.String("kind", string(room.Kind)),
		)
		return room, nil
	}
}

func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID uuid.UUID, password string) (*domain.Room, error) {
	const op = "service.room.join"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()), slog.String("user_id", userID.String()))

	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.IsPrivate && !auth.VerifyPassword(room.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	// Joining twice is a no-op success, not a conflict.
	if _, err := s.memberships.Get(ctx, roomID, userID); err == nil {
		return room, nil
	} else if !errors.Is(err, repository.ErrMembershipNotFound) {
		return nil, err
	}

	membership := domain.NewMembership(roomID, userID, domain.MemberRoleMember)
	if err := s.memberships.Join(ctx, membership); err != nil {
		if errors.Is(err, repository.ErrRoomFull) {
			return nil, ErrRoomFull
		}
		return nil, err
	}

	// Re-read under the lock: the store's count is authoritative, and the
	// pre-lock snapshot can be stale under concurrent joins.
	joined, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	log.Info("user joined room", slog.Int("member_count", joined.MemberCount))
	return joined, nil
}

func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	const op = "service.room.leave"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()), slog.String("user_id", userID.String()))

	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.IsHost(userID) {
		return ErrHostCannotLeave
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	// Vacate any seat the user holds before dropping the membership.
	if seat, err := s.seats.GetByOccupant(ctx, roomID, userID); err == nil {
		if err := s.seats.Vacate(ctx, roomID, seat.SeatIndex); err != nil {
			return err
		}
	} else if !errors.Is(err, repository.ErrSeatNotFound) {
		return err
	}

	if err := s.memberships.Leave(ctx, roomID, userID); err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			// Leaving a room the user is not in mirrors the idempotent join.
			return nil
		}
		return err
	}

	log.Info("user left room")
	return nil
}

func (s *RoomService) CloseRoom(ctx context.Context, roomID, actorID uuid.UUID) error {
	const op = "service.room.close"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()))

	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsHost(actorID) {
		return ErrPermissionDenied
	}
	if !room.IsOpen() {
		return nil
	}

	room.Status = domain.RoomStatusClosed
	room.ClosedAt = time.Now().UTC()
	if err := s.rooms.Update(ctx, room); err != nil {
		return err
	}

	if err := s.events.RoomClosed(ctx, queue.RoomClosedEvent{
		RoomID:   room.ID.String(),
		HostID:   room.HostID.String(),
		ClosedAt: room.ClosedAt,
	}); err != nil {
		log.Warn("failed to publish room closed event", sl.Err(err))
	}

	log.Info("room closed")
	return nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, roomID, actorID uuid.UUID, update RoomUpdate) (*domain.Room, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actorID) {
		return nil, ErrPermissionDenied
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" || utf8.RuneCountInString(name) > maxRoomNameLength {
			return nil, fmt.Errorf("%w: invalid room name", ErrInvalidInput)
		}
		room.Name = name
	}
	if update.Notice != nil {
		if utf8.RuneCountInString(*update.Notice) > maxNoticeLength {
			return nil, fmt.Errorf("%w: notice is too long", ErrInvalidInput)
		}
		room.Notice = *update.Notice
	}
	if update.BackgroundURL != nil {
		room.BackgroundURL = *update.BackgroundURL
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return s.openRoom(ctx, roomID)
}

// GetRoomByCode resolves a shared room code; closed rooms read as absent,
// like the id lookup.
func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if !room.IsOpen() {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) GetRoomDetail(ctx context.Context, roomID uuid.UUID) (*RoomDetail, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	seats, err := s.seats.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	detail := &RoomDetail{
		Room:      room,
		Seats:     seats,
		Occupants: make(map[uuid.UUID]domain.Profile),
	}

	if host, err := s.users.GetByID(ctx, room.HostID); err == nil {
		detail.Host = host.Profile()
	}
	for _, seat := range seats {
		if !seat.Occupied() {
			continue
		}
		if _, ok := detail.Occupants[seat.OccupantID]; ok {
			continue
		}
		user, err := s.users.GetByID(ctx, seat.OccupantID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		detail.Occupants[user.ID] = user.Profile()
	}
	return detail, nil
}

func (s *RoomService) ListRooms(ctx context.Context, kind domain.RoomKind, page, pageSize int) (*RoomPage, error) {
	const op = "service.room.list"

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	cacheKey := fmt.Sprintf("rooms:open:%s:%d:%d", kind, page, pageSize)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	rooms, total, err := s.rooms.ListOpenPublic(ctx, kind, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	result := &RoomPage{
		Rooms: rooms,
		Hosts: make(map[uuid.UUID]domain.Profile),
		Total: total,
	}
	for _, room := range rooms {
		if _, ok := result.Hosts[room.HostID]; ok {
			continue
		}
		host, err := s.users.GetByID(ctx, room.HostID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		result.Hosts[room.HostID] = host.Profile()
	}

	s.cacheSet(ctx, cacheKey, result)
	s.log.Debug("room list served", slog.String("op", op), slog.Int("count", len(rooms)))
	return result, nil
}

func (s *RoomService) ListMessages(ctx context.Context, roomID uuid.UUID, page, pageSize int) (*MessagePage, error) {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	msgs, total, err := s.messages.ListByRoom(ctx, roomID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	result := &MessagePage{
		Messages: msgs,
		Senders:  make(map[uuid.UUID]domain.Profile),
		Total:    total,
	}
	for _, msg := range msgs {
		if _, ok := result.Senders[msg.SenderID]; ok {
			continue
		}
		sender, err := s.users.GetByID(ctx, msg.SenderID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		result.Senders[msg.SenderID] = sender.Profile()
	}
	return result, nil
}

func (s *RoomService) SendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*domain.RoomMessage, error) {
	const op = "service.room.sendMessage"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()))

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}

	msg := domain.NewRoomMessage(roomID, senderID, domain.MessageTypeText, content)
	if err := s.messages.Create(ctx, msg); err != nil {
		log.Error("failed to persist message", sl.Err(err))
		return nil, err
	}

	if err := s.events.MessageCreated(ctx, queue.MessageCreatedEvent{
		MessageID: msg.ID.String(),
		RoomID:    msg.RoomID.String(),
		SenderID:  msg.SenderID.String(),
		CreatedAt: msg.CreatedAt,
	}); err != nil {
		log.Warn("failed to publish message event", sl.Err(err))
	}

	return msg, nil
}

// getRoom resolves a room regardless of status; openRoom additionally
// treats a closed room as absent, per the join/detail contract.
func (s *RoomService) getRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *RoomService) openRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOpen() {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) cacheGet(ctx context.Context, key string) *RoomPage {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var page RoomPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil
	}
	return &page
}

func (s *RoomService) cacheSet(ctx context.Context, key string, page *RoomPage) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, listCacheTTL).Err(); err != nil {
		s.log.Debug("room list cache write failed", sl.Err(err))
	}
}
