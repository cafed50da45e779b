package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
)

// In-memory implementations of the repository interfaces. They share the
// semantics of the Postgres versions, including the conditional seat occupy
// and the join capacity guard, so service tests exercise the same paths.

type InMemoryStore struct {
	mu          sync.RWMutex
	rooms       map[uuid.UUID]*domain.Room
	codes       map[string]uuid.UUID
	seats       map[uuid.UUID][]*domain.Seat
	memberships map[uuid.UUID]map[uuid.UUID]*domain.Membership
	requests    map[uuid.UUID]*domain.MicRequest
	messages    map[uuid.UUID][]*domain.RoomMessage
	users       map[uuid.UUID]*domain.User
	phones      map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rooms:       make(map[uuid.UUID]*domain.Room),
		codes:       make(map[string]uuid.UUID),
		seats:       make(map[uuid.UUID][]*domain.Seat),
		memberships: make(map[uuid.UUID]map[uuid.UUID]*domain.Membership),
		requests:    make(map[uuid.UUID]*domain.MicRequest),
		messages:    make(map[uuid.UUID][]*domain.RoomMessage),
		users:       make(map[uuid.UUID]*domain.User),
		phones:      make(map[string]uuid.UUID),
	}
}

// Rooms, Memberships, Seats, MicRequests, Messages and Users expose the
// store through the repository interfaces.
func (s *InMemoryStore) Rooms() RoomRepository             { return (*memRooms)(s) }
func (s *InMemoryStore) Memberships() MembershipRepository { return (*memMemberships)(s) }
func (s *InMemoryStore) Seats() SeatRepository             { return (*memSeats)(s) }
func (s *InMemoryStore) MicRequests() MicRequestRepository { return (*memRequests)(s) }
func (s *InMemoryStore) Messages() MessageRepository       { return (*memMessages)(s) }
func (s *InMemoryStore) Users() UserRepository             { return (*memUsers)(s) }

type memRooms InMemoryStore

func (r *memRooms) CreateWithSetup(ctx context.Context, room *domain.Room, host *domain.Membership, seats []*domain.Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codes[room.Code]; ok {
		return ErrRoomCodeExists
	}

	cp := *room
	r.rooms[room.ID] = &cp
	r.codes[room.Code] = room.ID

	r.memberships[room.ID] = map[uuid.UUID]*domain.Membership{host.UserID: cloneMembership(host)}

	batch := make([]*domain.Seat, 0, len(seats))
	for _, seat := range seats {
		sc := *seat
		batch = append(batch, &sc)
	}
	r.seats[room.ID] = batch
	return nil
}

func (r *memRooms) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *memRooms) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *r.rooms[id]
	return &cp, nil
}

func (r *memRooms) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rooms[room.ID]
	if !ok {
		return ErrRoomNotFound
	}
	existing.Name = room.Name
	existing.Notice = room.Notice
	existing.CoverURL = room.CoverURL
	existing.BackgroundURL = room.BackgroundURL
	existing.Status = room.Status
	existing.ClosedAt = room.ClosedAt
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memRooms) ListOpenPublic(ctx context.Context, kind domain.RoomKind, offset, limit int) ([]*domain.Room, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Room, 0)
	for _, room := range r.rooms {
		if room.Status != domain.RoomStatusOpen || room.IsPrivate {
			continue
		}
		if kind != "" && room.Kind != kind {
			continue
		}
		cp := *room
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].MemberCount != matched[j].MemberCount {
			return matched[i].MemberCount > matched[j].MemberCount
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*domain.Room{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

type memMemberships InMemoryStore

func (r *memMemberships) Join(ctx context.Context, m *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[m.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.MemberCount >= room.Capacity {
		return ErrRoomFull
	}

	members := r.memberships[m.RoomID]
	if members == nil {
		members = make(map[uuid.UUID]*domain.Membership)
		r.memberships[m.RoomID] = members
	}
	members[m.UserID] = cloneMembership(m)
	room.MemberCount++
	return nil
}

func (r *memMemberships) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.memberships[roomID]
	if _, ok := members[userID]; !ok {
		return ErrMembershipNotFound
	}
	delete(members, userID)
	if room, ok := r.rooms[roomID]; ok && room.MemberCount > 0 {
		room.MemberCount--
	}
	return nil
}

func (r *memMemberships) Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.memberships[roomID][userID]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	return cloneMembership(m), nil
}

func (r *memMemberships) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*domain.Membership, 0, len(r.memberships[roomID]))
	for _, m := range r.memberships[roomID] {
		members = append(members, cloneMembership(m))
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (r *memMemberships) CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.memberships[roomID])), nil
}

type memSeats InMemoryStore

func (r *memSeats) find(roomID uuid.UUID, seatIndex int) *domain.Seat {
	for _, seat := range r.seats[roomID] {
		if seat.SeatIndex == seatIndex {
			return seat
		}
	}
	return nil
}

func (r *memSeats) Get(ctx context.Context, roomID uuid.UUID, seatIndex int) (*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seat := r.find(roomID, seatIndex)
	if seat == nil {
		return nil, ErrSeatNotFound
	}
	cp := *seat
	return &cp, nil
}

func (r *memSeats) GetByOccupant(ctx context.Context, roomID, userID uuid.UUID) (*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, seat := range r.seats[roomID] {
		if seat.OccupantID == userID {
			cp := *seat
			return &cp, nil
		}
	}
	return nil, ErrSeatNotFound
}

func (r *memSeats) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seats := make([]*domain.Seat, 0, len(r.seats[roomID]))
	for _, seat := range r.seats[roomID] {
		cp := *seat
		seats = append(seats, &cp)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatIndex < seats[j].SeatIndex })
	return seats, nil
}

func (r *memSeats) Vacate(ctx context.Context, roomID uuid.UUID, seatIndex int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.find(roomID, seatIndex)
	if seat == nil {
		return ErrSeatNotFound
	}
	seat.OccupantID = uuid.Nil
	seat.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memSeats) SetMuted(ctx context.Context, roomID uuid.UUID, seatIndex int, muted bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.find(roomID, seatIndex)
	if seat == nil {
		return ErrSeatNotFound
	}
	seat.IsMuted = muted
	seat.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memSeats) SetLocked(ctx context.Context, roomID uuid.UUID, seatIndex int, locked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.find(roomID, seatIndex)
	if seat == nil {
		return ErrSeatNotFound
	}
	seat.IsLocked = locked
	seat.UpdatedAt = time.Now().UTC()
	return nil
}

type memRequests InMemoryStore

func (r *memRequests) Create(ctx context.Context, req *domain.MicRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequests) GetByID(ctx context.Context, id uuid.UUID) (*domain.MicRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRequests) ListPending(ctx context.Context, roomID uuid.UUID) ([]*domain.MicRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]*domain.MicRequest, 0)
	for _, req := range r.requests {
		if req.RoomID == roomID && req.Status == domain.MicRequestPending {
			cp := *req
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (r *memRequests) Resolve(ctx context.Context, id uuid.UUID, status domain.MicRequestStatus, handlerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Status != domain.MicRequestPending {
		return ErrRequestResolved
	}
	req.Status = status
	req.HandlerID = handlerID
	req.HandledAt = time.Now().UTC()
	return nil
}

func (r *memRequests) ApproveAndOccupy(ctx context.Context, req *domain.MicRequest, handlerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.ID]
	if !ok {
		return ErrRequestNotFound
	}
	if stored.Status != domain.MicRequestPending {
		return ErrRequestResolved
	}

	var seat *domain.Seat
	for _, s := range r.seats[req.RoomID] {
		if s.SeatIndex == req.SeatIndex {
			seat = s
			break
		}
	}
	if seat == nil || seat.OccupantID != uuid.Nil || seat.IsLocked {
		return ErrSeatTaken
	}

	// All checks passed; both writes happen or neither does.
	now := time.Now().UTC()
	seat.OccupantID = stored.UserID
	seat.UpdatedAt = now
	stored.Status = domain.MicRequestApproved
	stored.HandlerID = handlerID
	stored.HandledAt = now
	return nil
}

type memMessages InMemoryStore

func (r *memMessages) Create(ctx context.Context, msg *domain.RoomMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *msg
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], &cp)
	return nil
}

func (r *memMessages) ListByRoom(ctx context.Context, roomID uuid.UUID, offset, limit int) ([]*domain.RoomMessage, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.RoomMessage, 0, len(r.messages[roomID]))
	for _, msg := range r.messages[roomID] {
		if msg.Status == domain.MessageStatusActive {
			cp := *msg
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })

	total := int64(len(active))
	if offset >= len(active) {
		return []*domain.RoomMessage{}, total, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], total, nil
}

type memUsers InMemoryStore

func (r *memUsers) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if user.Phone != "" {
		if _, ok := r.phones[user.Phone]; ok {
			return ErrUserPhoneExists
		}
		r.phones[user.Phone] = user.ID
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *memUsers) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	existing.Name = user.Name
	existing.AvatarURL = user.AvatarURL
	existing.Bio = user.Bio
	existing.Status = user.Status
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneMembership(m *domain.Membership) *domain.Membership {
	cp := *m
	return &cp
}
