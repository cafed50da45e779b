package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/repository/model"
	"gorm.io/gorm"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) CreateWithSetup(ctx context.Context, room *domain.Room, host *domain.Membership, seats []*domain.Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil || host == nil {
		return errors.New("room and host membership are required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toModelRoom(room)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRoomCodeExists
			}
			return err
		}
		if err := tx.Create(toModelMembership(host)).Error; err != nil {
			return err
		}
		seatModels := make([]model.Seat, 0, len(seats))
		for _, s := range seats {
			seatModels = append(seatModels, *toModelSeat(s))
		}
		if len(seatModels) > 0 {
			if err := tx.Create(&seatModels).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	updates := map[string]any{
		"name":           room.Name,
		"notice":         room.Notice,
		"background_url": room.BackgroundURL,
		"cover_url":      room.CoverURL,
		"status":         string(room.Status),
		"updated_at":     time.Now().UTC(),
	}
	if room.ClosedAt.IsZero() {
		updates["closed_at"] = gorm.Expr("NULL")
	} else {
		updates["closed_at"] = room.ClosedAt.UTC()
	}

	res := r.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", room.ID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) ListOpenPublic(ctx context.Context, kind domain.RoomKind, offset, limit int) ([]*domain.Room, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("status = ? AND is_private = ?", string(domain.RoomStatusOpen), false)
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []model.Room
	err := q.Order("member_count DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}
	return result, total, nil
}

type PostgresMembershipRepository struct {
	db *gorm.DB
}

func NewPostgresMembershipRepository(db *gorm.DB) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{db: db}
}

func (r *PostgresMembershipRepository) Join(ctx context.Context, m *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return errors.New("membership is nil")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Room{}).
			Where("id = ? AND member_count < capacity", m.RoomID).
			Update("member_count", gorm.Expr("member_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoomFull
		}
		return tx.Create(toModelMembership(m)).Error
	})
}

func (r *PostgresMembershipRepository) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&model.Membership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMembershipNotFound
		}
		return tx.Model(&model.Room{}).
			Where("id = ? AND member_count > 0", roomID).
			Update("member_count", gorm.Expr("member_count - 1")).Error
	})
}

func (r *PostgresMembershipRepository) Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m model.Membership
	err := r.db.WithContext(ctx).First(&m, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return toDomainMembership(&m), nil
}

func (r *PostgresMembershipRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var members []model.Membership
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("joined_at").Find(&members).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.Membership, 0, len(members))
	for i := range members {
		result = append(result, toDomainMembership(&members[i]))
	}
	return result, nil
}

func (r *PostgresMembershipRepository) CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Membership{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

type PostgresSeatRepository struct {
	db *gorm.DB
}

func NewPostgresSeatRepository(db *gorm.DB) *PostgresSeatRepository {
	return &PostgresSeatRepository{db: db}
}

func (r *PostgresSeatRepository) Get(ctx context.Context, roomID uuid.UUID, seatIndex int) (*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var seat model.Seat
	err := r.db.WithContext(ctx).First(&seat, "room_id = ? AND seat_index = ?", roomID, seatIndex).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return toDomainSeat(&seat), nil
}

func (r *PostgresSeatRepository) GetByOccupant(ctx context.Context, roomID, userID uuid.UUID) (*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var seat model.Seat
	err := r.db.WithContext(ctx).First(&seat, "room_id = ? AND occupant_id = ?", roomID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return toDomainSeat(&seat), nil
}

func (r *PostgresSeatRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var seats []model.Seat
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("seat_index").Find(&seats).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.Seat, 0, len(seats))
	for i := range seats {
		result = append(result, toDomainSeat(&seats[i]))
	}
	return result, nil
}

func (r *PostgresSeatRepository) Vacate(ctx context.Context, roomID uuid.UUID, seatIndex int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.Seat{}).
		Where("room_id = ? AND seat_index = ?", roomID, seatIndex).
		Updates(map[string]any{"occupant_id": gorm.Expr("NULL"), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSeatNotFound
	}
	return nil
}

func (r *PostgresSeatRepository) SetMuted(ctx context.Context, roomID uuid.UUID, seatIndex int, muted bool) error {
	return r.setFlag(ctx, roomID, seatIndex, "is_muted", muted)
}

func (r *PostgresSeatRepository) SetLocked(ctx context.Context, roomID uuid.UUID, seatIndex int, locked bool) error {
	return r.setFlag(ctx, roomID, seatIndex, "is_locked", locked)
}

func (r *PostgresSeatRepository) setFlag(ctx context.Context, roomID uuid.UUID, seatIndex int, column string, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.Seat{}).
		Where("room_id = ? AND seat_index = ?", roomID, seatIndex).
		Updates(map[string]any{column: value, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSeatNotFound
	}
	return nil
}

type PostgresMicRequestRepository struct {
	db *gorm.DB
}

func NewPostgresMicRequestRepository(db *gorm.DB) *PostgresMicRequestRepository {
	return &PostgresMicRequestRepository{db: db}
}

func (r *PostgresMicRequestRepository) Create(ctx context.Context, req *domain.MicRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req == nil {
		return errors.New("mic request is nil")
	}
	return r.db.WithContext(ctx).Create(toModelMicRequest(req)).Error
}

func (r *PostgresMicRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MicRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var req model.MicRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return toDomainMicRequest(&req), nil
}

func (r *PostgresMicRequestRepository) ListPending(ctx context.Context, roomID uuid.UUID) ([]*domain.MicRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reqs []model.MicRequest
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, string(domain.MicRequestPending)).
		Order("created_at").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	result := make([]*domain.MicRequest, 0, len(reqs))
	for i := range reqs {
		result = append(result, toDomainMicRequest(&reqs[i]))
	}
	return result, nil
}

func (r *PostgresMicRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status domain.MicRequestStatus, handlerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.MicRequest{}).
		Where("id = ? AND status = ?", id, string(domain.MicRequestPending)).
		Updates(map[string]any{
			"status":     string(status),
			"handler_id": handlerID,
			"handled_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestResolved
	}
	return nil
}

func (r *PostgresMicRequestRepository) ApproveAndOccupy(ctx context.Context, req *domain.MicRequest, handlerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req == nil {
		return errors.New("mic request is nil")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Seat{}).
			Where("room_id = ? AND seat_index = ? AND occupant_id IS NULL AND is_locked = ?", req.RoomID, req.SeatIndex, false).
			Updates(map[string]any{"occupant_id": req.UserID, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSeatTaken
		}

		res = tx.Model(&model.MicRequest{}).
			Where("id = ? AND status = ?", req.ID, string(domain.MicRequestPending)).
			Updates(map[string]any{
				"status":     string(domain.MicRequestApproved),
				"handler_id": handlerID,
				"handled_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequestResolved
		}
		return nil
	})
}

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *domain.RoomMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}
	return r.db.WithContext(ctx).Create(toModelMessage(msg)).Error
}

func (r *PostgresMessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, offset, limit int) ([]*domain.RoomMessage, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Model(&model.RoomMessage{}).
		Where("room_id = ? AND status = ?", roomID, string(domain.MessageStatusActive))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []model.RoomMessage
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&msgs).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*domain.RoomMessage, 0, len(msgs))
	for i := range msgs {
		result = append(result, toDomainMessage(&msgs[i]))
	}
	return result, total, nil
}

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelUser(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserPhoneExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"name":       user.Name,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"status":     string(user.Status),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func toModelRoom(room *domain.Room) *model.Room {
	var closedAt *time.Time
	if !room.ClosedAt.IsZero() {
		t := room.ClosedAt.UTC()
		closedAt = &t
	}
	return &model.Room{
		ID:            room.ID,
		HostID:        room.HostID,
		Name:          room.Name,
		Notice:        room.Notice,
		Code:          room.Code,
		Kind:          string(room.Kind),
		CoverURL:      room.CoverURL,
		BackgroundURL: room.BackgroundURL,
		IsPrivate:     room.IsPrivate,
		PasswordHash:  room.PasswordHash,
		Capacity:      room.Capacity,
		MemberCount:   room.MemberCount,
		Status:        string(room.Status),
		CreatedAt:     room.CreatedAt.UTC(),
		UpdatedAt:     room.UpdatedAt.UTC(),
		ClosedAt:      closedAt,
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	var closedAt time.Time
	if room.ClosedAt != nil {
		closedAt = room.ClosedAt.UTC()
	}
	return &domain.Room{
		ID:            room.ID,
		HostID:        room.HostID,
		Name:          room.Name,
		Notice:        room.Notice,
		Code:          room.Code,
		Kind:          domain.RoomKind(room.Kind),
		CoverURL:      room.CoverURL,
		BackgroundURL: room.BackgroundURL,
		IsPrivate:     room.IsPrivate,
		PasswordHash:  room.PasswordHash,
		Capacity:      room.Capacity,
		MemberCount:   room.MemberCount,
		Status:        domain.RoomStatus(room.Status),
		CreatedAt:     room.CreatedAt.UTC(),
		UpdatedAt:     room.UpdatedAt.UTC(),
		ClosedAt:      closedAt,
	}
}

func toModelSeat(seat *domain.Seat) *model.Seat {
	var occupant *uuid.UUID
	if seat.OccupantID != uuid.Nil {
		id := seat.OccupantID
		occupant = &id
	}
	return &model.Seat{
		RoomID:     seat.RoomID,
		SeatIndex:  seat.SeatIndex,
		OccupantID: occupant,
		IsMuted:    seat.IsMuted,
		IsLocked:   seat.IsLocked,
		UpdatedAt:  seat.UpdatedAt.UTC(),
	}
}

func toDomainSeat(seat *model.Seat) *domain.Seat {
	occupant := uuid.Nil
	if seat.OccupantID != nil {
		occupant = *seat.OccupantID
	}
	return &domain.Seat{
		RoomID:     seat.RoomID,
		SeatIndex:  seat.SeatIndex,
		OccupantID: occupant,
		IsMuted:    seat.IsMuted,
		IsLocked:   seat.IsLocked,
		UpdatedAt:  seat.UpdatedAt.UTC(),
	}
}

func toModelMembership(m *domain.Membership) *model.Membership {
	return &model.Membership{
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt.UTC(),
	}
}

func toDomainMembership(m *model.Membership) *domain.Membership {
	return &domain.Membership{
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Role:     domain.MemberRole(m.Role),
		JoinedAt: m.JoinedAt.UTC(),
	}
}

func toModelMicRequest(req *domain.MicRequest) *model.MicRequest {
	var handler *uuid.UUID
	if req.HandlerID != uuid.Nil {
		id := req.HandlerID
		handler = &id
	}
	var handledAt *time.Time
	if !req.HandledAt.IsZero() {
		t := req.HandledAt.UTC()
		handledAt = &t
	}
	return &model.MicRequest{
		ID:        req.ID,
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		SeatIndex: req.SeatIndex,
		Status:    string(req.Status),
		HandlerID: handler,
		HandledAt: handledAt,
		CreatedAt: req.CreatedAt.UTC(),
	}
}

func toDomainMicRequest(req *model.MicRequest) *domain.MicRequest {
	handler := uuid.Nil
	if req.HandlerID != nil {
		handler = *req.HandlerID
	}
	var handledAt time.Time
	if req.HandledAt != nil {
		handledAt = req.HandledAt.UTC()
	}
	return &domain.MicRequest{
		ID:        req.ID,
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		SeatIndex: req.SeatIndex,
		Status:    domain.MicRequestStatus(req.Status),
		HandlerID: handler,
		HandledAt: handledAt,
		CreatedAt: req.CreatedAt.UTC(),
	}
}

func toModelMessage(msg *domain.RoomMessage) *model.RoomMessage {
	return &model.RoomMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Type:      string(msg.Type),
		Content:   msg.Content,
		Status:    string(msg.Status),
		CreatedAt: msg.CreatedAt.UTC(),
	}
}

func toDomainMessage(msg *model.RoomMessage) *domain.RoomMessage {
	return &domain.RoomMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Type:      domain.MessageType(msg.Type),
		Content:   msg.Content,
		Status:    domain.MessageStatus(msg.Status),
		CreatedAt: msg.CreatedAt.UTC(),
	}
}

func toModelUser(user *domain.User) *model.User {
	var phone *string
	if user.Phone != "" {
		p := user.Phone
		phone = &p
	}
	return &model.User{
		ID:           user.ID,
		Phone:        phone,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		Bio:          user.Bio,
		Status:       string(user.Status),
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}

func toDomainUser(user *model.User) *domain.User {
	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	return &domain.User{
		ID:           user.ID,
		Phone:        phone,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		Bio:          user.Bio,
		Status:       domain.UserStatus(user.Status),
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}
