package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/repository"
)

// SeatService enforces the seat occupancy state machine for a room:
// Empty -> (request + approve) -> Occupied -> (leave) -> Empty, with the
// lock flag gating new requests independently of occupancy.
type SeatService struct {
	rooms    repository.RoomRepository
	seats    repository.SeatRepository
	requests repository.MicRequestRepository
	locks    *RoomLocks
	log      *slog.Logger
}

func NewSeatService(
	rooms repository.RoomRepository,
	seats repository.SeatRepository,
	requests repository.MicRequestRepository,
	locks *RoomLocks,
	log *slog.Logger,
) *SeatService {
	if log == nil {
		log = slog.Default()
	}
	return &SeatService{
		rooms:    rooms,
		seats:    seats,
		requests: requests,
		locks:    locks,
		log:      log,
	}
}

// RequestSeat records a pending mic request. The seat itself is untouched;
// its availability is judged again at approval time.
func (s *SeatService) RequestSeat(ctx context.Context, roomID, userID uuid.UUID, seatIndex int) (*domain.MicRequest, error) {
	const op = "service.seat.request"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()), slog.Int("seat", seatIndex))

	if _, err := s.openRoom(ctx, roomID); err != nil {
		return nil, err
	}

	seat, err := s.getSeat(ctx, roomID, seatIndex)
	if err != nil {
		return nil, err
	}
	if seat.Occupied() {
		return nil, ErrSeatOccupied
	}
	if seat.IsLocked {
		return nil, ErrSeatLocked
	}

	req := domain.NewMicRequest(roomID, userID, seatIndex)
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	log.Info("mic request created", slog.String("request_id", req.ID.String()))
	return req, nil
}

// ApproveRequest resolves a pending request. The seat's state at approval
// time governs the outcome: if it was taken or locked since the request was
// filed, the request is rejected and the caller gets ErrSeatUnavailable.
func (s *SeatService) ApproveRequest(ctx context.Context, roomID, requestID, actorID uuid.UUID) (*domain.MicRequest, error) {
	const op = "service.seat.approve"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()), slog.String("request_id", requestID.String()))

	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actorID) {
		return nil, ErrPermissionDenied
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	req, err := s.pendingRequest(ctx, roomID, requestID)
	if err != nil {
		return nil, err
	}

	// Occupy and resolve commit together; a store failure writes neither,
	// so a retried approval still finds the request pending.
	if err := s.requests.ApproveAndOccupy(ctx, req, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatTaken), errors.Is(err, repository.ErrSeatNotFound):
			if rerr := s.requests.Resolve(ctx, req.ID, domain.MicRequestRejected, actorID); rerr != nil {
				return nil, rerr
			}
			log.Info("mic request rejected, seat unavailable")
			return nil, ErrSeatUnavailable
		case errors.Is(err, repository.ErrRequestResolved), errors.Is(err, repository.ErrRequestNotFound):
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	req.Status = domain.MicRequestApproved
	req.HandlerID = actorID
	log.Info("mic request approved", slog.Int("seat", req.SeatIndex))
	return req, nil
}

func (s *SeatService) RejectRequest(ctx context.Context, roomID, requestID, actorID uuid.UUID) (*domain.MicRequest, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actorID) {
		return nil, ErrPermissionDenied
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	req, err := s.pendingRequest(ctx, roomID, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Resolve(ctx, req.ID, domain.MicRequestRejected, actorID); err != nil {
		return nil, err
	}

	req.Status = domain.MicRequestRejected
	req.HandlerID = actorID
	return req, nil
}

func (s *SeatService) LeaveSeat(ctx context.Context, roomID, userID uuid.UUID) (*domain.Seat, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	seat, err := s.seats.GetByOccupant(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrNotOnSeat
		}
		return nil, err
	}
	if room.IsHost(userID) && seat.SeatIndex == 0 {
		return nil, ErrHostCannotVacateMainSeat
	}

	if err := s.seats.Vacate(ctx, roomID, seat.SeatIndex); err != nil {
		return nil, err
	}
	seat.OccupantID = uuid.Nil
	return seat, nil
}

// ToggleMute flips the seat's muted flag and reports the new value. It is
// deliberately a toggle, not a set-to-value operation.
func (s *SeatService) ToggleMute(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) (bool, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return false, err
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	seat, err := s.getSeat(ctx, roomID, seatIndex)
	if err != nil {
		return false, err
	}
	if !canModerateSeat(room, seat, actorID) {
		return false, ErrPermissionDenied
	}

	muted := !seat.IsMuted
	if err := s.seats.SetMuted(ctx, roomID, seatIndex, muted); err != nil {
		return false, err
	}
	return muted, nil
}

// LockSeat prevents new requests for the seat. A current occupant is not
// evicted and pending requests are left to fail at approval time.
func (s *SeatService) LockSeat(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) error {
	return s.setLock(ctx, roomID, seatIndex, actorID, true)
}

func (s *SeatService) UnlockSeat(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID) error {
	return s.setLock(ctx, roomID, seatIndex, actorID, false)
}

func (s *SeatService) setLock(ctx context.Context, roomID uuid.UUID, seatIndex int, actorID uuid.UUID, locked bool) error {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsHost(actorID) {
		return ErrPermissionDenied
	}

	mu := s.locks.Of(roomID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.getSeat(ctx, roomID, seatIndex); err != nil {
		return err
	}
	return s.seats.SetLocked(ctx, roomID, seatIndex, locked)
}

func (s *SeatService) ListPendingRequests(ctx context.Context, roomID, actorID uuid.UUID) ([]*domain.MicRequest, error) {
	room, err := s.openRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actorID) {
		return nil, ErrPermissionDenied
	}
	return s.requests.ListPending(ctx, roomID)
}

// canModerateSeat is the capability check shared by the seat moderation
// operations: the host may act on any seat, an occupant on their own.
func canModerateSeat(room *domain.Room, seat *domain.Seat, actorID uuid.UUID) bool {
	return room.IsHost(actorID) || seat.OccupantID == actorID
}

func (s *SeatService) openRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
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

func (s *SeatService) getSeat(ctx context.Context, roomID uuid.UUID, seatIndex int) (*domain.Seat, error) {
	seat, err := s.seats.Get(ctx, roomID, seatIndex)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return seat, nil
}

func (s *SeatService) pendingRequest(ctx context.Context, roomID, requestID uuid.UUID) (*domain.MicRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.RoomID != roomID || req.Status != domain.MicRequestPending {
		return nil, ErrRequestNotFound
	}
	return req, nil
}
