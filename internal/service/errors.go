package service

import "errors"

// Operation errors surfaced to callers. Controllers map these to HTTP
// statuses and machine-readable kinds; none of them are retryable.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrRequestNotFound = errors.New("mic request not found")

	ErrPermissionDenied = errors.New("permission denied")

	ErrRoomFull        = errors.New("room is full")
	ErrSeatOccupied    = errors.New("seat is occupied")
	ErrSeatLocked      = errors.New("seat is locked")
	ErrSeatUnavailable = errors.New("seat no longer available")

	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPassword = errors.New("invalid room password")

	ErrHostCannotLeave          = errors.New("host cannot leave; close the room instead")
	ErrHostCannotVacateMainSeat = errors.New("host cannot vacate the main seat")
	ErrNotOnSeat                = errors.New("user is not on a seat")
)
