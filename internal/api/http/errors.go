package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soniva/soniva/internal/service"
)

// errorKind is the machine-readable discriminator in error responses.
// Clients branch on kind; message is for humans and may change.
var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{service.ErrRoomNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUserNotFound, http.StatusNotFound, "not_found"},
	{service.ErrSeatNotFound, http.StatusNotFound, "not_found"},
	{service.ErrRequestNotFound, http.StatusNotFound, "not_found"},

	{service.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{service.ErrInvalidPassword, http.StatusForbidden, "invalid_password"},

	{service.ErrRoomFull, http.StatusConflict, "room_full"},
	{service.ErrSeatOccupied, http.StatusConflict, "seat_occupied"},
	{service.ErrSeatLocked, http.StatusConflict, "seat_locked"},
	{service.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},

	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrHostCannotLeave, http.StatusBadRequest, "host_cannot_leave"},
	{service.ErrHostCannotVacateMainSeat, http.StatusBadRequest, "host_cannot_leave_seat"},
	{service.ErrNotOnSeat, http.StatusBadRequest, "not_on_seat"},
}

// respondError translates a service error into the uniform error envelope.
// Unrecognized errors become opaque 500s so internals never leak.
func respondError(ctx *gin.Context, err error) {
	for _, m := range errorKinds {
		if errors.Is(err, m.err) {
			ctx.JSON(m.status, gin.H{"error": gin.H{"kind": m.kind, "message": m.err.Error()}})
			return
		}
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"kind": "internal", "message": "internal error"}})
}

func respondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "invalid_input", "message": message}})
}

func respondUnauthenticated(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthenticated", "message": message}})
}
