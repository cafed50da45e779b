package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/api/http/converter"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/service"
)

type RoomController struct {
	rooms service.RoomInteractor
	seats service.SeatInteractor
}

func NewRoomController(rooms service.RoomInteractor, seats service.SeatInteractor) *RoomController {
	return &RoomController{rooms: rooms, seats: seats}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type request struct {
		Name      string `json:"name" binding:"required"`
		Kind      string `json:"kind" binding:"required"`
		IsPrivate bool   `json:"is_private"`
		Password  string `json:"password"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "invalid request body")
		return
	}
	kind, err := domain.ParseRoomKind(req.Kind)
	if err != nil {
		respondBadRequest(ctx, "kind must be group or private")
		return
	}
	hostID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	room, err := c.rooms.CreateRoom(ctx.Request.Context(), hostID, req.Name, kind, req.IsPrivate, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	// No kind query means no filter; the listing spans all kinds.
	kind := domain.RoomKind(ctx.Query("kind"))
	if kind != "" {
		if _, err := domain.ParseRoomKind(string(kind)); err != nil {
			respondBadRequest(ctx, "kind must be group or private")
			return
		}
	}
	page, pageSize := pagination(ctx)

	result, err := c.rooms.ListRooms(ctx.Request.Context(), kind, page, pageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}

	items := make([]gin.H, 0, len(result.Rooms))
	for _, room := range result.Rooms {
		item := gin.H{"room": converter.RoomToApi(room)}
		if host, ok := result.Hosts[room.HostID]; ok {
			item["host"] = host
		}
		items = append(items, item)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"rooms":     items,
		"total":     result.Total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (c *RoomController) GetRoomDetail(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	detail, err := c.rooms.GetRoomDetail(ctx.Request.Context(), roomID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.RoomDetailToApi(detail))
}

func (c *RoomController) GetRoomByCode(ctx *gin.Context) {
	room, err := c.rooms.GetRoomByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) JoinRoom(ctx *gin.Context) {
	type request struct {
		Password string `json:"password"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	var req request
	_ = ctx.ShouldBindJSON(&req) // body is optional for public rooms
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	room, err := c.rooms.JoinRoom(ctx.Request.Context(), roomID, userID, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) LeaveRoom(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	if err := c.rooms.LeaveRoom(ctx.Request.Context(), roomID, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *RoomController) CloseRoom(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	if err := c.rooms.CloseRoom(ctx.Request.Context(), roomID, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (c *RoomController) UpdateRoom(ctx *gin.Context) {
	type request struct {
		Name          *string `json:"name"`
		Notice        *string `json:"notice"`
		BackgroundURL *string `json:"background_url"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "invalid request body")
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	room, err := c.rooms.UpdateRoom(ctx.Request.Context(), roomID, userID, service.RoomUpdate{
		Name:          req.Name,
		Notice:        req.Notice,
		BackgroundURL: req.BackgroundURL,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) RequestSeat(ctx *gin.Context) {
	type request struct {
		SeatIndex *int `json:"seat_index" binding:"required"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "seat_index is required")
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	mic, err := c.seats.RequestSeat(ctx.Request.Context(), roomID, userID, *req.SeatIndex)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"request": converter.MicRequestToApi(mic)})
}

func (c *RoomController) ApproveRequest(ctx *gin.Context) {
	c.resolveRequest(ctx, c.seats.ApproveRequest)
}

func (c *RoomController) RejectRequest(ctx *gin.Context) {
	c.resolveRequest(ctx, c.seats.RejectRequest)
}

func (c *RoomController) resolveRequest(
	ctx *gin.Context,
	resolve func(ctx context.Context, roomID, requestID, actorID uuid.UUID) (*domain.MicRequest, error),
) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(ctx.Param("requestID"))
	if err != nil {
		respondBadRequest(ctx, "invalid request id")
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	mic, err := resolve(ctx.Request.Context(), roomID, requestID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"request": converter.MicRequestToApi(mic)})
}

func (c *RoomController) ListPendingRequests(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	pending, err := c.seats.ListPendingRequests(ctx.Request.Context(), roomID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	items := make([]*converter.MicRequestResponse, 0, len(pending))
	for _, mic := range pending {
		items = append(items, converter.MicRequestToApi(mic))
	}
	ctx.JSON(http.StatusOK, gin.H{"requests": items})
}

func (c *RoomController) LeaveSeat(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	seat, err := c.seats.LeaveSeat(ctx.Request.Context(), roomID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"seat_index": seat.SeatIndex, "status": "vacated"})
}

func (c *RoomController) ToggleMute(ctx *gin.Context) {
	roomID, seatIndex, ok := seatParams(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	muted, err := c.seats.ToggleMute(ctx.Request.Context(), roomID, seatIndex, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"seat_index": seatIndex, "is_muted": muted})
}

func (c *RoomController) LockSeat(ctx *gin.Context) {
	c.setSeatLock(ctx, true)
}

func (c *RoomController) UnlockSeat(ctx *gin.Context) {
	c.setSeatLock(ctx, false)
}

func (c *RoomController) setSeatLock(ctx *gin.Context, locked bool) {
	roomID, seatIndex, ok := seatParams(ctx)
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		respondUnauthenticated(ctx, "missing identity")
		return
	}

	var err error
	if locked {
		err = c.seats.LockSeat(ctx.Request.Context(), roomID, seatIndex, userID)
	} else {
		err = c.seats.UnlockSeat(ctx.Request.Context(), roomID, seatIndex, userID)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"seat_index": seatIndex, "is_locked": locked})
}

func (c *RoomController) ListMessages(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	page, pageSize := pagination(ctx)

	result, err := c.rooms.ListMessages(ctx.Request.Context(), roomID, page, pageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}
	items := make([]*converter.MessageResponse, 0, len(result.Messages))
	for _, msg := range result.Messages {
		items = append(items, converter.MessageToApi(msg, result.Senders))
	}
	ctx.JSON(http.StatusOK, gin.H{
		"messages":  items,
		"total":     result.Total,
		"page":      page,
		"page_size": pageSize,
	})
}

func roomIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		respondBadRequest(ctx, "invalid room id")
		return uuid.Nil, false
	}
	return roomID, true
}

func seatParams(ctx *gin.Context) (uuid.UUID, int, bool) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return uuid.Nil, 0, false
	}
	seatIndex, err := strconv.Atoi(ctx.Param("seatIndex"))
	if err != nil || seatIndex < 0 {
		respondBadRequest(ctx, "invalid seat index")
		return uuid.Nil, 0, false
	}
	return roomID, seatIndex, true
}

func pagination(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
