package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soniva/soniva/internal/auth"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/realtime"
	"github.com/soniva/soniva/internal/service"
	"github.com/soniva/soniva/lib/logger/sl"
)

// Application close codes sent during the gateway handshake, so clients
// can distinguish rejection causes without a separate HTTP round trip.
const (
	closeNoCredential      = 4001
	closeInvalidCredential = 4002
	closeUserNotFound      = 4003
	closeRoomNotFound      = 4004
)

type RoomGateway struct {
	rooms    service.RoomInteractor
	users    service.UserInteractor
	tokens   *auth.TokenManager
	registry *realtime.Registry
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewRoomGateway(
	rooms service.RoomInteractor,
	users service.UserInteractor,
	tokens *auth.TokenManager,
	registry *realtime.Registry,
	log *slog.Logger,
) *RoomGateway {
	return &RoomGateway{
		rooms:    rooms,
		users:    users,
		tokens:   tokens,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Serve upgrades the connection, validates the credential and room, and
// runs the read loop until the client goes away. Validation happens after
// the upgrade so every rejection reaches the client as a close frame with
// one of the application close codes.
func (g *RoomGateway) Serve(ctx *gin.Context) {
	ws, err := g.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}
	conn := realtime.NewConn(ws)

	token := ctx.Query("token")
	if token == "" {
		conn.CloseWithCode(closeNoCredential, "missing token")
		return
	}
	userID, err := g.tokens.Parse(token)
	if err != nil {
		conn.CloseWithCode(closeInvalidCredential, "invalid token")
		return
	}
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		conn.CloseWithCode(closeRoomNotFound, "room not found")
		return
	}

	// The socket outlives the HTTP request, so room operations run on a
	// background context rather than the request's.
	bg := context.Background()

	user, err := g.users.GetActiveUser(bg, userID)
	if err != nil {
		conn.CloseWithCode(closeUserNotFound, "user not found")
		return
	}
	room, err := g.rooms.GetRoom(bg, roomID)
	if err != nil {
		conn.CloseWithCode(closeRoomNotFound, "room not found")
		return
	}

	conn.Start()
	g.registry.Connect(room.ID, user.ID, conn)
	defer func() {
		g.registry.Disconnect(room.ID, user.ID, conn)
		g.registry.Broadcast(room.ID, domain.UserLeftEvent(user.ID, now()))
		conn.Close()
	}()

	g.log.Info("gateway connected",
		slog.String("room_id", room.ID.String()),
		slog.String("user_id", user.ID.String()),
	)
	g.registry.Broadcast(room.ID, domain.UserJoinedEvent(user, now()))

	g.readLoop(bg, ws, conn, room.ID, user)
}

// readLoop dispatches inbound frames. Malformed payloads and unknown
// event types are dropped without closing the connection.
func (g *RoomGateway) readLoop(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, roomID uuid.UUID, user *domain.User) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var in domain.InboundEvent
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}

		switch in.Type {
		case "message":
			msg, err := g.rooms.SendMessage(ctx, roomID, user.ID, in.Content)
			if err != nil {
				g.log.Debug("dropping inbound message",
					slog.String("room_id", roomID.String()),
					slog.String("user_id", user.ID.String()),
					sl.Err(err),
				)
				continue
			}
			// Broadcast only after the message is durably persisted.
			g.registry.Broadcast(roomID, domain.MessageEvent(msg, user))
		case "ping":
			_ = conn.Send(domain.PongEvent())
		default:
			// Unknown client event types are ignored.
		}
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
