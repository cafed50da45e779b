package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soniva/soniva/internal/auth"
	"github.com/soniva/soniva/internal/domain"
	"github.com/soniva/soniva/internal/realtime"
	"github.com/soniva/soniva/internal/repository"
	"github.com/soniva/soniva/internal/service"
)

type gatewayEnv struct {
	srv    *httptest.Server
	store  *repository.InMemoryStore
	rooms  *service.RoomService
	tokens *auth.TokenManager
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewInMemoryStore()
	locks := service.NewRoomLocks()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	rooms := service.NewRoomService(store.Rooms(), store.Memberships(), store.Seats(), store.Messages(), store.Users(), locks, nil, nil, log)
	seats := service.NewSeatService(store.Rooms(), store.Seats(), store.MicRequests(), locks, log)
	users := service.NewUserService(store.Users(), log)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	registry := realtime.NewRegistry(log)

	router := SetupRouter(
		NewRoomController(rooms, seats),
		NewUserController(users, tokens),
		NewRoomGateway(rooms, users, tokens, registry, log),
		tokens,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &gatewayEnv{srv: srv, store: store, rooms: rooms, tokens: tokens}
}

func (e *gatewayEnv) user(t *testing.T, name string) *domain.User {
	t.Helper()
	user := domain.NewUser(name, "", "")
	if err := e.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *gatewayEnv) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := e.tokens.NewAccessToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *gatewayEnv) dial(t *testing.T, roomID, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/rooms/" + roomID + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev domain.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func expectCloseCode(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected close error, got %v", err)
	}
	if ce.Code != code {
		t.Fatalf("close code = %d, want %d", ce.Code, code)
	}
}

func TestGatewayHandshakeRejections(t *testing.T) {
	env := newGatewayEnv(t)
	ctx := context.Background()

	host := env.user(t, "host")
	room, err := env.rooms.CreateRoom(ctx, host.ID, "room", domain.RoomKindGroup, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	roomID := room.ID.String()

	// Missing credential.
	expectCloseCode(t, env.dial(t, roomID, ""), 4001)

	// Garbage credential.
	expectCloseCode(t, env.dial(t, roomID, "?token=not-a-jwt"), 4002)

	// Valid token for a user that does not exist.
	ghost := env.token(t, uuid.New())
	expectCloseCode(t, env.dial(t, roomID, "?token="+ghost), 4003)

	// Unknown room.
	token := env.token(t, host.ID)
	expectCloseCode(t, env.dial(t, uuid.NewString(), "?token="+token), 4004)

	// Closed room behaves like a missing one.
	if err := env.rooms.CloseRoom(ctx, room.ID, host.ID); err != nil {
		t.Fatalf("close room: %v", err)
	}
	expectCloseCode(t, env.dial(t, roomID, "?token="+token), 4004)
}

func TestGatewayMessageOrdering(t *testing.T) {
	env := newGatewayEnv(t)
	ctx := context.Background()

	host := env.user(t, "host")
	member := env.user(t, "member")
	room, err := env.rooms.CreateRoom(ctx, host.ID, "room", domain.RoomKindGroup, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := env.rooms.JoinRoom(ctx, room.ID, member.ID, ""); err != nil {
		t.Fatalf("join room: %v", err)
	}
	roomID := room.ID.String()

	hostConn := env.dial(t, roomID, "?token="+env.token(t, host.ID))
	if ev := readEvent(t, hostConn); ev.Type != domain.EventUserJoined {
		t.Fatalf("host self-join event = %+v", ev)
	}
	memberConn := env.dial(t, roomID, "?token="+env.token(t, member.ID))
	if ev := readEvent(t, memberConn); ev.Type != domain.EventUserJoined {
		t.Fatalf("member self-join event = %+v", ev)
	}
	if ev := readEvent(t, hostConn); ev.Type != domain.EventUserJoined {
		t.Fatalf("host view of member join = %+v", ev)
	}

	// One sender, many messages: every observer sees them in send order.
	const n = 10
	for i := 0; i < n; i++ {
		if err := memberConn.WriteJSON(map[string]string{"type": "message", "content": fmt.Sprintf("msg-%d", i)}); err != nil {
			t.Fatalf("send message %d: %v", i, err)
		}
	}
	for _, conn := range []*websocket.Conn{hostConn, memberConn} {
		for i := 0; i < n; i++ {
			ev := readEvent(t, conn)
			if ev.Type != domain.EventMessage {
				t.Fatalf("event %d type = %s, want message", i, ev.Type)
			}
			if want := fmt.Sprintf("msg-%d", i); ev.Content != want {
				t.Fatalf("event %d content = %q, want %q", i, ev.Content, want)
			}
		}
	}
}

func TestGatewayChatFlow(t *testing.T) {
	env := newGatewayEnv(t)
	ctx := context.Background()

	host := env.user(t, "host")
	member := env.user(t, "member")
	room, err := env.rooms.CreateRoom(ctx, host.ID, "room", domain.RoomKindGroup, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := env.rooms.JoinRoom(ctx, room.ID, member.ID, ""); err != nil {
		t.Fatalf("join room: %v", err)
	}
	roomID := room.ID.String()

	hostConn := env.dial(t, roomID, "?token="+env.token(t, host.ID))
	if ev := readEvent(t, hostConn); ev.Type != domain.EventUserJoined || ev.User == nil || ev.User.UserID != host.ID {
		t.Fatalf("host self-join event = %+v", ev)
	}

	memberConn := env.dial(t, roomID, "?token="+env.token(t, member.ID))
	if ev := readEvent(t, memberConn); ev.Type != domain.EventUserJoined || ev.User == nil || ev.User.UserID != member.ID {
		t.Fatalf("member self-join event = %+v", ev)
	}
	if ev := readEvent(t, hostConn); ev.Type != domain.EventUserJoined || ev.User == nil || ev.User.UserID != member.ID {
		t.Fatalf("host view of member join = %+v", ev)
	}

	// Chat: both sides receive the message, and it is persisted.
	if err := memberConn.WriteJSON(map[string]string{"type": "message", "content": "hello"}); err != nil {
		t.Fatalf("send message: %v", err)
	}
	for _, conn := range []*websocket.Conn{hostConn, memberConn} {
		ev := readEvent(t, conn)
		if ev.Type != domain.EventMessage || ev.Content != "hello" {
			t.Fatalf("message event = %+v", ev)
		}
		if ev.User == nil || ev.User.UserID != member.ID {
			t.Fatalf("message sender = %+v", ev.User)
		}
		if ev.MessageID == "" || ev.Timestamp == "" {
			t.Fatal("message event missing id or timestamp")
		}
	}
	page, err := env.rooms.ListMessages(ctx, room.ID, 1, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if page.Total != 1 || page.Messages[0].Content != "hello" {
		t.Fatalf("persisted messages = %+v", page.Messages)
	}

	// Malformed frames and unknown types are dropped silently.
	if err := memberConn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("send garbage: %v", err)
	}
	if err := memberConn.WriteJSON(map[string]string{"type": "mystery"}); err != nil {
		t.Fatalf("send unknown type: %v", err)
	}

	// Ping is answered only on the asking connection.
	if err := memberConn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("send ping: %v", err)
	}
	if ev := readEvent(t, memberConn); ev.Type != domain.EventPong {
		t.Fatalf("ping reply = %+v", ev)
	}

	// Member disconnect notifies the rest of the room.
	_ = memberConn.Close()
	if ev := readEvent(t, hostConn); ev.Type != domain.EventUserLeft || ev.UserID != member.ID.String() {
		t.Fatalf("user left event = %+v", ev)
	}
}
