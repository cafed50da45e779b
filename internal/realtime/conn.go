package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soniva/soniva/internal/domain"
)

const (
	writeWait       = 5 * time.Second
	sendBufferSize  = 16
	closeGracePause = 100 * time.Millisecond
)

var errConnClosed = errors.New("connection closed")

// Conn wraps a websocket and serializes outbound writes through a buffered
// channel drained by a single writer goroutine, so broadcasts from many
// goroutines never interleave frames. Events enqueued from one goroutine
// are delivered in enqueue order.
type Conn struct {
	ws   *websocket.Conn
	send chan domain.Event
	once sync.Once
	done chan struct{}
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan domain.Event, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Start launches the write loop. Call exactly once per connection.
func (c *Conn) Start() {
	go c.writeLoop()
}

// Send enqueues the event without blocking. A full buffer drops the event:
// one slow client must never stall a room's broadcast.
func (c *Conn) Send(event domain.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- event:
		return nil
	default:
		return errors.New("send buffer full, event dropped")
	}
}

// Close stops the write loop and closes the socket. Safe to call from any
// goroutine, any number of times.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// CloseWithCode sends a close frame with a protocol reason before closing;
// used for handshake-phase rejections so clients can tell them apart.
func (c *Conn) CloseWithCode(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		time.Sleep(closeGracePause)
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteJSON(event); err != nil {
				c.Close()
				return
			}
		}
	}
}
