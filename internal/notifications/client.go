package notifications

import (
	"log/slog"
	"time"

	"classifieds/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must stay below pongWait

	// Dashboards never send data frames, only control frames.
	maxMessageSize = 4096

	sendBuffer = 256
)

// messagesDropped tells a dashboard it missed events and should refetch.
var messagesDropped = []byte(`{"type":"MessagesDropped","payload":{"reason":"buffer_full"}}`)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one dashboard connection. The hub writes to Send; Serve moves
// those messages onto the socket.
type Client struct {
	Hub    WSHub
	Conn   *websocket.Conn // nil in tests
	Send   chan []byte
	UserID uuid.UUID

	// closeFrame is sent when Send is closed. It is written before the
	// close and read by the write loop after it.
	closeFrame []byte
}

func NewClient(hub WSHub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Serve runs the write loop in the background and blocks reading until the
// peer disconnects, then unregisters the client.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("admin socket closed unexpectedly",
					slog.String("hub", c.Hub.Name()),
					slog.String("user_id", c.UserID.String()),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				frame := c.closeFrame
				if frame == nil {
					frame = []byte{}
				}
				_ = c.Conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			payload = msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// TrySend queues message without blocking and reports whether it was queued.
// When the buffer is full the message is dropped and a MessagesDropped
// notice is queued if there is still room. Sending on a client the hub
// already closed is a counted drop, not a panic.
func (c *Client) TrySend(message []byte) (queued bool) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
			queued = false
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	slog.Warn("admin socket buffer full, dropping event",
		slog.String("hub", c.Hub.Name()),
		slog.String("user_id", c.UserID.String()))
	select {
	case c.Send <- messagesDropped:
	default:
	}
	return false
}
