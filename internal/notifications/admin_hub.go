package notifications

import (
	"context"
	"errors"
	"sync"

	"classifieds/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Max connections per admin
	maxConnsPerUser = 5
	// Max total admin connections
	maxTotalConns = 500
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrHubShutDown     = errors.New("hub is shut down")
)

// AdminHub fans admin events out to every connected moderator dashboard.
type AdminHub struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewAdminHub creates an empty hub.
func NewAdminHub() *AdminHub {
	return &AdminHub{
		conns: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *AdminHub) Name() string { return "admin hub" }

// Register a connection for an admin. Returns the Client or an error if
// limits are exceeded.
func (h *AdminHub) Register(userID uuid.UUID, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutDown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.AdminWebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes the client and closes its send channel. Safe to
// call more than once.
func (h *AdminHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.totalConns--
	observability.AdminWebSocketConnections.Dec()
	close(client.Send)
}

// Count returns the number of open connections.
func (h *AdminHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// BroadcastAll sends message to every connected admin.
func (h *AdminHub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// StartWiring forwards every event published on the admin Redis channel to
// this hub's clients.
func (h *AdminHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartAdminSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every client's send channel with a going-away close
// frame. Each client's write loop sends the frame and closes its socket, so
// the connection keeps a single writer.
func (h *AdminHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, userConns := range h.conns {
		for client := range userConns {
			client.closeFrame = goingAway
			close(client.Send)
			observability.AdminWebSocketConnections.Dec()
		}
	}
	h.conns = make(map[uuid.UUID]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
