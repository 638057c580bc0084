// Package events broadcasts server events (session lifecycle, transfers) to
// admin websocket clients.
package events

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/shellbox-go/shellbox/types"
)

const (
	// progressEventRatePPS limits transfer_progress broadcasts; one event per
	// chunk would flood slow websocket clients during large transfers.
	progressEventRatePPS = 10
	progressEventBurst   = 20
)

// Hub holds WebSocket connections and broadcasts events to all clients.
type Hub struct {
	mu              sync.RWMutex
	conns           map[*websocket.Conn]struct{}
	progressLimiter *rate.Limiter
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		conns:           make(map[*websocket.Conn]struct{}),
		progressLimiter: rate.NewLimiter(rate.Limit(progressEventRatePPS), progressEventBurst),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends the event as JSON to all registered connections.
// transfer_progress events beyond the rate limit are dropped.
func (h *Hub) Broadcast(ev *types.Event) {
	if ev == nil {
		return
	}
	if ev.Type == types.EventTransferProgress && !h.progressLimiter.Allow() {
		return
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the admin API is already restricted to loopback
	},
}

// Attach upgrades the request to a websocket, registers it with the hub and
// blocks reading until the client goes away.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	h.Register(conn)
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

var defaultHub = NewHub()

// Default returns the process-wide hub used by the servers and the admin API.
func Default() *Hub {
	return defaultHub
}

// Publish broadcasts ev on the default hub.
func Publish(ev *types.Event) {
	defaultHub.Broadcast(ev)
}
