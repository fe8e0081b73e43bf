package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the slice of *websocket.Conn the hub needs. Narrow so tests
// can substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub fans dashboard payloads out to connected clients.
type Hub struct {
	mu           sync.Mutex
	conns        map[Conn]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		conns:        make(map[Conn]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers a client connection.
func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Remove unregisters a client connection.
func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends one text payload to every client. Clients that fail
// the write are dropped and closed.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			if h.logger != nil {
				h.logger.Debug("dropping live feed client", zap.Error(err))
			}
			delete(h.conns, c)
			_ = c.Close()
		}
	}
}

// Run pings clients on an interval to keep connections alive, until
// ctx is cancelled. Clients that fail the ping are dropped.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			for c := range h.conns {
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					delete(h.conns, c)
					_ = c.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}
