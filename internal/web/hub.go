package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Hub pushes dashboard snapshots to websocket clients on a short fixed
// interval. It only reads derived state; it never mutates trading data.
type Hub struct {
	state     *DashboardState
	positions func() []domain.Position
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(state *DashboardState, positions func() []domain.Position, logger *zap.Logger) *Hub {
	return &Hub{
		state:     state,
		positions: positions,
		logger:    logger,
		clients:   make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("Dashboard client connected")
}

// Run broadcasts a snapshot every interval until ctx is cancelled, then
// closes all client connections.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.broadcast()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) broadcast() {
	payload, err := json.Marshal(h.state.Snapshot(h.positions()))
	if err != nil {
		h.logger.Error("Failed to marshal dashboard snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
