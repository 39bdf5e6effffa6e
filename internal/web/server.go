package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"github.com/vitos/crypto_momentum_bot/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router *http.ServeMux
	server *http.Server
	state  *DashboardState
	hub    *Hub
	engine *usecase.TradingEngine
	ledger *usecase.PortfolioLedger
	repo   domain.TradeRepository
	logger *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(
	port int,
	state *DashboardState,
	hub *Hub,
	engine *usecase.TradingEngine,
	ledger *usecase.PortfolioLedger,
	repo domain.TradeRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router: http.NewServeMux(),
		state:  state,
		hub:    hub,
		engine: engine,
		ledger: ledger,
		repo:   repo,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Full dashboard snapshot
	s.router.HandleFunc("GET /api/status", s.handleStatus)

	// Individual read models
	s.router.HandleFunc("GET /api/positions", s.handlePositions)
	s.router.HandleFunc("GET /api/trades", s.handleTrades)
	s.router.HandleFunc("GET /api/history", s.handleHistory)

	// Live push
	s.router.HandleFunc("GET /ws", s.handleWebsocket)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.state.Snapshot(s.engine.Positions()))
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Positions())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.ledger.SessionTrades())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	trades, err := s.repo.ListTrades(r.Context(), 500)
	if err != nil {
		s.logger.Error("Failed to list archived trades", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Register(conn)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
