package web

import (
	"sync"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

const (
	maxRecentSignals = 10
	maxRecentTrades  = 20
)

// DashboardState is the read model the web layer serves. It implements the
// engine's observer contract and only ever stores value copies; it never
// reaches back into trading state.
type DashboardState struct {
	mu        sync.Mutex
	portfolio domain.PortfolioSnapshot
	stats     domain.Stats
	heat      []domain.HeatEntry
	signals   []domain.Signal
	trades    []domain.TradeEvent
	updatedAt time.Time
}

func NewDashboardState() *DashboardState {
	return &DashboardState{}
}

func (s *DashboardState) OnSignal(sig domain.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	if len(s.signals) > maxRecentSignals {
		s.signals = s.signals[len(s.signals)-maxRecentSignals:]
	}
	s.updatedAt = time.Now().UTC()
}

func (s *DashboardState) OnTrade(event domain.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, event)
	if len(s.trades) > maxRecentTrades {
		s.trades = s.trades[len(s.trades)-maxRecentTrades:]
	}
	s.updatedAt = time.Now().UTC()
}

func (s *DashboardState) OnPortfolioUpdate(snapshot domain.PortfolioSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = snapshot
	s.updatedAt = time.Now().UTC()
}

func (s *DashboardState) OnStatsUpdate(stats domain.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	s.updatedAt = time.Now().UTC()
}

func (s *DashboardState) OnMarketHeat(heat []domain.HeatEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heat = append([]domain.HeatEntry(nil), heat...)
	s.updatedAt = time.Now().UTC()
}

// Snapshot is the JSON payload pushed to websocket clients and served over
// the REST endpoints.
type Snapshot struct {
	Portfolio domain.PortfolioSnapshot `json:"portfolio"`
	Stats     domain.Stats             `json:"stats"`
	Heat      []domain.HeatEntry       `json:"market_heat"`
	Signals   []domain.Signal          `json:"recent_signals"`
	Trades    []domain.TradeEvent      `json:"recent_trades"`
	Positions []domain.Position        `json:"positions"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func (s *DashboardState) Snapshot(positions []domain.Position) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Portfolio: s.portfolio,
		Stats:     s.stats,
		Heat:      append([]domain.HeatEntry(nil), s.heat...),
		Signals:   append([]domain.Signal(nil), s.signals...),
		Trades:    append([]domain.TradeEvent(nil), s.trades...),
		Positions: positions,
		UpdatedAt: s.updatedAt,
	}
}
