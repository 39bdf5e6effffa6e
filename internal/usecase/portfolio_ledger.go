package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

type openEntry struct {
	price float64
	qty   float64
	time  time.Time
}

// PortfolioLedger records entries and realized results. The session list
// covers trades since process start; the lifetime list is seeded from the
// trade archive and grows alongside it. Both are append-only.
type PortfolioLedger struct {
	mu       sync.Mutex
	entries  map[string]openEntry
	session  []domain.ClosedTrade
	lifetime []domain.ClosedTrade

	repo   domain.TradeRepository
	logger *zap.Logger

	timeNow func() time.Time
}

// NewPortfolioLedger creates a ledger. repo may be nil; when present, closed
// trades are archived best-effort.
func NewPortfolioLedger(repo domain.TradeRepository, logger *zap.Logger) *PortfolioLedger {
	return &PortfolioLedger{
		entries: make(map[string]openEntry),
		repo:    repo,
		logger:  logger,
		timeNow: time.Now,
	}
}

// SeedLifetime loads the historical trade list, typically at startup.
func (l *PortfolioLedger) SeedLifetime(trades []*domain.ClosedTrade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range trades {
		if t != nil {
			l.lifetime = append(l.lifetime, *t)
		}
	}
}

// RecordEntry stores the open-entry record for a symbol. An existing record is
// overwritten silently; the engine's position guard prevents duplicate
// entries.
func (l *PortfolioLedger) RecordEntry(symbol string, price, qty float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[symbol] = openEntry{price: price, qty: qty, time: l.timeNow()}
}

// RecordExit realizes the result for a symbol. Without a prior entry it is a
// no-op returning nil, defending against out-of-order calls.
func (l *PortfolioLedger) RecordExit(ctx context.Context, symbol string, exitPrice, qty float64) *domain.ClosedTrade {
	l.mu.Lock()
	entry, ok := l.entries[symbol]
	if !ok {
		l.mu.Unlock()
		return nil
	}

	trade := domain.ClosedTrade{
		Symbol:            symbol,
		EntryPrice:        entry.price,
		ExitPrice:         exitPrice,
		Quantity:          qty,
		RealizedPL:        (exitPrice - entry.price) * qty,
		RealizedPLPercent: (exitPrice - entry.price) / entry.price * 100,
		ClosedAt:          l.timeNow(),
	}
	l.session = append(l.session, trade)
	l.lifetime = append(l.lifetime, trade)
	delete(l.entries, symbol)
	l.mu.Unlock()

	l.logger.Info("Realized P/L",
		zap.String("symbol", symbol),
		zap.Float64("pl", trade.RealizedPL),
		zap.Float64("pl_percent", trade.RealizedPLPercent))

	// Archive failure must not fail the trade itself.
	if l.repo != nil {
		if err := l.repo.SaveTrade(ctx, &trade); err != nil {
			l.logger.Error("Failed to archive closed trade", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return &trade
}

// Stats derives counts and rates from the session and lifetime lists.
func (l *PortfolioLedger) Stats() domain.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := domain.Stats{TotalTrades: len(l.session), LifetimeTotal: len(l.lifetime)}
	for _, t := range l.session {
		stats.TotalPL += t.RealizedPL
		if t.RealizedPL > 0 {
			stats.WinningTrades++
		} else if t.RealizedPL < 0 {
			stats.LosingTrades++
		}
	}
	for _, t := range l.lifetime {
		if t.RealizedPL > 0 {
			stats.LifetimeWins++
		} else if t.RealizedPL < 0 {
			stats.LifetimeLosses++
		}
	}
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	if stats.LifetimeTotal > 0 {
		stats.LifetimeWinRate = float64(stats.LifetimeWins) / float64(stats.LifetimeTotal) * 100
	}
	return stats
}

// SessionTrades returns a copy of the session trade list, newest last.
func (l *PortfolioLedger) SessionTrades() []domain.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ClosedTrade, len(l.session))
	copy(out, l.session)
	return out
}
