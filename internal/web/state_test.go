package web

import (
	"fmt"
	"testing"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

func TestSnapshotCollectsObservations(t *testing.T) {
	state := NewDashboardState()

	state.OnPortfolioUpdate(domain.PortfolioSnapshot{Equity: 1000, DailyPL: 50})
	state.OnStatsUpdate(domain.Stats{TotalTrades: 3, WinningTrades: 2})
	state.OnSignal(domain.Signal{Symbol: "BTCUSDT", Direction: domain.DirectionBuy, Strength: 60})
	state.OnTrade(domain.TradeEvent{Symbol: "BTCUSDT", Action: domain.DirectionBuy})
	state.OnMarketHeat([]domain.HeatEntry{{Symbol: "BTCUSDT", Direction: domain.DirectionBuy, Strength: 60}})

	positions := []domain.Position{{Symbol: "BTCUSDT", Quantity: 0.5}}
	snap := state.Snapshot(positions)

	if snap.Portfolio.Equity != 1000 || snap.Stats.TotalTrades != 3 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Signals) != 1 || len(snap.Trades) != 1 || len(snap.Heat) != 1 {
		t.Errorf("unexpected snapshot lists: %+v", snap)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].Symbol != "BTCUSDT" {
		t.Errorf("unexpected positions: %+v", snap.Positions)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestRecentListsAreBounded(t *testing.T) {
	state := NewDashboardState()

	for i := 0; i < 30; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		state.OnSignal(domain.Signal{Symbol: symbol})
		state.OnTrade(domain.TradeEvent{Symbol: symbol})
	}

	snap := state.Snapshot(nil)
	if len(snap.Signals) != maxRecentSignals {
		t.Errorf("expected %d signals, got %d", maxRecentSignals, len(snap.Signals))
	}
	if len(snap.Trades) != maxRecentTrades {
		t.Errorf("expected %d trades, got %d", maxRecentTrades, len(snap.Trades))
	}

	// Oldest entries are evicted first.
	if snap.Signals[len(snap.Signals)-1].Symbol != "SYM29" {
		t.Errorf("expected newest signal last, got %s", snap.Signals[len(snap.Signals)-1].Symbol)
	}
	if snap.Signals[0].Symbol != "SYM20" {
		t.Errorf("expected SYM20 first, got %s", snap.Signals[0].Symbol)
	}
}

func TestMarketHeatReplacedEachCycle(t *testing.T) {
	state := NewDashboardState()

	state.OnMarketHeat([]domain.HeatEntry{{Symbol: "BTCUSDT"}, {Symbol: "ETHUSDT"}})
	state.OnMarketHeat([]domain.HeatEntry{{Symbol: "SOLUSDT"}})

	snap := state.Snapshot(nil)
	if len(snap.Heat) != 1 || snap.Heat[0].Symbol != "SOLUSDT" {
		t.Errorf("expected heat replaced, got %+v", snap.Heat)
	}
}
