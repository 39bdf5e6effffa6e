package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndListTrades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	trades := []*domain.ClosedTrade{
		{Symbol: "ETHUSDT", EntryPrice: 2000, ExitPrice: 1900, Quantity: 1, RealizedPL: -100, RealizedPLPercent: -5, ClosedAt: base.Add(time.Hour)},
		{Symbol: "BTCUSDT", EntryPrice: 50000, ExitPrice: 51000, Quantity: 0.01, RealizedPL: 10, RealizedPLPercent: 2, ClosedAt: base},
	}
	for _, tr := range trades {
		if err := store.SaveTrade(ctx, tr); err != nil {
			t.Fatalf("Failed to save trade: %v", err)
		}
	}

	got, err := store.ListTrades(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list trades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(got))
	}

	// Oldest first.
	if got[0].Symbol != "BTCUSDT" || got[1].Symbol != "ETHUSDT" {
		t.Errorf("unexpected order: %s, %s", got[0].Symbol, got[1].Symbol)
	}
	if got[0].RealizedPL != 10 || got[0].Quantity != 0.01 {
		t.Errorf("unexpected trade fields: %+v", got[0])
	}
	if !got[0].ClosedAt.Equal(base) {
		t.Errorf("expected closed_at %v, got %v", base, got[0].ClosedAt)
	}
}

func TestListTradesLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trade := &domain.ClosedTrade{
			Symbol:   "BTCUSDT",
			Quantity: 1,
			ClosedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveTrade(ctx, trade); err != nil {
			t.Fatalf("Failed to save trade: %v", err)
		}
	}

	got, err := store.ListTrades(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to list trades: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 trades, got %d", len(got))
	}
}

func TestListTradesEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListTrades(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to list trades: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no trades, got %d", len(got))
	}
}
