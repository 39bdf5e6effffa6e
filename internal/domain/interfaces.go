package domain

import "context"

// MarketDataSource provides normalized market data. Implementations soften
// transport faults: GetBars returns an empty series on any error and GetTicker
// reports absence through its bool.
type MarketDataSource interface {
	GetBars(ctx context.Context, symbol, interval string, limit int) BarSeries
	GetTicker(ctx context.Context, symbol string) (float64, bool)
}

// OrderGateway places market orders. A nil confirmation or an error both mean
// no state change occurred on the exchange.
type OrderGateway interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side Direction, quantity float64) (*OrderConfirmation, error)
}

// AccountSource exposes account equity/cash and raw balances (the latter is
// used only for position recovery at startup).
type AccountSource interface {
	Account(ctx context.Context) (AccountSnapshot, error)
	Balances(ctx context.Context) (map[string]float64, error)
}

// TradeRepository archives closed trades across restarts.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *ClosedTrade) error
	ListTrades(ctx context.Context, limit int) ([]*ClosedTrade, error)
}

// Observer receives read-model updates from the engine. Calls are
// fire-and-forget: implementations must not block and must never fail the
// engine.
type Observer interface {
	OnSignal(signal Signal)
	OnTrade(event TradeEvent)
	OnPortfolioUpdate(snapshot PortfolioSnapshot)
	OnStatsUpdate(stats Stats)
	OnMarketHeat(heat []HeatEntry)
}

// ErrorSink surfaces operational faults (failed orders, analysis errors) to an
// external channel.
type ErrorSink interface {
	NotifyError(kind, message, symbol string)
}

// SummarySink receives the once-a-day performance summary.
type SummarySink interface {
	SendDailySummary(stats Stats, portfolio PortfolioSnapshot)
}
