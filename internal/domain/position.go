package domain

import "time"

// Position is an open spot position. At most one exists per symbol; it is
// owned by the trading engine and mutated only on entry, price refresh and
// exit.
type Position struct {
	Symbol              string    `json:"symbol"`
	Quantity            float64   `json:"quantity"`
	EntryPrice          float64   `json:"entry_price"`
	EntryTime           time.Time `json:"entry_time"`
	CurrentPrice        float64   `json:"current_price"`
	UnrealizedPL        float64   `json:"unrealized_pl"`
	UnrealizedPLPercent float64   `json:"unrealized_pl_percent"`
}

// ClosedTrade is the immutable record of a completed round trip.
type ClosedTrade struct {
	Symbol            string    `json:"symbol"`
	EntryPrice        float64   `json:"entry_price"`
	ExitPrice         float64   `json:"exit_price"`
	Quantity          float64   `json:"quantity"`
	RealizedPL        float64   `json:"realized_pl"`
	RealizedPLPercent float64   `json:"realized_pl_percent"`
	ClosedAt          time.Time `json:"closed_at"`
}

// Stats aggregates session-scoped and lifetime trade outcomes.
type Stats struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	TotalPL         float64 `json:"total_pl"`
	LifetimeTotal   int     `json:"lifetime_total"`
	LifetimeWins    int     `json:"lifetime_wins"`
	LifetimeLosses  int     `json:"lifetime_losses"`
	LifetimeWinRate float64 `json:"lifetime_win_rate"`
}

// AccountSnapshot is the normalized view of the exchange account.
type AccountSnapshot struct {
	Equity float64 `json:"equity"`
	Cash   float64 `json:"cash"`
}

// PortfolioSnapshot is the per-cycle read model published to observers. It is
// derived from positions and account equity, never stored authoritatively.
type PortfolioSnapshot struct {
	Equity         float64 `json:"equity"`
	Cash           float64 `json:"cash"`
	DailyPL        float64 `json:"daily_pl"`
	DailyPLPercent float64 `json:"daily_pl_percent"`
	OpenPositions  int     `json:"open_positions"`
}

// TradeEvent describes an executed order for observers.
type TradeEvent struct {
	Symbol            string    `json:"symbol"`
	Action            Direction `json:"action"`
	Quantity          float64   `json:"quantity"`
	Price             float64   `json:"price"`
	Strength          int       `json:"strength"`
	Confirmations     []string  `json:"confirmations,omitempty"`
	EntryPrice        float64   `json:"entry_price,omitempty"`
	RealizedPL        float64   `json:"realized_pl,omitempty"`
	RealizedPLPercent float64   `json:"realized_pl_percent,omitempty"`
	Time              time.Time `json:"time"`
}

// OrderConfirmation is returned by the gateway when an order was accepted.
type OrderConfirmation struct {
	OrderID  string
	Symbol   string
	Side     Direction
	Quantity float64
	Time     time.Time
}
