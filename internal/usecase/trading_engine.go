package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

type EngineConfig struct {
	Symbols          []string
	Interval         string
	CandleLimit      int
	MinNotionalUSD   float64
	EntryThreshold   int
	HeatFloor        int
	QuoteAsset       string
	DailySummaryTime string
}

// TradingEngine drives one analysis pass over all configured symbols per
// cycle: bars -> signal -> risk gating -> order -> ledger -> observers.
// Positions are owned here and mutated only on entry, price refresh and exit.
type TradingEngine struct {
	cfg     EngineConfig
	market  domain.MarketDataSource
	orders  domain.OrderGateway
	account domain.AccountSource
	signals *SignalEngine
	risk    *RiskManager
	ledger  *PortfolioLedger
	logger  *zap.Logger

	observers []domain.Observer
	errSink   domain.ErrorSink
	summary   domain.SummarySink

	mu            sync.Mutex
	positions     map[string]*domain.Position
	initialEquity float64
	lastSummary   string

	timeNow func() time.Time
}

func NewTradingEngine(
	cfg EngineConfig,
	market domain.MarketDataSource,
	orders domain.OrderGateway,
	account domain.AccountSource,
	signals *SignalEngine,
	risk *RiskManager,
	ledger *PortfolioLedger,
	logger *zap.Logger,
) *TradingEngine {
	return &TradingEngine{
		cfg:       cfg,
		market:    market,
		orders:    orders,
		account:   account,
		signals:   signals,
		risk:      risk,
		ledger:    ledger,
		logger:    logger,
		positions: make(map[string]*domain.Position),
		timeNow:   time.Now,
	}
}

func (e *TradingEngine) AddObserver(o domain.Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

func (e *TradingEngine) SetErrorSink(s domain.ErrorSink)     { e.errSink = s }
func (e *TradingEngine) SetSummarySink(s domain.SummarySink) { e.summary = s }

// Initialize fetches the account baseline and recovers open positions from
// balances. An unreachable account at startup is fatal.
func (e *TradingEngine) Initialize(ctx context.Context) error {
	acct, err := e.account.Account(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch account: %w", err)
	}
	e.mu.Lock()
	e.initialEquity = acct.Equity
	e.mu.Unlock()

	e.recoverPositions(ctx)

	e.logger.Info("Trading engine initialized",
		zap.Float64("equity", acct.Equity),
		zap.Int("recovered_positions", len(e.Positions())),
		zap.Strings("symbols", e.cfg.Symbols))
	return nil
}

// recoverPositions reconstructs open positions from non-cash balances matched
// to configured symbols. The true entry price is unknown, so current price is
// used and unrealized P/L stays understated until a full round trip.
func (e *TradingEngine) recoverPositions(ctx context.Context) {
	balances, err := e.account.Balances(ctx)
	if err != nil {
		e.logger.Error("Failed to recover positions", zap.Error(err))
		return
	}

	for asset, amount := range balances {
		if amount <= 0 || asset == e.cfg.QuoteAsset {
			continue
		}
		for _, symbol := range e.cfg.Symbols {
			if !strings.HasPrefix(symbol, asset) {
				continue
			}
			price, ok := e.market.GetTicker(ctx, symbol)
			if !ok {
				break
			}
			e.mu.Lock()
			e.positions[symbol] = &domain.Position{
				Symbol:       symbol,
				Quantity:     amount,
				EntryPrice:   price,
				EntryTime:    e.timeNow().UTC(),
				CurrentPrice: price,
			}
			e.mu.Unlock()
			e.logger.Info("Recovered position",
				zap.String("symbol", symbol),
				zap.Float64("qty", amount),
				zap.Float64("price", price))
			break
		}
	}
}

// RunCycle performs one full analysis pass. Per-symbol faults are isolated:
// one symbol's failure never blocks the others. The returned error covers only
// cycle-level faults (account unavailable).
func (e *TradingEngine) RunCycle(ctx context.Context) error {
	e.updatePositionPrices(ctx)

	acct, err := e.account.Account(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch account: %w", err)
	}

	e.mu.Lock()
	initial := e.initialEquity
	openCount := len(e.positions)
	e.mu.Unlock()

	dailyPL := acct.Equity - initial
	dailyPLPercent := 0.0
	if initial > 0 {
		dailyPLPercent = dailyPL / initial * 100
	}
	snapshot := domain.PortfolioSnapshot{
		Equity:         acct.Equity,
		Cash:           acct.Cash,
		DailyPL:        dailyPL,
		DailyPLPercent: dailyPLPercent,
		OpenPositions:  openCount,
	}
	stats := e.ledger.Stats()

	e.checkDailySummary(stats, snapshot)

	for _, o := range e.observers {
		o.OnPortfolioUpdate(snapshot)
		o.OnStatsUpdate(stats)
	}

	var heat []domain.HeatEntry
	for _, symbol := range e.cfg.Symbols {
		bars := e.market.GetBars(ctx, symbol, e.cfg.Interval, e.cfg.CandleLimit)
		if len(bars) == 0 {
			e.logger.Warn("No bars for symbol, skipping this cycle", zap.String("symbol", symbol))
			continue
		}

		sig := e.signals.Analyze(symbol, bars)
		for _, o := range e.observers {
			o.OnSignal(sig)
		}

		if sig.Direction != domain.DirectionNeutral && sig.Strength >= e.cfg.HeatFloor {
			heat = append(heat, domain.HeatEntry{
				Symbol:    symbol,
				Direction: sig.Direction,
				Strength:  sig.Strength,
			})
			e.logger.Info("Signal",
				zap.String("symbol", symbol),
				zap.String("direction", string(sig.Direction)),
				zap.Int("strength", sig.Strength),
				zap.Float64("rsi", sig.Indicators.RSI),
				zap.Float64("volume_ratio", sig.Indicators.VolumeRatio),
				zap.Strings("confirmations", sig.Confirmations))
		}

		if sig.Direction == domain.DirectionNeutral || sig.Strength < e.cfg.EntryThreshold {
			continue
		}
		switch sig.Direction {
		case domain.DirectionBuy:
			e.executeBuy(ctx, sig, bars)
		case domain.DirectionSell:
			e.executeSell(ctx, sig)
		}
	}

	for _, o := range e.observers {
		o.OnMarketHeat(heat)
	}

	e.logger.Info("Cycle complete",
		zap.Int("heat_signals", len(heat)),
		zap.Int("session_trades", stats.TotalTrades),
		zap.Float64("win_rate", stats.WinRate))
	return nil
}

// executeBuy opens a position for the signal's symbol. The advisory lock is
// released on every path; a denied lock or sub-minimum notional skips silently
// for this cycle. Order placement and position creation happen together or not
// at all.
func (e *TradingEngine) executeBuy(ctx context.Context, sig domain.Signal, bars domain.BarSeries) {
	symbol := sig.Symbol

	e.mu.Lock()
	_, exists := e.positions[symbol]
	e.mu.Unlock()
	if exists {
		return
	}

	if !e.risk.AcquireLock(symbol) {
		e.logger.Debug("Symbol locked, skipping entry", zap.String("symbol", symbol))
		return
	}
	defer e.risk.ReleaseLock(symbol)

	acct, err := e.account.Account(ctx)
	if err != nil {
		e.logger.Error("Failed to fetch account for sizing", zap.String("symbol", symbol), zap.Error(err))
		e.notifyError("Buy Order Failed", err.Error(), symbol)
		return
	}

	qty, err := e.risk.PositionSize(sig.Price, acct.Equity)
	if err != nil {
		e.logger.Error("Position sizing failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if qty*sig.Price < e.cfg.MinNotionalUSD {
		e.logger.Debug("Notional below minimum, skipping entry",
			zap.String("symbol", symbol),
			zap.Float64("notional", qty*sig.Price),
			zap.Float64("min_notional", e.cfg.MinNotionalUSD))
		return
	}

	stopLoss := e.risk.StopLoss(sig.Price, bars)
	takeProfit := e.risk.TakeProfit(sig.Price, bars)

	conf, err := e.orders.PlaceMarketOrder(ctx, symbol, domain.DirectionBuy, qty)
	if err != nil || conf == nil {
		e.logger.Error("Buy order failed", zap.String("symbol", symbol), zap.Error(err))
		if err != nil {
			e.notifyError("Buy Order Failed", err.Error(), symbol)
		}
		return
	}

	e.ledger.RecordEntry(symbol, sig.Price, qty)
	e.mu.Lock()
	e.positions[symbol] = &domain.Position{
		Symbol:       symbol,
		Quantity:     qty,
		EntryPrice:   sig.Price,
		EntryTime:    e.timeNow().UTC(),
		CurrentPrice: sig.Price,
	}
	e.mu.Unlock()

	event := domain.TradeEvent{
		Symbol:        symbol,
		Action:        domain.DirectionBuy,
		Quantity:      qty,
		Price:         sig.Price,
		Strength:      sig.Strength,
		Confirmations: sig.Confirmations,
		Time:          e.timeNow().UTC(),
	}
	for _, o := range e.observers {
		o.OnTrade(event)
	}

	e.logger.Info("BUY executed",
		zap.String("symbol", symbol),
		zap.Float64("qty", qty),
		zap.Float64("price", sig.Price),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit),
		zap.String("order_id", conf.OrderID))
}

// executeSell closes the open position for the signal's symbol. A gateway
// failure leaves the position intact for retry on a later cycle.
func (e *TradingEngine) executeSell(ctx context.Context, sig domain.Signal) {
	symbol := sig.Symbol

	e.mu.Lock()
	pos, exists := e.positions[symbol]
	e.mu.Unlock()
	if !exists {
		return
	}

	isWin := sig.Price > pos.EntryPrice

	conf, err := e.orders.PlaceMarketOrder(ctx, symbol, domain.DirectionSell, pos.Quantity)
	if err != nil || conf == nil {
		e.logger.Error("Sell order failed, position kept", zap.String("symbol", symbol), zap.Error(err))
		if err != nil {
			e.notifyError("Sell Order Failed", err.Error(), symbol)
		}
		return
	}

	trade := e.ledger.RecordExit(ctx, symbol, sig.Price, pos.Quantity)
	e.risk.RecordResult(isWin)

	e.mu.Lock()
	delete(e.positions, symbol)
	e.mu.Unlock()

	event := domain.TradeEvent{
		Symbol:     symbol,
		Action:     domain.DirectionSell,
		Quantity:   pos.Quantity,
		Price:      sig.Price,
		Strength:   sig.Strength,
		EntryPrice: pos.EntryPrice,
		Time:       e.timeNow().UTC(),
	}
	if trade != nil {
		event.RealizedPL = trade.RealizedPL
		event.RealizedPLPercent = trade.RealizedPLPercent
	}
	for _, o := range e.observers {
		o.OnTrade(event)
	}

	outcome := "LOSS"
	if isWin {
		outcome = "WIN"
	}
	e.logger.Info("SELL executed",
		zap.String("symbol", symbol),
		zap.Float64("qty", pos.Quantity),
		zap.Float64("price", sig.Price),
		zap.String("outcome", outcome),
		zap.String("order_id", conf.OrderID))
}

func (e *TradingEngine) updatePositionPrices(ctx context.Context) {
	for _, symbol := range e.openSymbols() {
		price, ok := e.market.GetTicker(ctx, symbol)
		if !ok {
			continue
		}
		e.mu.Lock()
		if pos, exists := e.positions[symbol]; exists {
			pos.CurrentPrice = price
			pos.UnrealizedPL = (price - pos.EntryPrice) * pos.Quantity
			pos.UnrealizedPLPercent = (price - pos.EntryPrice) / pos.EntryPrice * 100
		}
		e.mu.Unlock()
	}
}

// checkDailySummary dispatches the summary once per day after the configured
// wall-clock time.
func (e *TradingEngine) checkDailySummary(stats domain.Stats, snapshot domain.PortfolioSnapshot) {
	if e.summary == nil || e.cfg.DailySummaryTime == "" {
		return
	}
	now := e.timeNow()
	today := now.Format("2006-01-02")
	if e.lastSummary == today {
		return
	}
	target, err := time.Parse("15:04", e.cfg.DailySummaryTime)
	if err != nil {
		return
	}
	if now.Hour() > target.Hour() || (now.Hour() == target.Hour() && now.Minute() >= target.Minute()) {
		e.summary.SendDailySummary(stats, snapshot)
		e.lastSummary = today
		e.logger.Info("Daily summary sent", zap.String("date", today))
	}
}

// Positions returns copies of the open positions.
func (e *TradingEngine) Positions() []domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	return out
}

func (e *TradingEngine) openSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.positions))
	for s := range e.positions {
		out = append(out, s)
	}
	return out
}

func (e *TradingEngine) notifyError(kind, message, symbol string) {
	if e.errSink != nil {
		e.errSink.NotifyError(kind, message, symbol)
	}
}
