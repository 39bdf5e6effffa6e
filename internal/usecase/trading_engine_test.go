package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

type mockMarket struct {
	bars    map[string]domain.BarSeries
	tickers map[string]float64
}

func (m *mockMarket) GetBars(ctx context.Context, symbol, interval string, limit int) domain.BarSeries {
	return m.bars[symbol]
}

func (m *mockMarket) GetTicker(ctx context.Context, symbol string) (float64, bool) {
	price, ok := m.tickers[symbol]
	return price, ok
}

type placedOrder struct {
	symbol string
	side   domain.Direction
	qty    float64
}

type mockGateway struct {
	placed  []placedOrder
	err     error
	nilConf bool
}

func (m *mockGateway) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Direction, qty float64) (*domain.OrderConfirmation, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.placed = append(m.placed, placedOrder{symbol: symbol, side: side, qty: qty})
	if m.nilConf {
		return nil, nil
	}
	return &domain.OrderConfirmation{
		OrderID:  "order-1",
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
	}, nil
}

type mockAccount struct {
	acct     domain.AccountSnapshot
	acctErr  error
	balances map[string]float64
}

func (m *mockAccount) Account(ctx context.Context) (domain.AccountSnapshot, error) {
	if m.acctErr != nil {
		return domain.AccountSnapshot{}, m.acctErr
	}
	return m.acct, nil
}

func (m *mockAccount) Balances(ctx context.Context) (map[string]float64, error) {
	return m.balances, nil
}

type recordingObserver struct {
	signals    []domain.Signal
	trades     []domain.TradeEvent
	portfolios []domain.PortfolioSnapshot
	stats      []domain.Stats
	heat       [][]domain.HeatEntry
}

func (r *recordingObserver) OnSignal(s domain.Signal)    { r.signals = append(r.signals, s) }
func (r *recordingObserver) OnTrade(e domain.TradeEvent) { r.trades = append(r.trades, e) }
func (r *recordingObserver) OnPortfolioUpdate(p domain.PortfolioSnapshot) {
	r.portfolios = append(r.portfolios, p)
}
func (r *recordingObserver) OnStatsUpdate(s domain.Stats)      { r.stats = append(r.stats, s) }
func (r *recordingObserver) OnMarketHeat(h []domain.HeatEntry) { r.heat = append(r.heat, h) }

type recordingErrorSink struct {
	kinds []string
}

func (r *recordingErrorSink) NotifyError(kind, message, symbol string) {
	r.kinds = append(r.kinds, kind)
}

type recordingSummarySink struct {
	sent int
}

func (r *recordingSummarySink) SendDailySummary(stats domain.Stats, portfolio domain.PortfolioSnapshot) {
	r.sent++
}

func newTestEngine(market *mockMarket, gateway *mockGateway, account *mockAccount) *TradingEngine {
	cfg := EngineConfig{
		Symbols:        []string{"BTCUSDT"},
		Interval:       "5m",
		CandleLimit:    100,
		MinNotionalUSD: 10,
		EntryThreshold: 55,
		HeatFloor:      10,
		QuoteAsset:     "USDT",
	}
	risk := NewRiskManager(5, 1, 2)
	ledger := NewPortfolioLedger(nil, zap.NewNop())
	return NewTradingEngine(cfg, market, gateway, account, NewSignalEngine(), risk, ledger, zap.NewNop())
}

func buySignal(symbol string, price float64) domain.Signal {
	return domain.Signal{
		Symbol:        symbol,
		Direction:     domain.DirectionBuy,
		Strength:      80,
		Price:         price,
		Confirmations: []string{"RSI oversold <30", "MACD bullish", "Above SMA20"},
		Time:          time.Now().UTC(),
	}
}

func sellSignal(symbol string, price float64) domain.Signal {
	return domain.Signal{
		Symbol:    symbol,
		Direction: domain.DirectionSell,
		Strength:  80,
		Price:     price,
		Time:      time.Now().UTC(),
	}
}

func TestExecuteBuyOpensPosition(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000, Cash: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	obs := &recordingObserver{}
	engine.AddObserver(obs)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	if len(gateway.placed) != 1 {
		t.Fatalf("expected one order, got %d", len(gateway.placed))
	}
	order := gateway.placed[0]
	if order.side != domain.DirectionBuy || order.qty != 0.5 {
		t.Errorf("unexpected order: %+v", order)
	}

	positions := engine.Positions()
	if len(positions) != 1 || positions[0].EntryPrice != 100 || positions[0].Quantity != 0.5 {
		t.Errorf("unexpected positions: %+v", positions)
	}

	if len(obs.trades) != 1 || obs.trades[0].Action != domain.DirectionBuy {
		t.Errorf("expected buy event, got %+v", obs.trades)
	}

	// Lock must be released after the entry completes.
	if !engine.risk.AcquireLock("BTCUSDT") {
		t.Error("expected lock to be released after buy")
	}
}

func TestExecuteBuySkipsBelowMinNotional(t *testing.T) {
	gateway := &mockGateway{}
	// 5% of 100 equity is a 5 USDT notional, below the 10 minimum.
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 100, Cash: 100}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	if len(gateway.placed) != 0 {
		t.Fatalf("expected no order, got %d", len(gateway.placed))
	}
	if len(engine.Positions()) != 0 {
		t.Error("expected no position")
	}
	if !engine.risk.AcquireLock("BTCUSDT") {
		t.Error("expected lock to be released after skip")
	}
}

func TestExecuteBuyOrderFailureLeavesNoState(t *testing.T) {
	gateway := &mockGateway{err: errors.New("insufficient funds")}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	errSink := &recordingErrorSink{}
	engine.SetErrorSink(errSink)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	if len(engine.Positions()) != 0 {
		t.Error("expected no position after gateway failure")
	}
	if engine.ledger.Stats().TotalTrades != 0 {
		t.Error("expected no ledger state after gateway failure")
	}
	if len(errSink.kinds) != 1 || errSink.kinds[0] != "Buy Order Failed" {
		t.Errorf("expected error notification, got %v", errSink.kinds)
	}
	if !engine.risk.AcquireLock("BTCUSDT") {
		t.Error("expected lock to be released after failure")
	}
}

func TestExecuteBuySkipsExistingPosition(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.positions["BTCUSDT"] = &domain.Position{Symbol: "BTCUSDT", Quantity: 1, EntryPrice: 90}

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	if len(gateway.placed) != 0 {
		t.Fatalf("expected no order while a position is open, got %d", len(gateway.placed))
	}
}

func TestExecuteBuyDeniedLockSkips(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.risk.AcquireLock("BTCUSDT")

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	if len(gateway.placed) != 0 {
		t.Fatalf("expected no order under a held lock, got %d", len(gateway.placed))
	}
}

func TestExecuteSellRoundTrip(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	obs := &recordingObserver{}
	engine.AddObserver(obs)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)
	engine.executeSell(context.Background(), sellSignal("BTCUSDT", 110))

	if len(engine.Positions()) != 0 {
		t.Error("expected position closed")
	}

	stats := engine.ledger.Stats()
	if stats.TotalTrades != 1 || stats.WinningTrades != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.TotalPL != 5 { // 0.5 qty * 10 move
		t.Errorf("expected P/L 5, got %f", stats.TotalPL)
	}

	// A win keeps the size multiplier at full.
	if engine.risk.Multiplier() != 1.0 {
		t.Errorf("expected multiplier 1.0 after win, got %f", engine.risk.Multiplier())
	}

	if len(obs.trades) != 2 {
		t.Fatalf("expected buy and sell events, got %d", len(obs.trades))
	}
	sell := obs.trades[1]
	if sell.Action != domain.DirectionSell || sell.RealizedPL != 5 || sell.EntryPrice != 100 {
		t.Errorf("unexpected sell event: %+v", sell)
	}
}

func TestExecuteSellLossFeedsThrottle(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)
	engine.executeSell(context.Background(), sellSignal("BTCUSDT", 90))

	if engine.risk.ConsecutiveLosses() != 1 {
		t.Errorf("expected one recorded loss, got %d", engine.risk.ConsecutiveLosses())
	}
}

func TestExecuteSellFailureKeepsPosition(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.executeBuy(context.Background(), buySignal("BTCUSDT", 100), nil)

	gateway.err = errors.New("exchange down")
	engine.executeSell(context.Background(), sellSignal("BTCUSDT", 110))

	if len(engine.Positions()) != 1 {
		t.Fatal("expected position kept after sell failure")
	}
	if engine.ledger.Stats().TotalTrades != 0 {
		t.Error("expected no realized trade after sell failure")
	}
	if engine.risk.ConsecutiveLosses() != 0 {
		t.Error("expected no streak update after sell failure")
	}
}

func TestExecuteSellWithoutPositionIsNoop(t *testing.T) {
	gateway := &mockGateway{}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, gateway, account)

	engine.executeSell(context.Background(), sellSignal("BTCUSDT", 110))

	if len(gateway.placed) != 0 {
		t.Fatalf("expected no order without a position, got %d", len(gateway.placed))
	}
}

func TestRunCycleAccountFailure(t *testing.T) {
	account := &mockAccount{acctErr: errors.New("api unreachable")}
	engine := newTestEngine(&mockMarket{}, &mockGateway{}, account)

	if err := engine.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when account is unreachable")
	}
}

func TestRunCycleSymbolIsolation(t *testing.T) {
	// One symbol has no market data; the other must still be analyzed.
	market := &mockMarket{bars: map[string]domain.BarSeries{
		"ETHUSDT": makeBars(fallingCloses(60), 100),
	}}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(market, &mockGateway{}, account)
	engine.cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}

	obs := &recordingObserver{}
	engine.AddObserver(obs)

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs.signals) != 1 || obs.signals[0].Symbol != "ETHUSDT" {
		t.Errorf("expected one signal for ETHUSDT, got %+v", obs.signals)
	}
	if len(obs.heat) != 1 || len(obs.heat[0]) != 1 || obs.heat[0][0].Symbol != "ETHUSDT" {
		t.Errorf("expected ETHUSDT in market heat, got %+v", obs.heat)
	}
}

func TestRunCyclePublishesPortfolio(t *testing.T) {
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000, Cash: 1000}}
	engine := newTestEngine(&mockMarket{}, &mockGateway{}, account)

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs := &recordingObserver{}
	engine.AddObserver(obs)

	account.acct = domain.AccountSnapshot{Equity: 1100, Cash: 1100}
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs.portfolios) != 1 {
		t.Fatalf("expected one portfolio update, got %d", len(obs.portfolios))
	}
	snapshot := obs.portfolios[0]
	if snapshot.Equity != 1100 || snapshot.DailyPL != 100 || snapshot.DailyPLPercent != 10 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestInitializeRecoversPositions(t *testing.T) {
	market := &mockMarket{tickers: map[string]float64{"BTCUSDT": 30000}}
	account := &mockAccount{
		acct:     domain.AccountSnapshot{Equity: 1000},
		balances: map[string]float64{"BTC": 0.5, "USDT": 100},
	}
	engine := newTestEngine(market, &mockGateway{}, account)

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions := engine.Positions()
	if len(positions) != 1 {
		t.Fatalf("expected one recovered position, got %d", len(positions))
	}
	pos := positions[0]
	if pos.Symbol != "BTCUSDT" || pos.Quantity != 0.5 || pos.EntryPrice != 30000 {
		t.Errorf("unexpected recovered position: %+v", pos)
	}
}

func TestDailySummarySentOncePerDay(t *testing.T) {
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(&mockMarket{}, &mockGateway{}, account)
	engine.cfg.DailySummaryTime = "10:00"

	sink := &recordingSummarySink{}
	engine.SetSummarySink(sink)

	now := time.Date(2025, 6, 1, 9, 59, 0, 0, time.UTC)
	engine.timeNow = func() time.Time { return now }

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.sent != 0 {
		t.Fatal("summary sent before the configured time")
	}

	now = time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.sent != 1 {
		t.Fatalf("expected one summary, got %d", sink.sent)
	}

	now = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.sent != 1 {
		t.Fatalf("expected no second summary the same day, got %d", sink.sent)
	}

	now = time.Date(2025, 6, 2, 10, 1, 0, 0, time.UTC)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.sent != 2 {
		t.Fatalf("expected summary on the next day, got %d", sink.sent)
	}
}

func TestUpdatePositionPrices(t *testing.T) {
	market := &mockMarket{tickers: map[string]float64{"BTCUSDT": 110}}
	account := &mockAccount{acct: domain.AccountSnapshot{Equity: 1000}}
	engine := newTestEngine(market, &mockGateway{}, account)

	engine.positions["BTCUSDT"] = &domain.Position{
		Symbol:     "BTCUSDT",
		Quantity:   2,
		EntryPrice: 100,
	}

	engine.updatePositionPrices(context.Background())

	pos := engine.Positions()[0]
	if pos.CurrentPrice != 110 || pos.UnrealizedPL != 20 || pos.UnrealizedPLPercent != 10 {
		t.Errorf("unexpected refreshed position: %+v", pos)
	}
}
