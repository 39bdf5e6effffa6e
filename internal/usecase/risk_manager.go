package usecase

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

// ErrInvalidInput marks degenerate inputs (e.g. non-positive price) that must
// fail loudly instead of producing a misleading size.
var ErrInvalidInput = errors.New("invalid input")

const (
	maxStopLossPercent   = 5
	maxTakeProfitPercent = 10
	lockWindow           = 60 * time.Second
)

// RiskManager sizes positions and gates entries. The multiplier steps down
// with consecutive losses (>=2 losses: 0.66, >=3 losses: 0.33) and resets on
// any win. Per-symbol advisory locks self-expire after lockWindow so a crashed
// order attempt can never starve a symbol.
type RiskManager struct {
	basePositionPercent   float64
	baseStopLossPercent   float64
	baseTakeProfitPercent float64

	mu                sync.Mutex
	consecutiveLosses int
	sizeMultiplier    float64
	symbolLocks       map[string]time.Time
	timeNow           func() time.Time
}

func NewRiskManager(basePositionPercent, baseStopLossPercent, baseTakeProfitPercent float64) *RiskManager {
	return &RiskManager{
		basePositionPercent:   basePositionPercent,
		baseStopLossPercent:   baseStopLossPercent,
		baseTakeProfitPercent: baseTakeProfitPercent,
		sizeMultiplier:        1.0,
		symbolLocks:           make(map[string]time.Time),
		timeNow:               time.Now,
	}
}

// PositionSize converts price and portfolio equity into an order quantity.
func (r *RiskManager) PositionSize(price, portfolioEquity float64) (float64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidInput, price)
	}
	r.mu.Lock()
	multiplier := r.sizeMultiplier
	r.mu.Unlock()

	positionPercent := r.basePositionPercent * multiplier
	positionValue := portfolioEquity * (positionPercent / 100)
	qty := positionValue / price
	if qty < 0 {
		qty = 0
	}
	return qty, nil
}

// StopLoss derives an ATR-scaled stop price, clamped to maxStopLossPercent
// below entry. With no usable ATR the configured base percentage applies.
func (r *RiskManager) StopLoss(entryPrice float64, bars domain.BarSeries) float64 {
	pct := r.baseStopLossPercent
	if atrPct := atrPercent(entryPrice, bars); atrPct > 0 {
		pct = math.Max(atrPct*2, r.baseStopLossPercent)
		pct = math.Min(pct, maxStopLossPercent)
	}
	return entryPrice * (1 - pct/100)
}

// TakeProfit derives an ATR-scaled target price, clamped to
// maxTakeProfitPercent above entry.
func (r *RiskManager) TakeProfit(entryPrice float64, bars domain.BarSeries) float64 {
	pct := r.baseTakeProfitPercent
	if atrPct := atrPercent(entryPrice, bars); atrPct > 0 {
		pct = math.Max(atrPct*3, r.baseTakeProfitPercent)
		pct = math.Min(pct, maxTakeProfitPercent)
	}
	return entryPrice * (1 + pct/100)
}

// RecordResult feeds a realized trade outcome into the streak throttle. The
// two loss thresholds are checked independently and in order, so at three
// losses the lower multiplier wins.
func (r *RiskManager) RecordResult(isWin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isWin {
		r.consecutiveLosses = 0
		r.sizeMultiplier = 1.0
		return
	}
	r.consecutiveLosses++
	if r.consecutiveLosses >= 2 {
		r.sizeMultiplier = 0.66
	}
	if r.consecutiveLosses >= 3 {
		r.sizeMultiplier = 0.33
	}
}

func (r *RiskManager) Multiplier() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sizeMultiplier
}

func (r *RiskManager) ConsecutiveLosses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consecutiveLosses
}

// AcquireLock grants a time-windowed advisory lock for the symbol. A lock
// older than the window is stale and reusable even if never released.
func (r *RiskManager) AcquireLock(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if acquiredAt, ok := r.symbolLocks[symbol]; ok {
		if r.timeNow().Sub(acquiredAt) < lockWindow {
			return false
		}
	}
	r.symbolLocks[symbol] = r.timeNow()
	return true
}

func (r *RiskManager) ReleaseLock(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.symbolLocks, symbol)
}

func atrPercent(entryPrice float64, bars domain.BarSeries) float64 {
	if entryPrice <= 0 || len(bars) < 15 {
		return 0
	}
	atr := lastValue(talib.Atr(bars.Highs(), bars.Lows(), bars.Closes(), 14))
	if atr <= 0 {
		return 0
	}
	return atr / entryPrice * 100
}
