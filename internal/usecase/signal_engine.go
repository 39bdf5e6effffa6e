package usecase

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

// minBars is the shortest history the engine will score. Shorter series are an
// expected condition and yield a neutral signal, not an error.
const minBars = 50

type SignalEngine struct {
	timeNow func() time.Time
}

func NewSignalEngine() *SignalEngine {
	return &SignalEngine{timeNow: time.Now}
}

// Analyze maps a bar series to a directional signal with additive indicator
// confirmations. The first pass evaluates the BUY rule ladder; only if it sets
// no direction is the mirrored SELL ladder evaluated with strength and
// confirmations reset. Same input always yields the same output.
func (e *SignalEngine) Analyze(symbol string, bars domain.BarSeries) domain.Signal {
	if len(bars) < minBars {
		return domain.Signal{
			Symbol:    symbol,
			Direction: domain.DirectionNeutral,
			Strength:  0,
			Time:      e.timeNow().UTC(),
		}
	}

	closes := bars.Closes()
	highs := bars.Highs()
	lows := bars.Lows()
	volumes := bars.Volumes()

	rsi := lastValue(talib.Rsi(closes, 14))
	macdLine, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	hist := lastValue(macdHist)
	macdVal := lastValue(macdLine)
	sigVal := lastValue(macdSignal)
	sma20 := lastValue(talib.Sma(closes, 20))
	sma50 := lastValue(talib.Sma(closes, 50))
	ema12 := lastValue(talib.Ema(closes, 12))
	ema26 := lastValue(talib.Ema(closes, 26))
	atr := lastValue(talib.Atr(highs, lows, closes, 14))

	price := closes[len(closes)-1]
	prevClose := closes[len(closes)-2]
	volume := volumes[len(volumes)-1]
	avgVolume := mean(volumes[len(volumes)-20:])
	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = volume / avgVolume
	}

	strength := 0
	direction := domain.DirectionNeutral
	var confirmations []string

	// BUY pass
	if rsi < 30 {
		strength += 35
		direction = domain.DirectionBuy
		confirmations = append(confirmations, "RSI oversold <30")
	} else if rsi < 40 {
		strength += 20
		direction = domain.DirectionBuy
		confirmations = append(confirmations, "RSI oversold <40")
	}

	if hist > 0 && direction == domain.DirectionBuy {
		strength += 25
		confirmations = append(confirmations, "MACD bullish")
		if macdVal > sigVal {
			strength += 15
			confirmations = append(confirmations, "MACD crossover")
		}
	}
	if price > sma20 && direction == domain.DirectionBuy {
		strength += 15
		confirmations = append(confirmations, "Above SMA20")
	}
	if price > sma50 && direction == domain.DirectionBuy {
		strength += 10
		confirmations = append(confirmations, "Above SMA50")
	}
	if ema12 > ema26 && direction == domain.DirectionBuy {
		strength += 10
		confirmations = append(confirmations, "EMA bullish")
	}
	if direction == domain.DirectionBuy {
		if volumeRatio > 1.5 {
			strength += 15
			confirmations = append(confirmations, "High volume")
		} else if volumeRatio > 1.2 {
			strength += 8
			confirmations = append(confirmations, "Above avg volume")
		}
	}
	if price > prevClose && direction == domain.DirectionBuy {
		strength += 5
		confirmations = append(confirmations, "Bullish candle")
	}

	// SELL pass, mirrored, only when the BUY ladder set no direction
	if direction != domain.DirectionBuy {
		strength = 0
		confirmations = nil

		if rsi > 70 {
			strength += 35
			direction = domain.DirectionSell
			confirmations = append(confirmations, "RSI overbought >70")
		} else if rsi > 60 {
			strength += 20
			direction = domain.DirectionSell
			confirmations = append(confirmations, "RSI overbought >60")
		}

		if hist < 0 && direction == domain.DirectionSell {
			strength += 25
			confirmations = append(confirmations, "MACD bearish")
			if macdVal < sigVal {
				strength += 15
				confirmations = append(confirmations, "MACD crossover")
			}
		}
		if price < sma20 && direction == domain.DirectionSell {
			strength += 15
			confirmations = append(confirmations, "Below SMA20")
		}
		if price < sma50 && direction == domain.DirectionSell {
			strength += 10
			confirmations = append(confirmations, "Below SMA50")
		}
		if ema12 < ema26 && direction == domain.DirectionSell {
			strength += 10
			confirmations = append(confirmations, "EMA bearish")
		}
		if direction == domain.DirectionSell {
			if volumeRatio > 1.5 {
				strength += 15
				confirmations = append(confirmations, "High volume")
			} else if volumeRatio > 1.2 {
				strength += 8
				confirmations = append(confirmations, "Above avg volume")
			}
		}
		if price < prevClose && direction == domain.DirectionSell {
			strength += 5
			confirmations = append(confirmations, "Bearish candle")
		}
	}

	// Fewer than 3 corroborating indicators reduces confidence without
	// forcing neutral.
	if len(confirmations) < 3 && direction != domain.DirectionNeutral {
		strength = int(float64(strength) * 0.7)
	}

	if strength > 100 {
		strength = 100
	}
	if strength < 0 {
		strength = 0
	}

	return domain.Signal{
		Symbol:        symbol,
		Direction:     direction,
		Strength:      strength,
		Price:         price,
		Confirmations: confirmations,
		Indicators: domain.IndicatorSnapshot{
			RSI:           round2(rsi),
			MACDHistogram: round4(hist),
			VolumeRatio:   round2(volumeRatio),
			ATR:           round2(atr),
		},
		Time: e.timeNow().UTC(),
	}
}

func lastValue(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i]
		}
	}
	return 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
