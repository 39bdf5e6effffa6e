package domain

import "time"

type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

// IndicatorSnapshot carries the indicator values the signal was derived from,
// kept for notifications and the dashboard.
type IndicatorSnapshot struct {
	RSI           float64 `json:"rsi"`
	MACDHistogram float64 `json:"macd_histogram"`
	VolumeRatio   float64 `json:"volume_ratio"`
	ATR           float64 `json:"atr"`
}

// Signal is the composite directional call for one symbol.
// Strength is a 0-100 confidence score; Strength > 0 implies a non-neutral
// direction.
type Signal struct {
	Symbol        string            `json:"symbol"`
	Direction     Direction         `json:"direction"`
	Strength      int               `json:"strength"`
	Price         float64           `json:"price"`
	Confirmations []string          `json:"confirmations,omitempty"`
	Indicators    IndicatorSnapshot `json:"indicators"`
	Time          time.Time         `json:"time"`
}

// HeatEntry is one above-floor signal shown for situational awareness.
type HeatEntry struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Strength  int       `json:"strength"`
}
