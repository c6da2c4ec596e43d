package model

import (
	"encoding/json"
	"fmt"
)

// Candle is an OHLC bucket. Base candles carry an empty Timeframe; candles
// produced by the timeframe aggregator carry the timeframe tag ("5m", "1h").
// A candle is immutable once it has been published as closed.
type Candle struct {
	Symbol    string  `json:"symbol"`
	OpenTime  float64 `json:"open_time"` // aligned to Interval
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	TickCount int     `json:"tick_count"` // ticks for base candles, base candles for TF candles
	Interval  int     `json:"interval"`   // seconds
	Timeframe string  `json:"timeframe,omitempty"`
}

// CloseTime returns the exclusive upper bound of the candle's bucket.
func (c Candle) CloseTime() float64 {
	return c.OpenTime + float64(c.Interval)
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Key identifies a candle bucket for logging and storage.
func (c Candle) Key() string {
	if c.Timeframe != "" {
		return fmt.Sprintf("%s:%s:%.0f", c.Symbol, c.Timeframe, c.OpenTime)
	}
	return fmt.Sprintf("%s:%ds:%.0f", c.Symbol, c.Interval, c.OpenTime)
}

// JSON serializes the candle for downstream publication.
func (c Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
