package model

import "encoding/json"

// IndicatorSnapshot is the indicator state for one (symbol, timeframe) after
// a candle close. Fields are nil until the corresponding indicator has
// completed its warm-up seed.
type IndicatorSnapshot struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Timestamp float64  `json:"timestamp"` // close time of the candle that produced it
	EMAFast   *float64 `json:"ema_fast"`
	EMASlow   *float64 `json:"ema_slow"`
	RSI       *float64 `json:"rsi"`
}

// Ready reports whether every indicator has left warm-up.
func (s IndicatorSnapshot) Ready() bool {
	return s.EMAFast != nil && s.EMASlow != nil && s.RSI != nil
}

// JSON serializes the snapshot for downstream publication. Nil fields are
// emitted as JSON null so consumers can observe warm-up progress.
func (s IndicatorSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
