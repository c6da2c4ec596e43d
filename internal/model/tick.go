package model

import "encoding/json"

// Tick is a single broker-delivered price update. Ticks are created by the
// broker client and never mutated afterwards.
type Tick struct {
	Symbol string   `json:"symbol"`
	Epoch  float64  `json:"epoch"` // broker epoch seconds, may be fractional
	Quote  float64  `json:"quote"`
	Bid    *float64 `json:"bid,omitempty"`
	Ask    *float64 `json:"ask,omitempty"`
}

// JSON serializes the tick for downstream publication.
func (t Tick) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}
