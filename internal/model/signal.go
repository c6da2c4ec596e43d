package model

import (
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Trade directions.
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// Signal is an immutable trading signal emitted by the signal engine when
// enough confirmations align on a closed candle.
type Signal struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Direction         string   `json:"direction"` // BUY | SELL
	Entry             float64  `json:"entry"`
	StopLoss          float64  `json:"stop_loss"`
	TakeProfit        float64  `json:"take_profit"`
	RR                float64  `json:"rr"` // realized reward:risk after SL placement
	CreatedAt         float64  `json:"created_at"`
	CandleTimestamp   float64  `json:"candle_timestamp"` // open time of the confirming candle
	Timeframe         string   `json:"timeframe"`
	Conditions        []string `json:"conditions"`
	Confidence        int      `json:"confidence"`         // len(Conditions)
	EstimatedDuration float64  `json:"estimated_duration"` // minutes, advisory only
}

// NewSignalID returns a compact unique signal identifier.
func NewSignalID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:12]
}

// JSON serializes the signal for downstream publication.
func (s Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
