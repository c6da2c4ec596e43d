package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TradeStatus is the lifecycle state of a simulated trade.
type TradeStatus string

const (
	TradePending TradeStatus = "PENDING" // signal received, awaiting first tick
	TradeOpen    TradeStatus = "OPEN"    // executed, monitoring SL/TP/expiry
	TradeProfit  TradeStatus = "PROFIT"  // closed at take profit
	TradeLoss    TradeStatus = "LOSS"    // closed at stop loss
	TradeExpired TradeStatus = "EXPIRED" // closed by max duration
)

// SimulatedTrade is a paper trade. It mutates only through Activate and
// Close; once closed it is effectively immutable.
//
// The trade is NOT executed at the signal's entry price. It stays PENDING
// until the next tick and executes at that tick's quote, so the difference
// EntryPrice - SignalEntry models real slippage.
type SimulatedTrade struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`
	SignalID  string `json:"signal_id"`

	SignalEntry float64  `json:"signal_entry"`
	StopLoss    float64  `json:"stop_loss"`
	TakeProfit  float64  `json:"take_profit"`
	RR          float64  `json:"rr"`
	Conditions  []string `json:"conditions"`

	EntryPrice float64 `json:"entry_price"`
	ClosePrice float64 `json:"close_price"`

	Status  TradeStatus `json:"status"`
	OpenTS  float64     `json:"open_timestamp"`
	CloseTS float64     `json:"close_timestamp"`

	PnlPercent         float64 `json:"pnl_percent"`
	DurationSeconds    float64 `json:"duration_seconds"`
	MaxDurationSeconds float64 `json:"max_duration_seconds"`
}

// NewTrade creates a PENDING trade from a signal.
func NewTrade(sig *Signal, maxDurationSeconds float64) *SimulatedTrade {
	id := uuid.New()
	return &SimulatedTrade{
		ID:                 hex.EncodeToString(id[:])[:12],
		Symbol:             sig.Symbol,
		Direction:          sig.Direction,
		SignalID:           sig.ID,
		SignalEntry:        sig.Entry,
		StopLoss:           sig.StopLoss,
		TakeProfit:         sig.TakeProfit,
		RR:                 sig.RR,
		Conditions:         append([]string(nil), sig.Conditions...),
		Status:             TradePending,
		MaxDurationSeconds: maxDurationSeconds,
	}
}

// Activate transitions PENDING -> OPEN at the first post-signal tick price.
func (t *SimulatedTrade) Activate(entryPrice, ts float64) error {
	if t.Status != TradePending {
		return fmt.Errorf("activate from %s: trade %s must be PENDING", t.Status, t.ID)
	}
	t.EntryPrice = entryPrice
	t.OpenTS = ts
	t.Status = TradeOpen
	return nil
}

// Close transitions OPEN -> PROFIT|LOSS|EXPIRED and computes PnL and
// duration. PnL is a percentage of the entry price so results compose
// across instruments with different price scales:
//
//	BUY:  pnl% = (close - entry) / entry * 100
//	SELL: pnl% = (entry - close) / entry * 100
func (t *SimulatedTrade) Close(closePrice float64, status TradeStatus, ts float64) error {
	if t.Status != TradeOpen {
		return fmt.Errorf("close from %s: trade %s must be OPEN", t.Status, t.ID)
	}
	switch status {
	case TradeProfit, TradeLoss, TradeExpired:
	default:
		return fmt.Errorf("close trade %s: invalid terminal status %s", t.ID, status)
	}

	t.ClosePrice = closePrice
	t.Status = status
	t.CloseTS = ts
	t.DurationSeconds = ts - t.OpenTS

	if t.EntryPrice != 0 {
		if t.Direction == DirectionBuy {
			t.PnlPercent = (closePrice - t.EntryPrice) / t.EntryPrice * 100.0
		} else {
			t.PnlPercent = (t.EntryPrice - closePrice) / t.EntryPrice * 100.0
		}
	}
	return nil
}

// IsPending reports whether the trade awaits activation.
func (t *SimulatedTrade) IsPending() bool { return t.Status == TradePending }

// IsOpen reports whether the trade is live.
func (t *SimulatedTrade) IsOpen() bool { return t.Status == TradeOpen }

// IsClosed reports whether the trade reached a terminal status.
func (t *SimulatedTrade) IsClosed() bool {
	switch t.Status {
	case TradeProfit, TradeLoss, TradeExpired:
		return true
	}
	return false
}

// JSON serializes the trade for downstream publication.
func (t *SimulatedTrade) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}
