// Package sim drives paper trades against the live tick stream. A trade
// activates on the first tick after its signal and closes on expiry, stop,
// or target, checked strictly in that order so a tick crossing both levels
// records the loss.
package sim

import (
	"log"

	"quantpulse/internal/model"
	"quantpulse/internal/tradestate"
)

// Stats counts simulator outcomes.
type Stats struct {
	TradesOpened   uint64 `json:"trades_opened"`
	TradesClosed   uint64 `json:"trades_closed"`
	SignalsIgnored uint64 `json:"signals_ignored"`
}

// Simulator owns all mutation of SimulatedTrade through the trade state.
// Not goroutine safe; the orchestrator is the single caller.
type Simulator struct {
	state       *tradestate.Manager
	maxDuration float64
	stats       Stats
}

// New creates a Simulator. maxDurationSeconds <= 0 defaults to 30 minutes.
func New(state *tradestate.Manager, maxDurationSeconds float64) *Simulator {
	if maxDurationSeconds <= 0 {
		maxDurationSeconds = 1800
	}
	return &Simulator{state: state, maxDuration: maxDurationSeconds}
}

// OpenTrade creates a PENDING trade from a signal and registers it as the
// symbol's active trade. Returns nil when the symbol already has one.
func (s *Simulator) OpenTrade(sig *model.Signal) *model.SimulatedTrade {
	if s.state.HasActive(sig.Symbol) {
		s.stats.SignalsIgnored++
		log.Printf("[sim] signal %s ignored, %s already has an active trade", sig.ID, sig.Symbol)
		return nil
	}
	trade := model.NewTrade(sig, s.maxDuration)
	if !s.state.Register(trade) {
		log.Printf("[sim] register lost the slot for %s, dropping trade %s", sig.Symbol, trade.ID)
		return nil
	}
	s.stats.TradesOpened++
	log.Printf("[sim] trade %s opened %s %s entry_plan=%.4f sl=%.4f tp=%.4f",
		trade.ID, trade.Direction, trade.Symbol, trade.SignalEntry, trade.StopLoss, trade.TakeProfit)
	return trade
}

// EvaluateTick advances the symbol's active trade with a new tick. A PENDING
// trade activates at the tick price. An OPEN trade is checked for expiry,
// then stop loss, then take profit. Returns the trade when this tick closed
// it, nil otherwise.
func (s *Simulator) EvaluateTick(symbol string, price, ts float64) *model.SimulatedTrade {
	trade, ok := s.state.Active(symbol)
	if !ok {
		return nil
	}

	if trade.IsPending() {
		if err := trade.Activate(price, ts); err != nil {
			log.Printf("[sim] activate trade %s: %v", trade.ID, err)
		}
		return nil
	}

	status, closed := s.checkExit(trade, price, ts)
	if !closed {
		return nil
	}
	if err := trade.Close(price, status, ts); err != nil {
		log.Printf("[sim] close trade %s: %v", trade.ID, err)
		return nil
	}
	s.state.Archive(trade)
	s.stats.TradesClosed++
	log.Printf("[sim] trade %s closed %s at %.4f pnl=%.4f%% duration=%.0fs",
		trade.ID, trade.Status, price, trade.PnlPercent, trade.DurationSeconds)
	return trade
}

func (s *Simulator) checkExit(t *model.SimulatedTrade, price, ts float64) (model.TradeStatus, bool) {
	if ts-t.OpenTS >= t.MaxDurationSeconds {
		return model.TradeExpired, true
	}
	if t.Direction == model.DirectionBuy {
		if price <= t.StopLoss {
			return model.TradeLoss, true
		}
		if price >= t.TakeProfit {
			return model.TradeProfit, true
		}
		return "", false
	}
	if price >= t.StopLoss {
		return model.TradeLoss, true
	}
	if price <= t.TakeProfit {
		return model.TradeProfit, true
	}
	return "", false
}

// Stats returns a copy of the simulator counters.
func (s *Simulator) Stats() Stats { return s.stats }
