// Package signal evaluates multi-confirmation trade signals on closed
// active-timeframe candles. A signal requires at least min_confirmations
// agreeing conditions, survives cooldown and consolidation filters, and must
// yield a viable stop/target pair from detected swing levels.
package signal

import (
	"log"

	"quantpulse/internal/model"
	"quantpulse/internal/ringbuf"
	"quantpulse/internal/sr"
)

// Condition tags carried on emitted signals.
const (
	CondEMACross    = "ema_cross"
	CondEMATrend    = "ema_trend"
	CondRSIReversal = "rsi_reversal"
	CondSRBounce    = "sr_bounce"
	CondBreakout    = "breakout"
)

// AllConditions lists every known condition tag.
var AllConditions = []string{
	CondEMACross, CondEMATrend, CondRSIReversal, CondSRBounce, CondBreakout,
}

// RecentSignalsCap bounds the per-symbol recent-signal buffer.
const RecentSignalsCap = 50

// Config tunes signal evaluation.
type Config struct {
	MinConfirmations int
	RRRatio          float64
	MinRR            float64
	RSIOversold      float64
	RSIOverbought    float64
	MinSLPct         float64
	CooldownCandles  int

	// Enabled restricts evaluation to the named conditions. nil enables all.
	Enabled map[string]bool
}

func (c *Config) defaults() {
	if c.MinConfirmations <= 0 {
		c.MinConfirmations = 2
	}
	if c.RRRatio <= 0 {
		c.RRRatio = 2.0
	}
	if c.MinRR <= 0 {
		c.MinRR = 1.0
	}
	if c.RSIOversold <= 0 {
		c.RSIOversold = 35
	}
	if c.RSIOverbought <= 0 {
		c.RSIOverbought = 65
	}
	if c.MinSLPct <= 0 {
		c.MinSLPct = 0.0002
	}
	if c.CooldownCandles <= 0 {
		c.CooldownCandles = 3
	}
}

// Stats counts evaluation outcomes.
type Stats struct {
	TotalEvaluated        uint64 `json:"total_evaluated"`
	TotalSignals          uint64 `json:"total_signals"`
	BuySignals            uint64 `json:"buy_signals"`
	SellSignals           uint64 `json:"sell_signals"`
	FilteredConsolidation uint64 `json:"filtered_consolidation"`
	FilteredRR            uint64 `json:"filtered_rr"`
}

// Engine evaluates one symbol at a time on the active timeframe.
// Not goroutine safe; the orchestrator is the single caller.
type Engine struct {
	cfg Config
	sr  *sr.Engine

	prev         map[string]model.IndicatorSnapshot
	lastSignalTS map[string]float64
	recent       map[string]*ringbuf.Ring[model.Signal]
	stats        Stats
}

// New creates an Engine backed by the given S/R engine.
func New(cfg Config, srEngine *sr.Engine) *Engine {
	cfg.defaults()
	return &Engine{
		cfg:          cfg,
		sr:           srEngine,
		prev:         make(map[string]model.IndicatorSnapshot),
		lastSignalTS: make(map[string]float64),
		recent:       make(map[string]*ringbuf.Ring[model.Signal]),
	}
}

func (e *Engine) enabled(cond string) bool {
	if e.cfg.Enabled == nil {
		return true
	}
	return e.cfg.Enabled[cond]
}

// Evaluate runs the full pipeline on a closed active-timeframe candle with
// its indicator snapshot and buffer (oldest first, candle last). Returns nil
// when no signal is emitted. The snapshot is stored as the symbol's previous
// snapshot exactly once, whatever the outcome.
func (e *Engine) Evaluate(c model.Candle, snap model.IndicatorSnapshot, buf []model.Candle) *model.Signal {
	sym := c.Symbol
	e.stats.TotalEvaluated++
	defer func() { e.prev[sym] = snap }()

	if !snap.Ready() {
		return nil
	}
	prev, ok := e.prev[sym]
	if !ok || !prev.Ready() {
		return nil
	}

	if last, ok := e.lastSignalTS[sym]; ok {
		if c.OpenTime-last < float64(e.cfg.CooldownCandles*c.Interval) {
			return nil
		}
	}

	if e.sr.IsConsolidating(buf) {
		e.stats.FilteredConsolidation++
		return nil
	}

	buyTags, sellTags := e.conditions(c, snap, prev, buf)

	direction := ""
	var tags []string
	buyOK := len(buyTags) >= e.cfg.MinConfirmations
	sellOK := len(sellTags) >= e.cfg.MinConfirmations
	switch {
	case buyOK && sellOK:
		// Conflicting confirmations on both sides, stand aside.
	case buyOK && len(buyTags) > len(sellTags):
		direction, tags = model.DirectionBuy, buyTags
	case sellOK && len(sellTags) > len(buyTags):
		direction, tags = model.DirectionSell, sellTags
	}
	if direction == "" {
		return nil
	}

	entry := c.Close
	sl, ok := e.stopLoss(sym, direction, entry)
	if !ok {
		return nil
	}

	slDistance := entry - sl
	if direction == model.DirectionSell {
		slDistance = sl - entry
	}
	if entry == 0 || slDistance/entry < e.cfg.MinSLPct {
		e.stats.FilteredRR++
		return nil
	}

	tpDistance := slDistance * e.cfg.RRRatio
	tp := entry + tpDistance
	if direction == model.DirectionSell {
		tp = entry - tpDistance
	}
	rr := tpDistance / slDistance
	if rr < e.cfg.MinRR {
		e.stats.FilteredRR++
		return nil
	}

	sig := &model.Signal{
		ID:                model.NewSignalID(),
		Symbol:            sym,
		Direction:         direction,
		Entry:             entry,
		StopLoss:          sl,
		TakeProfit:        tp,
		RR:                rr,
		CreatedAt:         c.CloseTime(),
		CandleTimestamp:   c.OpenTime,
		Timeframe:         c.Timeframe,
		Conditions:        tags,
		Confidence:        len(tags),
		EstimatedDuration: e.estimateDuration(tpDistance, c, buf),
	}

	e.lastSignalTS[sym] = c.OpenTime
	e.record(*sig)
	e.stats.TotalSignals++
	if direction == model.DirectionBuy {
		e.stats.BuySignals++
	} else {
		e.stats.SellSignals++
	}
	log.Printf("[signal] %s %s entry=%.4f sl=%.4f tp=%.4f conditions=%v",
		sym, direction, entry, sl, tp, tags)
	return sig
}

func (e *Engine) conditions(c model.Candle, snap, prev model.IndicatorSnapshot, buf []model.Candle) (buy, sell []string) {
	fast, slow := *snap.EMAFast, *snap.EMASlow
	prevDiff := *prev.EMAFast - *prev.EMASlow
	currDiff := fast - slow

	if e.enabled(CondEMACross) {
		if prevDiff < 0 && currDiff > 0 {
			buy = append(buy, CondEMACross)
		} else if prevDiff > 0 && currDiff < 0 {
			sell = append(sell, CondEMACross)
		}
	}

	if e.enabled(CondEMATrend) {
		if fast > slow {
			buy = append(buy, CondEMATrend)
		} else if fast < slow {
			sell = append(sell, CondEMATrend)
		}
	}

	if e.enabled(CondRSIReversal) {
		rsi, prevRSI := *snap.RSI, *prev.RSI
		if rsi < e.cfg.RSIOversold && rsi > prevRSI {
			buy = append(buy, CondRSIReversal)
		} else if rsi > e.cfg.RSIOverbought && rsi < prevRSI {
			sell = append(sell, CondRSIReversal)
		}
	}

	if e.enabled(CondSRBounce) {
		if sup, ok := e.sr.NearestSupport(c.Symbol, c.Close); ok && e.sr.IsBounceOnSupport(c, sup) {
			buy = append(buy, CondSRBounce)
		}
		if res, ok := e.sr.NearestResistance(c.Symbol, c.Close); ok && e.sr.IsRejectionAtResistance(c, res) {
			sell = append(sell, CondSRBounce)
		}
	}

	if e.enabled(CondBreakout) {
		avgRange := e.sr.AvgRange(buf)
		// Nearest levels relative to the open, so a candle that just crossed
		// a level still sees it.
		if res, ok := e.sr.NearestResistance(c.Symbol, c.Open); ok && e.sr.IsBreakoutAbove(c, res, avgRange) {
			buy = append(buy, CondBreakout)
		}
		if sup, ok := e.sr.NearestSupport(c.Symbol, c.Open); ok && e.sr.IsBreakoutBelow(c, sup, avgRange) {
			sell = append(sell, CondBreakout)
		}
	}
	return buy, sell
}

// stopLoss picks the stop level from the nearest swing on the protective
// side, falling back to the last swing when no level is strictly beyond the
// entry. Rejects stops on the wrong side of the entry.
func (e *Engine) stopLoss(symbol, direction string, entry float64) (float64, bool) {
	if direction == model.DirectionBuy {
		sl, ok := e.sr.NearestSupport(symbol, entry)
		if !ok {
			sl, ok = e.sr.LastSwingLow(symbol)
		}
		if !ok || sl >= entry {
			return 0, false
		}
		return sl, true
	}
	sl, ok := e.sr.NearestResistance(symbol, entry)
	if !ok {
		sl, ok = e.sr.LastSwingHigh(symbol)
	}
	if !ok || sl <= entry {
		return 0, false
	}
	return sl, true
}

// estimateDuration projects how many minutes the target might take to reach
// at the recent average candle range. Advisory only.
func (e *Engine) estimateDuration(tpDistance float64, c model.Candle, buf []model.Candle) float64 {
	avgRange := e.sr.AvgRange(buf)
	if avgRange <= 0 {
		return 0
	}
	return (tpDistance / avgRange) * float64(c.Interval) / 60.0
}

func (e *Engine) record(sig model.Signal) {
	r, ok := e.recent[sig.Symbol]
	if !ok {
		r = ringbuf.New[model.Signal](RecentSignalsCap)
		e.recent[sig.Symbol] = r
	}
	r.Push(sig)
}

// RecentSignals returns a copy of the last n signals for symbol, oldest
// first. n <= 0 returns the full buffer.
func (e *Engine) RecentSignals(symbol string, n int) []model.Signal {
	r, ok := e.recent[symbol]
	if !ok {
		return nil
	}
	if n <= 0 || n > r.Len() {
		return r.Snapshot()
	}
	return r.Tail(n)
}

// Stats returns a copy of the evaluation counters.
func (e *Engine) Stats() Stats { return e.stats }
