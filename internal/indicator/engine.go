package indicator

import (
	"quantpulse/internal/model"
)

type calcSet struct {
	emaFast *EMA
	emaSlow *EMA
	rsi     *RSI
}

// Engine owns one EMA-fast/EMA-slow/RSI calculator set per
// (symbol, timeframe) and produces a snapshot for every closed timeframe
// candle. Not goroutine safe; the orchestrator is the single caller.
type Engine struct {
	fastPeriod int
	slowPeriod int
	rsiPeriod  int
	state      map[string]*calcSet // keyed symbol|tf
}

// NewEngine creates an Engine with the given periods.
func NewEngine(fastPeriod, slowPeriod, rsiPeriod int) *Engine {
	return &Engine{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		rsiPeriod:  rsiPeriod,
		state:      make(map[string]*calcSet),
	}
}

// Update feeds a closed timeframe candle and returns the resulting snapshot.
// Snapshot fields stay nil until their calculator is warm.
func (e *Engine) Update(c model.Candle) model.IndicatorSnapshot {
	key := c.Symbol + "|" + c.Timeframe
	cs, ok := e.state[key]
	if !ok {
		cs = &calcSet{
			emaFast: NewEMA(e.fastPeriod),
			emaSlow: NewEMA(e.slowPeriod),
			rsi:     NewRSI(e.rsiPeriod),
		}
		e.state[key] = cs
	}

	cs.emaFast.Update(c.Close)
	cs.emaSlow.Update(c.Close)
	cs.rsi.Update(c.Close)

	snap := model.IndicatorSnapshot{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		Timestamp: c.CloseTime(),
	}
	if v, ok := cs.emaFast.Value(); ok {
		snap.EMAFast = &v
	}
	if v, ok := cs.emaSlow.Value(); ok {
		snap.EMASlow = &v
	}
	if v, ok := cs.rsi.Value(); ok {
		snap.RSI = &v
	}
	return snap
}

// WarmupCandles returns the number of closed candles needed before a
// snapshot is fully populated.
func (e *Engine) WarmupCandles() int {
	n := e.slowPeriod
	if e.rsiPeriod+1 > n {
		n = e.rsiPeriod + 1
	}
	return n
}
