// Package sr detects swing-based support and resistance levels and exposes
// the price-action predicates the signal engine confirms against. Swings are
// detected one candle late so a level never appears and then vanishes when
// the next candle extends past it.
package sr

import (
	"log"

	"quantpulse/internal/model"
	"quantpulse/internal/ringbuf"
)

// Level is a detected swing price with the open time of the candle that
// formed it.
type Level struct {
	Price     float64 `json:"price"`
	Timestamp float64 `json:"timestamp"`
}

type symbolLevels struct {
	swingHighs *ringbuf.Ring[Level]
	swingLows  *ringbuf.Ring[Level]
}

// Config tunes level detection and the predicates.
type Config struct {
	MaxLevels             int     // bounded swing deques, default 10
	TolerancePct          float64 // proximity band for bounce/rejection
	BreakoutRangeMult     float64 // candle range vs average for breakouts
	ConsolidationLookback int
	ConsolidationMaxMult  float64
	AvgRangePeriod        int
}

func (c *Config) defaults() {
	if c.MaxLevels <= 0 {
		c.MaxLevels = 10
	}
	if c.TolerancePct <= 0 {
		c.TolerancePct = 0.0015
	}
	if c.BreakoutRangeMult <= 0 {
		c.BreakoutRangeMult = 1.2
	}
	if c.ConsolidationLookback <= 0 {
		c.ConsolidationLookback = 10
	}
	if c.ConsolidationMaxMult <= 0 {
		c.ConsolidationMaxMult = 2.0
	}
	if c.AvgRangePeriod <= 0 {
		c.AvgRangePeriod = 10
	}
}

// Engine tracks swing levels per symbol. Not goroutine safe; the
// orchestrator is the single caller.
type Engine struct {
	cfg     Config
	symbols map[string]*symbolLevels
}

// New creates an Engine. Zero-valued Config fields take defaults.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		cfg:     cfg,
		symbols: make(map[string]*symbolLevels),
	}
}

func (e *Engine) levels(symbol string) *symbolLevels {
	s, ok := e.symbols[symbol]
	if !ok {
		s = &symbolLevels{
			swingHighs: ringbuf.New[Level](e.cfg.MaxLevels),
			swingLows:  ringbuf.New[Level](e.cfg.MaxLevels),
		}
		e.symbols[symbol] = s
	}
	return s
}

// Update inspects the last three candles of buf (oldest first, newest last)
// and records a swing formed by the middle one. buf must already include
// candle as its newest element; fewer than three candles is a no-op.
func (e *Engine) Update(candle model.Candle, buf []model.Candle) {
	n := len(buf)
	if n < 3 {
		return
	}
	left, mid, right := buf[n-3], buf[n-2], buf[n-1]
	s := e.levels(candle.Symbol)

	if mid.High > left.High && mid.High > right.High {
		s.swingHighs.Push(Level{Price: mid.High, Timestamp: mid.OpenTime})
		log.Printf("[sr] %s swing high %.4f at %.0f", candle.Symbol, mid.High, mid.OpenTime)
	}
	if mid.Low < left.Low && mid.Low < right.Low {
		s.swingLows.Push(Level{Price: mid.Low, Timestamp: mid.OpenTime})
		log.Printf("[sr] %s swing low %.4f at %.0f", candle.Symbol, mid.Low, mid.OpenTime)
	}
}

// NearestSupport returns the highest swing low strictly below price.
func (e *Engine) NearestSupport(symbol string, price float64) (float64, bool) {
	s, ok := e.symbols[symbol]
	if !ok {
		return 0, false
	}
	best, found := 0.0, false
	for i := 0; i < s.swingLows.Len(); i++ {
		p := s.swingLows.At(i).Price
		if p < price && (!found || p > best) {
			best, found = p, true
		}
	}
	return best, found
}

// NearestResistance returns the lowest swing high strictly above price.
func (e *Engine) NearestResistance(symbol string, price float64) (float64, bool) {
	s, ok := e.symbols[symbol]
	if !ok {
		return 0, false
	}
	best, found := 0.0, false
	for i := 0; i < s.swingHighs.Len(); i++ {
		p := s.swingHighs.At(i).Price
		if p > price && (!found || p < best) {
			best, found = p, true
		}
	}
	return best, found
}

// LastSwingLow returns the most recently detected swing low.
func (e *Engine) LastSwingLow(symbol string) (float64, bool) {
	s, ok := e.symbols[symbol]
	if !ok {
		return 0, false
	}
	lvl, ok := s.swingLows.Last()
	return lvl.Price, ok
}

// LastSwingHigh returns the most recently detected swing high.
func (e *Engine) LastSwingHigh(symbol string) (float64, bool) {
	s, ok := e.symbols[symbol]
	if !ok {
		return 0, false
	}
	lvl, ok := s.swingHighs.Last()
	return lvl.Price, ok
}

// IsBounceOnSupport reports whether c probed support and closed back above
// it as a bullish candle.
func (e *Engine) IsBounceOnSupport(c model.Candle, support float64) bool {
	return c.Low <= support*(1+e.cfg.TolerancePct) &&
		c.Close > support &&
		c.Close > c.Open
}

// IsRejectionAtResistance reports whether c probed resistance and closed
// back below it as a bearish candle.
func (e *Engine) IsRejectionAtResistance(c model.Candle, resistance float64) bool {
	return c.High >= resistance*(1-e.cfg.TolerancePct) &&
		c.Close < resistance &&
		c.Close < c.Open
}

// IsBreakoutAbove reports whether c closed above resistance with a range
// materially wider than average. A zero average range never qualifies.
func (e *Engine) IsBreakoutAbove(c model.Candle, resistance, avgRange float64) bool {
	if avgRange <= 0 {
		return false
	}
	return c.Close > resistance && c.Range() > avgRange*e.cfg.BreakoutRangeMult
}

// IsBreakoutBelow is the bearish mirror of IsBreakoutAbove.
func (e *Engine) IsBreakoutBelow(c model.Candle, support, avgRange float64) bool {
	if avgRange <= 0 {
		return false
	}
	return c.Close < support && c.Range() > avgRange*e.cfg.BreakoutRangeMult
}

// IsConsolidating reports whether the total span of the last lookback
// candles is small relative to the average candle range. With fewer candles
// than the lookback the market is treated as consolidating, which keeps the
// signal engine quiet until enough structure exists.
func (e *Engine) IsConsolidating(buf []model.Candle) bool {
	n := e.cfg.ConsolidationLookback
	if len(buf) < n {
		return true
	}
	window := buf[len(buf)-n:]
	hi, lo := window[0].High, window[0].Low
	sum := 0.0
	for _, c := range window {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
		sum += c.Range()
	}
	// Span and mean come from the same window so the verdict only depends
	// on the candles it actually covers.
	avg := sum / float64(n)
	if avg <= 0 {
		return true
	}
	return (hi - lo) < avg*e.cfg.ConsolidationMaxMult
}

// AvgRange returns the mean high-low range over the last AvgRangePeriod
// candles of buf (or all of buf when shorter). Empty buf returns 0.
func (e *Engine) AvgRange(buf []model.Candle) float64 {
	if len(buf) == 0 {
		return 0
	}
	n := e.cfg.AvgRangePeriod
	if len(buf) < n {
		n = len(buf)
	}
	window := buf[len(buf)-n:]
	sum := 0.0
	for _, c := range window {
		sum += c.Range()
	}
	return sum / float64(n)
}

// Levels returns copies of the current swing deques for diagnostics.
func (e *Engine) Levels(symbol string) (highs, lows []Level) {
	s, ok := e.symbols[symbol]
	if !ok {
		return nil, nil
	}
	return s.swingHighs.Snapshot(), s.swingLows.Snapshot()
}
