// Package candlebuilder folds raw ticks into fixed-interval base candles.
// Candle boundaries are aligned to the epoch (floor(ts/interval)*interval)
// so every instance produces identical buckets for the same tick stream.
package candlebuilder

import (
	"log"

	"quantpulse/internal/model"
)

// Builder accumulates ticks into one building candle per symbol and emits
// each candle once the first tick at or past its close boundary arrives.
// Not goroutine safe; the orchestrator is the single caller.
type Builder struct {
	interval int
	building map[string]*model.Candle
}

// New creates a Builder with the given candle interval in seconds.
func New(intervalSeconds int) *Builder {
	if intervalSeconds <= 0 {
		intervalSeconds = 5
	}
	return &Builder{
		interval: intervalSeconds,
		building: make(map[string]*model.Candle),
	}
}

// Interval returns the candle interval in seconds.
func (b *Builder) Interval() int { return b.interval }

// ProcessTick folds a tick into the symbol's building candle. When the tick
// falls at or past the building candle's close boundary, the finished candle
// is returned and the tick seeds a new one. Returns nil otherwise.
func (b *Builder) ProcessTick(t model.Tick) *model.Candle {
	cur, ok := b.building[t.Symbol]
	if !ok {
		b.building[t.Symbol] = b.open(t)
		return nil
	}

	if t.Epoch < cur.CloseTime() {
		fold(cur, t.Quote)
		return nil
	}

	// Boundary crossed: the previous candle is complete and the tick belongs
	// entirely to the next bucket.
	closed := *cur
	b.building[t.Symbol] = b.open(t)
	log.Printf("[candlebuilder] closed %s candle open_time=%.0f c=%.4f ticks=%d",
		closed.Symbol, closed.OpenTime, closed.Close, closed.TickCount)
	return &closed
}

// Building returns a copy of the in-progress candle for symbol, if any.
func (b *Builder) Building(symbol string) (model.Candle, bool) {
	cur, ok := b.building[symbol]
	if !ok {
		return model.Candle{}, false
	}
	return *cur, true
}

func (b *Builder) open(t model.Tick) *model.Candle {
	return &model.Candle{
		Symbol:    t.Symbol,
		OpenTime:  alignTime(t.Epoch, b.interval),
		Open:      t.Quote,
		High:      t.Quote,
		Low:       t.Quote,
		Close:     t.Quote,
		TickCount: 1,
		Interval:  b.interval,
	}
}

func fold(c *model.Candle, price float64) {
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
	c.Close = price
	c.TickCount++
}

func alignTime(epoch float64, interval int) float64 {
	return float64(int64(epoch)/int64(interval)) * float64(interval)
}
