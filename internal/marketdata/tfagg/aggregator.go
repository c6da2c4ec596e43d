// Package tfagg rolls closed base candles up into higher timeframes. The
// same bucket-alignment rule as the base builder applies, so 5m/15m/30m/1h
// candles land on calendar-aligned boundaries regardless of when the engine
// started.
package tfagg

import (
	"log"

	"quantpulse/internal/model"
)

// TimeframeSeconds maps supported timeframe labels to their duration.
var TimeframeSeconds = map[string]int{
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
}

// Aggregator maintains one building candle per (symbol, timeframe).
// Not goroutine safe; the orchestrator is the single caller.
type Aggregator struct {
	timeframes []string
	building   map[string]*model.Candle // keyed symbol|tf
}

// New creates an Aggregator for the given timeframe labels. Unknown labels
// are skipped with a log line.
func New(timeframes []string) *Aggregator {
	valid := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		if _, ok := TimeframeSeconds[tf]; !ok {
			log.Printf("[tfagg] skipping unknown timeframe %q", tf)
			continue
		}
		valid = append(valid, tf)
	}
	return &Aggregator{
		timeframes: valid,
		building:   make(map[string]*model.Candle),
	}
}

// Timeframes returns the configured timeframe labels.
func (a *Aggregator) Timeframes() []string {
	out := make([]string, len(a.timeframes))
	copy(out, a.timeframes)
	return out
}

// ProcessCandle folds a closed base candle into every configured timeframe
// and returns the timeframe candles that closed as a result, if any.
func (a *Aggregator) ProcessCandle(base model.Candle) []model.Candle {
	var closed []model.Candle
	for _, tf := range a.timeframes {
		if c := a.fold(base, tf); c != nil {
			closed = append(closed, *c)
		}
	}
	return closed
}

// Building returns a copy of the in-progress candle for (symbol, tf), if any.
func (a *Aggregator) Building(symbol, tf string) (model.Candle, bool) {
	cur, ok := a.building[symbol+"|"+tf]
	if !ok {
		return model.Candle{}, false
	}
	return *cur, true
}

func (a *Aggregator) fold(base model.Candle, tf string) *model.Candle {
	interval := TimeframeSeconds[tf]
	key := base.Symbol + "|" + tf
	bucket := alignTime(base.OpenTime, interval)

	cur, ok := a.building[key]
	if !ok {
		a.building[key] = open(base, tf, interval, bucket)
		return nil
	}

	if bucket == cur.OpenTime {
		if base.High > cur.High {
			cur.High = base.High
		}
		if base.Low < cur.Low {
			cur.Low = base.Low
		}
		cur.Close = base.Close
		cur.TickCount++
		return nil
	}

	done := *cur
	a.building[key] = open(base, tf, interval, bucket)
	log.Printf("[tfagg] closed %s %s candle open_time=%.0f c=%.4f base_candles=%d",
		done.Symbol, done.Timeframe, done.OpenTime, done.Close, done.TickCount)
	return &done
}

func open(base model.Candle, tf string, interval int, bucket float64) *model.Candle {
	return &model.Candle{
		Symbol:    base.Symbol,
		OpenTime:  bucket,
		Open:      base.Open,
		High:      base.High,
		Low:       base.Low,
		Close:     base.Close,
		TickCount: 1, // counts base candles at timeframe level
		Interval:  interval,
		Timeframe: tf,
	}
}

func alignTime(epoch float64, interval int) float64 {
	return float64(int64(epoch)/int64(interval)) * float64(interval)
}
