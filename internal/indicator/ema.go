// Package indicator implements incremental EMA and RSI calculators that
// update in O(1) per closed candle, plus an engine that keys one calculator
// set per (symbol, timeframe).
package indicator

// EMA is an incremental exponential moving average. It seeds with the SMA of
// the first period closes and then applies the standard recurrence
// value = close*alpha + value*(1-alpha) with alpha = 2/(period+1).
type EMA struct {
	period int
	alpha  float64
	value  float64
	sum    float64
	count  int
	seeded bool
}

// NewEMA creates an EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Update feeds one close price.
func (e *EMA) Update(close float64) {
	if !e.seeded {
		e.count++
		e.sum += close
		if e.count == e.period {
			e.value = e.sum / float64(e.period)
			e.seeded = true
		}
		return
	}
	e.value = close*e.alpha + e.value*(1-e.alpha)
}

// Value returns the current EMA. The second return is false until the
// calculator has seen period closes.
func (e *EMA) Value() (float64, bool) {
	return e.value, e.seeded
}

// Period returns the configured period.
func (e *EMA) Period() int { return e.period }
