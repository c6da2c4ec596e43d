package indicator

// RSI is an incremental Wilder RSI. It seeds the average gain and loss with
// simple averages over the first period deltas (period+1 closes) and then
// applies Wilder smoothing: avg = (avg*(period-1) + x) / period.
type RSI struct {
	period    int
	count     int
	prevClose float64
	sumGain   float64
	sumLoss   float64
	avgGain   float64
	avgLoss   float64
	value     float64
	seeded    bool
}

// NewRSI creates an RSI with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update feeds one close price.
func (r *RSI) Update(close float64) {
	r.count++
	if r.count == 1 {
		r.prevClose = close
		return
	}

	delta := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if !r.seeded {
		r.sumGain += gain
		r.sumLoss += loss
		if r.count == r.period+1 {
			r.avgGain = r.sumGain / float64(r.period)
			r.avgLoss = r.sumLoss / float64(r.period)
			r.value = computeRSI(r.avgGain, r.avgLoss)
			r.seeded = true
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.value = computeRSI(r.avgGain, r.avgLoss)
}

// Value returns the current RSI. The second return is false until the
// calculator has seen period+1 closes.
func (r *RSI) Value() (float64, bool) {
	return r.value, r.seeded
}

// Period returns the configured period.
func (r *RSI) Period() int { return r.period }

// computeRSI maps average gain/loss to the 0-100 scale. A flat market
// (both averages zero) reads as neutral 50 rather than overbought 100.
func computeRSI(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	if avgGain == 0 {
		return 0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
