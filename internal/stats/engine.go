// Package stats computes performance metrics over closed trades in a single
// pass, with a lazy per-filter cache invalidated on every trade close.
package stats

import (
	"sync"

	"quantpulse/internal/model"
	"quantpulse/internal/tradestate"
)

const globalKey = "__global__"

type cacheEntry struct {
	count   int
	metrics model.PerformanceMetrics
}

// Engine serves metrics per symbol and globally. Safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	state *tradestate.Manager
	cache map[string]cacheEntry

	recomputes uint64
}

// New creates an Engine over the given trade state.
func New(state *tradestate.Manager) *Engine {
	return &Engine{
		state: state,
		cache: make(map[string]cacheEntry),
	}
}

// OnTradeClosed invalidates the cache slots touched by a close: the trade's
// symbol and the global aggregate.
func (e *Engine) OnTradeClosed(t *model.SimulatedTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, t.Symbol)
	delete(e.cache, globalKey)
}

// Metrics returns performance metrics for symbol, or across all symbols
// when symbol is empty. The result is served from cache while the closed
// trade count for the filter is unchanged.
func (e *Engine) Metrics(symbol string) model.PerformanceMetrics {
	key := symbol
	if key == "" {
		key = globalKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	count := e.state.ClosedCount(symbol)
	if entry, ok := e.cache[key]; ok && entry.count == count {
		return entry.metrics
	}

	trades := e.state.Closed(symbol)
	m := Compute(trades)
	e.cache[key] = cacheEntry{count: count, metrics: m}
	e.recomputes++
	return m
}

// Recomputes returns how many times metrics were recomputed from scratch.
func (e *Engine) Recomputes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recomputes
}

// Compute builds metrics from closed trades in one pass. Trades must be
// sorted by close time ascending for the equity curve to be meaningful.
func Compute(trades []*model.SimulatedTrade) model.PerformanceMetrics {
	m := model.PerformanceMetrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var (
		grossProfit, grossLoss float64
		sumDuration            float64
		equity, peak, maxDD    float64
		best, worst            = trades[0].PnlPercent, trades[0].PnlPercent
	)
	m.EquityCurve = make([]float64, 0, len(trades))

	for _, t := range trades {
		pnl := t.PnlPercent
		switch t.Status {
		case model.TradeProfit:
			m.Wins++
		case model.TradeLoss:
			m.Losses++
		case model.TradeExpired:
			m.Expired++
			if pnl > 0 {
				m.Wins++
			} else if pnl < 0 {
				m.Losses++
			}
		}

		if pnl > 0 {
			grossProfit += pnl
		} else {
			grossLoss += -pnl
		}
		if pnl > best {
			best = pnl
		}
		if pnl < worst {
			worst = pnl
		}
		sumDuration += t.DurationSeconds

		equity += pnl
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
		m.EquityCurve = append(m.EquityCurve, equity)
	}

	n := float64(len(trades))
	m.WinRate = float64(m.Wins) / n * 100
	m.LossRate = 100 - m.WinRate
	m.GrossProfit = grossProfit
	m.GrossLoss = grossLoss
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}
	if m.Wins > 0 {
		m.AvgWin = grossProfit / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = grossLoss / float64(m.Losses)
	}
	m.Expectancy = float64(m.Wins)/n*m.AvgWin - float64(m.Losses)/n*m.AvgLoss
	if m.AvgLoss > 0 {
		m.AvgRRReal = m.AvgWin / m.AvgLoss
	}
	m.AvgDuration = sumDuration / n
	m.MaxDrawdown = maxDD
	m.BestTrade = best
	m.WorstTrade = worst
	m.TotalPnl = grossProfit - grossLoss
	return m
}
