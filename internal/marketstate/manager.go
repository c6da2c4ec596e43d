// Package marketstate holds the engine's live view of each symbol: the last
// tick, and bounded histories of closed base and timeframe candles. All
// reads return copies so callers never alias the internal buffers.
package marketstate

import (
	"sync"

	"quantpulse/internal/model"
	"quantpulse/internal/ringbuf"
)

// DefaultMaxBuffer bounds per-symbol candle history when no size is given.
const DefaultMaxBuffer = 200

type symbolState struct {
	lastTick  model.Tick
	hasTick   bool
	base      *ringbuf.Ring[model.Candle]
	tf        map[string]*ringbuf.Ring[model.Candle]
	tickCount uint64
}

// Manager is the shared market state store. Safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	maxBuffer int
	symbols   map[string]*symbolState
}

// New creates a Manager. maxBuffer <= 0 selects DefaultMaxBuffer.
func New(maxBuffer int) *Manager {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Manager{
		maxBuffer: maxBuffer,
		symbols:   make(map[string]*symbolState),
	}
}

func (m *Manager) state(symbol string) *symbolState {
	s, ok := m.symbols[symbol]
	if !ok {
		s = &symbolState{
			base: ringbuf.New[model.Candle](m.maxBuffer),
			tf:   make(map[string]*ringbuf.Ring[model.Candle]),
		}
		m.symbols[symbol] = s
	}
	return s
}

// UpdateTick records the latest tick for a symbol.
func (m *Manager) UpdateTick(t model.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(t.Symbol)
	s.lastTick = t
	s.hasTick = true
	s.tickCount++
}

// AddCandle appends a closed base candle to the symbol's history.
func (m *Manager) AddCandle(c model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state(c.Symbol).base.Push(c)
}

// AddTFCandle appends a closed timeframe candle to the symbol's history for
// the candle's timeframe.
func (m *Manager) AddTFCandle(c model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(c.Symbol)
	r, ok := s.tf[c.Timeframe]
	if !ok {
		r = ringbuf.New[model.Candle](m.maxBuffer)
		s.tf[c.Timeframe] = r
	}
	r.Push(c)
}

// LastTick returns the most recent tick for symbol.
func (m *Manager) LastTick(symbol string) (model.Tick, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.symbols[symbol]
	if !ok || !s.hasTick {
		return model.Tick{}, false
	}
	return s.lastTick, true
}

// LastPrice returns the most recent quote for symbol.
func (m *Manager) LastPrice(symbol string) (float64, bool) {
	t, ok := m.LastTick(symbol)
	if !ok {
		return 0, false
	}
	return t.Quote, true
}

// Candles returns a copy of the last n closed base candles for symbol,
// oldest first. n <= 0 returns the full history.
func (m *Manager) Candles(symbol string, n int) []model.Candle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.symbols[symbol]
	if !ok {
		return nil
	}
	if n <= 0 || n > s.base.Len() {
		return s.base.Snapshot()
	}
	return s.base.Tail(n)
}

// TFCandles returns a copy of the last n closed timeframe candles for
// (symbol, tf), oldest first. n <= 0 returns the full history.
func (m *Manager) TFCandles(symbol, tf string, n int) []model.Candle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.symbols[symbol]
	if !ok {
		return nil
	}
	r, ok := s.tf[tf]
	if !ok {
		return nil
	}
	if n <= 0 || n > r.Len() {
		return r.Snapshot()
	}
	return r.Tail(n)
}

// SymbolSnapshot is a diagnostic view of one symbol's state.
type SymbolSnapshot struct {
	Symbol      string         `json:"symbol"`
	LastPrice   float64        `json:"last_price"`
	LastEpoch   float64        `json:"last_epoch"`
	TickCount   uint64         `json:"tick_count"`
	BaseCandles int            `json:"base_candles"`
	TFCandles   map[string]int `json:"tf_candles"`
}

// Snapshot returns a diagnostic view of all tracked symbols.
func (m *Manager) Snapshot() []SymbolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SymbolSnapshot, 0, len(m.symbols))
	for sym, s := range m.symbols {
		tfCounts := make(map[string]int, len(s.tf))
		for tf, r := range s.tf {
			tfCounts[tf] = r.Len()
		}
		out = append(out, SymbolSnapshot{
			Symbol:      sym,
			LastPrice:   s.lastTick.Quote,
			LastEpoch:   s.lastTick.Epoch,
			TickCount:   s.tickCount,
			BaseCandles: s.base.Len(),
			TFCandles:   tfCounts,
		})
	}
	return out
}
