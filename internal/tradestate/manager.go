// Package tradestate owns the active-trade slot per symbol and the bounded
// archive of closed trades. Register is a compare-and-set, which is what
// enforces the one-active-trade-per-symbol invariant.
package tradestate

import (
	"sort"
	"sync"

	"quantpulse/internal/model"
	"quantpulse/internal/ringbuf"
)

// DefaultMaxHistory bounds the per-symbol closed-trade archive.
const DefaultMaxHistory = 500

// Manager is the trade state store. Safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	active     map[string]*model.SimulatedTrade
	closed     map[string]*ringbuf.Ring[*model.SimulatedTrade]
}

// New creates a Manager. maxHistory <= 0 selects DefaultMaxHistory.
func New(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		active:     make(map[string]*model.SimulatedTrade),
		closed:     make(map[string]*ringbuf.Ring[*model.SimulatedTrade]),
	}
}

// Register installs t as the symbol's active trade. Returns false when the
// slot is already occupied.
func (m *Manager) Register(t *model.SimulatedTrade) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[t.Symbol]; busy {
		return false
	}
	m.active[t.Symbol] = t
	return true
}

// Active returns the symbol's active trade, if any.
func (m *Manager) Active(symbol string) (*model.SimulatedTrade, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.active[symbol]
	return t, ok
}

// HasActive reports whether the symbol's slot is occupied.
func (m *Manager) HasActive(symbol string) bool {
	_, ok := m.Active(symbol)
	return ok
}

// AllActive returns the active trades across all symbols.
func (m *Manager) AllActive() []*model.SimulatedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SimulatedTrade, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, t)
	}
	return out
}

// Archive moves a closed trade from the active slot to the archive. The
// trade must be in a terminal status.
func (m *Manager) Archive(t *model.SimulatedTrade) {
	if !t.IsClosed() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.active[t.Symbol]; ok && cur.ID == t.ID {
		delete(m.active, t.Symbol)
	}
	r, ok := m.closed[t.Symbol]
	if !ok {
		r = ringbuf.New[*model.SimulatedTrade](m.maxHistory)
		m.closed[t.Symbol] = r
	}
	r.Push(t)
}

// Closed returns closed trades for symbol, or for all symbols when symbol
// is empty, sorted by close time ascending.
func (m *Manager) Closed(symbol string) []*model.SimulatedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SimulatedTrade
	if symbol != "" {
		if r, ok := m.closed[symbol]; ok {
			out = r.Snapshot()
		}
	} else {
		for _, r := range m.closed {
			out = append(out, r.Snapshot()...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CloseTS < out[j].CloseTS })
	return out
}

// ClosedCount returns the number of archived trades for symbol, or across
// all symbols when symbol is empty.
func (m *Manager) ClosedCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if symbol != "" {
		if r, ok := m.closed[symbol]; ok {
			return r.Len()
		}
		return 0
	}
	n := 0
	for _, r := range m.closed {
		n += r.Len()
	}
	return n
}
