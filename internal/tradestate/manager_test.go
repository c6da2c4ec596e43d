package tradestate

import (
	"testing"

	"quantpulse/internal/model"
)

func newTrade(symbol string) *model.SimulatedTrade {
	return model.NewTrade(&model.Signal{
		ID: model.NewSignalID(), Symbol: symbol, Direction: model.DirectionBuy,
		Entry: 100, StopLoss: 99, TakeProfit: 102, RR: 2,
	}, 1800)
}

func closedTrade(symbol string, closeTS float64) *model.SimulatedTrade {
	t := newTrade(symbol)
	t.Activate(100.0, closeTS-10)
	t.Close(102.0, model.TradeProfit, closeTS)
	return t
}

func TestRegisterIsCompareAndSet(t *testing.T) {
	m := New(10)
	a, b := newTrade("R_100"), newTrade("R_100")

	if !m.Register(a) {
		t.Fatal("first Register failed")
	}
	if m.Register(b) {
		t.Error("second Register succeeded with occupied slot")
	}

	got, ok := m.Active("R_100")
	if !ok || got.ID != a.ID {
		t.Errorf("Active = %v,%v, want first trade", got, ok)
	}
}

func TestArchiveFreesSlotAndStoresTrade(t *testing.T) {
	m := New(10)
	tr := newTrade("R_100")
	m.Register(tr)
	tr.Activate(100.0, 1.0)
	tr.Close(102.0, model.TradeProfit, 5.0)

	m.Archive(tr)
	if m.HasActive("R_100") {
		t.Error("slot still occupied after archive")
	}
	if n := m.ClosedCount("R_100"); n != 1 {
		t.Errorf("ClosedCount = %d, want 1", n)
	}
}

func TestArchiveRejectsOpenTrade(t *testing.T) {
	m := New(10)
	tr := newTrade("R_100")
	m.Register(tr)
	tr.Activate(100.0, 1.0)

	m.Archive(tr)
	if !m.HasActive("R_100") {
		t.Error("open trade was archived")
	}
}

func TestClosedHistoryBoundedAndSorted(t *testing.T) {
	m := New(3)
	for i := 5; i >= 1; i-- {
		m.Archive(closedTrade("R_100", float64(i*100)))
	}

	got := m.Closed("R_100")
	if len(got) != 3 {
		t.Fatalf("Closed len = %d, want 3 (bounded)", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CloseTS < got[i-1].CloseTS {
			t.Errorf("Closed not sorted by close time: %g after %g", got[i].CloseTS, got[i-1].CloseTS)
		}
	}
}

func TestClosedAcrossSymbols(t *testing.T) {
	m := New(10)
	m.Archive(closedTrade("R_100", 200))
	m.Archive(closedTrade("R_50", 100))

	all := m.Closed("")
	if len(all) != 2 {
		t.Fatalf("Closed(all) len = %d, want 2", len(all))
	}
	if all[0].Symbol != "R_50" {
		t.Errorf("Closed(all) not sorted by close time: first is %s", all[0].Symbol)
	}
	if n := m.ClosedCount(""); n != 2 {
		t.Errorf("ClosedCount(all) = %d, want 2", n)
	}
}
