package candlebuilder

import (
	"testing"

	"quantpulse/internal/model"
)

func tick(sym string, epoch, quote float64) model.Tick {
	return model.Tick{Symbol: sym, Epoch: epoch, Quote: quote}
}

func TestCandleFormation(t *testing.T) {
	b := New(5)

	if c := b.ProcessTick(tick("R_100", 0.2, 100.0)); c != nil {
		t.Fatalf("first tick closed a candle: %+v", c)
	}
	if c := b.ProcessTick(tick("R_100", 1.5, 101.0)); c != nil {
		t.Fatalf("mid-bucket tick closed a candle: %+v", c)
	}
	if c := b.ProcessTick(tick("R_100", 4.9, 99.5)); c != nil {
		t.Fatalf("mid-bucket tick closed a candle: %+v", c)
	}

	closed := b.ProcessTick(tick("R_100", 5.1, 102.0))
	if closed == nil {
		t.Fatal("boundary tick did not close the candle")
	}
	if closed.OpenTime != 0 {
		t.Errorf("OpenTime = %g, want 0", closed.OpenTime)
	}
	if closed.Open != 100.0 || closed.High != 101.0 || closed.Low != 99.5 || closed.Close != 99.5 {
		t.Errorf("OHLC = %g/%g/%g/%g, want 100/101/99.5/99.5",
			closed.Open, closed.High, closed.Low, closed.Close)
	}
	if closed.TickCount != 3 {
		t.Errorf("TickCount = %d, want 3", closed.TickCount)
	}

	// The boundary tick seeded a new building candle at open_time 5.
	building, ok := b.Building("R_100")
	if !ok {
		t.Fatal("no building candle after boundary tick")
	}
	if building.OpenTime != 5 || building.Open != 102.0 || building.TickCount != 1 {
		t.Errorf("building = open_time=%g open=%g ticks=%d, want 5/102/1",
			building.OpenTime, building.Open, building.TickCount)
	}
}

func TestTickExactlyAtBoundaryClosesPrevious(t *testing.T) {
	b := New(5)
	b.ProcessTick(tick("R_100", 0.0, 10.0))
	closed := b.ProcessTick(tick("R_100", 5.0, 11.0))
	if closed == nil {
		t.Fatal("tick at exact boundary did not close the candle")
	}
	if closed.Close != 10.0 {
		t.Errorf("Close = %g, want 10.0 (boundary tick belongs to next bucket)", closed.Close)
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	b := New(5)
	b.ProcessTick(tick("R_100", 0.5, 100))
	b.ProcessTick(tick("R_50", 0.7, 200))

	if c := b.ProcessTick(tick("R_100", 5.5, 101)); c == nil || c.Symbol != "R_100" {
		t.Fatalf("R_100 boundary tick closed %+v", c)
	}
	// R_50 is still mid-bucket.
	if c := b.ProcessTick(tick("R_50", 3.0, 201)); c != nil {
		t.Fatalf("R_50 mid-bucket tick closed %+v", c)
	}
}

func TestSingleTickCandle(t *testing.T) {
	b := New(5)
	b.ProcessTick(tick("R_100", 1.0, 50.0))
	closed := b.ProcessTick(tick("R_100", 6.0, 51.0))
	if closed == nil {
		t.Fatal("no candle closed")
	}
	if closed.Open != 50.0 || closed.High != 50.0 || closed.Low != 50.0 || closed.Close != 50.0 {
		t.Errorf("single-tick candle OHLC = %g/%g/%g/%g, want all 50.0",
			closed.Open, closed.High, closed.Low, closed.Close)
	}
	if closed.TickCount != 1 {
		t.Errorf("TickCount = %d, want 1", closed.TickCount)
	}
}
