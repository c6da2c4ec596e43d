package indicator

import (
	"math"
	"testing"

	"quantpulse/internal/model"
)

func tfCandle(openTime, close float64) model.Candle {
	return model.Candle{
		Symbol: "R_100", Timeframe: "5m",
		OpenTime: openTime, Open: close, High: close, Low: close, Close: close,
		Interval: 300,
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	e := NewEMA(3)
	e.Update(10)
	e.Update(20)
	if _, ok := e.Value(); ok {
		t.Fatal("EMA ready before period closes")
	}
	e.Update(30)
	v, ok := e.Value()
	if !ok || v != 20 {
		t.Errorf("seed value = %g,%v, want SMA 20,true", v, ok)
	}

	// alpha = 2/(3+1) = 0.5 -> 40*0.5 + 20*0.5 = 30
	e.Update(40)
	v, _ = e.Value()
	if math.Abs(v-30) > 1e-9 {
		t.Errorf("value after recurrence = %g, want 30", v)
	}
}

func TestRSIWarmupAndWilderSeed(t *testing.T) {
	closes := []float64{10, 11, 10, 11, 12, 11, 12, 13, 12, 13, 14, 13, 14, 15}
	r := NewRSI(14)
	for _, c := range closes {
		r.Update(c)
	}
	if _, ok := r.Value(); ok {
		t.Fatal("RSI ready at period closes, want period+1")
	}

	r.Update(14)
	v, ok := r.Value()
	if !ok {
		t.Fatal("RSI not ready at period+1 closes")
	}
	// 14 deltas: nine +1 gains, five -1 losses -> rs = 9/5
	want := 100 - 100/(1+9.0/5.0)
	if math.Abs(v-want) > 0.01 {
		t.Errorf("RSI = %.4f, want %.4f", v, want)
	}
}

func TestRSIFlatMarketReadsNeutral(t *testing.T) {
	r := NewRSI(3)
	for i := 0; i < 4; i++ {
		r.Update(100)
	}
	v, ok := r.Value()
	if !ok || v != 50 {
		t.Errorf("flat RSI = %g,%v, want 50,true", v, ok)
	}
}

func TestComputeRSIEdges(t *testing.T) {
	if v := computeRSI(0, 0); v != 50 {
		t.Errorf("computeRSI(0,0) = %g, want 50", v)
	}
	if v := computeRSI(1, 0); v != 100 {
		t.Errorf("computeRSI(1,0) = %g, want 100", v)
	}
	if v := computeRSI(0, 1); v != 0 {
		t.Errorf("computeRSI(0,1) = %g, want 0", v)
	}
	if v := computeRSI(1, 1); v != 50 {
		t.Errorf("computeRSI(1,1) = %g, want 50", v)
	}
}

func TestEngineWarmupSequence(t *testing.T) {
	e := NewEngine(9, 21, 14)

	var snap model.IndicatorSnapshot
	for i := 0; i < 21; i++ {
		snap = e.Update(tfCandle(float64(i*300), 100+float64(i)))

		if i+1 < 9 && snap.EMAFast != nil {
			t.Errorf("EMAFast ready at candle %d", i+1)
		}
		if i+1 == 9 && snap.EMAFast == nil {
			t.Errorf("EMAFast not ready at candle 9")
		}
		if i+1 == 14 && snap.RSI != nil {
			t.Errorf("RSI ready at candle 14, want 15")
		}
		if i+1 == 15 && snap.RSI == nil {
			t.Errorf("RSI not ready at candle 15")
		}
	}

	if snap.EMASlow == nil {
		t.Error("EMASlow not ready at candle 21")
	}
	if !snap.Ready() {
		t.Error("snapshot not Ready at candle 21")
	}
	if snap.Timestamp != 20*300+300 {
		t.Errorf("Timestamp = %g, want candle close time %d", snap.Timestamp, 20*300+300)
	}
}

func TestEngineKeysPerSymbolAndTimeframe(t *testing.T) {
	e := NewEngine(2, 3, 2)
	a := tfCandle(0, 100)
	b := tfCandle(0, 100)
	b.Timeframe = "15m"

	e.Update(a)
	snapA := e.Update(tfCandle(300, 101))
	snapB := e.Update(b)

	if snapA.EMAFast == nil {
		t.Error("5m EMAFast should be ready after 2 candles")
	}
	if snapB.EMAFast != nil {
		t.Error("15m EMAFast should not be ready after 1 candle")
	}
}

func TestWarmupCandles(t *testing.T) {
	if got := NewEngine(9, 21, 14).WarmupCandles(); got != 21 {
		t.Errorf("WarmupCandles = %d, want 21", got)
	}
	if got := NewEngine(9, 10, 14).WarmupCandles(); got != 15 {
		t.Errorf("WarmupCandles = %d, want 15", got)
	}
}
