package tfagg

import (
	"testing"

	"quantpulse/internal/model"
)

func baseCandle(openTime, o, h, l, c float64) model.Candle {
	return model.Candle{
		Symbol: "R_100", OpenTime: openTime,
		Open: o, High: h, Low: l, Close: c,
		TickCount: 10, Interval: 5,
	}
}

func TestAggregatesBaseCandlesIntoTimeframe(t *testing.T) {
	a := New([]string{"5m"})

	// 60 base candles fill the first 5m bucket; none close it.
	for i := 0; i < 60; i++ {
		ot := float64(i * 5)
		closed := a.ProcessCandle(baseCandle(ot, 100, 101+float64(i)*0.01, 99, 100.5))
		if len(closed) != 0 {
			t.Fatalf("base candle %d closed a 5m candle early", i)
		}
	}

	// First base candle of the next bucket closes the previous 5m candle.
	closed := a.ProcessCandle(baseCandle(300, 100.5, 101, 100, 100.8))
	if len(closed) != 1 {
		t.Fatalf("closed %d timeframe candles, want 1", len(closed))
	}
	tf := closed[0]
	if tf.Timeframe != "5m" || tf.OpenTime != 0 || tf.Interval != 300 {
		t.Errorf("tf candle = %s open_time=%g interval=%d, want 5m/0/300", tf.Timeframe, tf.OpenTime, tf.Interval)
	}
	if tf.Open != 100 {
		t.Errorf("Open = %g, want first base candle's open 100", tf.Open)
	}
	if tf.TickCount != 60 {
		t.Errorf("TickCount = %d, want 60 base candles", tf.TickCount)
	}
}

func TestOHLCFoldAcrossBaseCandles(t *testing.T) {
	a := New([]string{"5m"})
	a.ProcessCandle(baseCandle(0, 100, 102, 99, 101))
	a.ProcessCandle(baseCandle(5, 101, 105, 100, 104))
	a.ProcessCandle(baseCandle(10, 104, 104.5, 98, 103))

	b, ok := a.Building("R_100", "5m")
	if !ok {
		t.Fatal("no building candle")
	}
	if b.Open != 100 || b.High != 105 || b.Low != 98 || b.Close != 103 {
		t.Errorf("building OHLC = %g/%g/%g/%g, want 100/105/98/103", b.Open, b.High, b.Low, b.Close)
	}
	if b.TickCount != 3 {
		t.Errorf("TickCount = %d, want 3", b.TickCount)
	}
}

func TestUnknownTimeframeSkipped(t *testing.T) {
	a := New([]string{"5m", "7m", "1h"})
	got := a.Timeframes()
	if len(got) != 2 || got[0] != "5m" || got[1] != "1h" {
		t.Errorf("Timeframes = %v, want [5m 1h]", got)
	}
}

func TestMultipleTimeframesCloseIndependently(t *testing.T) {
	a := New([]string{"5m", "15m"})

	// Fill three 5m buckets worth of base candles.
	var fiveClosed, fifteenClosed int
	for i := 0; i <= 180; i++ {
		for _, c := range a.ProcessCandle(baseCandle(float64(i*5), 100, 101, 99, 100)) {
			switch c.Timeframe {
			case "5m":
				fiveClosed++
			case "15m":
				fifteenClosed++
			}
		}
	}
	if fiveClosed != 3 {
		t.Errorf("5m candles closed = %d, want 3", fiveClosed)
	}
	if fifteenClosed != 1 {
		t.Errorf("15m candles closed = %d, want 1", fifteenClosed)
	}
}

func TestBucketAlignmentFromMidStream(t *testing.T) {
	a := New([]string{"5m"})
	// Engine starts mid-bucket at t=175; the 5m bucket is [0,300).
	a.ProcessCandle(baseCandle(175, 100, 101, 99, 100))
	closed := a.ProcessCandle(baseCandle(300, 100, 101, 99, 100))
	if len(closed) != 1 {
		t.Fatalf("closed %d, want 1", len(closed))
	}
	if closed[0].OpenTime != 0 {
		t.Errorf("OpenTime = %g, want aligned 0", closed[0].OpenTime)
	}
}
