package config

import "testing"

func TestParseSymbols(t *testing.T) {
	c := &Config{Symbols: "R_100, R_50 ,,1HZ100V"}
	got := c.ParseSymbols()
	want := []string{"R_100", "R_50", "1HZ100V"}
	if len(got) != len(want) {
		t.Fatalf("ParseSymbols len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseSymbols[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseTimeframes(t *testing.T) {
	c := &Config{Timeframes: "5m,15m,30m,1h"}
	got := c.ParseTimeframes()
	if len(got) != 4 {
		t.Fatalf("ParseTimeframes len = %d, want 4", len(got))
	}
	if got[0] != "5m" || got[3] != "1h" {
		t.Errorf("ParseTimeframes = %v", got)
	}
}

func TestParseConditionsEmptyMeansAll(t *testing.T) {
	c := &Config{Conditions: ""}
	if got := c.ParseConditions(); got != nil {
		t.Errorf("ParseConditions on empty = %v, want nil", got)
	}

	c.Conditions = "ema_cross,rsi_reversal"
	got := c.ParseConditions()
	if len(got) != 2 || got[0] != "ema_cross" || got[1] != "rsi_reversal" {
		t.Errorf("ParseConditions = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.CandleIntervalSeconds != 5 {
		t.Errorf("CandleIntervalSeconds = %d, want 5", c.CandleIntervalSeconds)
	}
	if c.MinConfirmations != 2 {
		t.Errorf("MinConfirmations = %d, want 2", c.MinConfirmations)
	}
	if c.ActiveTimeframe != "5m" {
		t.Errorf("ActiveTimeframe = %q, want 5m", c.ActiveTimeframe)
	}
	if c.RRRatio != 2.0 {
		t.Errorf("RRRatio = %g, want 2.0", c.RRRatio)
	}
}
