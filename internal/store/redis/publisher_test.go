package redis

import (
	"encoding/json"
	"testing"

	"quantpulse/internal/model"
)

func TestEncodeKnownEventTypes(t *testing.T) {
	tick := model.Tick{Symbol: "R_100", Epoch: 1, Quote: 100}
	sym, data := encode(tick)
	if sym != "R_100" {
		t.Errorf("tick symbol = %q", sym)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("tick payload not valid JSON: %v", err)
	}

	sig := model.Signal{ID: "x", Symbol: "R_50", Direction: model.DirectionBuy}
	if sym, _ := encode(sig); sym != "R_50" {
		t.Errorf("signal symbol = %q", sym)
	}

	trade := model.NewTrade(&model.Signal{ID: "x", Symbol: "R_25", Direction: model.DirectionSell,
		Entry: 100, StopLoss: 101, TakeProfit: 98}, 1800)
	if sym, _ := encode(trade); sym != "R_25" {
		t.Errorf("trade symbol = %q", sym)
	}
}

func TestEncodeUnknownTypeSkipped(t *testing.T) {
	if sym, data := encode(42); sym != "" || data != nil {
		t.Errorf("encode(42) = %q/%v, want empty", sym, data)
	}
}
