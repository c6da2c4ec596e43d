package sim

import (
	"math"
	"testing"

	"quantpulse/internal/model"
	"quantpulse/internal/tradestate"
)

func buySignal() *model.Signal {
	return &model.Signal{
		ID: model.NewSignalID(), Symbol: "R_100", Direction: model.DirectionBuy,
		Entry: 100.0, StopLoss: 99.0, TakeProfit: 102.0, RR: 2.0,
	}
}

func sellSignal() *model.Signal {
	return &model.Signal{
		ID: model.NewSignalID(), Symbol: "R_100", Direction: model.DirectionSell,
		Entry: 100.0, StopLoss: 101.0, TakeProfit: 98.0, RR: 2.0,
	}
}

func TestBuyTradeLifecycleToProfit(t *testing.T) {
	s := New(tradestate.New(10), 1800)
	trade := s.OpenTrade(buySignal())
	if trade == nil || trade.Status != model.TradePending {
		t.Fatalf("OpenTrade = %+v, want PENDING trade", trade)
	}

	// First tick activates at the tick price, not the planned entry.
	if closed := s.EvaluateTick("R_100", 100.2, 10.1); closed != nil {
		t.Fatalf("activation tick closed the trade: %+v", closed)
	}
	if trade.Status != model.TradeOpen || trade.EntryPrice != 100.2 {
		t.Fatalf("after activation: status=%s entry=%g, want OPEN/100.2", trade.Status, trade.EntryPrice)
	}

	closed := s.EvaluateTick("R_100", 102.4, 22.0)
	if closed == nil || closed.Status != model.TradeProfit {
		t.Fatalf("profit tick gave %+v, want PROFIT close", closed)
	}
	wantPnl := (102.4 - 100.2) / 100.2 * 100
	if math.Abs(closed.PnlPercent-wantPnl) > 1e-9 {
		t.Errorf("PnlPercent = %g, want %g", closed.PnlPercent, wantPnl)
	}
	if closed.DurationSeconds != 22.0-10.1 {
		t.Errorf("DurationSeconds = %g, want %g", closed.DurationSeconds, 22.0-10.1)
	}
	if st := s.Stats(); st.TradesOpened != 1 || st.TradesClosed != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSecondSignalIgnoredWhileTradeActive(t *testing.T) {
	s := New(tradestate.New(10), 1800)
	if s.OpenTrade(buySignal()) == nil {
		t.Fatal("first OpenTrade failed")
	}
	if s.OpenTrade(buySignal()) != nil {
		t.Error("second OpenTrade succeeded with an active trade")
	}
	if st := s.Stats(); st.SignalsIgnored != 1 {
		t.Errorf("SignalsIgnored = %d, want 1", st.SignalsIgnored)
	}
}

func TestStopLossBeforeTakeProfit(t *testing.T) {
	s := New(tradestate.New(10), 1800)
	s.OpenTrade(buySignal())
	s.EvaluateTick("R_100", 100.0, 1.0)

	// A price at or below SL closes as LOSS even though the trade is
	// evaluated on a single tick.
	closed := s.EvaluateTick("R_100", 99.0, 2.0)
	if closed == nil || closed.Status != model.TradeLoss {
		t.Fatalf("SL tick gave %+v, want LOSS", closed)
	}
	if closed.PnlPercent >= 0 {
		t.Errorf("PnlPercent = %g, want negative", closed.PnlPercent)
	}
}

func TestExpiryCheckedBeforeLevels(t *testing.T) {
	s := New(tradestate.New(10), 60)
	s.OpenTrade(buySignal())
	s.EvaluateTick("R_100", 100.0, 0.0)

	// Tick 60s later is past max duration and also past TP; expiry wins.
	closed := s.EvaluateTick("R_100", 103.0, 60.0)
	if closed == nil || closed.Status != model.TradeExpired {
		t.Fatalf("expiry tick gave %+v, want EXPIRED", closed)
	}
	if closed.PnlPercent <= 0 {
		t.Errorf("PnlPercent = %g, want positive (closed at market)", closed.PnlPercent)
	}
}

func TestSellTradeDirectionsMirrored(t *testing.T) {
	s := New(tradestate.New(10), 1800)
	s.OpenTrade(sellSignal())
	s.EvaluateTick("R_100", 100.0, 1.0)

	if closed := s.EvaluateTick("R_100", 100.5, 2.0); closed != nil {
		t.Fatalf("in-range tick closed the trade: %+v", closed)
	}
	closed := s.EvaluateTick("R_100", 101.0, 3.0)
	if closed == nil || closed.Status != model.TradeLoss {
		t.Fatalf("SELL price >= SL gave %+v, want LOSS", closed)
	}

	s.OpenTrade(sellSignal())
	s.EvaluateTick("R_100", 100.0, 10.0)
	closed = s.EvaluateTick("R_100", 98.0, 11.0)
	if closed == nil || closed.Status != model.TradeProfit {
		t.Fatalf("SELL price <= TP gave %+v, want PROFIT", closed)
	}
	wantPnl := (100.0 - 98.0) / 100.0 * 100
	if math.Abs(closed.PnlPercent-wantPnl) > 1e-9 {
		t.Errorf("SELL PnlPercent = %g, want %g", closed.PnlPercent, wantPnl)
	}
}

func TestTickForSymbolWithoutTradeIsNoop(t *testing.T) {
	s := New(tradestate.New(10), 1800)
	if closed := s.EvaluateTick("R_100", 100.0, 1.0); closed != nil {
		t.Errorf("tick without active trade returned %+v", closed)
	}
}
