package model

import "encoding/json"

// PerformanceMetrics is an immutable snapshot of closed-trade performance.
// ProfitFactor is 0 when there are no losses; consumers must read 0 as
// "undefined", not "catastrophic". Keeping it finite keeps the value
// JSON-serializable.
type PerformanceMetrics struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Expired     int `json:"expired"`

	WinRate      float64 `json:"win_rate"`
	LossRate     float64 `json:"loss_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	AvgRRReal    float64 `json:"avg_rr_real"`
	AvgDuration  float64 `json:"avg_duration"` // seconds

	MaxDrawdown float64   `json:"max_drawdown"`
	EquityCurve []float64 `json:"equity_curve"` // cumulative pnl% per closed trade

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
	TotalPnl    float64 `json:"total_pnl"`
}

// JSON serializes the metrics for API responses.
func (m PerformanceMetrics) JSON() []byte {
	b, _ := json.Marshal(m)
	return b
}
