package ai

// MarketSnapshot is the per-pair input handed to the analysis service.
type MarketSnapshot struct {
	Symbol        string
	Price         float64
	High24h       float64
	Low24h        float64
	ChangePercent float64
	Timeframe     string
}

// SignalAnalysis is the structured recommendation parsed from the model
// response.
type SignalAnalysis struct {
	SignalType      string   `json:"signal_type"` // BUY, SELL, HOLD
	Confidence      int      `json:"confidence"`  // 0-100
	EntryPrice      float64  `json:"entry_price"`
	StopLoss        float64  `json:"stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	Reasons         []string `json:"reasons"`
	AnalysisSummary string   `json:"analysis_summary"`
}

func (a *SignalAnalysis) IsHold() bool {
	return a.SignalType == "HOLD"
}
