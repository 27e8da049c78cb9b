package settle

import (
	"math"
	"testing"
	"time"

	"github.com/avelez/signaldesk/internal/storage"
)

const defaultExpiry = 24 * time.Hour

func buySignal(createdAt time.Time) *storage.Signal {
	return &storage.Signal{
		ID:         "sig-1",
		SignalType: storage.SignalBuy,
		EntryPrice: 1.0850,
		StopLoss:   1.0820,
		TakeProfit: 1.0900,
		Status:     storage.StatusActive,
		CreatedAt:  createdAt,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_BuyTakeProfit(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-time.Hour))

	out := Evaluate(sig, 1.0905, now, defaultExpiry)
	if out == nil {
		t.Fatal("expected closure")
	}
	if out.Status != storage.StatusTakeProfit {
		t.Errorf("expected tp, got %s", out.Status)
	}
	if out.Result != storage.ResultWin {
		t.Errorf("expected win, got %s", out.Result)
	}
	// (1.0900-1.0850)/1.0850*100 = 0.4608... rounds to 0.46
	if !approx(out.ProfitPercent, 0.46) {
		t.Errorf("expected profit 0.46, got %v", out.ProfitPercent)
	}
	if out.Expired {
		t.Error("threshold closure must not be flagged expired")
	}
}

func TestEvaluate_BuyStopLoss(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-time.Hour))

	out := Evaluate(sig, 1.0815, now, defaultExpiry)
	if out == nil {
		t.Fatal("expected closure")
	}
	if out.Status != storage.StatusStopLoss {
		t.Errorf("expected sl, got %s", out.Status)
	}
	if out.Result != storage.ResultLoss {
		t.Errorf("expected loss, got %s", out.Result)
	}
	// (1.0820-1.0850)/1.0850*100 = -0.2765... rounds to -0.28
	if !approx(out.ProfitPercent, -0.28) {
		t.Errorf("expected profit -0.28, got %v", out.ProfitPercent)
	}
}

func TestEvaluate_BuyStaysOpen(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-time.Hour))

	if out := Evaluate(sig, 1.0870, now, defaultExpiry); out != nil {
		t.Fatalf("expected signal to stay open, got %+v", out)
	}
}

func TestEvaluate_ExpiryUsesLivePrice(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-25 * time.Hour))

	// Price between sl and tp: only expiry applies, and profit comes from
	// the live price, so an expired BUY can still settle positive.
	out := Evaluate(sig, 1.0870, now, defaultExpiry)
	if out == nil {
		t.Fatal("expected expiry closure")
	}
	if out.Status != storage.StatusStopLoss {
		t.Errorf("expected sl, got %s", out.Status)
	}
	if !out.Expired {
		t.Error("expected expired flag")
	}
	// (1.0870-1.0850)/1.0850*100 = 0.1843... rounds to 0.18
	if !approx(out.ProfitPercent, 0.18) {
		t.Errorf("expected profit 0.18, got %v", out.ProfitPercent)
	}
	if out.Result != storage.ResultLoss {
		t.Errorf("expiry closes as sl and records a loss, got %s", out.Result)
	}
}

func TestEvaluate_ThresholdWinsOverExpiry(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-48 * time.Hour))

	out := Evaluate(sig, 1.0950, now, defaultExpiry)
	if out == nil {
		t.Fatal("expected closure")
	}
	if out.Status != storage.StatusTakeProfit || out.Expired {
		t.Errorf("take-profit must win over expiry, got %+v", out)
	}
}

func TestEvaluate_Sell(t *testing.T) {
	now := time.Now()
	base := &storage.Signal{
		SignalType: storage.SignalSell,
		EntryPrice: 1.2650,
		StopLoss:   1.2700,
		TakeProfit: 1.2570,
		Status:     storage.StatusActive,
		CreatedAt:  now.Add(-time.Hour),
	}

	tests := []struct {
		name       string
		price      float64
		wantStatus string
		wantProfit float64
	}{
		// (1.2650-1.2570)/1.2650*100 = 0.6324... -> 0.63
		{"take profit at low price", 1.2565, storage.StatusTakeProfit, 0.63},
		// (1.2650-1.2700)/1.2650*100 = -0.3952... -> -0.40
		{"stop loss at high price", 1.2705, storage.StatusStopLoss, -0.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := *base
			out := Evaluate(&sig, tt.price, now, defaultExpiry)
			if out == nil {
				t.Fatal("expected closure")
			}
			if out.Status != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, out.Status)
			}
			if !approx(out.ProfitPercent, tt.wantProfit) {
				t.Errorf("expected profit %v, got %v", tt.wantProfit, out.ProfitPercent)
			}
		})
	}

	if out := Evaluate(base, 1.2650, now, defaultExpiry); out != nil {
		t.Fatalf("expected SELL to stay open at entry price, got %+v", out)
	}
}

func TestEvaluate_SellExpiry(t *testing.T) {
	now := time.Now()
	sig := &storage.Signal{
		SignalType: storage.SignalSell,
		EntryPrice: 1.2650,
		StopLoss:   1.2700,
		TakeProfit: 1.2570,
		Status:     storage.StatusActive,
		CreatedAt:  now.Add(-30 * time.Hour),
	}

	// SELL expiry profit uses the directional formula with the live price:
	// (1.2650-1.2630)/1.2650*100 = 0.1581... -> 0.16
	out := Evaluate(sig, 1.2630, now, defaultExpiry)
	if out == nil {
		t.Fatal("expected expiry closure")
	}
	if !out.Expired || out.Status != storage.StatusStopLoss {
		t.Fatalf("expected expired sl, got %+v", out)
	}
	if !approx(out.ProfitPercent, 0.16) {
		t.Errorf("expected profit 0.16, got %v", out.ProfitPercent)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	now := time.Now()
	sig := buySignal(now.Add(-time.Hour))

	first := Evaluate(sig, 1.0905, now, defaultExpiry)
	second := Evaluate(sig, 1.0905, now, defaultExpiry)
	if first == nil || second == nil {
		t.Fatal("expected closures")
	}
	if *first != *second {
		t.Errorf("evaluation must be pure: %+v vs %+v", first, second)
	}
}
