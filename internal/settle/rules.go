package settle

import (
	"math"
	"time"

	"github.com/avelez/signaldesk/internal/storage"
)

// Outcome is the terminal decision for one signal.
type Outcome struct {
	Status        string  // tp or sl
	Result        string  // win or loss
	ProfitPercent float64 // rounded to two decimals
	Expired       bool
}

// Evaluate applies the settlement decision rule to one active signal given
// the current price. It returns nil when the signal should stay open. The
// rule is pure: the same (signal, price, now) always yields the same
// outcome.
//
// Order of evaluation, first match wins:
//   - BUY:  price >= take_profit closes tp; price <= stop_loss closes sl.
//   - SELL: price <= take_profit closes tp; price >= stop_loss closes sl.
//   - Expiry: past the expiry window with no threshold hit, force-close as
//     sl with profit computed from the live price, not the stop level.
func Evaluate(sig *storage.Signal, currentPrice float64, now time.Time, expiry time.Duration) *Outcome {
	isBuy := sig.SignalType == storage.SignalBuy

	if isBuy {
		if currentPrice >= sig.TakeProfit {
			return outcome(storage.StatusTakeProfit, profitPercent(sig.EntryPrice, sig.TakeProfit, true), false)
		}
		if currentPrice <= sig.StopLoss {
			return outcome(storage.StatusStopLoss, profitPercent(sig.EntryPrice, sig.StopLoss, true), false)
		}
	} else {
		if currentPrice <= sig.TakeProfit {
			return outcome(storage.StatusTakeProfit, profitPercent(sig.EntryPrice, sig.TakeProfit, false), false)
		}
		if currentPrice >= sig.StopLoss {
			return outcome(storage.StatusStopLoss, profitPercent(sig.EntryPrice, sig.StopLoss, false), false)
		}
	}

	if now.Sub(sig.CreatedAt) > expiry {
		return outcome(storage.StatusStopLoss, profitPercent(sig.EntryPrice, currentPrice, isBuy), true)
	}

	return nil
}

// RecordedOutcome reconstructs the settlement outcome implied by a signal's
// terminal status, for backfilling a trade record whose original insert
// failed. Expired signals were settled at the live price, which is not
// stored, so their reconstruction falls back to the stop level.
func RecordedOutcome(sig *storage.Signal) *Outcome {
	isBuy := sig.SignalType == storage.SignalBuy
	exit := sig.StopLoss
	if sig.Status == storage.StatusTakeProfit {
		exit = sig.TakeProfit
	}
	return outcome(sig.Status, profitPercent(sig.EntryPrice, exit, isBuy), false)
}

func outcome(status string, profit float64, expired bool) *Outcome {
	result := storage.ResultLoss
	if status == storage.StatusTakeProfit {
		result = storage.ResultWin
	}
	return &Outcome{
		Status:        status,
		Result:        result,
		ProfitPercent: round2(profit),
		Expired:       expired,
	}
}

func profitPercent(entry, exit float64, isBuy bool) float64 {
	if entry == 0 {
		return 0
	}
	if isBuy {
		return (exit - entry) / entry * 100
	}
	return (entry - exit) / entry * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
