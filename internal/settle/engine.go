package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/storage"
)

// Store is the slice of the repository the settlement engine uses. It is
// the sole writer of terminal signal state and the sole creator of trade
// records.
type Store interface {
	ListSignalsByStatus(status string) ([]storage.Signal, error)
	ListUnrecordedSignals() ([]storage.Signal, error)
	ListMarketPrices() ([]storage.MarketPrice, error)
	CloseSignal(id, status string, closedAt time.Time) (bool, error)
	CreateTradeRecord(record *storage.TradeRecord) error
}

// Notifier announces settled signals.
type Notifier interface {
	NotifyClose(symbol string, signal *storage.Signal, outcome *Outcome)
}

// ClosedSignal reports one settlement within a round.
type ClosedSignal struct {
	ID      string  `json:"id"`
	Symbol  string  `json:"symbol"`
	Result  string  `json:"result"` // tp or sl
	Profit  float64 `json:"profit"`
	Expired bool    `json:"expired,omitempty"`
}

// Report summarizes one settlement round. Recovered counts trade records
// backfilled for signals closed in an earlier round.
type Report struct {
	Checked   int            `json:"checked"`
	Closed    int            `json:"closed"`
	Skipped   int            `json:"skipped"`
	Recovered int            `json:"recovered,omitempty"`
	Results   []ClosedSignal `json:"results"`
	Errors    []string       `json:"errors,omitempty"`
}

type Engine struct {
	store    Store
	notifier Notifier
	expiry   time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

func NewEngine(store Store, notifier Notifier, expiry time.Duration, log *logger.Logger) *Engine {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		expiry:   expiry,
		logger:   log,
		now:      time.Now,
	}
}

// Run settles every active signal against the latest snapshots. A store
// failure while listing signals or prices fails the whole round; a failure
// closing one signal is reported and skipped. Signals whose pair has no
// snapshot are left for the next round. Re-running over an unchanged state
// closes nothing new. Each round also backfills trade records left missing
// by earlier partial failures, so no closed signal permanently lacks one.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signals, err := e.store.ListSignalsByStatus(storage.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active signals: %w", err)
	}

	report := &Report{Checked: len(signals), Results: []ClosedSignal{}}
	e.reconcile(report)
	if len(signals) == 0 {
		return report, nil
	}

	prices, err := e.store.ListMarketPrices()
	if err != nil {
		return nil, fmt.Errorf("list market prices: %w", err)
	}

	priceByPair := make(map[string]storage.MarketPrice, len(prices))
	for _, p := range prices {
		priceByPair[p.PairID] = p
	}

	now := e.now()
	for i := range signals {
		sig := &signals[i]

		price, ok := priceByPair[sig.PairID]
		if !ok {
			report.Skipped++
			continue
		}

		outcome := Evaluate(sig, price.Price, now, e.expiry)
		if outcome == nil {
			continue
		}

		transitioned, err := e.close(sig, price.Symbol, outcome, now)
		if err != nil {
			e.logger.Error("close signal", "id", sig.ID, "symbol", price.Symbol, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", sig.ID, err))
		}
		if !transitioned {
			// either the status write failed, or we lost a race with a
			// concurrent round and the other invocation reports this closure
			continue
		}

		report.Closed++
		report.Results = append(report.Results, ClosedSignal{
			ID:      sig.ID,
			Symbol:  price.Symbol,
			Result:  outcome.Status,
			Profit:  outcome.ProfitPercent,
			Expired: outcome.Expired,
		})
	}

	e.logger.Info("settlement round completed",
		"checked", report.Checked, "closed", report.Closed,
		"skipped", report.Skipped, "recovered", report.Recovered,
		"errors", len(report.Errors))
	return report, nil
}

// close performs the two terminal writes in a fixed order: the status
// transition first (guarded, so replays are no-ops), then the history
// record (deduplicated by signal id). A failure in between leaves a closed
// signal without a record; reconcile picks those up on the next round.
func (e *Engine) close(sig *storage.Signal, symbol string, outcome *Outcome, now time.Time) (bool, error) {
	transitioned, err := e.store.CloseSignal(sig.ID, outcome.Status, now)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	if transitioned {
		e.logger.Info("signal closed",
			"id", sig.ID, "symbol", symbol, "result", outcome.Status,
			"profit", outcome.ProfitPercent, "expired", outcome.Expired)
		if e.notifier != nil {
			e.notifier.NotifyClose(symbol, sig, outcome)
		}
	}

	record := &storage.TradeRecord{
		SignalID:      sig.ID,
		Result:        outcome.Result,
		ProfitPercent: outcome.ProfitPercent,
		ClosedAt:      now,
	}
	if err := e.store.CreateTradeRecord(record); err != nil {
		return transitioned, fmt.Errorf("record trade: %w", err)
	}
	return transitioned, nil
}

// reconcile backfills trade records for signals whose status write landed in
// an earlier round but whose record insert failed. The unique index on
// signal_id keeps each backfill idempotent; failures here are reported and
// retried on the next round.
func (e *Engine) reconcile(report *Report) {
	orphans, err := e.store.ListUnrecordedSignals()
	if err != nil {
		e.logger.Error("list unrecorded signals", "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("reconcile: %v", err))
		return
	}

	for i := range orphans {
		sig := &orphans[i]
		outcome := RecordedOutcome(sig)
		closedAt := e.now()
		if sig.ClosedAt != nil {
			closedAt = *sig.ClosedAt
		}
		record := &storage.TradeRecord{
			SignalID:      sig.ID,
			Result:        outcome.Result,
			ProfitPercent: outcome.ProfitPercent,
			ClosedAt:      closedAt,
		}
		if err := e.store.CreateTradeRecord(record); err != nil {
			e.logger.Error("backfill trade record", "id", sig.ID, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: backfill: %v", sig.ID, err))
			continue
		}
		report.Recovered++
		e.logger.Warn("backfilled missing trade record",
			"id", sig.ID, "result", sig.Status, "profit", outcome.ProfitPercent)
	}
}
