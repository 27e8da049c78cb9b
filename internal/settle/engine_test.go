package settle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/storage"
)

type fakeStore struct {
	signals []storage.Signal
	prices  []storage.MarketPrice
	records map[string]*storage.TradeRecord

	listSignalsErr error
	listPricesErr  error
	closeErr       map[string]error
	recordErr      map[string]error
}

func (f *fakeStore) ListUnrecordedSignals() ([]storage.Signal, error) {
	var out []storage.Signal
	for _, s := range f.signals {
		if s.Status == storage.StatusActive {
			continue
		}
		if _, ok := f.records[s.ID]; ok {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   make(map[string]*storage.TradeRecord),
		closeErr:  make(map[string]error),
		recordErr: make(map[string]error),
	}
}

func (f *fakeStore) ListSignalsByStatus(status string) ([]storage.Signal, error) {
	if f.listSignalsErr != nil {
		return nil, f.listSignalsErr
	}
	var out []storage.Signal
	for _, s := range f.signals {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMarketPrices() ([]storage.MarketPrice, error) {
	if f.listPricesErr != nil {
		return nil, f.listPricesErr
	}
	return f.prices, nil
}

func (f *fakeStore) CloseSignal(id, status string, closedAt time.Time) (bool, error) {
	if err := f.closeErr[id]; err != nil {
		return false, err
	}
	for i := range f.signals {
		if f.signals[i].ID == id && f.signals[i].Status == storage.StatusActive {
			f.signals[i].Status = status
			t := closedAt
			f.signals[i].ClosedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateTradeRecord(record *storage.TradeRecord) error {
	if err := f.recordErr[record.SignalID]; err != nil {
		return err
	}
	if _, exists := f.records[record.SignalID]; exists {
		return nil
	}
	f.records[record.SignalID] = record
	return nil
}

func testSignal(id, pairID, signalType string, entry, sl, tp float64, age time.Duration) storage.Signal {
	return storage.Signal{
		ID:         id,
		PairID:     pairID,
		SignalType: signalType,
		EntryPrice: entry,
		StopLoss:   sl,
		TakeProfit: tp,
		Status:     storage.StatusActive,
		CreatedAt:  time.Now().Add(-age),
	}
}

func testEngine(store *fakeStore) *Engine {
	return NewEngine(store, nil, defaultExpiry, logger.New("error"))
}

func TestRun_ClosesSignalsAndRecordsHistory(t *testing.T) {
	store := newFakeStore()
	store.signals = []storage.Signal{
		testSignal("buy-tp", "p1", storage.SignalBuy, 1.0850, 1.0820, 1.0900, time.Hour),
		testSignal("buy-open", "p2", storage.SignalBuy, 1.2650, 1.2600, 1.2700, time.Hour),
		testSignal("sell-sl", "p3", storage.SignalSell, 149.50, 150.20, 148.60, time.Hour),
	}
	store.prices = []storage.MarketPrice{
		{PairID: "p1", Symbol: "EUR/USD", Price: 1.0905},
		{PairID: "p2", Symbol: "GBP/USD", Price: 1.2650},
		{PairID: "p3", Symbol: "USD/JPY", Price: 150.30},
	}

	report, err := testEngine(store).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected round error: %v", err)
	}

	if report.Checked != 3 || report.Closed != 2 {
		t.Fatalf("expected 3 checked / 2 closed, got %d / %d", report.Checked, report.Closed)
	}

	rec, ok := store.records["buy-tp"]
	if !ok {
		t.Fatal("missing trade record for buy-tp")
	}
	if rec.Result != storage.ResultWin || rec.ProfitPercent != 0.46 {
		t.Errorf("unexpected buy-tp record: %+v", rec)
	}

	rec, ok = store.records["sell-sl"]
	if !ok {
		t.Fatal("missing trade record for sell-sl")
	}
	if rec.Result != storage.ResultLoss {
		t.Errorf("expected loss for sell-sl, got %s", rec.Result)
	}

	if _, ok := store.records["buy-open"]; ok {
		t.Error("open signal must not get a trade record")
	}
	for i := range store.signals {
		s := store.signals[i]
		if s.ID == "buy-open" {
			if s.Status != storage.StatusActive || s.ClosedAt != nil {
				t.Errorf("open signal must stay active: %+v", s)
			}
		} else if s.ClosedAt == nil {
			t.Errorf("closed signal %s missing closed_at", s.ID)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.signals = []storage.Signal{
		testSignal("buy-tp", "p1", storage.SignalBuy, 1.0850, 1.0820, 1.0900, time.Hour),
	}
	store.prices = []storage.MarketPrice{{PairID: "p1", Symbol: "EUR/USD", Price: 1.0910}}

	engine := testEngine(store)

	first, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Closed != 1 {
		t.Fatalf("expected 1 closure, got %d", first.Closed)
	}

	second, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Checked != 0 || second.Closed != 0 {
		t.Errorf("second run must be a no-op, got %+v", second)
	}
	if len(store.records) != 1 {
		t.Errorf("expected exactly 1 trade record, got %d", len(store.records))
	}
}

func TestRun_SkipsSignalsWithoutSnapshot(t *testing.T) {
	store := newFakeStore()
	store.signals = []storage.Signal{
		testSignal("no-price", "p9", storage.SignalBuy, 1.0850, 1.0820, 1.0900, 48*time.Hour),
	}

	report, err := testEngine(store).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected round error: %v", err)
	}
	if report.Skipped != 1 || report.Closed != 0 {
		t.Errorf("expected skip without closure, got %+v", report)
	}
	if store.signals[0].Status != storage.StatusActive {
		t.Error("signal without snapshot must stay active for the next round")
	}
}

func TestRun_ListFailureAbortsRound(t *testing.T) {
	store := newFakeStore()
	store.listSignalsErr = errors.New("store down")

	if _, err := testEngine(store).Run(context.Background()); err == nil {
		t.Fatal("expected round-level failure")
	}

	store = newFakeStore()
	store.signals = []storage.Signal{
		testSignal("buy-tp", "p1", storage.SignalBuy, 1.0850, 1.0820, 1.0900, time.Hour),
	}
	store.listPricesErr = errors.New("store down")

	if _, err := testEngine(store).Run(context.Background()); err == nil {
		t.Fatal("expected round-level failure on price listing")
	}
}

func TestRun_PerSignalErrorIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.signals = []storage.Signal{
		testSignal("bad", "p1", storage.SignalBuy, 1.0850, 1.0820, 1.0900, time.Hour),
		testSignal("good", "p2", storage.SignalSell, 1.2650, 1.2700, 1.2570, time.Hour),
	}
	store.prices = []storage.MarketPrice{
		{PairID: "p1", Symbol: "EUR/USD", Price: 1.0910},
		{PairID: "p2", Symbol: "GBP/USD", Price: 1.2560},
	}
	store.closeErr["bad"] = errors.New("write rejected")

	report, err := testEngine(store).Run(context.Background())
	if err != nil {
		t.Fatalf("per-signal failure must not fail the round: %v", err)
	}
	if report.Closed != 1 {
		t.Errorf("expected the healthy signal to close, got %d", report.Closed)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected 1 reported error, got %v", report.Errors)
	}
	if _, ok := store.records["good"]; !ok {
		t.Error("healthy signal missing its trade record")
	}
}

// A failure between the status write and the history insert leaves a closed
// signal without a record; a later round must backfill it.
func TestRun_BackfillsOrphanedTradeRecord(t *testing.T) {
	store := newFakeStore()
	store.signals = []storage.Signal{
		testSignal("orphan", "p1", storage.SignalBuy, 1.0850, 1.0820, 1.0900, time.Hour),
	}
	store.prices = []storage.MarketPrice{{PairID: "p1", Symbol: "EUR/USD", Price: 1.0910}}
	store.recordErr["orphan"] = errors.New("connection reset")

	engine := testEngine(store)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected round error: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected reported failure, got %+v", report)
	}
	if report.Closed != 1 {
		t.Errorf("status write succeeded, closure must be reported: %+v", report)
	}
	if store.signals[0].Status != storage.StatusTakeProfit {
		t.Fatalf("status write happens first, got %s", store.signals[0].Status)
	}
	if _, ok := store.records["orphan"]; ok {
		t.Fatal("record insert was injected to fail")
	}

	// Heal the store; the next rounds must repair the orphan on their own.
	delete(store.recordErr, "orphan")

	second, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Recovered != 1 {
		t.Errorf("expected 1 recovered record, got %+v", second)
	}
	rec, ok := store.records["orphan"]
	if !ok {
		t.Fatal("closed signal still has no trade record after healed round")
	}
	if rec.Result != storage.ResultWin || rec.ProfitPercent != 0.46 {
		t.Errorf("unexpected backfilled record: %+v", rec)
	}

	third, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.Recovered != 0 || len(store.records) != 1 {
		t.Errorf("backfill must not repeat: %+v, %d records", third, len(store.records))
	}
}
