package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/market"
	"github.com/avelez/signaldesk/internal/storage"
)

// Store is the slice of the repository price ingestion writes through.
type Store interface {
	ListActivePairs() ([]storage.TradingPair, error)
	UpsertMarketPrice(price *storage.MarketPrice) error
}

// Fetcher resolves a symbol to its current quote and the source that
// produced it.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*market.Quote, string, error)
}

// PairResult reports the outcome for one pair within a refresh round.
type PairResult struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"` // updated or error
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report summarizes one refresh round.
type Report struct {
	Updated int          `json:"updated"`
	Results []PairResult `json:"results"`
}

// Service refreshes the price snapshot of every active pair.
type Service struct {
	store       Store
	fetcher     Fetcher
	concurrency int
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(store Store, fetcher Fetcher, concurrency int, log *logger.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Service{
		store:       store,
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      log,
		now:         time.Now,
	}
}

// RefreshAll fetches and upserts one snapshot per active pair. Pairs are
// processed independently: a failure for one never aborts the others. Only
// a store failure while listing pairs fails the round.
func (s *Service) RefreshAll(ctx context.Context) (*Report, error) {
	pairs, err := s.store.ListActivePairs()
	if err != nil {
		return nil, fmt.Errorf("list active pairs: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, s.concurrency)
		results []PairResult
	)

	for _, pair := range pairs {
		wg.Add(1)
		sem <- struct{}{}

		go func(p storage.TradingPair) {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.refreshPair(ctx, p)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(pair)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })

	report := &Report{Results: results}
	for _, r := range results {
		if r.Status == "updated" {
			report.Updated++
		}
	}

	s.logger.Info("price refresh completed", "pairs", len(pairs), "updated", report.Updated)
	return report, nil
}

func (s *Service) refreshPair(ctx context.Context, pair storage.TradingPair) PairResult {
	quote, source, err := s.fetcher.Fetch(ctx, pair.Symbol)
	if err != nil {
		s.logger.Error("fetch quote", "symbol", pair.Symbol, "error", err)
		return PairResult{Symbol: pair.Symbol, Status: "error", Error: err.Error()}
	}

	price := &storage.MarketPrice{
		PairID:        pair.ID,
		Symbol:        pair.Symbol,
		Price:         quote.Price,
		ChangePercent: quote.ChangePercent,
		High24h:       quote.High24h,
		Low24h:        quote.Low24h,
		UpdatedAt:     s.now(),
	}

	if err := s.store.UpsertMarketPrice(price); err != nil {
		s.logger.Error("upsert market price", "symbol", pair.Symbol, "error", err)
		return PairResult{Symbol: pair.Symbol, Status: "error", Error: err.Error()}
	}

	s.logger.Debug("price updated", "symbol", pair.Symbol, "source", source, "price", quote.Price)
	return PairResult{Symbol: pair.Symbol, Status: "updated", Source: source}
}
