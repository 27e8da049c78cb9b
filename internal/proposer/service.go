package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/avelez/signaldesk/internal/ai"
	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/storage"
)

// Store is the slice of the repository the proposer reads and writes.
type Store interface {
	ListActivePairs() ([]storage.TradingPair, error)
	GetPairBySymbol(symbol string) (*storage.TradingPair, error)
	GetMarketPrice(pairID string) (*storage.MarketPrice, error)
	CreateSignal(signal *storage.Signal) error
	SaveAnalysisLog(log *storage.AnalysisLog) error
}

// Analyzer produces a directional recommendation for one market snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, snap *ai.MarketSnapshot) (*ai.SignalAnalysis, string, error)
}

// Notifier announces newly created signals.
type Notifier interface {
	NotifySignal(symbol string, signal *storage.Signal)
}

// Report summarizes one proposal round.
type Report struct {
	Generated int              `json:"signals_generated"`
	Signals   []storage.Signal `json:"signals"`
	Skipped   int              `json:"skipped"`
	Errors    []string         `json:"errors,omitempty"`
}

// Request scopes a proposal round. An empty Symbol targets all active
// pairs; an empty Timeframe picks one at random from the configured set.
type Request struct {
	Symbol    string `json:"symbol,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

type Service struct {
	store         Store
	analyzer      Analyzer
	notifier      Notifier
	timeframes    []string
	minConfidence int
	logger        *logger.Logger
}

// NewService builds a proposer. minConfidence is the floor below which an
// actionable analysis is discarded like a HOLD; zero disables the floor.
func NewService(store Store, analyzer Analyzer, notifier Notifier, timeframes []string, minConfidence int, log *logger.Logger) *Service {
	if len(timeframes) == 0 {
		timeframes = []string{"M5", "M15", "H1", "H4"}
	}
	return &Service{
		store:         store,
		analyzer:      analyzer,
		notifier:      notifier,
		timeframes:    timeframes,
		minConfidence: minConfidence,
		logger:        log,
	}
}

// Propose analyzes the requested pair, or every active pair, with a single
// timeframe per round. A failure for one pair is reported and does not stop
// the batch; only a store failure resolving the target pairs fails the
// round.
func (s *Service) Propose(ctx context.Context, req Request) (*Report, error) {
	var pairs []storage.TradingPair
	if req.Symbol != "" {
		pair, err := s.store.GetPairBySymbol(req.Symbol)
		if err != nil {
			return nil, fmt.Errorf("resolve pair %s: %w", req.Symbol, err)
		}
		pairs = []storage.TradingPair{*pair}
	} else {
		var err error
		pairs, err = s.store.ListActivePairs()
		if err != nil {
			return nil, fmt.Errorf("list active pairs: %w", err)
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("no trading pairs available")
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = s.timeframes[rand.Intn(len(s.timeframes))]
	}

	report := &Report{Signals: []storage.Signal{}}
	for _, pair := range pairs {
		signal, err := s.proposeForPair(ctx, pair, timeframe)
		if err != nil {
			s.logger.Error("propose signal", "symbol", pair.Symbol, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pair.Symbol, err))
			continue
		}
		if signal == nil {
			report.Skipped++
			continue
		}
		report.Signals = append(report.Signals, *signal)
		report.Generated++
	}

	s.logger.Info("proposal round completed",
		"pairs", len(pairs), "generated", report.Generated,
		"skipped", report.Skipped, "errors", len(report.Errors))
	return report, nil
}

// proposeForPair returns (nil, nil) when the analysis is a HOLD or when the
// pair has no price snapshot yet.
func (s *Service) proposeForPair(ctx context.Context, pair storage.TradingPair, timeframe string) (*storage.Signal, error) {
	price, err := s.store.GetMarketPrice(pair.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("no market price, skipping", "symbol", pair.Symbol)
			return nil, nil
		}
		return nil, fmt.Errorf("get market price: %w", err)
	}

	snap := &ai.MarketSnapshot{
		Symbol:        pair.Symbol,
		Price:         price.Price,
		High24h:       price.High24h,
		Low24h:        price.Low24h,
		ChangePercent: price.ChangePercent,
		Timeframe:     timeframe,
	}

	analysis, _, err := s.analyzer.Analyze(ctx, snap)
	if err != nil {
		s.saveAnalysisLog(pair, nil, timeframe, err)
		return nil, err
	}

	s.saveAnalysisLog(pair, analysis, timeframe, nil)

	// Only actionable directions are persisted
	if analysis.IsHold() {
		s.logger.Debug("HOLD analysis, skipping", "symbol", pair.Symbol)
		return nil, nil
	}
	if analysis.Confidence < s.minConfidence {
		s.logger.Debug("confidence below floor, skipping",
			"symbol", pair.Symbol, "confidence", analysis.Confidence, "floor", s.minConfidence)
		return nil, nil
	}

	if err := validateLevels(analysis); err != nil {
		return nil, err
	}

	reasons := make([]string, 0, 4)
	if analysis.AnalysisSummary != "" {
		reasons = append(reasons, "AI: "+analysis.AnalysisSummary)
	}
	if len(analysis.Reasons) > 3 {
		reasons = append(reasons, analysis.Reasons[:3]...)
	} else {
		reasons = append(reasons, analysis.Reasons...)
	}

	signal := &storage.Signal{
		PairID:     pair.ID,
		SignalType: analysis.SignalType,
		Timeframe:  timeframe,
		EntryPrice: analysis.EntryPrice,
		StopLoss:   analysis.StopLoss,
		TakeProfit: analysis.TakeProfit,
		Confidence: analysis.Confidence,
		Status:     storage.StatusActive,
	}
	signal.SetReasons(reasons)

	if err := s.store.CreateSignal(signal); err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}

	s.logger.Info("signal created",
		"symbol", pair.Symbol, "type", signal.SignalType,
		"entry", signal.EntryPrice, "sl", signal.StopLoss,
		"tp", signal.TakeProfit, "confidence", signal.Confidence)

	if s.notifier != nil {
		s.notifier.NotifySignal(pair.Symbol, signal)
	}
	return signal, nil
}

// validateLevels rejects analyses whose stop/take levels contradict the
// direction before they reach the table.
func validateLevels(a *ai.SignalAnalysis) error {
	switch a.SignalType {
	case storage.SignalBuy:
		if !(a.StopLoss < a.EntryPrice && a.EntryPrice < a.TakeProfit) {
			return fmt.Errorf("inconsistent BUY levels: sl=%g entry=%g tp=%g", a.StopLoss, a.EntryPrice, a.TakeProfit)
		}
	case storage.SignalSell:
		if !(a.TakeProfit < a.EntryPrice && a.EntryPrice < a.StopLoss) {
			return fmt.Errorf("inconsistent SELL levels: tp=%g entry=%g sl=%g", a.TakeProfit, a.EntryPrice, a.StopLoss)
		}
	}
	return nil
}

func (s *Service) saveAnalysisLog(pair storage.TradingPair, analysis *ai.SignalAnalysis, timeframe string, analysisErr error) {
	entry := &storage.AnalysisLog{
		PairID:    pair.ID,
		Symbol:    pair.Symbol,
		Timeframe: timeframe,
		CreatedAt: time.Now(),
	}
	if analysis != nil {
		entry.SignalType = analysis.SignalType
		entry.Confidence = analysis.Confidence
		entry.EntryPrice = analysis.EntryPrice
		entry.StopLoss = analysis.StopLoss
		entry.TakeProfit = analysis.TakeProfit
		if data, err := json.Marshal(analysis.Reasons); err == nil {
			entry.Reasons = string(data)
		}
		switch analysis.SignalType {
		case storage.SignalBuy:
			entry.Trend = "bullish"
		case storage.SignalSell:
			entry.Trend = "bearish"
		}
	}
	if analysisErr != nil {
		entry.Error = analysisErr.Error()
	}
	if err := s.store.SaveAnalysisLog(entry); err != nil {
		s.logger.Error("save analysis log", "symbol", pair.Symbol, "error", err)
	}
}
