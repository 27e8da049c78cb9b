package history

import (
	"fmt"
	"math"

	"github.com/avelez/signaldesk/internal/storage"
)

// Store is the read-only slice of the repository the aggregator consumes.
type Store interface {
	ListTradeRecords() ([]storage.TradeRecord, error)
}

// Summary is derived entirely from closed trades; the aggregator holds no
// state of its own.
type Summary struct {
	Total            int     `json:"total"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`          // percent
	CumulativeReturn float64 `json:"cumulative_return"` // percent, compounded
	AvgProfit        float64 `json:"avg_profit"`        // percent per trade
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Summarize() (*Summary, error) {
	records, err := a.store.ListTradeRecords()
	if err != nil {
		return nil, fmt.Errorf("list trade records: %w", err)
	}
	return Summarize(records), nil
}

// Summarize computes win rate and the compounded return over trades in
// closing order.
func Summarize(records []storage.TradeRecord) *Summary {
	s := &Summary{Total: len(records)}

	equity := 1.0
	var profitSum float64
	for _, r := range records {
		if r.Result == storage.ResultWin {
			s.Wins++
		} else {
			s.Losses++
		}
		equity *= 1 + r.ProfitPercent/100
		profitSum += r.ProfitPercent
	}

	if closed := s.Wins + s.Losses; closed > 0 {
		s.WinRate = round2(float64(s.Wins) / float64(closed) * 100)
		s.AvgProfit = round2(profitSum / float64(closed))
	}
	s.CumulativeReturn = round2((equity - 1) * 100)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
