package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Signal lifecycle states. A signal starts active and is closed exactly
// once, either at a price threshold or by expiry.
const (
	StatusActive     = "active"
	StatusTakeProfit = "tp"
	StatusStopLoss   = "sl"
)

const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
)

const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

type TradingPair struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Symbol    string `gorm:"uniqueIndex;not null" json:"symbol"` // e.g. "EUR/USD"
	Name      string `json:"name"`
	Category  string `gorm:"not null;default:'forex'" json:"category"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	IsPremium bool   `gorm:"not null;default:false" json:"is_premium"`
}

func (p *TradingPair) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// MarketPrice is the latest known snapshot for one pair, keyed by PairID.
// It is always overwritten in place, never accumulated as a series.
type MarketPrice struct {
	ID        string    `gorm:"primarykey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`

	PairID        string  `gorm:"uniqueIndex;not null" json:"pair_id"`
	Symbol        string  `gorm:"not null" json:"symbol"`
	Price         float64 `gorm:"not null" json:"price"`
	ChangePercent float64 `json:"change_percent"`
	High24h       float64 `json:"high_24h"`
	Low24h        float64 `json:"low_24h"`
}

func (m *MarketPrice) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type Signal struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PairID     string  `gorm:"index;not null" json:"pair_id"`
	SignalType string  `gorm:"not null" json:"signal_type"` // BUY or SELL
	Timeframe  string  `gorm:"not null" json:"timeframe"`
	EntryPrice float64 `gorm:"not null" json:"entry_price"`
	StopLoss   float64 `gorm:"not null" json:"stop_loss"`
	TakeProfit float64 `gorm:"not null" json:"take_profit"`
	Confidence int     `gorm:"not null" json:"confidence"` // 0-100

	ReasonsJSON string     `gorm:"column:reasons;type:text" json:"-"`
	Status      string     `gorm:"index;not null;default:'active'" json:"status"`
	CreatedBy   string     `json:"created_by,omitempty"` // empty for automated signals
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

func (s *Signal) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Signal) Reasons() []string {
	if s.ReasonsJSON == "" {
		return nil
	}
	var reasons []string
	if err := json.Unmarshal([]byte(s.ReasonsJSON), &reasons); err != nil {
		return nil
	}
	return reasons
}

func (s *Signal) SetReasons(reasons []string) {
	data, err := json.Marshal(reasons)
	if err != nil {
		s.ReasonsJSON = "[]"
		return
	}
	s.ReasonsJSON = string(data)
}

// TradeRecord is the immutable settlement outcome of one signal. The unique
// index on SignalID makes record creation safe to retry.
type TradeRecord struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SignalID      string    `gorm:"uniqueIndex;not null" json:"signal_id"`
	Result        string    `gorm:"not null" json:"result"` // win or loss
	ProfitPercent float64   `gorm:"not null" json:"profit_percent"`
	ClosedAt      time.Time `gorm:"index;not null" json:"closed_at"`
}

func (t *TradeRecord) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AnalysisLog keeps one row per AI analysis attempt, including HOLDs and
// failures, for historical reference.
type AnalysisLog struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PairID     string  `gorm:"index" json:"pair_id"`
	Symbol     string  `json:"symbol"`
	SignalType string  `json:"signal_type"`
	Confidence int     `json:"confidence"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Timeframe  string  `json:"timeframe"`
	Reasons    string  `gorm:"type:text" json:"reasons"`
	Trend      string  `json:"trend"`
	Error      string  `json:"error"`
}

func (a *AnalysisLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
