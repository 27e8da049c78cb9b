package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Trading pairs

func (r *Repository) ListActivePairs() ([]TradingPair, error) {
	var pairs []TradingPair
	err := r.db.Where("is_active = ?", true).Order("symbol").Find(&pairs).Error
	return pairs, err
}

func (r *Repository) GetPairBySymbol(symbol string) (*TradingPair, error) {
	var pair TradingPair
	err := r.db.Where("symbol = ? AND is_active = ?", symbol, true).First(&pair).Error
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// SeedPairs inserts any configured pairs missing from the table. Existing
// rows are left untouched.
func (r *Repository) SeedPairs(pairs []TradingPair) error {
	for _, p := range pairs {
		pair := p
		err := r.db.Where("symbol = ?", pair.Symbol).FirstOrCreate(&pair).Error
		if err != nil {
			return fmt.Errorf("seed pair %s: %w", p.Symbol, err)
		}
	}
	return nil
}

// Market prices

// UpsertMarketPrice inserts the snapshot or overwrites the existing row for
// the same pair. At most one row per pair exists at any time.
func (r *Repository) UpsertMarketPrice(price *MarketPrice) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pair_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol", "price", "change_percent", "high_24h", "low_24h", "updated_at",
		}),
	}).Create(price).Error
}

func (r *Repository) GetMarketPrice(pairID string) (*MarketPrice, error) {
	var price MarketPrice
	err := r.db.Where("pair_id = ?", pairID).First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *Repository) ListMarketPrices() ([]MarketPrice, error) {
	var prices []MarketPrice
	err := r.db.Order("symbol").Find(&prices).Error
	return prices, err
}

// Signals

func (r *Repository) CreateSignal(signal *Signal) error {
	return r.db.Create(signal).Error
}

func (r *Repository) ListSignalsByStatus(status string) ([]Signal, error) {
	var signals []Signal
	err := r.db.Where("status = ?", status).Order("created_at").Find(&signals).Error
	return signals, err
}

func (r *Repository) ListRecentSignals(limit int) ([]Signal, error) {
	var signals []Signal
	err := r.db.Order("created_at DESC").Limit(limit).Find(&signals).Error
	return signals, err
}

// CloseSignal transitions a signal out of active exactly once. The status
// guard makes a replay against an already-closed signal a no-op; the bool
// reports whether this call performed the transition.
func (r *Repository) CloseSignal(id, status string, closedAt time.Time) (bool, error) {
	res := r.db.Model(&Signal{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]any{"status": status, "closed_at": closedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Trade history

// CreateTradeRecord appends the settlement outcome for a signal. Retries
// after a partial failure are absorbed by the unique index on signal_id.
func (r *Repository) CreateTradeRecord(record *TradeRecord) error {
	return r.db.Where("signal_id = ?", record.SignalID).FirstOrCreate(record).Error
}

// ListUnrecordedSignals returns closed signals that have no trade record
// yet, i.e. the status write landed but the record insert did not.
func (r *Repository) ListUnrecordedSignals() ([]Signal, error) {
	var signals []Signal
	err := r.db.
		Where("status <> ?", StatusActive).
		Where("id NOT IN (?)", r.db.Model(&TradeRecord{}).Select("signal_id")).
		Order("closed_at").
		Find(&signals).Error
	return signals, err
}

func (r *Repository) ListTradeRecords() ([]TradeRecord, error) {
	var records []TradeRecord
	err := r.db.Order("closed_at").Find(&records).Error
	return records, err
}

func (r *Repository) CountTradeRecords() (int64, error) {
	var count int64
	err := r.db.Model(&TradeRecord{}).Count(&count).Error
	return count, err
}

// Analysis logs

func (r *Repository) SaveAnalysisLog(log *AnalysisLog) error {
	return r.db.Create(log).Error
}
