package market

import (
	"context"
	"errors"
)

// Quote is the normalized price state returned by a data source.
type Quote struct {
	Price         float64
	ChangePercent float64
	High24h       float64
	Low24h        float64
}

// ErrNoData signals that a source does not cover the symbol or returned
// nothing usable. The chain treats it the same as a transport failure and
// moves on to the next source.
var ErrNoData = errors.New("no data for symbol")

// Source fetches the current quote for one symbol.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*Quote, error)
}
