package market

import (
	"context"
	"errors"
	"fmt"
)

// Chain tries sources in priority order and returns the first usable quote
// together with the name of the source that produced it. A source that does
// not cover the symbol or fails is skipped; the caller decides whether the
// chain ends in a source that cannot fail.
type Chain struct {
	sources []Source
}

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// DefaultChain wires the production tiers: crypto ticker, fiat rates,
// generic quote API, simulated fallback.
func DefaultChain(binance *BinanceSource, forex *FrankfurterSource, twelvedata *TwelveDataSource) *Chain {
	return NewChain(binance, forex, twelvedata, NewSimulatedSource())
}

func (c *Chain) Fetch(ctx context.Context, symbol string) (*Quote, string, error) {
	var lastErr error
	for _, src := range c.sources {
		quote, err := src.Fetch(ctx, symbol)
		if err != nil {
			if !errors.Is(err, ErrNoData) {
				lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			}
			continue
		}
		return quote, src.Name(), nil
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", ErrNoData
}
