package market

import (
	"context"
	"math/rand"
)

// basePrices anchors the simulated fallback to realistic levels per symbol.
var basePrices = map[string]float64{
	"EUR/USD": 1.0850,
	"GBP/USD": 1.2650,
	"USD/JPY": 149.50,
	"USD/CHF": 0.8850,
	"AUD/USD": 0.6550,
	"USD/CAD": 1.3550,
	"NZD/USD": 0.6050,
	"EUR/GBP": 0.8580,
	"EUR/JPY": 162.20,
	"GBP/JPY": 189.10,
	"XAU/USD": 2025.50,
	"XAG/USD": 23.50,
	"BTC/USD": 97500.00,
	"ETH/USD": 2750.00,
}

// SimulatedSource is the guaranteed last resort: a known base price
// perturbed by up to ±0.1% so ingestion always produces a snapshot.
type SimulatedSource struct {
	randFloat func() float64
}

func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{randFloat: rand.Float64}
}

func (s *SimulatedSource) Name() string { return "simulated" }

func (s *SimulatedSource) Fetch(_ context.Context, symbol string) (*Quote, error) {
	base, ok := basePrices[symbol]
	if !ok {
		base = 1.0
	}

	variation := (s.randFloat() - 0.5) * 0.002
	return &Quote{
		Price:         base * (1 + variation),
		ChangePercent: variation * 100,
		High24h:       base * 1.002,
		Low24h:        base * 0.998,
	}, nil
}
