package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const binanceTickerURL = "https://api.binance.com/api/v3/ticker/24hr?symbol=%s"

// cryptoSymbols maps display symbols to Binance 24h-ticker symbols.
var cryptoSymbols = map[string]string{
	"BTC/USD":  "BTCUSDT",
	"ETH/USD":  "ETHUSDT",
	"BTC/USDT": "BTCUSDT",
	"ETH/USDT": "ETHUSDT",
}

// BinanceSource serves crypto pairs from the Binance 24h ticker endpoint.
type BinanceSource struct {
	httpClient *http.Client
	baseURL    string
}

func NewBinanceSource(timeout time.Duration) *BinanceSource {
	return &BinanceSource{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *BinanceSource) Name() string { return "binance" }

type binanceTicker struct {
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

func (b *BinanceSource) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	binanceSymbol, ok := cryptoSymbols[symbol]
	if !ok {
		return nil, ErrNoData
	}

	url := fmt.Sprintf(binanceTickerURL, binanceSymbol)
	if b.baseURL != "" {
		url = fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", b.baseURL, binanceSymbol)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch binance ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ticker binanceTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, fmt.Errorf("parse binance response: %w", err)
	}

	price := parsePrice(ticker.LastPrice)
	if price == 0 {
		return nil, ErrNoData
	}

	return &Quote{
		Price:         price,
		ChangePercent: parsePrice(ticker.PriceChangePercent),
		High24h:       parsePrice(ticker.HighPrice),
		Low24h:        parsePrice(ticker.LowPrice),
	}, nil
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
