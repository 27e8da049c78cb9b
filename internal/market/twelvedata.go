package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const twelveDataQuoteURL = "https://api.twelvedata.com/quote"

// TwelveDataSource covers commodities and anything the crypto/fiat sources
// skip. It is inert without an API key.
type TwelveDataSource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewTwelveDataSource(apiKey string, timeout time.Duration) *TwelveDataSource {
	return &TwelveDataSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    twelveDataQuoteURL,
		apiKey:     apiKey,
	}
}

func (t *TwelveDataSource) Name() string { return "twelvedata" }

type twelveDataQuote struct {
	Close         string `json:"close"`
	PercentChange string `json:"percent_change"`
	High          string `json:"high"`
	Low           string `json:"low"`
}

func (t *TwelveDataSource) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	if t.apiKey == "" {
		return nil, ErrNoData
	}

	apiSymbol := strings.ReplaceAll(symbol, "/", "")
	url := fmt.Sprintf("%s?symbol=%s&apikey=%s", t.baseURL, apiSymbol, t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch twelvedata quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twelvedata returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var quote twelveDataQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("parse twelvedata response: %w", err)
	}

	price := parsePrice(quote.Close)
	if price == 0 {
		return nil, ErrNoData
	}

	high := parsePrice(quote.High)
	if high == 0 {
		high = price * 1.002
	}
	low := parsePrice(quote.Low)
	if low == 0 {
		low = price * 0.998
	}

	return &Quote{
		Price:         price,
		ChangePercent: parsePrice(quote.PercentChange),
		High24h:       high,
		Low24h:        low,
	}, nil
}
