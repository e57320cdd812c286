// Package price looks up the fiat value of a network's native currency, so
// a transfer can be shown with an approximate fiat amount before signing.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/units"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Fetcher retrieves prices from CoinGecko.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	currency string
}

// NewFetcher creates a fetcher quoting in currency ("usd" when empty).
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  defaultBaseURL,
		currency: strings.ToLower(currency),
	}
}

// Currency is the quote currency.
func (f *Fetcher) Currency() string { return f.currency }

// coinGeckoIDs maps native currency symbols to CoinGecko coin IDs.
var coinGeckoIDs = map[string]string{
	"ETH": "ethereum",
	"POL": "polygon-ecosystem-token",
}

// Price returns the price of one unit of the native currency symbol.
func (f *Fetcher) Price(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinGeckoIDs[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("no price source for %s", symbol)
	}

	q := url.Values{"ids": {id}, "vs_currencies": {f.currency}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching prices: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading price response: %w", err)
	}

	// Response: {"ethereum":{"usd":1234.56}}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("parsing price response: %w", err)
	}
	p, ok := raw[id][f.currency]
	if !ok {
		return 0, fmt.Errorf("price not available for %s in %s", id, f.currency)
	}
	return p, nil
}

// Value returns the fiat value of wei of symbol.
func (f *Fetcher) Value(ctx context.Context, symbol string, wei *big.Int) (float64, error) {
	p, err := f.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return units.EtherFloat(wei) * p, nil
}
