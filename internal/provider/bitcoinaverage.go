package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bher20/pricefeed/internal/market"
)

// BitcoinAverage serves BTC exchange rates against fiat currencies via the
// global ticker endpoints. One snapshot per fiat code, quoting ask/bid/last.
type BitcoinAverage struct {
	baseURL string
	client  *http.Client
}

// bitcoinAverageTicker is one entry of the global ticker response. All three
// quotes are optional in practice.
type bitcoinAverageTicker struct {
	Ask  *float64 `json:"ask"`
	Bid  *float64 `json:"bid"`
	Last *float64 `json:"last"`
}

// NewBitcoinAverage creates the fiat provider. baseURL is the API root, e.g.
// "https://api.bitcoinaverage.com".
func NewBitcoinAverage(baseURL string, client *http.Client) *BitcoinAverage {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &BitcoinAverage{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *BitcoinAverage) Name() string { return "bitcoinaverage" }

// FetchOne requests /ticker/global/{CODE}.
func (b *BitcoinAverage) FetchOne(ctx context.Context, currencyCode string) (market.MarketPrice, error) {
	code := strings.ToUpper(currencyCode)
	url := fmt.Sprintf("%s/ticker/global/%s", b.baseURL, code)

	var ticker bitcoinAverageTicker
	if err := b.getJSON(ctx, url, &ticker); err != nil {
		return market.MarketPrice{}, &Error{Provider: b.Name(), Op: "fetch_one", CurrencyCode: code, Err: err}
	}

	if ticker.Ask == nil && ticker.Bid == nil && ticker.Last == nil {
		return market.MarketPrice{}, &Error{
			Provider: b.Name(), Op: "fetch_one", CurrencyCode: code,
			Err: fmt.Errorf("no quotes in response"),
		}
	}

	return market.MarketPrice{
		CurrencyCode: code,
		Ask:          ticker.Ask,
		Bid:          ticker.Bid,
		Last:         ticker.Last,
		FetchedAt:    time.Now(),
	}, nil
}

// FetchAll requests /ticker/global/all. The response maps currency codes to
// ticker objects and also carries a top-level "timestamp" string, so entries
// that don't decode as objects are skipped.
func (b *BitcoinAverage) FetchAll(ctx context.Context) (map[string]market.MarketPrice, error) {
	url := b.baseURL + "/ticker/global/all"

	var raw map[string]json.RawMessage
	if err := b.getJSON(ctx, url, &raw); err != nil {
		return nil, &Error{Provider: b.Name(), Op: "fetch_all", Err: err}
	}

	now := time.Now()
	out := make(map[string]market.MarketPrice, len(raw))
	for code, msg := range raw {
		var ticker bitcoinAverageTicker
		if err := json.Unmarshal(msg, &ticker); err != nil {
			continue
		}
		if ticker.Ask == nil && ticker.Bid == nil && ticker.Last == nil {
			continue
		}
		code = strings.ToUpper(code)
		out[code] = market.MarketPrice{
			CurrencyCode: code,
			Ask:          ticker.Ask,
			Bid:          ticker.Bid,
			Last:         ticker.Last,
			FetchedAt:    now,
		}
	}
	return out, nil
}

func (b *BitcoinAverage) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
