package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bher20/pricefeed/internal/market"
)

// Poloniex serves crypto-asset prices against BTC via the public returnTicker
// command. The API has no single-pair call, so FetchOne filters the full
// table.
type Poloniex struct {
	baseURL string
	client  *http.Client
}

// poloniexTicker is one pair entry of the returnTicker response. Poloniex
// encodes all numbers as strings.
type poloniexTicker struct {
	LowestAsk  string `json:"lowestAsk"`
	HighestBid string `json:"highestBid"`
	Last       string `json:"last"`
}

// NewPoloniex creates the crypto provider. baseURL is the API root, e.g.
// "https://poloniex.com".
func NewPoloniex(baseURL string, client *http.Client) *Poloniex {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Poloniex{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *Poloniex) Name() string { return "poloniex" }

// FetchOne returns the snapshot for one asset out of the full ticker table.
func (p *Poloniex) FetchOne(ctx context.Context, currencyCode string) (market.MarketPrice, error) {
	code := strings.ToUpper(currencyCode)

	all, err := p.FetchAll(ctx)
	if err != nil {
		// FetchAll already wraps; rewrap the cause once under fetch_one.
		cause := err
		var perr *Error
		if errors.As(err, &perr) {
			cause = perr.Err
		}
		return market.MarketPrice{}, &Error{Provider: p.Name(), Op: "fetch_one", CurrencyCode: code, Err: cause}
	}

	mp, ok := all[code]
	if !ok {
		return market.MarketPrice{}, &Error{
			Provider: p.Name(), Op: "fetch_one", CurrencyCode: code,
			Err: fmt.Errorf("no data for currency"),
		}
	}
	return mp, nil
}

// FetchAll requests /public?command=returnTicker and keeps the BTC_* pairs,
// keyed by the asset code (BTC_XMR -> XMR).
func (p *Poloniex) FetchAll(ctx context.Context) (map[string]market.MarketPrice, error) {
	url := p.baseURL + "/public?command=returnTicker"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Op: "fetch_all", Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Op: "fetch_all", Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Provider: p.Name(), Op: "fetch_all", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var raw map[string]poloniexTicker
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &Error{Provider: p.Name(), Op: "fetch_all", Err: fmt.Errorf("decode response: %w", err)}
	}

	now := time.Now()
	out := make(map[string]market.MarketPrice, len(raw))
	for pair, ticker := range raw {
		code, ok := assetFromPair(pair)
		if !ok {
			continue
		}
		out[code] = market.MarketPrice{
			CurrencyCode: code,
			Ask:          parseQuote(ticker.LowestAsk),
			Bid:          parseQuote(ticker.HighestBid),
			Last:         parseQuote(ticker.Last),
			FetchedAt:    now,
		}
	}
	return out, nil
}

// assetFromPair extracts the asset code from a BTC-quoted pair name.
func assetFromPair(pair string) (string, bool) {
	const prefix = "BTC_"
	if !strings.HasPrefix(pair, prefix) {
		return "", false
	}
	code := strings.TrimPrefix(pair, prefix)
	if code == "" {
		return "", false
	}
	return code, true
}

func parseQuote(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
