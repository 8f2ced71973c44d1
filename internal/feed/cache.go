package feed

import (
	"github.com/bher20/pricefeed/internal/market"
	"github.com/bher20/pricefeed/internal/metrics"
)

// priceCache maps currency codes to their latest snapshot. Every entry came
// from a completed successful fetch; a failed fetch never mutates it. The
// cache is confined to the feed's control goroutine, so no locking.
type priceCache struct {
	prices map[string]market.MarketPrice
}

func newPriceCache() *priceCache {
	return &priceCache{prices: make(map[string]market.MarketPrice)}
}

// Upsert replaces any existing entry for the snapshot's currency code.
func (c *priceCache) Upsert(p market.MarketPrice) {
	c.prices[p.CurrencyCode] = p
	exportPrice(p)
	metrics.CacheSize.Set(float64(len(c.prices)))
}

// UpsertAll bulk-replaces, one entry per key. Codes missing from the new map
// keep their stale value until the next bulk update; nothing is ever deleted.
func (c *priceCache) UpsertAll(prices map[string]market.MarketPrice) {
	for code, p := range prices {
		c.prices[code] = p
		exportPrice(p)
	}
	metrics.CacheSize.Set(float64(len(c.prices)))
}

// Get returns the latest snapshot for a code, if any.
func (c *priceCache) Get(code string) (market.MarketPrice, bool) {
	p, ok := c.prices[code]
	return p, ok
}

// Len returns the number of cached currencies.
func (c *priceCache) Len() int {
	return len(c.prices)
}

func exportPrice(p market.MarketPrice) {
	for _, t := range []market.PriceType{market.TypeAsk, market.TypeBid, market.TypeLast} {
		if q, ok := p.Quote(t); ok {
			metrics.LastPrice.WithLabelValues(p.CurrencyCode, t.String()).Set(q)
		}
	}
}
