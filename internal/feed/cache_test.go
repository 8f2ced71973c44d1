package feed

import (
	"testing"

	"github.com/bher20/pricefeed/internal/market"
)

func TestPriceCache_UpsertReplacesWholesale(t *testing.T) {
	c := newPriceCache()

	c.Upsert(market.MarketPrice{CurrencyCode: "USD", Ask: market.Float(100), Bid: market.Float(99)})
	c.Upsert(market.MarketPrice{CurrencyCode: "USD", Last: market.Float(99.5)})

	got, ok := c.Get("USD")
	if !ok {
		t.Fatalf("expected USD entry")
	}
	// Snapshots replace wholesale: the old ask/bid do not survive.
	if got.Ask != nil || got.Bid != nil {
		t.Errorf("expected old quotes to be gone, got ask=%v bid=%v", got.Ask, got.Bid)
	}
	if got.Last == nil || *got.Last != 99.5 {
		t.Errorf("unexpected last: %v", got.Last)
	}
}

func TestPriceCache_GetReturnsMostRecent(t *testing.T) {
	c := newPriceCache()

	c.UpsertAll(map[string]market.MarketPrice{
		"USD": {CurrencyCode: "USD", Last: market.Float(1)},
		"EUR": {CurrencyCode: "EUR", Last: market.Float(2)},
	})
	c.Upsert(market.MarketPrice{CurrencyCode: "USD", Last: market.Float(3)})

	usd, _ := c.Get("USD")
	if usd.Last == nil || *usd.Last != 3 {
		t.Errorf("expected most recent USD snapshot, got %v", usd.Last)
	}
	eur, _ := c.Get("EUR")
	if eur.Last == nil || *eur.Last != 2 {
		t.Errorf("expected EUR snapshot to survive, got %v", eur.Last)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

// UpsertAll never deletes keys missing from a new bulk response. A provider
// permanently dropping a currency therefore keeps serving its last known
// price; deliberate availability-over-freshness behavior.
func TestPriceCache_UpsertAllKeepsStaleKeys(t *testing.T) {
	c := newPriceCache()

	c.UpsertAll(map[string]market.MarketPrice{
		"USD": {CurrencyCode: "USD", Last: market.Float(1)},
		"EUR": {CurrencyCode: "EUR", Last: market.Float(2)},
	})
	c.UpsertAll(map[string]market.MarketPrice{
		"USD": {CurrencyCode: "USD", Last: market.Float(1.5)},
	})

	if c.Len() != 2 {
		t.Fatalf("expected stale EUR key to be retained, len=%d", c.Len())
	}
	eur, ok := c.Get("EUR")
	if !ok || eur.Last == nil || *eur.Last != 2 {
		t.Errorf("expected stale EUR value, got %v/%v", eur.Last, ok)
	}
	usd, _ := c.Get("USD")
	if usd.Last == nil || *usd.Last != 1.5 {
		t.Errorf("expected refreshed USD value, got %v", usd.Last)
	}
}

func TestPriceCache_GetMissing(t *testing.T) {
	c := newPriceCache()
	if _, ok := c.Get("USD"); ok {
		t.Errorf("expected miss on empty cache")
	}
}
