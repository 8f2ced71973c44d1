package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/bher20/pricefeed/internal/market"
)

// Provider is a single external price source. Implementations are stateless
// per call and do not retry: a failed call is retried implicitly by the next
// scheduled refresh.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// FetchOne requests the price snapshot for a single currency code.
	// Returns an *Error if the call fails or the provider has no data for
	// the code.
	FetchOne(ctx context.Context, currencyCode string) (market.MarketPrice, error)

	// FetchAll requests the provider's full price table. An empty table is
	// not an error; only transport or parse failures are.
	FetchAll(ctx context.Context) (map[string]market.MarketPrice, error)
}

// Error is a transport, parse or no-data failure from a price provider.
type Error struct {
	Provider     string
	Op           string // "fetch_one" or "fetch_all"
	CurrencyCode string // set for fetch_one
	Err          error
}

func (e *Error) Error() string {
	if e.CurrencyCode != "" {
		return fmt.Sprintf("provider %s: %s %s: %v", e.Provider, e.Op, e.CurrencyCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	providersMu sync.RWMutex
	providers   = make(map[market.Class]Provider)
)

// Register binds a provider to a market class. Called once per class during
// startup; registering the same class twice panics.
func Register(class market.Class, p Provider) {
	if p == nil {
		panic(fmt.Sprintf("provider: Register(%s) called with nil provider", class))
	}

	providersMu.Lock()
	defer providersMu.Unlock()

	if _, exists := providers[class]; exists {
		panic(fmt.Sprintf("provider: Register called twice for class %s", class))
	}
	providers[class] = p
}

// Get returns the provider registered for a market class.
func Get(class market.Class) (Provider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()

	p, ok := providers[class]
	return p, ok
}

// List returns the registered providers keyed by market class.
func List() map[market.Class]Provider {
	providersMu.RLock()
	defer providersMu.RUnlock()

	out := make(map[market.Class]Provider, len(providers))
	for class, p := range providers {
		out[class] = p
	}
	return out
}

// Reset clears the registry. Intended for tests.
func Reset() {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers = make(map[market.Class]Provider)
}
