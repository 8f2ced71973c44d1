package market

import (
	"fmt"
	"strings"
	"time"
)

// MarketPrice is an immutable snapshot of one currency's quotes. A nil quote
// means the provider did not report that field. Snapshots are replaced
// wholesale when a newer one arrives, never patched.
type MarketPrice struct {
	CurrencyCode string    `json:"currencyCode"`
	Ask          *float64  `json:"ask,omitempty"`
	Bid          *float64  `json:"bid,omitempty"`
	Last         *float64  `json:"last,omitempty"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// PriceType selects which quote of a MarketPrice the subscriber observes.
type PriceType int

const (
	TypeUnset PriceType = iota
	TypeAsk
	TypeBid
	TypeLast
)

func (t PriceType) String() string {
	switch t {
	case TypeAsk:
		return "ask"
	case TypeBid:
		return "bid"
	case TypeLast:
		return "last"
	default:
		return "unset"
	}
}

// ParsePriceType parses "ask", "bid" or "last" (case-insensitive).
func ParsePriceType(s string) (PriceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ask":
		return TypeAsk, nil
	case "bid":
		return TypeBid, nil
	case "last":
		return TypeLast, nil
	default:
		return TypeUnset, fmt.Errorf("unknown price type: %q", s)
	}
}

// Quote returns the quote for the given price type, and whether the provider
// reported it.
func (p MarketPrice) Quote(t PriceType) (float64, bool) {
	var v *float64
	switch t {
	case TypeAsk:
		v = p.Ask
	case TypeBid:
		v = p.Bid
	case TypeLast:
		v = p.Last
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// PriceRequestError reports that the current selection points at a currency
// (or quote) the cache has no data for yet. Recoverable: it clears once a
// fetch for that currency completes.
type PriceRequestError struct {
	CurrencyCode string
	Message      string
}

func (e *PriceRequestError) Error() string {
	return e.Message
}

// NewPriceRequestError builds the canonical no-price error for a currency.
func NewPriceRequestError(currencyCode string) *PriceRequestError {
	return &PriceRequestError{
		CurrencyCode: currencyCode,
		Message:      fmt.Sprintf("no price available for currency %s", currencyCode),
	}
}

// Float is a convenience for building optional quote fields.
func Float(v float64) *float64 { return &v }
