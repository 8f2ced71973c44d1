package market

import (
	"errors"
	"testing"
)

func TestQuote_SelectsField(t *testing.T) {
	p := MarketPrice{
		CurrencyCode: "USD",
		Ask:          Float(100),
		Bid:          Float(99),
		Last:         Float(99.5),
	}

	cases := []struct {
		typ  PriceType
		want float64
	}{
		{TypeAsk, 100},
		{TypeBid, 99},
		{TypeLast, 99.5},
	}
	for _, c := range cases {
		got, ok := p.Quote(c.typ)
		if !ok {
			t.Fatalf("expected %s quote to be present", c.typ)
		}
		if got != c.want {
			t.Errorf("%s quote = %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestQuote_AbsentField(t *testing.T) {
	p := MarketPrice{CurrencyCode: "XMR", Last: Float(0.012)}

	if _, ok := p.Quote(TypeAsk); ok {
		t.Errorf("expected absent ask quote")
	}
	if _, ok := p.Quote(TypeUnset); ok {
		t.Errorf("expected no quote for unset type")
	}
	if got, ok := p.Quote(TypeLast); !ok || got != 0.012 {
		t.Errorf("last quote = %v/%v, want 0.012/true", got, ok)
	}
}

func TestParsePriceType(t *testing.T) {
	for _, c := range []struct {
		in   string
		want PriceType
	}{
		{"ask", TypeAsk},
		{"BID", TypeBid},
		{" Last ", TypeLast},
	} {
		got, err := ParsePriceType(c.in)
		if err != nil {
			t.Fatalf("ParsePriceType(%q) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParsePriceType(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := ParsePriceType("median"); err == nil {
		t.Errorf("expected error for unknown price type")
	}
}

func TestNewPriceRequestError(t *testing.T) {
	err := NewPriceRequestError("USD")
	if err.CurrencyCode != "USD" {
		t.Errorf("unexpected currency code: %q", err.CurrencyCode)
	}
	if err.Error() == "" {
		t.Errorf("expected descriptive message")
	}

	var pre *PriceRequestError
	if !errors.As(error(err), &pre) {
		t.Errorf("expected errors.As to match *PriceRequestError")
	}
}
