package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bher20/pricefeed/internal/auth"
	"github.com/bher20/pricefeed/internal/feed"
	"github.com/bher20/pricefeed/internal/market"
	"github.com/bher20/pricefeed/internal/provider"
)

type staticProvider struct {
	name  string
	table map[string]market.MarketPrice
}

func (s *staticProvider) Name() string { return s.name }

func (s *staticProvider) FetchOne(ctx context.Context, code string) (market.MarketPrice, error) {
	mp, ok := s.table[code]
	if !ok {
		return market.MarketPrice{}, &provider.Error{
			Provider: s.name, Op: "fetch_one", CurrencyCode: code,
			Err: fmt.Errorf("no data for currency"),
		}
	}
	return mp, nil
}

func (s *staticProvider) FetchAll(ctx context.Context) (map[string]market.MarketPrice, error) {
	return s.table, nil
}

func newTestMux(t *testing.T, keys map[string]string) (http.Handler, *feed.Feed) {
	t.Helper()

	fiat := &staticProvider{name: "fiat", table: map[string]market.MarketPrice{
		"USD": {
			CurrencyCode: "USD",
			Ask:          market.Float(100),
			Bid:          market.Float(99),
			Last:         market.Float(99.5),
			FetchedAt:    time.Now(),
		},
	}}
	crypto := &staticProvider{name: "crypto", table: map[string]market.MarketPrice{}}

	f := feed.New(feed.Config{}, fiat, crypto)
	t.Cleanup(f.Stop)
	f.Initialize(func(float64) {}, func(string, error) {})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := f.GetPrice("USD"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := f.GetPrice("USD"); !ok {
		t.Fatalf("feed never cached USD")
	}

	authSvc, err := auth.NewService(keys)
	if err != nil {
		t.Fatalf("auth.NewService failed: %v", err)
	}
	return NewMux(f, authSvc), f
}

func TestGetPrice(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/prices/usd", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected X-Request-ID header")
	}

	var mp market.MarketPrice
	if err := json.Unmarshal(rr.Body.Bytes(), &mp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if mp.CurrencyCode != "USD" || mp.Last == nil || *mp.Last != 99.5 {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestGetPrice_UnknownCurrency(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/prices/XYZ", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	mux, f := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("PUT", "/selection/type",
		strings.NewReader(`{"priceType":"last"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("set type status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("PUT", "/selection/currency",
		strings.NewReader(`{"currencyCode":"USD"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("set currency status = %d: %s", rr.Code, rr.Body.String())
	}

	var sel struct {
		CurrencyCode string `json:"currencyCode"`
		PriceType    string `json:"priceType"`
		UpdateCount  int64  `json:"updateCount"`
	}
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/selection", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil {
		t.Fatalf("decode selection: %v", err)
	}
	if sel.CurrencyCode != "USD" || sel.PriceType != "last" {
		t.Errorf("unexpected selection: %+v", sel)
	}
	if sel.UpdateCount != f.UpdateCount() {
		t.Errorf("update count mismatch: %d vs %d", sel.UpdateCount, f.UpdateCount())
	}
}

func TestSetSelection_BadBodies(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("PUT", "/selection/currency", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty currency status = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("PUT", "/selection/type",
		strings.NewReader(`{"priceType":"median"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", rr.Code)
	}
}

func TestSelectionWrite_RequiresPermission(t *testing.T) {
	mux, _ := newTestMux(t, map[string]string{
		"view-key":  "viewer",
		"write-key": "writer",
	})

	body := func() *strings.Reader { return strings.NewReader(`{"currencyCode":"USD"}`) }

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("PUT", "/selection/currency", body()))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous write status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest("PUT", "/selection/currency", body())
	req.Header.Set("Authorization", "Bearer view-key")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("viewer write status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("PUT", "/selection/currency", body())
	req.Header.Set("Authorization", "Bearer write-key")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("writer write status = %d, want 200", rr.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestReadyz_NotReadyBeforeData(t *testing.T) {
	f := feed.New(feed.Config{}, &staticProvider{name: "fiat"}, &staticProvider{name: "crypto"})
	t.Cleanup(f.Stop)

	authSvc, err := auth.NewService(nil)
	if err != nil {
		t.Fatalf("auth.NewService failed: %v", err)
	}
	mux := NewMux(f, authSvc)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
