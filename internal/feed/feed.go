package feed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bher20/pricefeed/internal/market"
	"github.com/bher20/pricefeed/internal/metrics"
	"github.com/bher20/pricefeed/internal/provider"
)

// PriceChangedFunc receives the quote matching the current selection.
type PriceChangedFunc func(price float64)

// FaultFunc receives recoverable feed faults: missing cached data for the
// selection, or a failed bulk refresh.
type FaultFunc func(message string, err error)

// Config controls the refresh cadences of the feed.
type Config struct {
	// SelectedInterval is the fast-path cadence for the actively selected
	// fiat currency.
	SelectedInterval time.Duration
	// FiatBulkInterval is the cadence of the full fiat table refresh.
	FiatBulkInterval time.Duration
	// CryptoInterval is the fast-path cadence of the crypto table refresh,
	// armed after the first successful crypto bulk fetch.
	CryptoInterval time.Duration
	// CryptoBulkInterval is the cadence of the unconditional crypto table
	// refresh.
	CryptoBulkInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SelectedInterval <= 0 {
		c.SelectedInterval = 60 * time.Second
	}
	if c.FiatBulkInterval <= 0 {
		c.FiatBulkInterval = 5 * time.Minute
	}
	if c.CryptoInterval <= 0 {
		c.CryptoInterval = 60 * time.Second
	}
	if c.CryptoBulkInterval <= 0 {
		c.CryptoBulkInterval = 5 * time.Minute
	}
	return c
}

// Feed owns the price cache, the refresh scheduler and the current selection,
// and pushes the selected price to the subscriber whenever it changes or new
// data for that currency arrives.
//
// All state mutation and callback invocation happens on one control
// goroutine. Fetches run in their own goroutines and marshal their results
// back via the exec channel, so the cache and selection need no locking.
type Feed struct {
	cfg    Config
	fiat   provider.Provider
	crypto provider.Provider

	cache *priceCache
	sched *scheduler

	exec     chan func()
	done     chan struct{}
	stopOnce sync.Once

	// control-goroutine state
	onPriceChanged PriceChangedFunc
	onFault        FaultFunc
	currencyCode   string
	priceType      market.PriceType

	updates atomic.Int64
}

// New creates a feed over the two market-class providers. The control
// goroutine starts immediately; fetching starts with Initialize.
func New(cfg Config, fiat, crypto provider.Provider) *Feed {
	f := &Feed{
		cfg:    cfg.withDefaults(),
		fiat:   fiat,
		crypto: crypto,
		cache:  newPriceCache(),
		sched:  newScheduler(),
		exec:   make(chan func(), 128),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	for {
		select {
		case fn := <-f.exec:
			fn()
		case <-f.done:
			return
		}
	}
}

// do marshals fn onto the control goroutine. Dropped if the feed is stopped.
func (f *Feed) do(fn func()) {
	select {
	case f.exec <- fn:
	case <-f.done:
	}
}

// call runs fn on the control goroutine and waits for it to finish.
func (f *Feed) call(fn func()) {
	ran := make(chan struct{})
	f.do(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
	case <-f.done:
	}
}

// Initialize stores the subscriber callbacks and starts the fetch-and-arm
// sequence. It returns immediately; all fetching is asynchronous.
//
// Callbacks are invoked on the control goroutine: they must return quickly
// and must not call the feed's synchronous getters, which would deadlock.
//
// Both market classes get an immediate bulk fetch. The first successful fiat
// bulk fetch arms the fast-path task for the selected currency; the first
// successful crypto bulk fetch arms the short crypto table refresh. The slow
// bulk refreshes for both classes are armed right away.
func (f *Feed) Initialize(onPriceChanged PriceChangedFunc, onFault FaultFunc) {
	f.do(func() {
		f.onPriceChanged = onPriceChanged
		f.onFault = onFault
	})

	f.requestAll(f.fiat, func() {
		f.applyPrice()
		f.armTask(f.cfg.SelectedInterval, func() {
			f.do(f.requestSelected)
		})
	})

	f.requestAll(f.crypto, func() {
		f.applyPrice()
		f.armTask(f.cfg.CryptoInterval, func() {
			f.requestAll(f.crypto, nil)
		})
	})

	f.armTask(f.cfg.FiatBulkInterval, func() {
		f.requestAll(f.fiat, nil)
	})
	f.armTask(f.cfg.CryptoBulkInterval, func() {
		f.requestAll(f.crypto, nil)
	})
	f.sched.start()

	f.requestAll(f.crypto, nil)
}

// Refresh triggers an immediate out-of-band bulk fetch for both market
// classes, without disturbing the periodic schedule.
func (f *Feed) Refresh() {
	f.requestAll(f.fiat, nil)
	f.requestAll(f.crypto, nil)
}

// Stop halts the scheduler and the control goroutine. Fetches already in
// flight complete but their results are discarded.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		f.sched.stop()
		close(f.done)
	})
}

// SetCurrencyCode updates the selection's currency, re-applies the cache
// against it, and primes the fast path with an out-of-band single-currency
// fetch from the class-appropriate provider.
func (f *Feed) SetCurrencyCode(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	f.do(func() {
		f.currencyCode = code
		f.applyPrice()
		f.requestPrice(f.providerFor(market.ClassOf(code)), code)
	})
}

// SetPriceType updates the selection's price type and re-applies the cache.
// It never fetches: the price type does not change which provider is
// relevant.
func (f *Feed) SetPriceType(t market.PriceType) {
	f.do(func() {
		f.priceType = t
		f.applyPrice()
	})
}

// GetPrice is a pass-through read of the cache, independent of the active
// selection. It never blocks on the network and never triggers a fetch.
func (f *Feed) GetPrice(code string) (market.MarketPrice, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var (
		mp market.MarketPrice
		ok bool
	)
	f.call(func() {
		mp, ok = f.cache.Get(code)
	})
	return mp, ok
}

// CurrencyCode returns the selection's currency code.
func (f *Feed) CurrencyCode() string {
	var code string
	f.call(func() { code = f.currencyCode })
	return code
}

// PriceType returns the selection's price type.
func (f *Feed) PriceType() market.PriceType {
	var t market.PriceType
	f.call(func() { t = f.priceType })
	return t
}

// CacheLen returns the number of cached currencies.
func (f *Feed) CacheLen() int {
	var n int
	f.call(func() { n = f.cache.Len() })
	return n
}

// UpdateCount returns the monotonically increasing update counter. It is
// incremented on every cache-apply attempt and on every bulk-fetch
// completion, so a collaborator can detect that a refresh happened even when
// the observed price didn't numerically change.
func (f *Feed) UpdateCount() int64 {
	return f.updates.Load()
}

func (f *Feed) providerFor(class market.Class) provider.Provider {
	if class == market.ClassFiat {
		return f.fiat
	}
	return f.crypto
}

// applyPrice re-evaluates the current selection against the cache. Runs on
// the control goroutine after every successful bulk fetch and after every
// selection change. The update counter is incremented last, on every pass.
func (f *Feed) applyPrice() {
	if f.onPriceChanged != nil && f.currencyCode != "" && f.priceType != market.TypeUnset {
		if mp, ok := f.cache.Get(f.currencyCode); ok {
			if quote, ok := mp.Quote(f.priceType); ok {
				f.onPriceChanged(quote)
			} else {
				msg := fmt.Sprintf("no %s quote available for currency %s", f.priceType, f.currencyCode)
				f.fault(msg, &market.PriceRequestError{CurrencyCode: f.currencyCode, Message: msg}, "no_quote")
			}
		} else {
			err := market.NewPriceRequestError(f.currencyCode)
			log.Printf("feed: %s", err.Message)
			f.fault(err.Message, err, "no_price")
		}
	}
	f.updates.Add(1)
	metrics.PriceAppliesTotal.Inc()
}

func (f *Feed) fault(msg string, err error, reason string) {
	metrics.PriceFaultsTotal.WithLabelValues(reason).Inc()
	if f.onFault != nil {
		f.onFault(msg, err)
	}
}

// requestSelected refreshes the selected currency against the fiat provider.
// Runs on the control goroutine. Crypto selections are skipped here: the
// short crypto bulk task already covers them.
func (f *Feed) requestSelected() {
	if f.currencyCode == "" || !market.IsFiat(f.currencyCode) {
		return
	}
	f.requestPrice(f.fiat, f.currencyCode)
}

// requestPrice issues an asynchronous single-currency fetch. On success the
// snapshot is cached and, when it is the selected currency, the subscriber is
// notified directly without a full re-apply pass. Failures are logged and
// swallowed; the previous cached value stays authoritative.
func (f *Feed) requestPrice(p provider.Provider, code string) {
	if p == nil || code == "" {
		return
	}
	go func() {
		started := time.Now()
		mp, err := p.FetchOne(context.Background(), code)
		metrics.ObserveFetch(p.Name(), "one", started, err)
		if err != nil {
			log.Printf("feed: could not load price for %s from %s: %v", code, p.Name(), err)
			return
		}
		f.do(func() {
			f.cache.Upsert(mp)
			if f.onPriceChanged != nil && mp.CurrencyCode == f.currencyCode {
				if quote, ok := mp.Quote(f.priceType); ok {
					f.onPriceChanged(quote)
				}
			}
		})
	}()
}

// requestAll issues an asynchronous bulk fetch. On success the table is
// merged into the cache and then either the given continuation or a plain
// applyPrice pass runs on the control goroutine. A bulk failure is
// systemically significant: it surfaces via onFault and bumps the update
// counter, leaving the cache untouched.
func (f *Feed) requestAll(p provider.Provider, then func()) {
	if p == nil {
		return
	}
	go func() {
		started := time.Now()
		table, err := p.FetchAll(context.Background())
		metrics.ObserveFetch(p.Name(), "all", started, err)
		if err != nil {
			log.Printf("feed: could not load market prices from %s: %v", p.Name(), err)
			f.do(func() {
				f.fault(fmt.Sprintf("could not load market prices from %s", p.Name()), err, "bulk_fetch")
				f.updates.Add(1)
			})
			return
		}
		f.do(func() {
			f.cache.UpsertAll(table)
			if then != nil {
				then()
			} else {
				f.applyPrice()
			}
		})
	}()
}

// armTask registers a periodic task, logging instead of failing on a bad
// interval.
func (f *Feed) armTask(interval time.Duration, fn func()) {
	if err := f.sched.every(interval, fn); err != nil {
		log.Printf("feed: could not arm %s task: %v", interval, err)
	}
}
