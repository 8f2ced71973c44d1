package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/bher20/pricefeed/internal/alerting"
	"github.com/bher20/pricefeed/internal/api"
	"github.com/bher20/pricefeed/internal/auth"
	"github.com/bher20/pricefeed/internal/config"
	"github.com/bher20/pricefeed/internal/feed"
	"github.com/bher20/pricefeed/internal/market"
	"github.com/bher20/pricefeed/internal/provider"
)

func main() {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := provider.NewHTTPClient(cfg.HTTPTimeout, cfg.SkipTLSVerify)
	provider.Register(market.ClassFiat, provider.NewBitcoinAverage(cfg.FiatProviderURL, client))
	provider.Register(market.ClassCrypto, provider.NewPoloniex(cfg.CryptoProviderURL, client))

	fiat, _ := provider.Get(market.ClassFiat)
	crypto, _ := provider.Get(market.ClassCrypto)

	f := feed.New(feed.Config{
		SelectedInterval:   cfg.SelectedInterval,
		FiatBulkInterval:   cfg.FiatBulkInterval,
		CryptoInterval:     cfg.CryptoInterval,
		CryptoBulkInterval: cfg.CryptoBulkInterval,
	}, fiat, crypto)

	alerter := alerting.NewAlerter(alerting.NewAlertConfig(
		cfg.AlertWebhookURL, cfg.AlertWebhookType, cfg.AlertMinFaults))
	emailer := alerting.NewEmailSender(alerting.EmailConfig{
		APIKey: cfg.SendgridAPIKey,
		From:   cfg.AlertEmailFrom,
		To:     cfg.AlertEmailTo,
	})

	// The callbacks run on the feed's control goroutine: no blocking work and
	// no synchronous Feed getters in here. Alert delivery moves to its own
	// goroutine, where reading the selection back is safe.
	f.Initialize(
		func(price float64) {
			alerter.RecordRecovery()
			log.Printf("price changed: %v", price)
		},
		func(message string, err error) {
			log.Printf("feed fault: %s: %v", message, err)
			at := time.Now()
			go func() {
				alert := alerting.FaultAlert{
					Message:      message,
					Error:        err.Error(),
					CurrencyCode: f.CurrencyCode(),
					PriceType:    f.PriceType().String(),
					Timestamp:    at,
				}
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := alerter.SendFaultAlert(ctx, alert); err != nil {
					log.Printf("alerting: webhook failed: %v", err)
				}
				if emailer.Enabled() {
					if err := emailer.SendFaultEmail(alert); err != nil {
						log.Printf("alerting: email failed: %v", err)
					}
				}
			}()
		},
	)

	if t, err := market.ParsePriceType(cfg.DefaultPriceType); err == nil {
		f.SetPriceType(t)
	} else {
		log.Printf("config: %v, starting without a price type", err)
	}
	if cfg.DefaultCurrency != "" {
		f.SetCurrencyCode(cfg.DefaultCurrency)
	}

	authSvc, err := auth.NewService(cfg.APIKeyPairs())
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	mux := api.NewMux(f, authSvc)

	addr := ":" + cfg.Port
	log.Printf("pricefeed listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
