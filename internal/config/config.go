package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration, populated from PRICEFEED_* env
// variables.
type Config struct {
	Port string `envconfig:"PORT" default:"8000"`

	// Provider endpoints.
	FiatProviderURL   string        `envconfig:"FIAT_PROVIDER_URL" default:"https://api.bitcoinaverage.com"`
	CryptoProviderURL string        `envconfig:"CRYPTO_PROVIDER_URL" default:"https://poloniex.com"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	SkipTLSVerify     bool          `envconfig:"SKIP_TLS_VERIFY" default:"false"`

	// Refresh cadences.
	SelectedInterval   time.Duration `envconfig:"SELECTED_INTERVAL" default:"60s"`
	FiatBulkInterval   time.Duration `envconfig:"FIAT_BULK_INTERVAL" default:"300s"`
	CryptoInterval     time.Duration `envconfig:"CRYPTO_INTERVAL" default:"60s"`
	CryptoBulkInterval time.Duration `envconfig:"CRYPTO_BULK_INTERVAL" default:"300s"`

	// Initial selection.
	DefaultCurrency  string `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	DefaultPriceType string `envconfig:"DEFAULT_PRICE_TYPE" default:"last"`

	// API keys as comma-separated token:role pairs, e.g.
	// "s3cret:admin,writer-key:writer". Empty disables auth.
	APIKeys string `envconfig:"API_KEYS" default:""`

	// Fault alerting.
	AlertWebhookURL  string `envconfig:"ALERT_WEBHOOK_URL" default:""`
	AlertWebhookType string `envconfig:"ALERT_WEBHOOK_TYPE" default:""`
	AlertMinFaults   int    `envconfig:"ALERT_MIN_FAULTS" default:"1"`
	SendgridAPIKey   string `envconfig:"SENDGRID_API_KEY" default:""`
	AlertEmailFrom   string `envconfig:"ALERT_EMAIL_FROM" default:""`
	AlertEmailTo     string `envconfig:"ALERT_EMAIL_TO" default:""`
}

// FromEnv builds and validates a Config from PRICEFEED_* environment
// variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PRICEFEED", &cfg); err != nil {
		return nil, fmt.Errorf("process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{
		"fiat provider":   c.FiatProviderURL,
		"crypto provider": c.CryptoProviderURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s URL is required", name)
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s URL: %s", name, raw)
		}
	}

	for name, d := range map[string]time.Duration{
		"selected interval":    c.SelectedInterval,
		"fiat bulk interval":   c.FiatBulkInterval,
		"crypto interval":      c.CryptoInterval,
		"crypto bulk interval": c.CryptoBulkInterval,
	} {
		// The scheduler's resolution is one second; cron silently rounds
		// shorter intervals up, so reject them instead.
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %s", name, d)
		}
	}

	if c.APIKeys != "" {
		for _, pair := range strings.Split(c.APIKeys, ",") {
			if !strings.Contains(pair, ":") {
				return fmt.Errorf("malformed API key entry %q (want token:role)", pair)
			}
		}
	}
	return nil
}

// APIKeyPairs parses APIKeys into token→role.
func (c *Config) APIKeyPairs() map[string]string {
	out := make(map[string]string)
	if c.APIKeys == "" {
		return out
	}
	for _, pair := range strings.Split(c.APIKeys, ",") {
		token, role, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" || role == "" {
			continue
		}
		out[token] = role
	}
	return out
}
