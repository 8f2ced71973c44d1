package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// Enabled controls whether alerts are sent
	Enabled bool
	// MinFaultsBeforeAlert is the number of consecutive feed faults before
	// an alert goes out
	MinFaultsBeforeAlert int
	// Timeout for HTTP requests
	Timeout time.Duration
}

// NewAlertConfig normalizes an alert configuration, auto-detecting the
// webhook type from the URL when unset.
func NewAlertConfig(webhookURL, webhookType string, minFaults int) AlertConfig {
	cfg := AlertConfig{
		WebhookURL:           webhookURL,
		WebhookType:          webhookType,
		MinFaultsBeforeAlert: minFaults,
		Timeout:              10 * time.Second,
	}

	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		if strings.Contains(cfg.WebhookURL, "slack.com") {
			cfg.WebhookType = "slack"
		} else if strings.Contains(cfg.WebhookURL, "discord.com") {
			cfg.WebhookType = "discord"
		} else {
			cfg.WebhookType = "generic"
		}
	}

	if cfg.MinFaultsBeforeAlert < 1 {
		cfg.MinFaultsBeforeAlert = 1
	}

	return cfg
}

// Alerter sends feed fault alerts to configured webhooks.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client

	mu                sync.Mutex
	consecutiveFaults int
}

// NewAlerter creates a new alerter instance.
func NewAlerter(cfg AlertConfig) *Alerter {
	return &Alerter{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FaultAlert describes one fault surfaced by the feed.
type FaultAlert struct {
	Message      string
	Error        string
	CurrencyCode string
	PriceType    string
	Timestamp    time.Time
}

// RecordRecovery resets the consecutive-fault counter. Called when the feed
// delivers a price again.
func (a *Alerter) RecordRecovery() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveFaults = 0
}

// SendFaultAlert sends an alert for a feed fault once the consecutive-fault
// threshold is reached.
func (a *Alerter) SendFaultAlert(ctx context.Context, alert FaultAlert) error {
	if !a.cfg.Enabled {
		return nil
	}

	a.mu.Lock()
	a.consecutiveFaults++
	faults := a.consecutiveFaults
	a.mu.Unlock()

	if faults < a.cfg.MinFaultsBeforeAlert {
		log.Printf("alerting: %d consecutive faults below threshold (%d), skipping",
			faults, a.cfg.MinFaultsBeforeAlert)
		return nil
	}

	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = a.buildSlackPayload(alert)
	case "discord":
		payload, err = a.buildDiscordPayload(alert)
	default:
		payload, err = a.buildGenericPayload(alert)
	}

	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Printf("alerting: sent fault alert (%d consecutive faults)", faults)
	return nil
}

func (a *Alerter) buildSlackPayload(alert FaultAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": ":warning: Price Feed Fault",
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Message:*\n%s", alert.Message)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Error:*\n%s", alert.Error)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Selection:*\n%s/%s", alert.CurrencyCode, alert.PriceType)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildDiscordPayload(alert FaultAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       "Price Feed Fault",
				"description": alert.Message,
				"color":       16776960, // Yellow
				"fields": []map[string]interface{}{
					{"name": "Error", "value": alert.Error, "inline": false},
					{"name": "Currency", "value": alert.CurrencyCode, "inline": true},
					{"name": "Price Type", "value": alert.PriceType, "inline": true},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(alert FaultAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":    "price_feed_fault",
		"message":       alert.Message,
		"error":         alert.Error,
		"currency_code": alert.CurrencyCode,
		"price_type":    alert.PriceType,
		"timestamp":     alert.Timestamp.Format(time.RFC3339),
	}

	return json.Marshal(payload)
}
