package alerting

import (
	"errors"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailConfig configures the sendgrid fault email channel. Empty APIKey
// disables it.
type EmailConfig struct {
	APIKey string
	From   string
	To     string
}

// EmailSender sends fault alerts by email through sendgrid.
type EmailSender struct {
	cfg EmailConfig
}

// NewEmailSender creates a sender; returns a disabled sender when no API key
// is configured.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Enabled reports whether the email channel is configured.
func (s *EmailSender) Enabled() bool {
	return s.cfg.APIKey != "" && s.cfg.From != "" && s.cfg.To != ""
}

// SendFaultEmail sends one fault alert email.
func (s *EmailSender) SendFaultEmail(alert FaultAlert) error {
	if !s.Enabled() {
		return errors.New("email alerting not configured")
	}

	subject := fmt.Sprintf("Price feed fault: %s", alert.Message)
	body := fmt.Sprintf(
		"Message: %s\nError: %s\nSelection: %s/%s\nTimestamp: %s\n",
		alert.Message, alert.Error, alert.CurrencyCode, alert.PriceType,
		alert.Timestamp.Format("2006-01-02 15:04:05 MST"),
	)

	from := mail.NewEmail("pricefeed", s.cfg.From)
	to := mail.NewEmail("", s.cfg.To)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(s.cfg.APIKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	log.Printf("alerting: sent fault email to %s", s.cfg.To)
	return nil
}
