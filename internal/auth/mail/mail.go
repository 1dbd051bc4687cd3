// Package mail delivers transactional email for the auth service. Only the
// password reset flow sends mail today.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Mailer sends a single message. Implementations must be safe for concurrent
// use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// APIMailer posts messages to an HTTP mail provider (any service with a
// JSON send endpoint, e.g. a self-hosted relay or a SaaS API).
type APIMailer struct {
	Endpoint string
	APIKey   string
	From     string
	Client   *http.Client
}

func NewAPIMailer(endpoint, apiKey, from string) *APIMailer {
	return &APIMailer{
		Endpoint: endpoint,
		APIKey:   apiKey,
		From:     from,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *APIMailer) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    m.From,
		"to":      to,
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	resp, err := m.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail api returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development and tests when no mail provider is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.Logger.Info("mail delivery skipped, logging instead",
		"to", to, "subject", subject, "body", body)
	return nil
}
