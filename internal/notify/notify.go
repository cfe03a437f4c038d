// Package notify delivers cancellation events to the downstream automation
// workflow.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 10 * time.Second

// CancellationEvent is the payload posted after an appointment is cancelled.
type CancellationEvent struct {
	AppointmentID string `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	Email         string `json:"email"`
	Reason        string `json:"reason,omitempty"`
	CancelledAt   string `json:"cancelled_at"`
	UserEmail     string `json:"user_email,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

// Notifier sends cancellation events.
type Notifier interface {
	NotifyCancellation(ctx context.Context, event CancellationEvent) error
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notify: non-2xx response: %d", e.StatusCode)
}

// Webhook posts events as JSON to a fixed URL.
type Webhook struct {
	url        string
	secret     string
	httpClient *http.Client
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.httpClient = c }
}

// WithSecret signs every body with HMAC-SHA256.
func WithSecret(secret string) WebhookOption {
	return func(w *Webhook) { w.secret = secret }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.httpClient.Timeout = d
		}
	}
}

// NewWebhook creates a Webhook notifier for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

func (w *Webhook) NotifyCancellation(ctx context.Context, event CancellationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(payload, w.secret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Noop drops events. It is used when no webhook URL is configured.
type Noop struct {
	Logger zerolog.Logger
}

func (n Noop) NotifyCancellation(_ context.Context, event CancellationEvent) error {
	n.Logger.Debug().
		Str("appointment_id", event.AppointmentID).
		Msg("notifier disabled, dropping cancellation event")
	return nil
}
