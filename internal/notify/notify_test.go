package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() CancellationEvent {
	return CancellationEvent{
		AppointmentID: "42",
		PatientName:   "Jane Doe",
		Email:         "jane@example.com",
		Reason:        "User cancelled via dashboard",
		CancelledAt:   "2026-01-18T20:30:00Z",
		UserEmail:     "jane@example.com",
		Date:          "19 January 2026",
		Time:          "09:30",
	}
}

func TestWebhookPostsEvent(t *testing.T) {
	var (
		gotBody   []byte
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).NotifyCancellation(context.Background(), sampleEvent())

	require.NoError(t, err)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Empty(t, gotHeader.Get("X-Webhook-Signature"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "42", decoded["appointment_id"])
	assert.Equal(t, "Jane Doe", decoded["patient_name"])
	assert.Equal(t, "jane@example.com", decoded["email"])
	assert.Equal(t, "User cancelled via dashboard", decoded["reason"])
	assert.Equal(t, "2026-01-18T20:30:00Z", decoded["cancelled_at"])
}

func TestWebhookSignsBody(t *testing.T) {
	var (
		body []byte
		sig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithSecret("s3cret")).NotifyCancellation(context.Background(), sampleEvent())

	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, VerifySignature(body, "s3cret", strings.TrimPrefix(sig, "sha256=")))
	assert.False(t, VerifySignature(body, "other", strings.TrimPrefix(sig, "sha256=")))
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).NotifyCancellation(context.Background(), sampleEvent())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)
}

func TestWebhookTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := NewWebhook(srv.URL, WithTimeout(50*time.Millisecond)).NotifyCancellation(context.Background(), sampleEvent())

	assert.Error(t, err)
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := NewWebhook(srv.URL).NotifyCancellation(context.Background(), sampleEvent())

	assert.Error(t, err)
}

func TestNoopDropsEvents(t *testing.T) {
	n := Noop{Logger: zerolog.Nop()}

	assert.NoError(t, n.NotifyCancellation(context.Background(), sampleEvent()))
}
