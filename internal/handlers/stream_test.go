package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-portal-server/internal/models"
)

func TestStreamAppointments(t *testing.T) {
	e := newEnv(t, nil)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/appointments/stream"
	header := http.Header{}
	header.Set("Authorization", bearer(t, "jane@example.com"))
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	read := func() StreamMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	snapshot := read()
	assert.Equal(t, "snapshot", snapshot.Type)
	assert.Len(t, snapshot.Data, 3)

	require.NoError(t, e.store.Insert(context.Background(), models.Appointment{
		ID: "5", PatientName: "Jane Doe", Email: "jane@example.com", Date: "2026-02-01", StartTime: "09:00", Status: models.StatusScheduled,
	}))

	update := read()
	assert.Equal(t, "update", update.Type)
	assert.Len(t, update.Data, 4)
}

func TestStreamAppointmentsRequiresAuth(t *testing.T) {
	e := newEnv(t, nil)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/appointments/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
