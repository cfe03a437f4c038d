package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"appointment-portal-server/internal/listing"
	"appointment-portal-server/internal/models"
)

const writeWait = 10 * time.Second

// StreamMessage is pushed to websocket clients.
type StreamMessage struct {
	Type string        `json:"type"`
	Data []listing.Row `json:"data,omitempty"`
	Err  string        `json:"error,omitempty"`
}

// NewUpgrader allows the configured origin. An empty origin or "*" allows all.
func NewUpgrader(origin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			got := r.Header.Get("Origin")
			return origin == "" || origin == "*" || got == "" || strings.EqualFold(got, origin)
		},
	}
}

// StreamAppointments sends the session's list on connect and again after
// every change reported by the store.
func (h *AppointmentHandler) StreamAppointments(upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := h.session(c)
		if !ok {
			return
		}
		q, ok := parseQuery(c)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()
		h.Logger.Debug().Str("status", statusLabel(q.Status)).Msg("appointment stream opened")

		var writeMu sync.Mutex
		send := func(msg StreamMessage) {
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.Logger.Debug().Err(err).Msg("websocket write failed")
			}
		}
		push := func(view *listing.View, kind string, err error) {
			if err != nil {
				send(StreamMessage{Type: "error", Err: "Failed to load appointments"})
				return
			}
			send(StreamMessage{Type: kind, Data: view.Rows(h.Now())})
		}

		view := listing.NewView(h.Store, h.Policy, session.Email, q)
		stop := view.Watch(c.Request.Context(), func(err error) {
			push(view, "update", err)
		})
		defer stop()

		push(view, "snapshot", view.Load(c.Request.Context()))

		// Clients only send control frames; reading surfaces the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// statusLabel is used in log lines.
func statusLabel(s models.AppointmentStatus) string {
	if s == "" {
		return "all"
	}
	return string(s)
}
