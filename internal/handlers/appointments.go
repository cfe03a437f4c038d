package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"appointment-portal-server/internal/cancellation"
	"appointment-portal-server/internal/listing"
	"appointment-portal-server/internal/metrics"
	"appointment-portal-server/internal/middleware"
	"appointment-portal-server/internal/models"
	"appointment-portal-server/internal/store"
	"appointment-portal-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Store    store.Store
	Policy   cancellation.Policy
	Executor *cancellation.Executor
	Metrics  *metrics.CancellationMetrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(st store.Store, policy cancellation.Policy, exec *cancellation.Executor, m *metrics.CancellationMetrics, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		Store:    st,
		Policy:   policy,
		Executor: exec,
		Metrics:  m,
		Logger:   logger,
		Now:      time.Now,
	}
}

// CancelAppointmentRequest represents the request body for cancelling an appointment.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *AppointmentHandler) session(c *gin.Context) (middleware.Session, bool) {
	s, ok := middleware.GetSession(c)
	if !ok || s.Email == "" {
		utils.Unauthorized(c, "Session not found")
		return middleware.Session{}, false
	}
	return s, true
}

// parseQuery reads the status and order query parameters.
func parseQuery(c *gin.Context) (listing.Query, bool) {
	q := listing.Query{Order: store.ParseOrder(c.Query("order"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && !strings.EqualFold(raw, "all") {
		status, ok := models.ParseStatus(raw)
		if !ok {
			utils.BadRequest(c, "Invalid status filter: "+raw)
			return listing.Query{}, false
		}
		q.Status = status
	}
	return q, true
}

// GetAppointments lists the session's appointments with their cancellation
// decision.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	q, ok := parseQuery(c)
	if !ok {
		return
	}

	view := listing.NewView(h.Store, h.Policy, session.Email, q)
	if err := view.Load(c.Request.Context()); err != nil {
		h.Logger.Error().Err(err).Str("email", session.Email).Msg("failed to load appointments")
		utils.BadGateway(c, "Failed to load appointments")
		return
	}

	utils.Success(c, "Appointments retrieved successfully", view.Rows(h.Now()))
}

// GetAppointmentByID returns one appointment. Appointments of other patients
// are reported as missing.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	appt, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "Appointment not found")
			return
		}
		h.Logger.Error().Err(err).Str("appointment_id", c.Param("id")).Msg("failed to load appointment")
		utils.BadGateway(c, "Failed to load appointment")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(appt.Email), session.Email) {
		utils.NotFound(c, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment retrieved successfully", listing.Row{
		Appointment:  *appt,
		Cancellation: h.Policy.Check(*appt, h.Now()),
		HasReport:    appt.HasReport(),
	})
}

// CancelAppointment re-checks eligibility against a fresh read and cancels.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	var req CancelAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	view := listing.NewView(h.Store, h.Policy, session.Email, listing.Query{})
	if err := view.Load(ctx); err != nil {
		h.Logger.Error().Err(err).Str("appointment_id", id).Msg("failed to load appointments before cancel")
		utils.BadGateway(c, "Failed to cancel appointment, please try again")
		return
	}
	appt, ok := view.Lookup(id)
	if !ok || !strings.EqualFold(strings.TrimSpace(appt.Email), session.Email) {
		utils.NotFound(c, "Appointment not found")
		return
	}

	decision := h.Policy.Check(appt, h.Now())
	h.Metrics.ObserveDecision(decision.Eligible)
	if appt.Status.IsTerminal() {
		utils.Conflict(c, "Appointment is already "+strings.ToLower(string(appt.Status)), decision)
		return
	}
	if !decision.Eligible {
		utils.Conflict(c, "Appointment can no longer be cancelled", decision)
		return
	}

	updated, err := h.Executor.Cancel(ctx, view, id, strings.TrimSpace(req.Reason))
	if err != nil {
		var updateErr *cancellation.StoreUpdateError
		switch {
		case errors.Is(err, cancellation.ErrNotListed):
			utils.NotFound(c, "Appointment not found")
		case errors.As(err, &updateErr):
			utils.BadGateway(c, "Failed to cancel appointment, please try again")
		default:
			utils.InternalServerError(c, "Failed to cancel appointment")
		}
		return
	}

	utils.Success(c, "Appointment cancelled successfully", listing.Row{
		Appointment:  *updated,
		Cancellation: h.Policy.Check(*updated, h.Now()),
		HasReport:    updated.HasReport(),
	})
}
