package cancellation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"appointment-portal-server/internal/metrics"
	"appointment-portal-server/internal/models"
	"appointment-portal-server/internal/notify"
	"appointment-portal-server/internal/store"
)

// DefaultReason is sent when the patient gave none.
const DefaultReason = "User cancelled via dashboard"

var tracer = otel.Tracer("appointment-portal.cancellation")

// ErrNotListed is returned when the appointment is not in the patient's list.
var ErrNotListed = errors.New("cancellation: appointment not in list")

// StoreUpdateError reports that the status update was rejected or failed.
// Nothing was changed locally and no notification was sent.
type StoreUpdateError struct {
	ID  string
	Err error
}

func (e *StoreUpdateError) Error() string {
	return fmt.Sprintf("cancellation: update appointment %s: %v", e.ID, e.Err)
}

func (e *StoreUpdateError) Unwrap() error { return e.Err }

// Ledger is the patient's in-memory appointment list.
type Ledger interface {
	Lookup(id string) (models.Appointment, bool)
	MarkCancelled(id string) (models.Appointment, bool)
	SessionEmail() string
}

// Executor cancels appointments: persist first, then update the list, then
// notify. It does not re-check eligibility.
type Executor struct {
	store         store.Store
	notifier      notify.Notifier
	now           func() time.Time
	logger        zerolog.Logger
	metrics       *metrics.CancellationMetrics
	notifyTimeout time.Duration
	reason        string

	pending sync.WaitGroup
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

func WithMetrics(m *metrics.CancellationMetrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithNotifyTimeout bounds the notification call.
func WithNotifyTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

// WithDefaultReason overrides DefaultReason.
func WithDefaultReason(reason string) ExecutorOption {
	return func(e *Executor) {
		if reason != "" {
			e.reason = reason
		}
	}
}

// NewExecutor creates an Executor. A nil notifier disables notifications.
func NewExecutor(st store.Store, n notify.Notifier, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:         st,
		notifier:      n,
		now:           time.Now,
		logger:        zerolog.Nop(),
		notifyTimeout: notify.DefaultTimeout,
		reason:        DefaultReason,
	}
	for _, o := range opts {
		o(e)
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{Logger: e.logger}
	}
	return e
}

// Cancel sets the appointment's status to Cancelled. Once the store accepts
// the update the cancel has succeeded. The notification is sent in the
// background and its failures are only logged.
func (e *Executor) Cancel(ctx context.Context, list Ledger, id, reason string) (*models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "cancellation.cancel",
		trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	appt, ok := list.Lookup(id)
	if !ok {
		span.SetStatus(codes.Error, ErrNotListed.Error())
		return nil, ErrNotListed
	}

	if err := e.store.Update(ctx, id, store.Fields{Status: models.StatusCancelled}); err != nil {
		e.metrics.ObserveCancellation("store_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "store update failed")
		e.logger.Error().Err(err).Str("appointment_id", id).Msg("failed to cancel appointment")
		return nil, &StoreUpdateError{ID: id, Err: err}
	}
	e.metrics.ObserveCancellation("cancelled")

	updated, ok := list.MarkCancelled(id)
	if !ok {
		updated = appt
		updated.Status = models.StatusCancelled
	}

	if reason == "" {
		reason = e.reason
	}
	event := notify.CancellationEvent{
		AppointmentID: id,
		PatientName:   updated.PatientName,
		Email:         updated.Email,
		Reason:        reason,
		CancelledAt:   e.now().UTC().Format(time.RFC3339),
		UserEmail:     list.SessionEmail(),
		Date:          updated.Date,
		Time:          updated.StartTime,
	}
	detached := context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		e.notify(detached, event)
	}()

	e.logger.Info().Str("appointment_id", id).Msg("appointment cancelled")
	return &updated, nil
}

// Wait blocks until every notification started by Cancel has finished.
func (e *Executor) Wait() {
	e.pending.Wait()
}

func (e *Executor) notify(ctx context.Context, event notify.CancellationEvent) {
	ctx, span := tracer.Start(ctx, "cancellation.notify",
		trace.WithAttributes(attribute.String("appointment.id", event.AppointmentID)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	start := time.Now()
	err := e.notifier.NotifyCancellation(ctx, event)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		e.metrics.ObserveNotification("failed", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "notification failed")
		e.logger.Warn().Err(err).
			Str("appointment_id", event.AppointmentID).
			Msg("cancellation notification failed")
		return
	}
	e.metrics.ObserveNotification("delivered", elapsed)
}
