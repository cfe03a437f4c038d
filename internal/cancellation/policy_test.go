package cancellation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"appointment-portal-server/internal/apptime"
	"appointment-portal-server/internal/models"
)

var start = time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)

func scheduled() models.Appointment {
	return models.Appointment{ID: "1", Status: models.StatusScheduled, Date: "2026-01-19", StartTime: "09:00"}
}

func TestNewPolicyDefaults(t *testing.T) {
	assert.Equal(t, 12.0, NewPolicy(0).LeadHours)
	assert.Equal(t, 12.0, NewPolicy(-3).LeadHours)
	assert.Equal(t, 6.0, NewPolicy(6).LeadHours)
}

func TestEvaluateOnlyScheduledIsEligible(t *testing.T) {
	p := NewPolicy(12)
	at := apptime.Instant{Time: start, Valid: true}
	now := start.Add(-48 * time.Hour)

	for _, status := range []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled, "Pending", ""} {
		appt := scheduled()
		appt.Status = status
		d := p.Evaluate(appt, at, now)
		assert.False(t, d.Eligible, "status %q", status)
		assert.Equal(t, 48.0, d.HoursRemaining)
	}

	appt := scheduled()
	appt.Status = "scheduled"
	assert.True(t, p.Evaluate(appt, at, now).Eligible)
}

func TestEvaluateBoundary(t *testing.T) {
	p := NewPolicy(12)
	at := apptime.Instant{Time: start, Valid: true}

	exact := p.Evaluate(scheduled(), at, start.Add(-12*time.Hour))
	assert.True(t, exact.Eligible)
	assert.Equal(t, 12.0, exact.HoursRemaining)

	// 0.01 hours short of the lead time.
	short := p.Evaluate(scheduled(), at, start.Add(-12*time.Hour+36*time.Second))
	assert.False(t, short.Eligible)
	assert.InDelta(t, 11.99, short.HoursRemaining, 1e-9)
}

func TestEvaluateUnresolvable(t *testing.T) {
	d := NewPolicy(12).Evaluate(scheduled(), apptime.Unresolvable, start.Add(-100*time.Hour))

	assert.False(t, d.Eligible)
	assert.Zero(t, d.HoursRemaining)
}

func TestEvaluateClampsPastAppointments(t *testing.T) {
	d := NewPolicy(12).Evaluate(scheduled(), apptime.Instant{Time: start, Valid: true}, start.Add(3*time.Hour))

	assert.False(t, d.Eligible)
	assert.Zero(t, d.HoursRemaining)
}

func TestCheckEndToEnd(t *testing.T) {
	p := NewPolicy(12)

	early := p.Check(scheduled(), time.Date(2026, 1, 18, 20, 0, 0, 0, time.UTC))
	assert.True(t, early.Eligible)
	assert.Equal(t, 13.0, early.HoursRemaining)

	late := p.Check(scheduled(), time.Date(2026, 1, 19, 1, 0, 0, 0, time.UTC))
	assert.False(t, late.Eligible)
	assert.Equal(t, 8.0, late.HoursRemaining)
}

func TestCheckLongFormDate(t *testing.T) {
	appt := models.Appointment{Status: "Scheduled", Date: "Monday, 19th January", StartTime: "9:00  am"}

	d := NewPolicy(12).Check(appt, time.Date(2025, 12, 30, 9, 0, 0, 0, time.UTC))

	assert.True(t, d.Eligible)
	assert.Equal(t, 20*24.0, d.HoursRemaining)
}

func TestCheckMalformedDateFailsClosed(t *testing.T) {
	appt := scheduled()
	appt.Date = "next tuesday"

	assert.False(t, NewPolicy(1).Check(appt, start.Add(-1000*time.Hour)).Eligible)
}
