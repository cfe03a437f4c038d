// Package cancellation decides whether a patient may still cancel an
// appointment and carries out the cancellation.
package cancellation

import (
	"math"
	"time"

	"appointment-portal-server/internal/apptime"
	"appointment-portal-server/internal/models"
)

// DefaultLeadHours is the canonical lead time. Some patient pages used 6
// hours instead; the value is configuration, not two policies.
const DefaultLeadHours = 12

// Decision is the outcome of an eligibility check.
type Decision struct {
	Eligible       bool    `json:"eligible"`
	HoursRemaining float64 `json:"hoursRemaining"`
}

// Policy holds the minimum number of hours before the start of an
// appointment at which it may still be cancelled.
type Policy struct {
	LeadHours float64
}

// NewPolicy returns a Policy, falling back to DefaultLeadHours when leadHours
// is not positive.
func NewPolicy(leadHours float64) Policy {
	if leadHours <= 0 || math.IsNaN(leadHours) {
		leadHours = DefaultLeadHours
	}
	return Policy{LeadHours: leadHours}
}

// Evaluate decides eligibility for appt starting at at. Unresolvable start
// times are never eligible. HoursRemaining is clamped at zero for display;
// the comparison uses the signed value.
func (p Policy) Evaluate(appt models.Appointment, at apptime.Instant, now time.Time) Decision {
	if !at.Valid {
		return Decision{}
	}
	hours := at.Time.Sub(now).Hours()
	status, _ := models.ParseStatus(string(appt.Status))
	return Decision{
		Eligible:       status == models.StatusScheduled && hours >= p.LeadHours,
		HoursRemaining: math.Max(hours, 0),
	}
}

// Check resolves the appointment's date and start time and evaluates it.
func (p Policy) Check(appt models.Appointment, now time.Time) Decision {
	return p.Evaluate(appt, apptime.Resolve(appt.Date, appt.StartTime, now), now)
}
