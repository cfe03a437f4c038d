package models

import (
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// ParseStatus maps the spellings found in stored rows ("scheduled",
// "Scheduled", "CANCELLED", ...) onto the canonical statuses.
func ParseStatus(s string) (AppointmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled":
		return StatusScheduled, true
	case "completed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return AppointmentStatus(s), false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment represents a booked appointment row written by the intake assistant
type Appointment struct {
	ID          string            `gorm:"column:id;primaryKey" json:"id"`
	PatientName string            `gorm:"column:patient_name" json:"patient_name"`
	Email       string            `gorm:"column:email;index" json:"email"`
	PhoneNumber string            `gorm:"column:phone_number" json:"phone_number"`
	Symptoms    string            `gorm:"column:patient_symptoms;type:text" json:"patient_symptoms"`
	ReportURL   *string           `gorm:"column:report_url;type:longtext" json:"report_url,omitempty"`
	Date        string            `gorm:"column:date" json:"date"`
	StartTime   string            `gorm:"column:start_time" json:"start_time"`
	Status      AppointmentStatus `gorm:"column:status;size:20" json:"status"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName keeps the table name shared with the intake workflow.
func (Appointment) TableName() string {
	return "appointments"
}

// HasReport reports whether a report reference is attached.
func (a Appointment) HasReport() bool {
	return a.ReportURL != nil
}

// Normalize canonicalises a row read from a store. Report references that are
// empty or the literal "NULL" (written by one of the intake paths) become nil.
func (a *Appointment) Normalize() {
	a.ReportURL = NormalizeReportReference(a.ReportURL)
	if status, ok := ParseStatus(string(a.Status)); ok {
		a.Status = status
	}
}

// NormalizeReportReference returns nil for absent references.
func NormalizeReportReference(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
