package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want AppointmentStatus
		ok   bool
	}{
		{"Scheduled", StatusScheduled, true},
		{"scheduled", StatusScheduled, true},
		{" COMPLETED ", StatusCompleted, true},
		{"cancelled", StatusCancelled, true},
		{"canceled", StatusCancelled, true},
		{"pending", AppointmentStatus("pending"), false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusScheduled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestNormalizeReportReference(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.Nil(t, NormalizeReportReference(nil))
	assert.Nil(t, NormalizeReportReference(str("")))
	assert.Nil(t, NormalizeReportReference(str("NULL")))
	assert.Nil(t, NormalizeReportReference(str(" null ")))

	got := NormalizeReportReference(str("JVBERi0xLjQK"))
	require.NotNil(t, got)
	assert.Equal(t, "JVBERi0xLjQK", *got)
}

func TestAppointmentNormalize(t *testing.T) {
	ref := "NULL"
	appt := Appointment{ID: "1", Status: "scheduled", ReportURL: &ref}

	appt.Normalize()

	assert.Equal(t, StatusScheduled, appt.Status)
	assert.False(t, appt.HasReport())
}
