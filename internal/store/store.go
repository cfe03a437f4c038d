// Package store is the boundary to the appointments table. Adapters normalise
// rows on the way out (status casing, "NULL" report references) so the rest of
// the service only sees canonical values.
package store

import (
	"context"
	"errors"
	"strings"

	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
)

// ErrNotFound is returned when no appointment row matches.
var ErrNotFound = errors.New("store: appointment not found")

// Order is the listing order.
type Order string

const (
	OrderDateAsc  Order = "date_asc"
	OrderDateDesc Order = "date_desc"
	OrderCreated  Order = "created"
)

// ParseOrder maps a query value onto an Order, defaulting to OrderDateDesc.
func ParseOrder(s string) Order {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case OrderDateAsc, "asc":
		return OrderDateAsc
	case OrderCreated:
		return OrderCreated
	}
	return OrderDateDesc
}

// Filter narrows a select. Email is matched case-insensitively; Status is
// optional.
type Filter struct {
	Email  string
	Status models.AppointmentStatus
}

func (f Filter) normalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(f.Email))
}

// Fields is a partial update. Only the status is ever written by this service.
type Fields struct {
	Status models.AppointmentStatus
}

// Store is the appointment table as seen by this service.
type Store interface {
	Select(ctx context.Context, filter Filter, order Order) ([]models.Appointment, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Update(ctx context.Context, id string, fields Fields) error
	Subscribe(filter Filter, onChange func(changefeed.Change)) (unsubscribe func())
}

func normalizeAll(rows []models.Appointment) []models.Appointment {
	for i := range rows {
		rows[i].Normalize()
	}
	return rows
}

func matchesStatus(f Filter, s models.AppointmentStatus) bool {
	if f.Status == "" {
		return true
	}
	return strings.EqualFold(string(f.Status), string(s))
}
