// Package listing holds a patient's appointment list between reads.
//
// The list is updated optimistically after a cancel and re-read in full
// whenever the store reports a change; it is never patched from change
// payloads.
package listing

import (
	"context"
	"strings"
	"sync"
	"time"

	"appointment-portal-server/internal/cancellation"
	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
	"appointment-portal-server/internal/store"
)

// Query narrows what the view loads.
type Query struct {
	Status models.AppointmentStatus
	Order  store.Order
}

// Row is an appointment together with its display decision.
type Row struct {
	models.Appointment
	Cancellation cancellation.Decision `json:"cancellation"`
	HasReport    bool                  `json:"hasReport"`
}

// View is one patient's appointment list.
type View struct {
	store  store.Store
	policy cancellation.Policy
	email  string
	query  Query

	mu    sync.RWMutex
	items []models.Appointment
}

// NewView binds a view to the session email.
func NewView(st store.Store, policy cancellation.Policy, email string, q Query) *View {
	if q.Order == "" {
		q.Order = store.OrderDateDesc
	}
	return &View{
		store:  st,
		policy: policy,
		email:  strings.TrimSpace(email),
		query:  q,
	}
}

func (v *View) SessionEmail() string {
	return v.email
}

// Load replaces the list with a fresh read.
func (v *View) Load(ctx context.Context) error {
	items, err := v.store.Select(ctx, store.Filter{Email: v.email, Status: v.query.Status}, v.query.Order)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	return nil
}

// Items returns a copy of the current list.
func (v *View) Items() []models.Appointment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Appointment, len(v.items))
	copy(out, v.items)
	return out
}

func (v *View) Lookup(id string) (models.Appointment, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, a := range v.items {
		if a.ID == id {
			return a, true
		}
	}
	return models.Appointment{}, false
}

// MarkCancelled sets the status of id to Cancelled in the local list.
func (v *View) MarkCancelled(id string) (models.Appointment, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.items {
		if v.items[i].ID == id {
			v.items[i].Status = models.StatusCancelled
			return v.items[i], true
		}
	}
	return models.Appointment{}, false
}

// Rows pairs every appointment with its cancellation decision at now.
func (v *View) Rows(now time.Time) []Row {
	items := v.Items()
	rows := make([]Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, Row{
			Appointment:  a,
			Cancellation: v.policy.Check(a, now),
			HasReport:    a.HasReport(),
		})
	}
	return rows
}

// Watch re-reads the list after every change the store reports for this
// patient and passes the result of the read to onRefresh. Bursts of changes
// collapse into one read. The subscription is in place when Watch returns;
// it ends when ctx is done or stop is called.
func (v *View) Watch(ctx context.Context, onRefresh func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)
	unsubscribe := v.store.Subscribe(store.Filter{Email: v.email}, func(changefeed.Change) {
		select {
		case pending <- struct{}{}:
		default:
		}
	})

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				onRefresh(v.Load(ctx))
			}
		}
	}()
	return cancel
}
