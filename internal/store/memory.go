package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"appointment-portal-server/internal/apptime"
	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
)

// MemoryStore is a thread-safe, in-memory Store used for local development and
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[string]models.Appointment
	order []string
	feed  changefeed.Feed
	now   func() time.Time
}

// NewMemoryStore creates a store seeded with rows. Changes are published on feed.
func NewMemoryStore(feed changefeed.Feed, rows ...models.Appointment) *MemoryStore {
	if feed == nil {
		feed = changefeed.NewHub()
	}
	s := &MemoryStore{
		rows: make(map[string]models.Appointment),
		feed: feed,
		now:  time.Now,
	}
	for _, r := range rows {
		s.put(r)
	}
	return s
}

// LoadMemoryStore seeds a MemoryStore from a JSON array of appointments.
func LoadMemoryStore(path string, feed changefeed.Feed) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read seed file: %w", err)
	}
	var rows []models.Appointment
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("store: decode seed file: %w", err)
	}
	return NewMemoryStore(feed, rows...), nil
}

// Insert adds a row and publishes an insert change, the way the intake
// workflow would.
func (s *MemoryStore) Insert(ctx context.Context, row models.Appointment) error {
	s.mu.Lock()
	s.put(row)
	s.mu.Unlock()
	return s.feed.Publish(ctx, changefeed.Change{
		Table: "appointments",
		Op:    changefeed.OpInsert,
		ID:    row.ID,
		Email: row.Email,
	})
}

func (s *MemoryStore) put(row models.Appointment) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now().UTC()
	}
	if _, exists := s.rows[row.ID]; !exists {
		s.order = append(s.order, row.ID)
	}
	s.rows[row.ID] = row
}

func (s *MemoryStore) Select(_ context.Context, filter Filter, order Order) ([]models.Appointment, error) {
	s.mu.RLock()
	email := filter.normalizedEmail()
	var out []models.Appointment
	for _, id := range s.order {
		row := s.rows[id]
		if email != "" && strings.ToLower(strings.TrimSpace(row.Email)) != email {
			continue
		}
		row.Normalize()
		if !matchesStatus(filter, row.Status) {
			continue
		}
		out = append(out, row)
	}
	s.mu.RUnlock()

	if order != OrderCreated {
		// Mirrors a text sort on the date column; rows with unparseable dates
		// sort by their raw text.
		ref := s.now()
		sort.SliceStable(out, func(i, j int) bool {
			a, b := dateKey(out[i], ref), dateKey(out[j], ref)
			if order == OrderDateDesc {
				return a > b
			}
			return a < b
		})
	}
	return out, nil
}

func dateKey(a models.Appointment, ref time.Time) string {
	if at := apptime.Resolve(a.Date, "00:00", ref); at.Valid {
		return at.Time.Format("2006-01-02")
	}
	return a.Date
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.Normalize()
	return &row, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields Fields) error {
	s.mu.Lock()
	row, ok := s.rows[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if fields.Status != "" {
		row.Status = fields.Status
	}
	s.rows[id] = row
	s.mu.Unlock()

	_ = s.feed.Publish(ctx, changefeed.Change{
		Table: "appointments",
		Op:    changefeed.OpUpdate,
		ID:    id,
		Email: row.Email,
	})
	return nil
}

func (s *MemoryStore) Subscribe(filter Filter, onChange func(changefeed.Change)) func() {
	return s.feed.Subscribe(changefeed.Filter{Email: filter.Email}, onChange)
}
