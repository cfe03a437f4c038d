package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
)

func seedRows() []models.Appointment {
	nullRef := "NULL"
	return []models.Appointment{
		{ID: "1", Email: "jane@example.com", Date: "2026-01-19", StartTime: "09:00", Status: "scheduled", ReportURL: &nullRef},
		{ID: "2", Email: "JANE@example.com", Date: "5 February 2026", StartTime: "10:00", Status: "Completed"},
		{ID: "3", Email: "bob@example.com", Date: "2026-01-20", StartTime: "11:00", Status: "Scheduled"},
		{ID: "4", Email: "jane@example.com", Date: "2026-01-02", StartTime: "08:00", Status: "Cancelled"},
	}
}

func TestMemoryStoreSelectFiltersByEmailCaseInsensitively(t *testing.T) {
	s := NewMemoryStore(nil, seedRows()...)

	rows, err := s.Select(context.Background(), Filter{Email: " Jane@Example.com "}, OrderDateAsc)

	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"4", "1", "2"}, ids)
	assert.Equal(t, models.StatusScheduled, rows[1].Status)
	assert.Nil(t, rows[1].ReportURL)
}

func TestMemoryStoreSelectOrders(t *testing.T) {
	s := NewMemoryStore(nil, seedRows()...)
	ctx := context.Background()

	desc, err := s.Select(ctx, Filter{Email: "jane@example.com"}, OrderDateDesc)
	require.NoError(t, err)
	assert.Equal(t, "2", desc[0].ID)

	created, err := s.Select(ctx, Filter{Email: "jane@example.com"}, OrderCreated)
	require.NoError(t, err)
	assert.Equal(t, "1", created[0].ID)
}

func TestMemoryStoreSelectByStatus(t *testing.T) {
	s := NewMemoryStore(nil, seedRows()...)

	rows, err := s.Select(context.Background(), Filter{Email: "jane@example.com", Status: models.StatusScheduled}, OrderDateAsc)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)
}

func TestMemoryStoreUpdatePublishesChange(t *testing.T) {
	hub := changefeed.NewHub()
	s := NewMemoryStore(hub, seedRows()...)
	var changes []changefeed.Change
	defer s.Subscribe(Filter{Email: "jane@example.com"}, func(c changefeed.Change) {
		changes = append(changes, c)
	})()

	require.NoError(t, s.Update(context.Background(), "1", Fields{Status: models.StatusCancelled}))

	got, err := s.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	require.Len(t, changes, 1)
	assert.Equal(t, changefeed.OpUpdate, changes[0].Op)
	assert.Equal(t, "1", changes[0].ID)
}

func TestMemoryStoreUpdateMissingRow(t *testing.T) {
	s := NewMemoryStore(nil)

	err := s.Update(context.Background(), "missing", Fields{Status: models.StatusCancelled})

	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInsertNotifiesSubscribers(t *testing.T) {
	s := NewMemoryStore(nil)
	calls := 0
	defer s.Subscribe(Filter{Email: "jane@example.com"}, func(changefeed.Change) { calls++ })()

	require.NoError(t, s.Insert(context.Background(), models.Appointment{ID: "9", Email: "jane@example.com"}))

	assert.Equal(t, 1, calls)
}

func TestLoadMemoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1","email":"jane@example.com","date":"2026-01-19","start_time":"09:00","status":"Scheduled"}]`), 0o600))

	s, err := LoadMemoryStore(path, nil)

	require.NoError(t, err)
	got, err := s.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got.StartTime)

	_, err = LoadMemoryStore(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, OrderDateAsc, ParseOrder("asc"))
	assert.Equal(t, OrderDateAsc, ParseOrder("DATE_ASC"))
	assert.Equal(t, OrderCreated, ParseOrder("created"))
	assert.Equal(t, OrderDateDesc, ParseOrder(""))
	assert.Equal(t, OrderDateDesc, ParseOrder("bogus"))
}
