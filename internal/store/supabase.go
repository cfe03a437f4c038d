package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"

	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
)

// RestClient is the part of the Supabase client used here. Both
// *supabase.Client and *postgrest.Client satisfy it.
type RestClient interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseStore talks to the appointments table through PostgREST.
type SupabaseStore struct {
	client RestClient
	table  string
	feed   changefeed.Feed
}

// NewSupabaseStore creates a SupabaseStore for table.
func NewSupabaseStore(client RestClient, table string, feed changefeed.Feed) *SupabaseStore {
	if table == "" {
		table = "appointments"
	}
	if feed == nil {
		feed = changefeed.NewHub()
	}
	return &SupabaseStore{client: client, table: table, feed: feed}
}

// rowID accepts both numeric and text id columns.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("store: unsupported id %s", string(data))
	}
	*id = rowID(n.String())
	return nil
}

// supabaseRow mirrors the table columns.
type supabaseRow struct {
	ID          rowID   `json:"id"`
	PatientName string  `json:"patient_name"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phone_number"`
	Symptoms    string  `json:"patient_symptoms"`
	ReportURL   *string `json:"report_url"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	Status      string  `json:"status"`
}

func (r supabaseRow) toModel() models.Appointment {
	a := models.Appointment{
		ID:          string(r.ID),
		PatientName: r.PatientName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Symptoms:    r.Symptoms,
		ReportURL:   r.ReportURL,
		Date:        r.Date,
		StartTime:   r.StartTime,
		Status:      models.AppointmentStatus(r.Status),
	}
	a.Normalize()
	return a
}

func decodeRows(data []byte) ([]models.Appointment, error) {
	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Appointment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// likeEscaper turns an address into an ilike pattern that matches only
// itself.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SupabaseStore) Select(_ context.Context, filter Filter, order Order) ([]models.Appointment, error) {
	query := s.client.From(s.table).Select("*", "", false)
	email := filter.normalizedEmail()
	if email != "" {
		query = query.Ilike("email", likeEscaper.Replace(email))
	}
	if filter.Status != "" {
		query = query.Ilike("status", string(filter.Status))
	}
	switch order {
	case OrderDateAsc:
		query = query.Order("date", &postgrest.OrderOpts{Ascending: true})
	case OrderCreated:
		query = query.Order("created_at", &postgrest.OrderOpts{Ascending: true})
	default:
		query = query.Order("date", &postgrest.OrderOpts{Ascending: false})
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("store: select appointments: %w", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("store: decode appointments: %w", err)
	}
	if email == "" {
		return rows, nil
	}
	owned := rows[:0]
	for _, r := range rows {
		if strings.EqualFold(strings.TrimSpace(r.Email), email) {
			owned = append(owned, r)
		}
	}
	return owned, nil
}

func (s *SupabaseStore) Get(_ context.Context, id string) (*models.Appointment, error) {
	data, _, err := s.client.From(s.table).Select("*", "", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("store: load appointment %s: %w", id, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("store: decode appointment %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Update(ctx context.Context, id string, fields Fields) error {
	body := map[string]interface{}{"status": string(fields.Status)}
	data, _, err := s.client.From(s.table).
		Update(body, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("store: update appointment %s: %w", id, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return fmt.Errorf("store: decode updated appointment %s: %w", id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	_ = s.feed.Publish(ctx, changefeed.Change{
		Table: s.table,
		Op:    changefeed.OpUpdate,
		ID:    id,
		Email: rows[0].Email,
	})
	return nil
}

func (s *SupabaseStore) Subscribe(filter Filter, onChange func(changefeed.Change)) func() {
	return s.feed.Subscribe(changefeed.Filter{Email: filter.Email}, onChange)
}
