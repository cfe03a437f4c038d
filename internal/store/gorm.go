package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"appointment-portal-server/internal/changefeed"
	"appointment-portal-server/internal/models"
)

// GormStore reads and writes appointments through gorm (MySQL in production).
type GormStore struct {
	DB   *gorm.DB
	feed changefeed.Feed
}

// NewGormStore creates a GormStore. Successful updates are published on feed.
func NewGormStore(db *gorm.DB, feed changefeed.Feed) *GormStore {
	if feed == nil {
		feed = changefeed.NewHub()
	}
	return &GormStore{DB: db, feed: feed}
}

func (s *GormStore) Select(ctx context.Context, filter Filter, order Order) ([]models.Appointment, error) {
	query := s.DB.WithContext(ctx).Model(&models.Appointment{})
	if email := filter.normalizedEmail(); email != "" {
		query = query.Where("LOWER(email) = ?", email)
	}
	if filter.Status != "" {
		query = query.Where("LOWER(status) = LOWER(?)", string(filter.Status))
	}
	switch order {
	case OrderDateAsc:
		query = query.Order("date asc")
	case OrderCreated:
		query = query.Order("created_at asc")
	default:
		query = query.Order("date desc")
	}

	var rows []models.Appointment
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: select appointments: %w", err)
	}
	return normalizeAll(rows), nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var row models.Appointment
	if err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: load appointment %s: %w", id, err)
	}
	row.Normalize()
	return &row, nil
}

func (s *GormStore) Update(ctx context.Context, id string, fields Fields) error {
	result := s.DB.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("status", string(fields.Status))
	if result.Error != nil {
		return fmt.Errorf("store: update appointment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when the value is unchanged, so a
		// repeated cancel has to be told apart from a missing row.
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("store: update appointment %s: %w", id, err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}

	// gorm does not return the row, so subscribers are told without an email
	// and re-read.
	_ = s.feed.Publish(ctx, changefeed.Change{
		Table: "appointments",
		Op:    changefeed.OpUpdate,
		ID:    id,
	})
	return nil
}

func (s *GormStore) Subscribe(filter Filter, onChange func(changefeed.Change)) func() {
	return s.feed.Subscribe(changefeed.Filter{Email: filter.Email}, onChange)
}
