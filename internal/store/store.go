package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sntrack/internal/model"
)

var (
	// ErrOutOfOrder is returned when a sample is older than the newest stored one.
	ErrOutOfOrder = errors.New("store: sample predates latest stored sample")

	// ErrInvalidSample is returned for samples missing a timestamp or kind.
	ErrInvalidSample = errors.New("store: invalid sample")
)

// Store defines the persistence operations on the sample log.
type Store interface {
	AppendSample(ctx context.Context, sample *model.Sample) error
	ListSamples(ctx context.Context) ([]model.Sample, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AppendSample inserts one sample inside a transaction, so a crash leaves
// either the full row or nothing.
func (s *gormStore) AppendSample(ctx context.Context, sample *model.Sample) error {
	if sample.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSample)
	}
	switch sample.EventKind {
	case model.EventEnter, model.EventExit:
	default:
		return fmt.Errorf("%w: event kind %q", ErrInvalidSample, sample.EventKind)
	}
	sample.ID = 0
	sample.Timestamp = sample.Timestamp.UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest []model.Sample
		if err := newestFirst(tx).Limit(1).Find(&latest).Error; err != nil {
			return fmt.Errorf("failed to read latest sample: %w", err)
		}
		if len(latest) > 0 && sample.Timestamp.Before(latest[0].Timestamp) {
			return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, sample.Timestamp, latest[0].Timestamp)
		}

		if err := tx.Create(sample).Error; err != nil {
			return fmt.Errorf("failed to append %s sample: %w", sample.EventKind, err)
		}
		return nil
	})
}

// ListSamples returns every stored sample in event order.
func (s *gormStore) ListSamples(ctx context.Context) ([]model.Sample, error) {
	var samples []model.Sample
	err := s.db.WithContext(ctx).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "timestamp"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return samples, nil
}

func newestFirst(tx *gorm.DB) *gorm.DB {
	return tx.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "timestamp"}, Desc: true},
		{Column: clause.Column{Name: "id"}, Desc: true},
	}})
}
