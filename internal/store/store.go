package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pool-status-backend/internal/model"
)

// maxRecordedCapacity caps the stored total capacity; the feed occasionally
// reports inflated maxspace values.
const maxRecordedCapacity = 200

// Store defines the interface for all database operations.
type Store interface {
	SaveSample(ctx context.Context, sample model.OccupancySample) error
	SamplesSince(ctx context.Context, since time.Time) ([]model.OccupancySample, error)
	LoadForecastBlob(ctx context.Context, key string) (payload string, fetchedAt time.Time, err error)
	SaveForecastBlob(ctx context.Context, key string, payload string, fetchedAt time.Time) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for handlers that query directly.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SaveSample records one occupancy reading.
func (s *gormStore) SaveSample(ctx context.Context, sample model.OccupancySample) error {
	if sample.TotalCapacity > maxRecordedCapacity {
		sample.TotalCapacity = maxRecordedCapacity
	}
	if err := s.db.WithContext(ctx).Create(&sample).Error; err != nil {
		return fmt.Errorf("failed to save occupancy sample: %w", err)
	}
	return nil
}

// SamplesSince returns recorded samples observed at or after the given time,
// oldest first.
func (s *gormStore) SamplesSince(ctx context.Context, since time.Time) ([]model.OccupancySample, error) {
	var samples []model.OccupancySample
	err := s.db.WithContext(ctx).
		Where("observed_at >= ?", since).
		Order("observed_at ASC").
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancy samples: %w", err)
	}
	return samples, nil
}

// LoadForecastBlob reads the persisted forecast cache. A missing row is not
// an error; it returns an empty payload.
func (s *gormStore) LoadForecastBlob(ctx context.Context, key string) (string, time.Time, error) {
	var blob model.ForecastBlob
	err := s.db.WithContext(ctx).First(&blob, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load forecast blob: %w", err)
	}
	return blob.Payload, blob.FetchedAt, nil
}

// SaveForecastBlob overwrites the persisted forecast cache wholesale.
func (s *gormStore) SaveForecastBlob(ctx context.Context, key string, payload string, fetchedAt time.Time) error {
	blob := model.ForecastBlob{
		CacheKey:  key,
		Payload:   payload,
		FetchedAt: fetchedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("failed to save forecast blob: %w", err)
	}
	return nil
}
