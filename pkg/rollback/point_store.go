package rollback

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PointStore provides database operations for rollback points.
type PointStore struct {
	db *gorm.DB
}

// NewPointStore creates a new PointStore.
func NewPointStore(db *gorm.DB) *PointStore {
	return &PointStore{db: db}
}

// AutoMigrate creates or updates the rollback_points table.
func (s *PointStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&PointRecord{}); err != nil {
		return fmt.Errorf("auto-migrate rollback_points: %w", err)
	}
	return nil
}

// Create inserts a new rollback point record.
func (s *PointStore) Create(ctx context.Context, rec *PointRecord) error {
	if rec.Status == "" {
		rec.Status = PointActive
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create rollback point: %w", err)
	}
	return nil
}

// Get retrieves a rollback point by ID. Soft-deleted points behave as
// absent. Returns ErrNotFound if missing.
func (s *PointStore) Get(ctx context.Context, id string) (*PointRecord, error) {
	var rec PointRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, PointDeleted).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("rollback point %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rollback point %s: %w", id, err)
	}
	return &rec, nil
}

// PointListFilter defines filters for listing rollback points.
type PointListFilter struct {
	ProjectID string
	Status    PointStatus
	Limit     int
}

// List returns rollback points newest first. Soft-deleted points are never
// returned.
func (s *PointStore) List(ctx context.Context, filter PointListFilter) ([]PointRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Where("status <> ?", PointDeleted).
		Order("created_at DESC").
		Limit(limit)
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var recs []PointRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rollback points: %w", err)
	}
	return recs, nil
}

// ListNonDeleted returns every non-deleted rollback point. Retention uses
// this to compute snapshot reference counts.
func (s *PointStore) ListNonDeleted(ctx context.Context) ([]PointRecord, error) {
	var recs []PointRecord
	err := s.db.WithContext(ctx).
		Where("status <> ?", PointDeleted).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list non-deleted rollback points: %w", err)
	}
	return recs, nil
}

// SetStatus transitions a point's status. Returns ErrNotFound if the point
// does not exist or is already deleted.
func (s *PointStore) SetStatus(ctx context.Context, id string, status PointStatus) error {
	result := s.db.WithContext(ctx).Model(&PointRecord{}).
		Where("id = ? AND status <> ?", id, PointDeleted).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("set rollback point %s status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rollback point %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExpireDue marks every active point past its expiry as expired. Returns
// the number of points transitioned. Safe to run repeatedly or
// concurrently; the WHERE clause makes each transition happen once.
func (s *PointStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&PointRecord{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", PointActive, now).
		Update("status", PointExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("expire due rollback points: %w", result.Error)
	}
	return result.RowsAffected, nil
}
