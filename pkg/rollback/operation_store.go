package rollback

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// OperationStore provides database operations for restore operation audit
// records.
type OperationStore struct {
	db *gorm.DB
}

// NewOperationStore creates a new OperationStore.
func NewOperationStore(db *gorm.DB) *OperationStore {
	return &OperationStore{db: db}
}

// AutoMigrate creates or updates the rollback_operations table.
func (s *OperationStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&OperationRecord{}); err != nil {
		return fmt.Errorf("auto-migrate rollback_operations: %w", err)
	}
	return nil
}

// Create inserts a new operation record.
func (s *OperationStore) Create(ctx context.Context, rec *OperationRecord) error {
	if rec.Status == "" {
		rec.Status = OpPending
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create rollback operation: %w", err)
	}
	return nil
}

// Update persists the coordinator's changes to an in-progress operation.
func (s *OperationStore) Update(ctx context.Context, rec *OperationRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("update rollback operation %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves an operation by ID. Returns ErrNotFound if missing.
func (s *OperationStore) Get(ctx context.Context, id string) (*OperationRecord, error) {
	var rec OperationRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("rollback operation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rollback operation %s: %w", id, err)
	}
	return &rec, nil
}

// List returns operations newest first, optionally filtered by rollback
// point.
func (s *OperationStore) List(ctx context.Context, rollbackPointID string, limit int) ([]OperationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if rollbackPointID != "" {
		query = query.Where("rollback_point_id = ?", rollbackPointID)
	}

	var recs []OperationRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rollback operations: %w", err)
	}
	return recs, nil
}

// ListActive returns all non-terminal operations, newest first. This backs
// the UI's operation status view; there is no in-memory state to poll.
func (s *OperationStore) ListActive(ctx context.Context) ([]OperationRecord, error) {
	var recs []OperationRecord
	err := s.db.WithContext(ctx).
		Where("status IN ?", []OperationStatus{OpPending, OpInProgress}).
		Order("started_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list active rollback operations: %w", err)
	}
	return recs, nil
}
