// Package rollback captures consistent multi-source checkpoints of the
// snapshot store, restores them with bounded concurrency and
// partial-failure tracking, and expires them over time.
package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TylorMayfield/manifold-rollback/pkg/snapshot"
)

// SnapshotStore is the slice of the snapshot store the rollback subsystem
// uses. It is satisfied by *snapshot.Store.
type SnapshotStore interface {
	Get(ctx context.Context, dataSourceID string, version int) (*snapshot.SnapshotRecord, error)
	Current(ctx context.Context, dataSourceID string) (*snapshot.SnapshotRecord, error)
	SetCurrentPointer(ctx context.Context, dataSourceID string, version int) error
	ListDataSources(ctx context.Context, projectID string) ([]string, error)
	ListAll(ctx context.Context) ([]snapshot.SnapshotRecord, error)
	CurrentVersions(ctx context.Context) (map[string]int, error)
	DeleteVersion(ctx context.Context, dataSourceID string, version int) error
}

// Manager captures and manages rollback points.
type Manager struct {
	points    *PointStore
	snapshots SnapshotStore
	logger    *slog.Logger
}

// NewManager creates a rollback point manager.
func NewManager(points *PointStore, snapshots SnapshotStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{points: points, snapshots: snapshots, logger: logger}
}

// CreatePointRequest describes a rollback point to capture.
type CreatePointRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Type          PointType `json:"type"`
	Scope         Scope     `json:"scope"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	ExpiresInDays int       `json:"expiresInDays,omitempty"`
}

// validate rejects malformed requests before anything is read or written.
func (r *CreatePointRequest) validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if !ValidPointType(r.Type) {
		return fmt.Errorf("unknown point type %q: %w", r.Type, ErrValidation)
	}
	if len(r.Scope.DataSourceIDs) == 0 && r.Scope.ProjectID == "" {
		return fmt.Errorf("scope needs dataSourceIds or projectId: %w", ErrValidation)
	}
	if r.ExpiresInDays < 0 {
		return fmt.Errorf("expiresInDays must be >= 0: %w", ErrValidation)
	}
	return nil
}

// CreatePoint atomically captures the current snapshot pointer of every
// data source in scope. Capture is metadata-only: no record payloads move,
// so it is O(number of sources). If any source lookup fails the whole
// create aborts and nothing is persisted.
func (m *Manager) CreatePoint(ctx context.Context, req CreatePointRequest) (*RollbackPoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	sourceIDs := req.Scope.DataSourceIDs
	if len(sourceIDs) == 0 {
		ids, err := m.snapshots.ListDataSources(ctx, req.Scope.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve scope for project %s: %w", req.Scope.ProjectID, err)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("project %s has no data sources: %w", req.Scope.ProjectID, ErrValidation)
		}
		sourceIDs = ids
	}

	refs := make(JSONSnapshotRefs, 0, len(sourceIDs))
	var dataSize int64
	for _, dsID := range sourceIDs {
		snap, err := m.snapshots.Current(ctx, dsID)
		if err != nil {
			// All-or-nothing: a single failed lookup means no point is
			// persisted at all.
			return nil, &CaptureError{DataSourceID: dsID, Err: err}
		}
		refs = append(refs, SnapshotRef{
			DataSourceID: dsID,
			SnapshotID:   snap.ID,
			Version:      snap.Version,
			RecordCount:  snap.RecordCount,
		})
		dataSize += snap.SizeBytes
	}

	rec := &PointRecord{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		ProjectID:     req.Scope.ProjectID,
		DataSourceIDs: JSONStringSlice(req.Scope.DataSourceIDs),
		PipelineIDs:   JSONStringSlice(req.Scope.PipelineIDs),
		CreatedBy:     req.CreatedBy,
		Status:        PointActive,
		Snapshots:     refs,
		DataSize:      dataSize,
		ItemsCaptured: len(refs),
		CaptureMs:     time.Since(started).Milliseconds(),
	}
	if req.ExpiresInDays > 0 {
		expires := time.Now().AddDate(0, 0, req.ExpiresInDays)
		rec.ExpiresAt = &expires
	}

	if err := m.points.Create(ctx, rec); err != nil {
		return nil, err
	}

	m.logger.Info("rollback point created",
		"id", rec.ID,
		"name", rec.Name,
		"type", rec.Type,
		"sources", len(refs),
		"dataSize", dataSize,
		"captureMs", rec.CaptureMs)

	return pointToAPI(rec), nil
}

// GetPoint retrieves a rollback point by ID.
func (m *Manager) GetPoint(ctx context.Context, id string) (*RollbackPoint, error) {
	rec, err := m.points.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pointToAPI(rec), nil
}

// ListPoints lists rollback points, newest first.
func (m *Manager) ListPoints(ctx context.Context, filter PointListFilter) ([]*RollbackPoint, error) {
	recs, err := m.points.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	points := make([]*RollbackPoint, len(recs))
	for i := range recs {
		points[i] = pointToAPI(&recs[i])
	}
	return points, nil
}

// DeletePoint soft-deletes a rollback point. The underlying snapshots are
// untouched; they may be shared with other checkpoints, and retention
// reclaims them once nothing references them.
func (m *Manager) DeletePoint(ctx context.Context, id string) error {
	if err := m.points.SetStatus(ctx, id, PointDeleted); err != nil {
		return err
	}
	m.logger.Info("rollback point deleted", "id", id)
	return nil
}
