package rollback

import (
	"time"
)

// PointType classifies how a rollback point came to exist.
type PointType string

const (
	PointManual      PointType = "manual"
	PointAuto        PointType = "auto"
	PointPrePipeline PointType = "pre-pipeline"
	PointScheduled   PointType = "scheduled"
)

// ValidPointType reports whether t is a known point type.
func ValidPointType(t PointType) bool {
	switch t {
	case PointManual, PointAuto, PointPrePipeline, PointScheduled:
		return true
	}
	return false
}

// PointStatus is the lifecycle status of a rollback point. A point is
// immutable after creation except for this field.
type PointStatus string

const (
	PointActive  PointStatus = "active"
	PointExpired PointStatus = "expired"
	PointUsed    PointStatus = "used"
	PointDeleted PointStatus = "deleted"
)

// OperationStatus is the state of a restore operation.
type OperationStatus string

const (
	OpPending    OperationStatus = "pending"
	OpInProgress OperationStatus = "in-progress"
	OpCompleted  OperationStatus = "completed"
	OpFailed     OperationStatus = "failed"
	OpPartial    OperationStatus = "partial"
)

// Scope selects the data sources a rollback point covers. When
// DataSourceIDs is empty, every source under ProjectID is captured.
type Scope struct {
	DataSourceIDs []string `json:"dataSourceIds,omitempty"`
	PipelineIDs   []string `json:"pipelineIds,omitempty"`
	ProjectID     string   `json:"projectId"`
}

// SnapshotRef is one captured snapshot pointer inside a rollback point.
type SnapshotRef struct {
	DataSourceID string `json:"dataSourceId"`
	SnapshotID   string `json:"snapshotId"`
	Version      int    `json:"version"`
	RecordCount  int    `json:"recordCount"`
}

// SourceError records a per-source restore failure.
type SourceError struct {
	DataSourceID string `json:"dataSourceId"`
	Error        string `json:"error"`
}

// PointMetadata summarizes what a capture covered.
type PointMetadata struct {
	DataSize      int64         `json:"dataSize"`
	ItemsCaptured int           `json:"itemsCaptured"`
	CaptureTime   time.Duration `json:"captureTime"`
}

// RollbackPoint is the API-facing representation of a checkpoint.
type RollbackPoint struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        PointType     `json:"type"`
	CreatedAt   time.Time     `json:"createdAt"`
	CreatedBy   string        `json:"createdBy,omitempty"`
	Scope       Scope         `json:"scope"`
	Snapshots   []SnapshotRef `json:"snapshots"`
	Metadata    PointMetadata `json:"metadata"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	Status      PointStatus   `json:"status"`
}

// RestoredSummary lists what a restore operation accomplished.
type RestoredSummary struct {
	DataSources     []string `json:"dataSources"`
	Snapshots       []string `json:"snapshots"`
	RecordsRestored int      `json:"recordsRestored"`
}

// RollbackOperation is the API-facing audit record of one restore attempt,
// dry-run or live.
type RollbackOperation struct {
	ID              string          `json:"id"`
	RollbackPointID string          `json:"rollbackPointId"`
	DryRun          bool            `json:"dryRun"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Status          OperationStatus `json:"status"`
	Restored        RestoredSummary `json:"restored"`
	Duration        time.Duration   `json:"duration,omitempty"`
	Errors          []SourceError   `json:"errors,omitempty"`
	InitiatedBy     string          `json:"initiatedBy,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}
