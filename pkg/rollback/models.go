package rollback

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONSnapshotRefs is a custom GORM type for []SnapshotRef stored as JSON.
type JSONSnapshotRefs []SnapshotRef

// Scan implements the sql.Scanner interface for JSONSnapshotRefs.
func (r *JSONSnapshotRefs) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONSnapshotRefs: %T", value)
	}
	return json.Unmarshal(bytes, r)
}

// Value implements the driver.Valuer interface for JSONSnapshotRefs.
func (r JSONSnapshotRefs) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONSourceErrors is a custom GORM type for []SourceError stored as JSON.
type JSONSourceErrors []SourceError

// Scan implements the sql.Scanner interface for JSONSourceErrors.
func (e *JSONSourceErrors) Scan(value any) error {
	if value == nil {
		*e = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONSourceErrors: %T", value)
	}
	return json.Unmarshal(bytes, e)
}

// Value implements the driver.Valuer interface for JSONSourceErrors.
func (e JSONSourceErrors) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// PointRecord is the GORM model for a rollback point. Immutable after
// creation except for Status.
type PointRecord struct {
	ID            string           `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name          string           `gorm:"column:name;not null"`
	Description   string           `gorm:"column:description"`
	Type          PointType        `gorm:"column:type;not null"`
	ProjectID     string           `gorm:"column:project_id;index:idx_point_project_status,priority:1;not null"`
	DataSourceIDs JSONStringSlice  `gorm:"column:data_source_ids;type:text"`
	PipelineIDs   JSONStringSlice  `gorm:"column:pipeline_ids;type:text"`
	CreatedBy     string           `gorm:"column:created_by"`
	Status        PointStatus      `gorm:"column:status;index:idx_point_project_status,priority:2;index:idx_point_status;not null;default:active"`
	Snapshots     JSONSnapshotRefs `gorm:"column:snapshots;type:text;not null"`
	DataSize      int64            `gorm:"column:data_size"`
	ItemsCaptured int              `gorm:"column:items_captured"`
	CaptureMs     int64            `gorm:"column:capture_ms"`
	ExpiresAt     *time.Time       `gorm:"column:expires_at;index"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (PointRecord) TableName() string { return "rollback_points" }

// OperationRecord is the GORM model for a restore operation. Append-only;
// only the coordinator mutates it, and only while in progress.
type OperationRecord struct {
	ID              string           `gorm:"primaryKey;column:id;type:varchar(36)"`
	RollbackPointID string           `gorm:"column:rollback_point_id;index;not null"`
	DryRun          bool             `gorm:"column:dry_run;not null"`
	Status          OperationStatus  `gorm:"column:status;index;not null;default:pending"`
	StartedAt       time.Time        `gorm:"column:started_at;not null"`
	CompletedAt     *time.Time       `gorm:"column:completed_at"`
	DurationMs      int64            `gorm:"column:duration_ms"`
	DataSources     JSONStringSlice  `gorm:"column:restored_data_sources;type:text"`
	SnapshotIDs     JSONStringSlice  `gorm:"column:restored_snapshots;type:text"`
	RecordsRestored int              `gorm:"column:records_restored"`
	Errors          JSONSourceErrors `gorm:"column:errors;type:text"`
	InitiatedBy     string           `gorm:"column:initiated_by"`
	Reason          string           `gorm:"column:reason"`
}

// TableName returns the GORM table name.
func (OperationRecord) TableName() string { return "rollback_operations" }

// IsTerminal returns true if the operation is in a terminal state.
func (o *OperationRecord) IsTerminal() bool {
	switch o.Status {
	case OpCompleted, OpFailed, OpPartial:
		return true
	}
	return false
}

// pointToAPI converts a point record to the API type.
func pointToAPI(rec *PointRecord) *RollbackPoint {
	return &RollbackPoint{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Type:        rec.Type,
		CreatedAt:   rec.CreatedAt,
		CreatedBy:   rec.CreatedBy,
		Scope: Scope{
			DataSourceIDs: []string(rec.DataSourceIDs),
			PipelineIDs:   []string(rec.PipelineIDs),
			ProjectID:     rec.ProjectID,
		},
		Snapshots: []SnapshotRef(rec.Snapshots),
		Metadata: PointMetadata{
			DataSize:      rec.DataSize,
			ItemsCaptured: rec.ItemsCaptured,
			CaptureTime:   time.Duration(rec.CaptureMs) * time.Millisecond,
		},
		ExpiresAt: rec.ExpiresAt,
		Status:    rec.Status,
	}
}

// operationToAPI converts an operation record to the API type.
func operationToAPI(rec *OperationRecord) *RollbackOperation {
	return &RollbackOperation{
		ID:              rec.ID,
		RollbackPointID: rec.RollbackPointID,
		DryRun:          rec.DryRun,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
		Status:          rec.Status,
		Restored: RestoredSummary{
			DataSources:     []string(rec.DataSources),
			Snapshots:       []string(rec.SnapshotIDs),
			RecordsRestored: rec.RecordsRestored,
		},
		Duration:    time.Duration(rec.DurationMs) * time.Millisecond,
		Errors:      []SourceError(rec.Errors),
		InitiatedBy: rec.InitiatedBy,
		Reason:      rec.Reason,
	}
}
