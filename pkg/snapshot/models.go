package snapshot

import (
	"time"
)

// SnapshotRecord is the GORM model for snapshot metadata. The record set
// itself lives in the payload store under RecordsRef; metadata rows stay
// small and query-friendly.
type SnapshotRecord struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	DataSourceID string    `gorm:"column:data_source_id;uniqueIndex:idx_snap_ds_version,priority:1;not null"`
	Version      int       `gorm:"column:version;uniqueIndex:idx_snap_ds_version,priority:2;not null"`
	RecordCount  int       `gorm:"column:record_count;not null"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null"`
	RecordsRef   string    `gorm:"column:records_ref;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (SnapshotRecord) TableName() string { return "snapshots" }

// DataSourcePointer tracks the "current" snapshot version of a data source.
// Repointing never deletes prior versions, so a restore is itself diffable
// afterward.
type DataSourcePointer struct {
	DataSourceID   string    `gorm:"primaryKey;column:data_source_id;type:varchar(128)"`
	ProjectID      string    `gorm:"column:project_id;index;not null"`
	CurrentVersion int       `gorm:"column:current_version;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (DataSourcePointer) TableName() string { return "data_source_pointers" }
