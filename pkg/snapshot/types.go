package snapshot

import (
	"time"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// Snapshot is the API-facing representation of one snapshot version.
type Snapshot struct {
	DataSourceID string    `json:"dataSourceId"`
	Version      int       `json:"version"`
	RecordCount  int       `json:"recordCount"`
	SizeBytes    int64     `json:"sizeBytes"`
	RecordsRef   string    `json:"recordsRef"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToAPI converts a metadata record to the API type.
func (r *SnapshotRecord) ToAPI() Snapshot {
	return Snapshot{
		DataSourceID: r.DataSourceID,
		Version:      r.Version,
		RecordCount:  r.RecordCount,
		SizeBytes:    r.SizeBytes,
		RecordsRef:   r.RecordsRef,
		CreatedAt:    r.CreatedAt,
	}
}

// IngestRequest is the payload the pipeline engine posts after a
// successful run.
type IngestRequest struct {
	ProjectID string          `json:"projectId"`
	Records   []record.Record `json:"records"`
}

// VersionsResponse lists a data source's versions and its current pointer.
type VersionsResponse struct {
	DataSourceID   string `json:"dataSourceId"`
	Versions       []int  `json:"versions"`
	CurrentVersion int    `json:"currentVersion"`
}
