package diff

import (
	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// ChangeType classifies a record or field between two snapshot versions.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
)

// FieldChange describes one field of a matched record pair that differs.
type FieldChange struct {
	Field           string       `json:"field"`
	OldValue        record.Value `json:"oldValue"`
	NewValue        record.Value `json:"newValue"`
	ChangeType      ChangeType   `json:"changeType"`
	ValueType       record.Kind  `json:"valueType"`
	DisplayOldValue string       `json:"displayOldValue"`
	DisplayNewValue string       `json:"displayNewValue"`
}

// RecordChange classifies one record key present in either snapshot.
type RecordChange struct {
	Key          string        `json:"key"`
	ChangeType   ChangeType    `json:"changeType"`
	Before       record.Record `json:"before,omitempty"`
	After        record.Record `json:"after,omitempty"`
	FieldChanges []FieldChange `json:"fieldChanges,omitempty"`
}

// Summary aggregates record-level change counts.
type Summary struct {
	TotalRecordsFrom int     `json:"totalRecordsFrom"`
	TotalRecordsTo   int     `json:"totalRecordsTo"`
	Added            int     `json:"added"`
	Removed          int     `json:"removed"`
	Modified         int     `json:"modified"`
	Unchanged        int     `json:"unchanged"`
	ChangePercentage float64 `json:"changePercentage"`
}

// FieldCount is one entry of the top-changed-fields ranking.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// Statistics aggregates field-level change counts across all modified
// records.
type Statistics struct {
	TotalFieldChanges            int          `json:"totalFieldChanges"`
	TopChangedFields             []FieldCount `json:"topChangedFields"`
	AverageFieldChangesPerRecord float64      `json:"averageFieldChangesPerRecord"`
}

// Comparison is the derived result of comparing two snapshot versions of
// one data source. It is never persisted.
type Comparison struct {
	FromVersion int            `json:"fromVersion"`
	ToVersion   int            `json:"toVersion"`
	Summary     Summary        `json:"summary"`
	Changes     []RecordChange `json:"changes"`
	Statistics  Statistics     `json:"statistics"`
}

// VersionedSet is one side of a comparison: a snapshot version and its
// decoded record set.
type VersionedSet struct {
	Version int
	Records []record.Record
}
