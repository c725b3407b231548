package main

import "time"

// Wire types mirrored from the server API.

type snapshotRef struct {
	DataSourceID string `json:"dataSourceId"`
	SnapshotID   string `json:"snapshotId"`
	Version      int    `json:"version"`
	RecordCount  int    `json:"recordCount"`
}

type pointMetadata struct {
	DataSize      int64 `json:"dataSize"`
	ItemsCaptured int   `json:"itemsCaptured"`
}

type rollbackPoint struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	CreatedBy string        `json:"createdBy"`
	ExpiresAt *time.Time    `json:"expiresAt"`
	Snapshots []snapshotRef `json:"snapshots"`
	Metadata  pointMetadata `json:"metadata"`
}

type pointList struct {
	Points []rollbackPoint `json:"points"`
	Size   int             `json:"size"`
}

type sourceError struct {
	DataSourceID string `json:"dataSourceId"`
	Error        string `json:"error"`
}

type restoredSummary struct {
	DataSources     []string `json:"dataSources"`
	Snapshots       []string `json:"snapshots"`
	RecordsRestored int      `json:"recordsRestored"`
}

type rollbackOperation struct {
	ID              string          `json:"id"`
	RollbackPointID string          `json:"rollbackPointId"`
	DryRun          bool            `json:"dryRun"`
	Status          string          `json:"status"`
	StartedAt       time.Time       `json:"startedAt"`
	Restored        restoredSummary `json:"restored"`
	Errors          []sourceError   `json:"errors"`
	Reason          string          `json:"reason"`
}

type operationList struct {
	Operations []rollbackOperation `json:"operations"`
	Size       int                 `json:"size"`
}

type versionsResponse struct {
	DataSourceID   string `json:"dataSourceId"`
	Versions       []int  `json:"versions"`
	CurrentVersion int    `json:"currentVersion"`
}
