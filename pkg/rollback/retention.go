package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// RetentionWorker periodically expires rollback points and garbage
// collects snapshot versions nothing references anymore.
type RetentionWorker struct {
	points    *PointStore
	snapshots SnapshotStore
	cfg       *RetentionConfig
	logger    *slog.Logger
}

// NewRetentionWorker creates a retention worker.
func NewRetentionWorker(points *PointStore, snapshots SnapshotStore, cfg *RetentionConfig, logger *slog.Logger) *RetentionWorker {
	if cfg == nil {
		cfg = DefaultRetentionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionWorker{points: points, snapshots: snapshots, cfg: cfg, logger: logger}
}

// Run starts the retention loop. It runs until the context is cancelled.
func (w *RetentionWorker) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("retention worker disabled")
		return
	}

	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	w.logger.Info("retention worker started",
		"sweepInterval", w.cfg.SweepInterval.String(),
		"snapshotMinAge", w.cfg.SnapshotMinAge.String(),
		"keepVersions", w.cfg.KeepVersions)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention worker stopped")
			return
		case <-ticker.C:
			if _, _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one retention pass: expire due rollback points, then
// garbage collect unreferenced snapshot versions. Idempotent and safe to
// run concurrently with capture and restore; it only reads expiry,
// status, and reference counts, and only deletes versions with zero
// references.
func (w *RetentionWorker) Sweep(ctx context.Context) (expired int64, collected int, err error) {
	expired, err = w.points.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, 0, err
	}
	if expired > 0 {
		w.logger.Info("rollback points expired", "count", expired)
	}

	collected, err = w.collectSnapshots(ctx)
	if err != nil {
		return expired, collected, err
	}
	if collected > 0 {
		w.logger.Info("snapshots garbage collected", "count", collected)
	}
	return expired, collected, nil
}

// collectSnapshots deletes snapshot versions whose reference count across
// all non-deleted rollback points and every current pointer is zero.
// Versions younger than SnapshotMinAge and the newest KeepVersions of each
// source survive regardless.
func (w *RetentionWorker) collectSnapshots(ctx context.Context) (int, error) {
	points, err := w.points.ListNonDeleted(ctx)
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]bool)
	for _, p := range points {
		for _, ref := range p.Snapshots {
			referenced[refKey(ref.DataSourceID, ref.Version)] = true
		}
	}

	current, err := w.snapshots.CurrentVersions(ctx)
	if err != nil {
		return 0, err
	}
	for dsID, version := range current {
		referenced[refKey(dsID, version)] = true
	}

	snaps, err := w.snapshots.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	// Newest KeepVersions per source are never collected.
	versionsBySource := make(map[string][]int)
	for _, s := range snaps {
		versionsBySource[s.DataSourceID] = append(versionsBySource[s.DataSourceID], s.Version)
	}
	protected := make(map[string]bool)
	for dsID, versions := range versionsBySource {
		sort.Sort(sort.Reverse(sort.IntSlice(versions)))
		for i := 0; i < len(versions) && i < w.cfg.KeepVersions; i++ {
			protected[refKey(dsID, versions[i])] = true
		}
	}

	cutoff := time.Now().Add(-w.cfg.SnapshotMinAge)
	collected := 0
	for _, s := range snaps {
		key := refKey(s.DataSourceID, s.Version)
		if referenced[key] || protected[key] {
			continue
		}
		if s.CreatedAt.After(cutoff) {
			continue
		}
		if err := w.snapshots.DeleteVersion(ctx, s.DataSourceID, s.Version); err != nil {
			w.logger.Error("failed to collect snapshot",
				"dataSourceID", s.DataSourceID, "version", s.Version, "error", err)
			continue
		}
		collected++
	}
	return collected, nil
}

func refKey(dataSourceID string, version int) string {
	return fmt.Sprintf("%s@%d", dataSourceID, version)
}
