package rollback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylorMayfield/manifold-rollback/pkg/snapshot"
)

// gcConfig disables the age guard so freshly written test snapshots are
// eligible for collection.
func gcConfig(keep int) *RetentionConfig {
	return &RetentionConfig{
		SweepInterval:  time.Hour,
		SnapshotMinAge: 0,
		KeepVersions:   keep,
		Enabled:        true,
	}
}

func expiredPoint(t *testing.T, env *testEnv, refs ...SnapshotRef) *PointRecord {
	t.Helper()
	expired := time.Now().Add(-time.Hour)
	rec := &PointRecord{
		ID:        uuid.New().String(),
		Name:      "stale",
		Type:      PointAuto,
		Status:    PointActive,
		Snapshots: JSONSnapshotRefs(refs),
		ExpiresAt: &expired,
	}
	require.NoError(t, env.points.Create(context.Background(), rec))
	return rec
}

func TestSweep_ExpiresDuePoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := NewRetentionWorker(env.points, env.snapshots, gcConfig(10), env.logger)

	env.seed(t, "customers", "proj-1", 1)

	stale := expiredPoint(t, env, SnapshotRef{
		DataSourceID: "customers", SnapshotID: "s-1", Version: 1, RecordCount: 2,
	})
	fresh, err := env.manager.CreatePoint(ctx, CreatePointRequest{
		Name:          "fresh",
		Type:          PointManual,
		Scope:         Scope{DataSourceIDs: []string{"customers"}},
		ExpiresInDays: 30,
	})
	require.NoError(t, err)

	expired, _, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	got, err := env.points.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, PointExpired, got.Status)

	got, err = env.points.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, PointActive, got.Status)

	// Idempotent: a second sweep finds nothing left to expire.
	expired, _, err = worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	// Restoring from the expired point is refused.
	coord := newCoordinator(env, nil)
	_, err = coord.Restore(ctx, stale.ID, RestoreOptions{Reason: "x"})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSweep_CollectsUnreferencedSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := NewRetentionWorker(env.points, env.snapshots, gcConfig(1), env.logger)

	env.seed(t, "customers", "proj-1", 3)

	// Checkpoint at v3, then write v4 and v5 so the pointer moves on.
	point, err := env.manager.CreatePoint(ctx, CreatePointRequest{
		Name:  "cp",
		Type:  PointManual,
		Scope: Scope{DataSourceIDs: []string{"customers"}},
	})
	require.NoError(t, err)
	env.seed(t, "customers", "proj-1", 2)

	_, collected, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, collected, "v1, v2 and v4 are unreferenced")

	// v3 survives because the rollback point references it; v5 is both
	// current and within keep-versions.
	for _, v := range []int{3, 5} {
		_, err := env.snapshots.Get(ctx, "customers", v)
		assert.NoError(t, err, "v%d should survive", v)
	}
	for _, v := range []int{1, 2, 4} {
		_, err := env.snapshots.Get(ctx, "customers", v)
		assert.ErrorIs(t, err, snapshot.ErrNotFound, "v%d should be collected", v)
	}

	// Deleting the point releases v3 on the next sweep.
	require.NoError(t, env.manager.DeletePoint(ctx, point.ID))
	_, collected, err = worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, collected)
	_, err = env.snapshots.Get(ctx, "customers", 3)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSweep_KeepVersionsProtectsNewest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := NewRetentionWorker(env.points, env.snapshots, gcConfig(3), env.logger)

	env.seed(t, "customers", "proj-1", 5)

	_, collected, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, collected, "only v1 and v2 fall outside the keep window")

	versions, err := env.snapshots.ListVersions(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, versions)
}

func TestSweep_MinAgeProtectsFreshSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cfg := gcConfig(1)
	cfg.SnapshotMinAge = time.Hour
	worker := NewRetentionWorker(env.points, env.snapshots, cfg, env.logger)

	env.seed(t, "customers", "proj-1", 5)

	_, collected, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, collected, "everything was written seconds ago")

	versions, err := env.snapshots.ListVersions(ctx, "customers")
	require.NoError(t, err)
	assert.Len(t, versions, 5)
}

func TestSweep_ExpiredPointStillProtectsItsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := NewRetentionWorker(env.points, env.snapshots, gcConfig(1), env.logger)

	env.seed(t, "customers", "proj-1", 3)

	// An expired (but not deleted) point keeps its versions pinned; only
	// deletion releases them.
	expiredPoint(t, env, SnapshotRef{
		DataSourceID: "customers", SnapshotID: "s-1", Version: 1, RecordCount: 2,
	})

	_, collected, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, collected, "only v2 is unreferenced")

	_, err = env.snapshots.Get(ctx, "customers", 1)
	assert.NoError(t, err)
}

func TestRetentionWorker_DisabledRunsNothing(t *testing.T) {
	env := newTestEnv(t)
	cfg := gcConfig(1)
	cfg.Enabled = false
	worker := NewRetentionWorker(env.points, env.snapshots, cfg, env.logger)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}
