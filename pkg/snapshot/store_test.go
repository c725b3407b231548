package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// newTestDB creates an in-memory SQLite DB.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every pooled handle sees the same :memory: DB.
	sqlDB.SetMaxOpenConns(1)
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &StoreConfig{InMemory: true, CacheSize: 8, CacheTTL: time.Minute}
	payloads, err := OpenPayloadStore(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { payloads.Close() })

	store := NewStore(newTestDB(t), payloads, cfg, testLogger())
	require.NoError(t, store.AutoMigrate())
	return store
}

func testRecords(n int) []record.Record {
	records := make([]record.Record, n)
	for i := range records {
		records[i] = record.Record{
			"id":   record.String(fmt.Sprintf("r-%03d", i)),
			"name": record.String(fmt.Sprintf("record %d", i)),
		}
	}
	return records
}

func TestStore_CreateAssignsMonotonicVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s1, err := store.Create(ctx, "customers", "proj-1", testRecords(3))
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Version)
	assert.Equal(t, 3, s1.RecordCount)
	assert.NotEmpty(t, s1.ID)
	assert.NotEmpty(t, s1.RecordsRef)
	assert.Greater(t, s1.SizeBytes, int64(0))

	s2, err := store.Create(ctx, "customers", "proj-1", testRecords(5))
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Version)

	// Versions of another source are independent.
	other, err := store.Create(ctx, "orders", "proj-1", testRecords(1))
	require.NoError(t, err)
	assert.Equal(t, 1, other.Version)
}

func TestStore_CreateAdvancesCurrentPointer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "customers", "proj-1", testRecords(3))
	require.NoError(t, err)
	_, err = store.Create(ctx, "customers", "proj-1", testRecords(4))
	require.NoError(t, err)

	current, err := store.Current(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, 4, current.RecordCount)
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "customers", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Current(ctx, "customers")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetRecordsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := testRecords(10)
	_, err := store.Create(ctx, "customers", "proj-1", in)
	require.NoError(t, err)

	out, err := store.GetRecords(ctx, "customers", 1)
	require.NoError(t, err)
	require.Len(t, out, 10)
	assert.Equal(t, "r-000", out[0].Key("id"))

	// Second read is served from cache and must agree.
	cached, err := store.GetRecords(ctx, "customers", 1)
	require.NoError(t, err)
	assert.Equal(t, out, cached)
}

func TestStore_ListVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Create(ctx, "customers", "proj-1", testRecords(i+1))
		require.NoError(t, err)
	}

	versions, err := store.ListVersions(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, versions)

	_, err = store.ListVersions(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetCurrentPointer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, "customers", "proj-1", testRecords(i+1))
		require.NoError(t, err)
	}

	require.NoError(t, store.SetCurrentPointer(ctx, "customers", 1))

	current, err := store.Current(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)

	// Repointing keeps history intact.
	versions, err := store.ListVersions(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)

	// The next write still continues from the highest version ever
	// assigned, never reusing one.
	next, err := store.Create(ctx, "customers", "proj-1", testRecords(9))
	require.NoError(t, err)
	assert.Equal(t, 4, next.Version)
}

func TestStore_SetCurrentPointerValidatesTarget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "customers", "proj-1", testRecords(1))
	require.NoError(t, err)

	err = store.SetCurrentPointer(ctx, "customers", 99)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SetCurrentPointer(ctx, "unknown", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListDataSources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "orders", "proj-1", testRecords(1))
	require.NoError(t, err)
	_, err = store.Create(ctx, "customers", "proj-1", testRecords(1))
	require.NoError(t, err)
	_, err = store.Create(ctx, "events", "proj-2", testRecords(1))
	require.NoError(t, err)

	ids, err := store.ListDataSources(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, ids)

	all, err := store.ListDataSources(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_DeleteVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "customers", "proj-1", testRecords(2))
	require.NoError(t, err)
	_, err = store.Create(ctx, "customers", "proj-1", testRecords(3))
	require.NoError(t, err)

	require.NoError(t, store.DeleteVersion(ctx, "customers", 1))

	_, err = store.Get(ctx, "customers", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetRecords(ctx, "customers", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// The surviving version is untouched.
	records, err := store.GetRecords(ctx, "customers", 2)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStore_ConcurrentCreatesSameSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, "customers", "proj-1", testRecords(1))
			if err != nil {
				// The only acceptable failure is the single-writer guard.
				assert.True(t, errors.Is(err, ErrConflict), "unexpected error: %v", err)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Greater(t, succeeded, 0)

	// Every successful write got its own contiguous version.
	versions, err := store.ListVersions(ctx, "customers")
	require.NoError(t, err)
	require.Len(t, versions, succeeded)
	for i, v := range versions {
		assert.Equal(t, i+1, v)
	}
}

func TestStore_ConcurrentCreatesDifferentSources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const sources = 10
	var wg sync.WaitGroup
	errCh := make(chan error, sources)

	for i := 0; i < sources; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create(ctx, fmt.Sprintf("src-%d", i), "proj-1", testRecords(2))
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	// Writes to distinct sources never conflict with each other.
	for err := range errCh {
		assert.NoError(t, err)
	}
}
