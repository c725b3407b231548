// Package snapshot provides append-only versioned storage of the record
// sets produced by the platform's data sources. Snapshot metadata lives in
// the relational metadata store; record payloads live in an embedded
// key-value store, decoupled so payloads can be large while metadata rows
// stay query-friendly.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// Store is the snapshot store. Writes for the same data source are
// mutually exclusive; operations on different data sources never block
// each other.
type Store struct {
	db       *gorm.DB
	payloads *PayloadStore
	cache    *recordCache
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a snapshot store over the given metadata DB and payload
// store.
func NewStore(db *gorm.DB, payloads *PayloadStore, cfg *StoreConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultStoreConfig()
	}
	return &Store{
		db:       db,
		payloads: payloads,
		cache:    newRecordCache(cfg.CacheSize, cfg.CacheTTL),
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// AutoMigrate creates or updates the snapshot metadata tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&SnapshotRecord{}, &DataSourcePointer{}); err != nil {
		return fmt.Errorf("auto-migrate snapshot tables: %w", err)
	}
	return nil
}

// sourceLock returns the per-source write lock, creating it on first use.
func (s *Store) sourceLock(dataSourceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[dataSourceID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dataSourceID] = l
	}
	return l
}

// payloadRef builds the opaque records_ref handle for a version.
func payloadRef(dataSourceID string, version int) string {
	return fmt.Sprintf("snap/%s/%d", dataSourceID, version)
}

// Create appends a new snapshot version for a data source and advances its
// current pointer. The version is lastVersion+1 regardless of where the
// current pointer sits, so versions stay strictly increasing even after a
// restore. Returns ErrConflict if another write for the same source is in
// flight.
func (s *Store) Create(ctx context.Context, dataSourceID, projectID string, records []record.Record) (*SnapshotRecord, error) {
	if dataSourceID == "" {
		return nil, fmt.Errorf("data source id is required")
	}

	lock := s.sourceLock(dataSourceID)
	if !lock.TryLock() {
		return nil, fmt.Errorf("create snapshot for %s: %w", dataSourceID, ErrConflict)
	}
	defer lock.Unlock()

	var last int
	err := s.db.WithContext(ctx).Model(&SnapshotRecord{}).
		Where("data_source_id = ?", dataSourceID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&last).Error
	if err != nil {
		return nil, fmt.Errorf("resolve last version for %s: %w", dataSourceID, err)
	}

	version := last + 1
	data, err := record.EncodeSet(records)
	if err != nil {
		return nil, err
	}

	ref := payloadRef(dataSourceID, version)
	if err := s.payloads.Put(ref, data); err != nil {
		return nil, err
	}

	snap := &SnapshotRecord{
		ID:           uuid.New().String(),
		DataSourceID: dataSourceID,
		Version:      version,
		RecordCount:  len(records),
		SizeBytes:    int64(len(data)),
		RecordsRef:   ref,
		CreatedAt:    time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snap).Error; err != nil {
			return fmt.Errorf("create snapshot row: %w", err)
		}
		pointer := &DataSourcePointer{
			DataSourceID:   dataSourceID,
			ProjectID:      projectID,
			CurrentVersion: version,
		}
		if err := tx.Save(pointer).Error; err != nil {
			return fmt.Errorf("advance current pointer: %w", err)
		}
		return nil
	})
	if err != nil {
		// Metadata write failed; drop the orphaned payload.
		if delErr := s.payloads.Delete(ref); delErr != nil {
			s.logger.Error("failed to remove orphaned payload", "ref", ref, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("snapshot created",
		"dataSourceID", dataSourceID,
		"version", version,
		"records", len(records),
		"sizeBytes", snap.SizeBytes)

	return snap, nil
}

// Get retrieves snapshot metadata by data source and version. Returns
// ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, dataSourceID string, version int) (*SnapshotRecord, error) {
	var snap SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("data_source_id = ? AND version = ?", dataSourceID, version).
		First(&snap).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("snapshot %s@v%d: %w", dataSourceID, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s@v%d: %w", dataSourceID, version, err)
	}
	return &snap, nil
}

// GetRecords retrieves the decoded record set of a snapshot version,
// consulting the read cache first.
func (s *Store) GetRecords(ctx context.Context, dataSourceID string, version int) ([]record.Record, error) {
	snap, err := s.Get(ctx, dataSourceID, version)
	if err != nil {
		return nil, err
	}

	if records, ok := s.cache.get(snap.RecordsRef); ok {
		return records, nil
	}

	data, err := s.payloads.Get(snap.RecordsRef)
	if err != nil {
		return nil, err
	}
	records, err := record.DecodeSet(data)
	if err != nil {
		return nil, err
	}
	s.cache.put(snap.RecordsRef, records)
	return records, nil
}

// ListVersions returns the version numbers of a data source in ascending
// order. Returns ErrNotFound for an unknown source.
func (s *Store) ListVersions(ctx context.Context, dataSourceID string) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&SnapshotRecord{}).
		Where("data_source_id = ?", dataSourceID).
		Order("version ASC").
		Pluck("version", &versions).Error
	if err != nil {
		return nil, fmt.Errorf("list versions for %s: %w", dataSourceID, err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("data source %s: %w", dataSourceID, ErrNotFound)
	}
	return versions, nil
}

// Current returns the snapshot the data source's current pointer refers
// to. Returns ErrNotFound for an unknown source.
func (s *Store) Current(ctx context.Context, dataSourceID string) (*SnapshotRecord, error) {
	var pointer DataSourcePointer
	err := s.db.WithContext(ctx).
		Where("data_source_id = ?", dataSourceID).
		First(&pointer).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("data source %s: %w", dataSourceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pointer for %s: %w", dataSourceID, err)
	}
	return s.Get(ctx, dataSourceID, pointer.CurrentVersion)
}

// SetCurrentPointer atomically repoints a data source's current version
// without deleting prior versions. Only the restore coordinator calls
// this. The call serializes behind any in-flight snapshot write for the
// same source.
func (s *Store) SetCurrentPointer(ctx context.Context, dataSourceID string, version int) error {
	lock := s.sourceLock(dataSourceID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	// The target version must exist; repointing at a hole would corrupt
	// every consumer of the pointer.
	if _, err := s.Get(ctx, dataSourceID, version); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&DataSourcePointer{}).
		Where("data_source_id = ?", dataSourceID).
		Update("current_version", version)
	if result.Error != nil {
		return fmt.Errorf("set current pointer %s -> v%d: %w", dataSourceID, version, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("data source %s: %w", dataSourceID, ErrNotFound)
	}

	s.logger.Info("current pointer updated", "dataSourceID", dataSourceID, "version", version)
	return nil
}

// ListDataSources returns the IDs of all data sources, optionally filtered
// to one project, ordered by ID.
func (s *Store) ListDataSources(ctx context.Context, projectID string) ([]string, error) {
	query := s.db.WithContext(ctx).Model(&DataSourcePointer{}).Order("data_source_id ASC")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	var ids []string
	if err := query.Pluck("data_source_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	return ids, nil
}

// ListAll returns every snapshot metadata row. Used by retention to scan
// for garbage-collection candidates.
func (s *Store) ListAll(ctx context.Context) ([]SnapshotRecord, error) {
	var snaps []SnapshotRecord
	err := s.db.WithContext(ctx).
		Order("data_source_id ASC, version ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("list all snapshots: %w", err)
	}
	return snaps, nil
}

// CurrentVersions returns the current pointer of every data source.
func (s *Store) CurrentVersions(ctx context.Context) (map[string]int, error) {
	var pointers []DataSourcePointer
	if err := s.db.WithContext(ctx).Find(&pointers).Error; err != nil {
		return nil, fmt.Errorf("list pointers: %w", err)
	}
	current := make(map[string]int, len(pointers))
	for _, p := range pointers {
		current[p.DataSourceID] = p.CurrentVersion
	}
	return current, nil
}

// DeleteVersion physically removes a snapshot version and its payload.
// Callers (retention) must have already established that no non-deleted
// rollback point and no current pointer references it.
func (s *Store) DeleteVersion(ctx context.Context, dataSourceID string, version int) error {
	lock := s.sourceLock(dataSourceID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := s.Get(ctx, dataSourceID, version)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&SnapshotRecord{}, "data_source_id = ? AND version = ?", dataSourceID, version).Error; err != nil {
		return fmt.Errorf("delete snapshot row %s@v%d: %w", dataSourceID, version, err)
	}
	if err := s.payloads.Delete(snap.RecordsRef); err != nil {
		return err
	}
	s.cache.drop(snap.RecordsRef)

	s.logger.Info("snapshot deleted", "dataSourceID", dataSourceID, "version", version)
	return nil
}
