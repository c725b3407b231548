package rollback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Coordinator replays rollback points onto the live snapshot store. Every
// restore attempt, dry-run or live, leaves a RollbackOperation audit
// record behind.
type Coordinator struct {
	points    *PointStore
	ops       *OperationStore
	snapshots SnapshotStore
	cfg       *RestoreConfig
	logger    *slog.Logger
}

// NewCoordinator creates a restore coordinator.
func NewCoordinator(points *PointStore, ops *OperationStore, snapshots SnapshotStore, cfg *RestoreConfig, logger *slog.Logger) *Coordinator {
	if cfg == nil {
		cfg = DefaultRestoreConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{points: points, ops: ops, snapshots: snapshots, cfg: cfg, logger: logger}
}

// RestoreOptions qualify one restore invocation.
type RestoreOptions struct {
	Reason      string `json:"reason,omitempty"`
	DryRun      bool   `json:"dryRun,omitempty"`
	InitiatedBy string `json:"initiatedBy,omitempty"`

	// ContinueOnError overrides the configured policy when non-nil.
	ContinueOnError *bool `json:"continueOnError,omitempty"`
}

// Restore drives a rollback point back onto the live data sources.
//
// Pre-flight failures (unknown, deleted, or expired point; missing reason
// on a live restore) surface as errors and persist nothing. Once an
// operation record exists, per-source failures are collected into it and
// never returned as an error: the caller always receives an operation
// describing exactly what succeeded and what did not.
func (c *Coordinator) Restore(ctx context.Context, rollbackPointID string, opts RestoreOptions) (*RollbackOperation, error) {
	point, err := c.points.Get(ctx, rollbackPointID)
	if err != nil {
		return nil, err
	}
	if point.Status == PointExpired || (point.ExpiresAt != nil && point.ExpiresAt.Before(time.Now())) {
		return nil, fmt.Errorf("rollback point %s: %w", rollbackPointID, ErrExpired)
	}
	if c.cfg.SingleUse && point.Status == PointUsed {
		return nil, fmt.Errorf("rollback point %s: %w", rollbackPointID, ErrAlreadyUsed)
	}
	if !opts.DryRun && opts.Reason == "" {
		// A live restore is destructive; the audit trail needs to say why.
		return nil, fmt.Errorf("live restore requires a reason: %w", ErrValidation)
	}

	op := &OperationRecord{
		ID:              uuid.New().String(),
		RollbackPointID: point.ID,
		DryRun:          opts.DryRun,
		Status:          OpPending,
		StartedAt:       time.Now(),
		InitiatedBy:     opts.InitiatedBy,
		Reason:          opts.Reason,
	}
	if err := c.ops.Create(ctx, op); err != nil {
		return nil, err
	}

	if corruptErr := validateRefs(point.Snapshots); corruptErr != nil {
		c.finalize(ctx, op, OpFailed)
		c.logger.Error("restore aborted on corrupted rollback point",
			"operationID", op.ID, "rollbackPointID", point.ID, "error", corruptErr)
		return operationToAPI(op), corruptErr
	}

	op.Status = OpInProgress
	if err := c.ops.Update(ctx, op); err != nil {
		return nil, err
	}

	c.logger.Info("restore started",
		"operationID", op.ID,
		"rollbackPointID", point.ID,
		"dryRun", opts.DryRun,
		"sources", len(point.Snapshots))

	if opts.DryRun {
		c.dryRun(ctx, point, op)
	} else {
		c.execute(ctx, point, op, opts)
	}

	sort.Strings(op.DataSources)
	sort.Strings(op.SnapshotIDs)
	sort.Slice(op.Errors, func(i, j int) bool {
		return op.Errors[i].DataSourceID < op.Errors[j].DataSourceID
	})

	switch {
	case len(op.Errors) == 0:
		c.finalize(ctx, op, OpCompleted)
	case len(op.DataSources) == 0:
		c.finalize(ctx, op, OpFailed)
	default:
		c.finalize(ctx, op, OpPartial)
	}

	if !opts.DryRun && len(op.DataSources) > 0 {
		// First successful live restore marks the point used. Unless the
		// coordinator is configured single-use, a used point stays
		// restorable until it expires.
		if point.Status == PointActive {
			if err := c.points.SetStatus(ctx, point.ID, PointUsed); err != nil {
				c.logger.Error("failed to mark rollback point used",
					"rollbackPointID", point.ID, "error", err)
			}
		}
	}

	c.logger.Info("restore finished",
		"operationID", op.ID,
		"status", op.Status,
		"restored", len(op.DataSources),
		"errors", len(op.Errors),
		"recordsRestored", op.RecordsRestored,
		"durationMs", op.DurationMs)

	return operationToAPI(op), nil
}

// validateRefs rejects corrupted checkpoint metadata before any pointer
// moves.
func validateRefs(refs JSONSnapshotRefs) error {
	if len(refs) == 0 {
		return fmt.Errorf("no captured snapshots: %w", ErrCorruptPoint)
	}
	for _, ref := range refs {
		if ref.DataSourceID == "" || ref.Version < 1 {
			return fmt.Errorf("invalid snapshot ref %+v: %w", ref, ErrCorruptPoint)
		}
	}
	return nil
}

// dryRun computes the would-be outcome per source without touching any
// pointer. Cancellation needs no cleanup since nothing is mutated.
func (c *Coordinator) dryRun(ctx context.Context, point *PointRecord, op *OperationRecord) {
	for _, ref := range point.Snapshots {
		if err := ctx.Err(); err != nil {
			op.Errors = append(op.Errors, SourceError{DataSourceID: ref.DataSourceID, Error: "canceled: " + err.Error()})
			continue
		}
		current, err := c.snapshots.Current(ctx, ref.DataSourceID)
		if err != nil {
			op.Errors = append(op.Errors, SourceError{DataSourceID: ref.DataSourceID, Error: err.Error()})
			continue
		}
		c.logger.Info("dry-run restore plan",
			"operationID", op.ID,
			"dataSourceID", ref.DataSourceID,
			"currentVersion", current.Version,
			"targetVersion", ref.Version,
			"wouldChange", current.Version != ref.Version,
			"records", ref.RecordCount)
		op.DataSources = append(op.DataSources, ref.DataSourceID)
		op.SnapshotIDs = append(op.SnapshotIDs, ref.SnapshotID)
		op.RecordsRestored += ref.RecordCount
	}
}

// execute runs the live restore: one task per captured source, gated by
// the bounded worker limit. A failing source never stops siblings unless
// continue-on-error is off, and even then tasks already started finish
// independently.
func (c *Coordinator) execute(ctx context.Context, point *PointRecord, op *OperationRecord, opts RestoreOptions) {
	continueOnError := c.cfg.ContinueOnError
	if opts.ContinueOnError != nil {
		continueOnError = *opts.ContinueOnError
	}

	sem := make(chan struct{}, c.cfg.MaxConcurrent)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		stopped atomic.Bool
	)

	for _, ref := range point.Snapshots {
		wg.Add(1)
		go func(ref SnapshotRef) {
			defer wg.Done()

			fail := func(msg string) {
				mu.Lock()
				op.Errors = append(op.Errors, SourceError{DataSourceID: ref.DataSourceID, Error: msg})
				mu.Unlock()
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				// Cancelled before starting; completed siblings are
				// retained, there is no rollback of a rollback.
				fail("canceled: " + ctx.Err().Error())
				return
			}

			if stopped.Load() {
				fail("aborted after earlier failure")
				return
			}

			taskCtx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
			defer cancel()

			if err := c.snapshots.SetCurrentPointer(taskCtx, ref.DataSourceID, ref.Version); err != nil {
				msg := err.Error()
				if errors.Is(err, context.DeadlineExceeded) {
					msg = "timeout: " + msg
				}
				c.logger.Error("restore task failed",
					"operationID", op.ID,
					"dataSourceID", ref.DataSourceID,
					"targetVersion", ref.Version,
					"error", err)
				fail(msg)
				if !continueOnError {
					stopped.Store(true)
				}
				return
			}

			mu.Lock()
			op.DataSources = append(op.DataSources, ref.DataSourceID)
			op.SnapshotIDs = append(op.SnapshotIDs, ref.SnapshotID)
			op.RecordsRestored += ref.RecordCount
			mu.Unlock()

			c.logger.Info("restore task completed",
				"operationID", op.ID,
				"dataSourceID", ref.DataSourceID,
				"version", ref.Version,
				"records", ref.RecordCount)
		}(ref)
	}

	wg.Wait()
}

// finalize stamps the terminal status and persists the operation.
func (c *Coordinator) finalize(ctx context.Context, op *OperationRecord, status OperationStatus) {
	now := time.Now()
	op.Status = status
	op.CompletedAt = &now
	op.DurationMs = now.Sub(op.StartedAt).Milliseconds()
	if err := c.ops.Update(ctx, op); err != nil {
		c.logger.Error("failed to persist rollback operation",
			"operationID", op.ID, "error", err)
	}
}

// GetOperation retrieves one restore operation by ID.
func (c *Coordinator) GetOperation(ctx context.Context, id string) (*RollbackOperation, error) {
	rec, err := c.ops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return operationToAPI(rec), nil
}

// History lists restore operations, newest first, optionally scoped to one
// rollback point.
func (c *Coordinator) History(ctx context.Context, rollbackPointID string, limit int) ([]*RollbackOperation, error) {
	recs, err := c.ops.List(ctx, rollbackPointID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*RollbackOperation, len(recs))
	for i := range recs {
		out[i] = operationToAPI(&recs[i])
	}
	return out, nil
}

// ListActiveOperations lists non-terminal operations. Status views query
// this instead of polling in-memory state.
func (c *Coordinator) ListActiveOperations(ctx context.Context) ([]*RollbackOperation, error) {
	recs, err := c.ops.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*RollbackOperation, len(recs))
	for i := range recs {
		out[i] = operationToAPI(&recs[i])
	}
	return out, nil
}
