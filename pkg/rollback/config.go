package rollback

import (
	"os"
	"strconv"
	"time"
)

// RestoreConfig controls restore coordinator behavior.
type RestoreConfig struct {
	MaxConcurrent   int           // Max data sources restoring simultaneously. Default 5.
	TaskTimeout     time.Duration // Per-source restore timeout. Default 2m.
	ContinueOnError bool          // Keep restoring siblings after a source fails. Default true.
	SingleUse       bool          // Reject further restores once a point is used. Default false.
}

// DefaultRestoreConfig returns the default restore configuration.
func DefaultRestoreConfig() *RestoreConfig {
	return &RestoreConfig{
		MaxConcurrent:   5,
		TaskTimeout:     2 * time.Minute,
		ContinueOnError: true,
		SingleUse:       false,
	}
}

// RestoreConfigFromEnv loads config from environment variables.
// ROLLBACK_RESTORE_MAX_CONCURRENT, ROLLBACK_RESTORE_TASK_TIMEOUT_SECONDS,
// ROLLBACK_RESTORE_CONTINUE_ON_ERROR, ROLLBACK_RESTORE_SINGLE_USE
func RestoreConfigFromEnv() *RestoreConfig {
	cfg := DefaultRestoreConfig()

	if v := os.Getenv("ROLLBACK_RESTORE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}

	if v := os.Getenv("ROLLBACK_RESTORE_TASK_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TaskTimeout = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ROLLBACK_RESTORE_CONTINUE_ON_ERROR"); v != "" {
		cfg.ContinueOnError, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("ROLLBACK_RESTORE_SINGLE_USE"); v != "" {
		cfg.SingleUse, _ = strconv.ParseBool(v)
	}

	return cfg
}

// RetentionConfig controls the retention worker.
type RetentionConfig struct {
	SweepInterval  time.Duration // How often to sweep. Default 1h.
	SnapshotMinAge time.Duration // GC never touches snapshots younger than this. Default 24h.
	KeepVersions   int           // Newest versions per source always retained. Default 3.
	Enabled        bool          // Whether the retention worker runs. Default true.
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SweepInterval:  time.Hour,
		SnapshotMinAge: 24 * time.Hour,
		KeepVersions:   3,
		Enabled:        true,
	}
}

// RetentionConfigFromEnv loads config from environment variables.
// ROLLBACK_RETENTION_SWEEP_INTERVAL_MINUTES, ROLLBACK_RETENTION_SNAPSHOT_MIN_AGE_HOURS,
// ROLLBACK_RETENTION_KEEP_VERSIONS, ROLLBACK_RETENTION_ENABLED
func RetentionConfigFromEnv() *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if v := os.Getenv("ROLLBACK_RETENTION_SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SweepInterval = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("ROLLBACK_RETENTION_SNAPSHOT_MIN_AGE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SnapshotMinAge = time.Duration(n) * time.Hour
		}
	}

	if v := os.Getenv("ROLLBACK_RETENTION_KEEP_VERSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.KeepVersions = n
		}
	}

	if v := os.Getenv("ROLLBACK_RETENTION_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
