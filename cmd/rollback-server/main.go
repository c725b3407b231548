// Package main provides the rollback service entry point: snapshot
// versioning, rollback point capture, restore coordination, and retention
// for the platform's data sources.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/TylorMayfield/manifold-rollback/pkg/rollback"
	"github.com/TylorMayfield/manifold-rollback/pkg/snapshot"
)

func main() {
	var (
		listenAddr   string
		databaseType string
		databaseDSN  string
		snapshotDir  string
	)

	flag.StringVar(&listenAddr, "listen", ":8085", "Address to listen on")
	flag.StringVar(&databaseType, "db-type", "", "Metadata database type (postgres, mysql, or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Metadata database connection string")
	flag.StringVar(&snapshotDir, "snapshot-dir", "", "Directory for the snapshot payload store")
	flag.Parse()

	// Initialize glog for the fatal paths below.
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to metadata database: %v", err)
	}

	snapCfg := snapshot.StoreConfigFromEnv()
	if snapshotDir != "" {
		snapCfg.Dir = snapshotDir
	}
	payloads, err := snapshot.OpenPayloadStore(snapCfg, logger)
	if err != nil {
		glog.Fatalf("Failed to open snapshot payload store: %v", err)
	}
	defer payloads.Close()

	snapStore := snapshot.NewStore(gormDB, payloads, snapCfg, logger)
	if err := snapStore.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate snapshot tables: %v", err)
	}

	pointStore := rollback.NewPointStore(gormDB)
	if err := pointStore.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate rollback_points: %v", err)
	}
	opStore := rollback.NewOperationStore(gormDB)
	if err := opStore.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate rollback_operations: %v", err)
	}

	restoreCfg := rollback.RestoreConfigFromEnv()
	manager := rollback.NewManager(pointStore, snapStore, logger)
	coordinator := rollback.NewCoordinator(pointStore, opStore, snapStore, restoreCfg, logger)

	retentionCfg := rollback.RetentionConfigFromEnv()
	retention := rollback.NewRetentionWorker(pointStore, snapStore, retentionCfg, logger)
	go retention.Run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/api/v1/snapshots", snapshot.NewRouter(snapStore))
	r.Mount("/api/v1/rollback", rollback.NewRouter(manager, coordinator))

	logger.Info("rollback server ready",
		"listen", listenAddr,
		"snapshotDir", snapCfg.Dir,
		"maxConcurrentRestores", restoreCfg.MaxConcurrent)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("rollback server stopped")
}

// setupDatabase opens the metadata database. Falls back to environment
// configuration (DATABASE_TYPE, DATABASE_DSN) when flags are empty;
// sqlite is the embedded default for single-node deployments.
func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dbType == "" {
		dbType = os.Getenv("DATABASE_TYPE")
		if dbType == "" {
			dbType = "sqlite"
		}
	}
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
		if dsn == "" && dbType != "sqlite" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
		if dsn == "" {
			dsn = "/var/lib/manifold/rollback.db"
		}
	}

	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch dbType {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %q (expected postgres, mysql, or sqlite)", dbType)
	}
}
