package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/config"
	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/export"
	"github.com/alfredjeanlab/sortgate/internal/gateway"
	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/server"
	"github.com/alfredjeanlab/sortgate/internal/snapshot"
	"github.com/alfredjeanlab/sortgate/internal/store/sqlstore"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the gateway HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)

		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}

		// The pool is lazy; an unreachable database is not a startup error.
		accessor, err := sqlstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL, storeTables(cfg))
		if err != nil {
			return err
		}

		snap := snapshot.Open(cfg.SnapshotPath(), snapshot.WithLogger(logger))
		queue := pending.Open(cfg.PendingPath(), pending.WithLogger(logger))

		hub := server.NewEventHub()
		publisher := events.Fanout{newPublisher(cfg, logger), hub}

		gw := gateway.New(accessor, snap, queue,
			gateway.WithLogger(logger),
			gateway.WithPublisher(publisher),
			gateway.WithTimeout(cfg.StoreTimeout),
			gateway.WithSyncTimeout(cfg.SyncTimeout),
		)

		// Drain the queue and refresh the snapshot before taking traffic.
		gw.Init(context.Background())

		srv := server.New(gw, logger, server.WithEventHub(hub))

		var grpcServer interface{ GracefulStop() }
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				publisher.Close()
				accessor.Close()
				return err
			}
			gs := srv.NewGRPCServer()
			grpcServer = gs
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := gs.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		} else {
			logger.Info("gRPC disabled (SORTGATE_GRPC_ADDR empty)")
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := newExportScheduler(context.Background(), cfg, snap, queue, logger)
		if scheduler != nil {
			scheduler.Start()
			logger.Info("export scheduler started", "interval", cfg.ExportInterval)
		}

		logger.Info("sortgate started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"state_dir", cfg.StateDir,
			"pending", queue.Len(),
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		// Open /events streams never finish on their own; Shutdown gives
		// up on them when the context expires.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := accessor.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func storeTables(cfg *config.Config) sqlstore.Tables {
	return sqlstore.Tables{
		Items:         cfg.ItemsTable,
		TrashBins:     cfg.TrashBinsTable,
		TrashBinItems: cfg.TrashBinItemsTable,
		Selections:    cfg.SelectionsTable,
	}
}

// newPublisher connects to NATS when configured. Events are best-effort, so
// a failed connection falls back to the no-op publisher.
func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		logger.Info("NATS events disabled (SORTGATE_NATS_URL not set)")
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		logger.Error("NATS unavailable, events disabled", "nats_url", cfg.NATSURL, "err", err)
		return &events.NoopPublisher{}
	}
	logger.Info("NATS events enabled", "nats_url", cfg.NATSURL)
	return pub
}

// newExportScheduler returns nil when export is disabled or has no usable
// destination.
func newExportScheduler(ctx context.Context, cfg *config.Config, snap snapshot.Store, queue pending.Queue, logger *slog.Logger) *export.Scheduler {
	if cfg.ExportInterval <= 0 {
		return nil
	}
	if cfg.ExportS3Bucket == "" {
		logger.Warn("export interval set but no destination configured", "interval", cfg.ExportInterval)
		return nil
	}
	dest, err := export.NewS3Destination(ctx, export.S3Options{
		Bucket:   cfg.ExportS3Bucket,
		Key:      cfg.ExportS3Key,
		Region:   cfg.ExportS3Region,
		Endpoint: cfg.ExportS3Endpoint,
	})
	if err != nil {
		logger.Error("failed to create S3 export destination", "err", err)
		return nil
	}
	logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
	return export.NewScheduler(snap, queue, []export.Destination{dest}, cfg.ExportInterval, logger)
}
