package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/config"
	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/alfredjeanlab/praevisio/internal/model"
	"github.com/alfredjeanlab/praevisio/internal/server"
	"github.com/alfredjeanlab/praevisio/internal/snapshot"
	"github.com/alfredjeanlab/praevisio/internal/token"
	"github.com/alfredjeanlab/praevisio/internal/vigilance"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the vigilance HTTP server",
	GroupID: "server",
	// Override PersistentPreRunE so we don't create an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		testMode := cfg.TestMode()

		// Token store and service.
		store, closeStore, err := token.NewStore(context.Background(), cfg.StoreKind, cfg.RedisURL, nil, logger)
		if err != nil {
			return err
		}
		tokens := token.NewService(store, token.Options{
			SweepInterval: cfg.TokenSweepInterval,
			TestMode:      testMode,
			Logger:        logger,
		})
		tokens.Start()

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				tokens.Stop()
				_ = closeStore()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (PRAEVISIO_NATS_URL not set)")
		}

		// Restore the last snapshot, if any.
		snapshots := snapshot.NewFileStore(cfg.SnapshotPath, logger)
		var initial *model.State
		if st, ok := snapshots.Load(); ok {
			initial = &st
			logger.Info("snapshot restored", "path", snapshots.Path(), "events", len(st.Events))
		}

		vig := vigilance.NewService(vigilance.Options{
			Initial:    initial,
			Persister:  snapshots,
			Publisher:  publisher,
			Tuning:     cfg.Tuning,
			EventLimit: cfg.EventLimit,
			Logger:     logger,
		})
		if cfg.Autostart && !testMode {
			vig.Start()
			logger.Info("vigilance flows started")
		}

		srv := server.New(server.Options{
			Vigilance:       vig,
			Tokens:          tokens,
			StaticToken:     cfg.StaticToken,
			TokenRateLimit:  cfg.TokenRateLimit,
			TokenRateWindow: cfg.TokenRateWindow,
			Logger:          logger,
		})

		// Streams derive their context from baseCtx so shutdown can end them.
		baseCtx, cancelStreams := context.WithCancel(context.Background())
		defer cancelStreams()
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start snapshot mirror if any destinations are configured.
		var mirror *snapshot.Mirror
		if cfg.MirrorInterval > 0 && !testMode {
			var dests []snapshot.Destination

			if cfg.MirrorS3Bucket != "" {
				s3Dest, err := snapshot.NewS3Destination(
					context.Background(),
					cfg.MirrorS3Bucket,
					cfg.MirrorS3Key,
					cfg.MirrorS3Region,
					cfg.MirrorS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 mirror destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("mirror S3 destination enabled", "bucket", cfg.MirrorS3Bucket, "key", cfg.MirrorS3Key)
				}
			}

			if cfg.MirrorGitRepo != "" {
				gitDest := snapshot.NewGitDestination(cfg.MirrorGitRepo, cfg.MirrorGitFile, cfg.MirrorGitBranch)
				dests = append(dests, gitDest)
				logger.Info("mirror git destination enabled", "repo", cfg.MirrorGitRepo, "file", cfg.MirrorGitFile)
			}

			if len(dests) > 0 {
				mirror = snapshot.NewMirror(vig.Snapshot, dests, cfg.MirrorInterval, logger)
				mirror.Start()
				logger.Info("snapshot mirror started", "interval", cfg.MirrorInterval)
			}
		}

		logger.Info("praevisio server started",
			"http_addr", cfg.HTTPAddr,
			"token_store", cfg.StoreKind,
			"test_mode", testMode,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		vig.Close()
		logger.Info("vigilance flows stopped")

		cancelStreams()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if mirror != nil {
			mirror.Stop()
			logger.Info("snapshot mirror stopped")
		}

		tokens.Stop()
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := closeStore(); err != nil {
			logger.Error("error closing token store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
