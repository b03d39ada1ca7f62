package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"beacon-hq/beacon/pkg/config"
	"beacon-hq/beacon/pkg/limits"
	"beacon-hq/beacon/pkg/limits/ratelimit"
	limitstorage "beacon-hq/beacon/pkg/limits/storage"
	"beacon-hq/beacon/pkg/server"
	"beacon-hq/beacon/pkg/telemetry/logging"
	"beacon-hq/beacon/pkg/telemetry/metrics"
	"beacon-hq/beacon/pkg/visit"
	"beacon-hq/beacon/pkg/visit/recorder"
	"beacon-hq/beacon/pkg/visit/storage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Beacon collector server",
	Long: `Start the Beacon collector server with the specified configuration.

The server accepts visit reports, applies admission limiting and validation,
and serves the query, statistics, and export API.

Examples:
  # Start with default config
  beacon run

  # Start with custom config
  beacon run --config /etc/beacon/beacon.yaml

  # Override listen address
  beacon run --listen 0.0.0.0:8090

  # Reload configuration on file changes
  beacon run --watch

  # Validate config without starting server
  beacon run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload configuration on file changes")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		RedactIPs: cfg.Telemetry.Logging.RedactIPs,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Visit storage
	slog.Info("initializing visit storage", "backend", cfg.Storage.Backend)
	var store visit.Storage
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Storage.SQLite.Path,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
			WALMode:      cfg.Storage.SQLite.WALMode,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create SQLite storage: %w", err)
		}
	case "memory":
		store = storage.NewMemoryStorage()
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	defer store.Close()

	// Admission limiter, with optional state persistence
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Window:       cfg.Limits.Window,
		MaxPerWindow: cfg.Limits.MaxPerWindow,
	})

	var limitsBackend limitstorage.Backend
	if cfg.Limits.Persistence.Enabled {
		limitsBackend, err = limitstorage.NewSQLiteBackend(cfg.Limits.Persistence.Path)
		if err != nil {
			return fmt.Errorf("failed to open limiter state store: %w", err)
		}
		defer limitsBackend.Close()

		if err := limits.LoadState(ctx, limiter, limitsBackend, time.Now()); err != nil {
			slog.Warn("failed to restore limiter state, starting fresh", "error", err)
		} else {
			slog.Info("limiter state restored", "tracked_keys", limiter.Keys())
		}
	}

	// Limiter sweeper
	if cfg.Limits.SweepSchedule != "" {
		sweeper := ratelimit.NewSweeper(limiter, cfg.Limits.SweepSchedule)
		if err := sweeper.Start(ctx); err != nil {
			slog.Warn("failed to start limiter sweeper", "error", err)
		} else {
			defer sweeper.Stop()
		}
	}

	// Metrics
	collector := metrics.NewCollector(metrics.Config{Enabled: cfg.Telemetry.Metrics.Enabled}, nil)

	rec := recorder.NewRecorder(store, limiter, recorder.WithMetrics(collector))

	srv := server.NewServer(cfg, rec, store, collector, logger.Slog())

	// Config watcher for live log level changes
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, logger.Slog())
		if err != nil {
			slog.Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				_ = watcher.Watch(ctx, func(next *config.Config) {
					if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
						slog.Warn("invalid log level in reloaded config", "error", err)
					}
				})
			}()
			defer func() { _ = watcher.Stop() }()
		}
	}

	fmt.Printf("✓ Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("✓ Admission window: %s, %d per client\n", cfg.Limits.Window, cfg.Limits.MaxPerWindow)
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	err = srv.Start(ctx)

	// Persist limiter state across restarts
	if limitsBackend != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if saveErr := limits.SaveState(saveCtx, limiter, limitsBackend); saveErr != nil {
			slog.Error("failed to persist limiter state", "error", saveErr)
		}
	}

	return err
}
