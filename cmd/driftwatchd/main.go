// Command driftwatchd runs the self-monitoring subsystem as a standalone
// service: it ingests interactions over HTTP, analyzes them continuously,
// adapts generation parameters, and persists its state across restarts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/driftwatch/driftwatch/internal/autocorr"
	"github.com/driftwatch/driftwatch/internal/bias"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/pattern"
	"github.com/driftwatch/driftwatch/internal/perf"
	"github.com/driftwatch/driftwatch/internal/server"
	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/storage/filestore"
	"github.com/driftwatch/driftwatch/internal/storage/sqlite"
	"github.com/driftwatch/driftwatch/internal/telemetry"
	"github.com/driftwatch/driftwatch/internal/trainer"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "driftwatchd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	logJSON := flag.Bool("log-json", false, "emit JSON logs instead of terminal format")
	traceEnabled := flag.Bool("trace", false, "export traces to stdout")
	flag.Parse()

	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := newLogger(*logJSON)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "driftwatchd", version, *traceEnabled)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	detector := bias.NewDetector(cfg.Bias, logger)
	mapper := autocorr.NewMapper(cfg.Autocorr, logger)
	analyzer := pattern.NewAnalyzer(cfg.Pattern, logger)
	monitor := perf.NewMonitor(cfg.Perf, logger)
	t := trainer.New(cfg.Trainer, detector, mapper, analyzer, monitor, logger)

	if err := restoreState(ctx, store, t, logger); err != nil {
		return err
	}

	sampler := perf.NewSampler(monitor, time.Duration(cfg.Perf.SampleIntervalSeconds)*time.Second, logger)
	sampler.Start(ctx)
	defer sampler.Stop()

	srv := server.New(cfg.Server.Port, t, store, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("driftwatchd started", "version", version, "port", cfg.Server.Port,
		"mode", cfg.Trainer.Mode, "strategy", cfg.Trainer.Strategy)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", "error", err)
	}

	if err := saveState(shutdownCtx, store, t); err != nil {
		logger.Warn("final state save failed", "error", err)
	}
	return nil
}

func newLogger(jsonFormat bool) *slog.Logger {
	level := slog.LevelInfo
	if v := os.Getenv("DRIFTWATCH_LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

func openStore(cfg config.StorageConfig) (storage.SnapshotStore, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.Open(cfg.SQLite.Path)
	case "file":
		return filestore.Open(cfg.File.Path)
	case "none":
		return storage.Noop{}, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

func restoreState(ctx context.Context, store storage.SnapshotStore, t *trainer.Trainer, logger *slog.Logger) error {
	doc, err := store.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		logger.Info("no saved state, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading saved state: %w", err)
	}
	var snapshot trainer.Snapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		return fmt.Errorf("decoding saved state: %w", err)
	}
	t.Import(snapshot)
	return nil
}

func saveState(ctx context.Context, store storage.SnapshotStore, t *trainer.Trainer) error {
	doc, err := json.Marshal(t.Export())
	if err != nil {
		return err
	}
	return store.Save(ctx, doc)
}
