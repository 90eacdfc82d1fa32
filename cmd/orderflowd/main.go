// orderflowd is the order ingestion daemon: WebSocket feeds push order
// events onto a lock-free ring, a single bridge goroutine drains the ring
// into the per-instrument store, and subscriber sinks (Postgres archive,
// Kafka publisher) plus a periodic JSON snapshotter hang off the store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rickgao/orderflow/internal/archive"
	"github.com/rickgao/orderflow/internal/config"
	"github.com/rickgao/orderflow/internal/database"
	"github.com/rickgao/orderflow/internal/feed"
	"github.com/rickgao/orderflow/internal/ingest"
	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/publish"
	"github.com/rickgao/orderflow/internal/queue"
	"github.com/rickgao/orderflow/internal/snapshot"
	"github.com/rickgao/orderflow/internal/store"
	"github.com/rickgao/orderflow/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/orderflowd.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the config is loaded
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting orderflowd",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Core pipeline: ring -> bridge -> store
	ring, err := queue.New[model.Order](cfg.Queue.Capacity)
	if err != nil {
		logger.Error("failed to create queue", "error", err)
		os.Exit(1)
	}
	st := store.NewStore(logger)
	bridge := ingest.NewBridge(ingest.BridgeConfig{IdleWait: cfg.Bridge.IdleWait}, ring, st, logger)

	// Feeds produce into the ring
	sources := make([]feed.Source, 0, len(cfg.Feeds.Sources))
	for _, s := range cfg.Feeds.Sources {
		sources = append(sources, feed.Source{
			Name:        s.Name,
			URL:         s.URL,
			Instruments: s.Instruments,
		})
	}
	feeds := feed.NewManager(feed.ManagerConfig{
		Sources:           sources,
		ReconnectBaseWait: cfg.Feeds.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Feeds.ReconnectMaxDelay,
		PingTimeout:       cfg.Feeds.PingTimeout,
		WriteTimeout:      cfg.Feeds.WriteTimeout,
		BufferSize:        cfg.Feeds.BufferSize,
	}, ring, logger)

	// Optional sinks subscribe to the store
	var archiver *archive.Writer
	if cfg.Archive.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archiver = archive.NewWriter(archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
			BufferCeiling: cfg.Archive.BufferCeiling,
		}, pool, logger)
		st.Subscribe(archiver.Enqueue)
	}

	var publisher *publish.Publisher
	if cfg.Publish.Enabled {
		publisher = publish.NewPublisher(publish.PublisherConfig{
			Brokers:       cfg.Publish.Brokers,
			Topic:         cfg.Publish.Topic,
			BatchSize:     cfg.Publish.BatchSize,
			BatchTimeout:  cfg.Publish.BatchTimeout,
			BufferSize:    cfg.Publish.BufferSize,
			BufferCeiling: cfg.Publish.BufferCeiling,
		}, logger)
		st.Subscribe(publisher.Enqueue)
	}

	var snapshotter *snapshot.Snapshotter
	if cfg.Snapshot.Enabled {
		snapshotter = snapshot.NewSnapshotter(snapshot.SnapshotterConfig{
			Path:     cfg.Snapshot.Path,
			Interval: cfg.Snapshot.Interval,
		}, st, logger)
	}

	// Start sinks before the bridge so no committed order misses a callback.
	if archiver != nil {
		if err := archiver.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
	}
	if publisher != nil {
		if err := publisher.Start(ctx); err != nil {
			logger.Error("failed to start publisher", "error", err)
			os.Exit(1)
		}
	}
	if snapshotter != nil {
		if err := snapshotter.Start(ctx); err != nil {
			logger.Error("failed to start snapshotter", "error", err)
			os.Exit(1)
		}
	}
	if err := bridge.Start(ctx); err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}
	if err := feeds.Start(ctx); err != nil {
		logger.Error("failed to start feed manager", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: createHandler(ring, st, bridge, feeds, logger),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("orderflowd running",
		"instance_id", cfg.Instance.ID,
		"sources", len(sources),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Reverse order: stop producing, drain the ring, then stop the sinks.
	httpServer.Shutdown(shutdownCtx)
	feeds.Stop(shutdownCtx)
	bridge.Stop(shutdownCtx)
	if snapshotter != nil {
		snapshotter.Stop(shutdownCtx)
	}
	if publisher != nil {
		publisher.Stop(shutdownCtx)
	}
	if archiver != nil {
		archiver.Stop(shutdownCtx)
	}

	logger.Info("orderflowd stopped")
}

// buildLogger constructs the root logger from config: leveled text handler,
// optionally mirrored to a rotating file.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// createHandler serves health and debug endpoints from component stats.
func createHandler(
	ring *queue.Ring[model.Order],
	st *store.Store,
	bridge *ingest.Bridge,
	feeds *feed.Manager,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Debug("encode debug response", "error", err)
		}
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		feedStats := feeds.Stats()

		status := "healthy"
		code := http.StatusOK
		if feedStats.Sources > 0 && feedStats.Connected == 0 {
			status = "degraded"
		}

		writeJSON(w, code, map[string]any{
			"status": status,
			"components": map[string]any{
				"feeds": feedStats,
				"queue": ring.Stats(),
				"store": st.Stats(),
			},
		})
	})

	mux.HandleFunc("/debug/queue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ring.Stats())
	})

	mux.HandleFunc("/debug/bridge", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, bridge.Stats())
	})

	mux.HandleFunc("/debug/store", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"stats":       st.Stats(),
			"instruments": st.InstrumentIDs(),
		})
	})

	return mux
}
