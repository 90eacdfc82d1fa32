package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/orderflow/internal/store"
)

// SnapshotterConfig configures the periodic snapshotter.
type SnapshotterConfig struct {
	Path     string        // Destination file, overwritten on every tick
	Interval time.Duration // Time between snapshots
}

// Snapshotter periodically saves the store to disk.
type Snapshotter struct {
	cfg    SnapshotterConfig
	st     *store.Store
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	snapshots atomic.Uint64
	errors    atomic.Uint64
}

// SnapshotterStats is a point-in-time view of snapshotter counters.
type SnapshotterStats struct {
	Snapshots uint64
	Errors    uint64
}

// NewSnapshotter creates a snapshotter for st.
func NewSnapshotter(cfg SnapshotterConfig, st *store.Store, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Snapshotter{
		cfg:    cfg,
		st:     st,
		logger: logger,
	}
}

// Start launches the snapshot loop.
func (s *Snapshotter) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("snapshotter started",
		"path", s.cfg.Path,
		"interval", s.cfg.Interval,
	)
	return nil
}

// Stop shuts the snapshotter down, taking one final snapshot.
func (s *Snapshotter) Stop(ctx context.Context) error {
	s.logger.Info("stopping snapshotter")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("snapshotter stopped")
	case <-ctx.Done():
		s.logger.Warn("snapshotter stop timed out")
	}

	s.snap()
	return nil
}

// Stats returns current snapshotter counters.
func (s *Snapshotter) Stats() SnapshotterStats {
	return SnapshotterStats{
		Snapshots: s.snapshots.Load(),
		Errors:    s.errors.Load(),
	}
}

func (s *Snapshotter) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.snap()
		}
	}
}

func (s *Snapshotter) snap() {
	start := time.Now()
	if err := SaveToFile(s.cfg.Path, s.st); err != nil {
		s.errors.Add(1)
		s.logger.Error("snapshot failed", "path", s.cfg.Path, "error", err)
		return
	}
	s.snapshots.Add(1)
	s.logger.Debug("snapshot written",
		"path", s.cfg.Path,
		"duration", time.Since(start),
	)
}
