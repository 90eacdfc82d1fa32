package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/queue"
	"github.com/rickgao/orderflow/internal/store"
)

// BridgeConfig configures the queue-to-store bridge.
type BridgeConfig struct {
	IdleWait time.Duration // wait between polls when the ring is empty
}

// DefaultBridgeConfig returns sensible defaults.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		IdleWait: 10 * time.Millisecond,
	}
}

// Bridge drains the ring into the store. It owns the consumer side of the
// ring: while it runs, nothing else may call Pop or Flush.
type Bridge struct {
	cfg    BridgeConfig
	logger *slog.Logger

	ring *queue.Ring[model.Order]
	st   *store.Store

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	drained  atomic.Uint64
	stored   atomic.Uint64
	failures atomic.Uint64
	batches  atomic.Uint64
}

// BridgeStats is a point-in-time view of bridge counters.
type BridgeStats struct {
	Drained  uint64
	Stored   uint64
	Failures uint64
	Batches  uint64
}

// NewBridge creates a bridge between ring and st.
func NewBridge(cfg BridgeConfig, ring *queue.Ring[model.Order], st *store.Store, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = DefaultBridgeConfig().IdleWait
	}
	return &Bridge{
		cfg:    cfg,
		logger: logger,
		ring:   ring,
		st:     st,
	}
}

// Start launches the drain loop.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.drainLoop()

	b.logger.Info("ingest bridge started",
		"ring_capacity", b.ring.Cap(),
		"idle_wait", b.cfg.IdleWait,
	)
	return nil
}

// Stop shuts the bridge down, draining whatever is still in the ring so
// every accepted push reaches the store.
func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("stopping ingest bridge")

	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("ingest bridge stopped",
			"drained", b.drained.Load(),
			"stored", b.stored.Load(),
			"failures", b.failures.Load(),
		)
	case <-ctx.Done():
		b.logger.Warn("ingest bridge stop timed out")
	}
	return nil
}

// Stats returns current bridge counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Drained:  b.drained.Load(),
		Stored:   b.stored.Load(),
		Failures: b.failures.Load(),
		Batches:  b.batches.Load(),
	}
}

func (b *Bridge) drainLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			b.drainOnce()
			return
		default:
		}

		if b.drainOnce() == 0 {
			select {
			case <-b.ctx.Done():
				b.drainOnce()
				return
			case <-time.After(b.cfg.IdleWait):
			}
		}
	}
}

// drainOnce flushes one batch into the store and returns the batch size.
func (b *Bridge) drainOnce() int {
	batch := b.ring.Flush()
	if len(batch) == 0 {
		return 0
	}

	b.batches.Add(1)
	b.drained.Add(uint64(len(batch)))

	for _, o := range batch {
		if err := b.st.Update(o); err != nil {
			b.failures.Add(1)
			b.logger.Warn("order update failed",
				"order_id", o.OrderID,
				"instrument", o.InstrumentID,
				"error", err,
			)
			continue
		}
		b.stored.Add(1)
	}
	return len(batch)
}
