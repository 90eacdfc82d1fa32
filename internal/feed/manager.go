package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/queue"
)

// Manager supervises one connection per configured source: connect,
// subscribe, parse, push to the ring, reconnect with exponential backoff on
// failure. Every source is an independent queue producer; the ring's Push
// contract means a slow consumer never blocks a read loop.
type Manager struct {
	cfg    ManagerConfig
	ring   *queue.Ring[model.Order]
	logger *slog.Logger

	// newClient is swapped in tests to inject a fake connection.
	newClient func(ClientConfig, *slog.Logger) Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cmdID int64

	// Metrics
	connected   atomic.Int64
	received    atomic.Uint64
	parsed      atomic.Uint64
	parseErrors atomic.Uint64
	dropped     atomic.Uint64
	reconnects  atomic.Uint64
}

// NewManager creates a feed manager feeding ring.
func NewManager(cfg ManagerConfig, ring *queue.Ring[model.Order], logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultManagerConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &Manager{
		cfg:       cfg,
		ring:      ring,
		logger:    logger,
		newClient: NewClient,
	}
}

// Start launches one supervisor goroutine per source.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	for _, src := range m.cfg.Sources {
		m.wg.Add(1)
		go m.runSource(src)
	}

	m.logger.Info("feed manager started", "sources", len(m.cfg.Sources))
	return nil
}

// Stop shuts down all connections.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping feed manager")

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("feed manager stopped")
	case <-ctx.Done():
		m.logger.Warn("feed manager stop timed out")
	}
	return nil
}

// Stats returns current feed counters.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Connected:   int(m.connected.Load()),
		Sources:     len(m.cfg.Sources),
		Received:    m.received.Load(),
		Parsed:      m.parsed.Load(),
		ParseErrors: m.parseErrors.Load(),
		Dropped:     m.dropped.Load(),
		Reconnects:  m.reconnects.Load(),
	}
}

// runSource keeps one source connected until the manager stops.
func (m *Manager) runSource(src Source) {
	defer m.wg.Done()

	wait := m.cfg.ReconnectBaseWait
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		err := m.runConnection(src)
		if m.ctx.Err() != nil {
			return
		}

		m.reconnects.Add(1)
		m.logger.Warn("feed connection lost, reconnecting",
			"source", src.Name,
			"error", err,
			"wait", wait,
		)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
		}

		wait *= 2
		if wait > m.cfg.ReconnectMaxWait {
			wait = m.cfg.ReconnectMaxWait
		}
	}
}

// runConnection runs one connection lifetime: dial, subscribe, consume until
// the connection dies or the manager stops.
func (m *Manager) runConnection(src Source) error {
	cl := m.newClient(ClientConfig{
		URL:          src.URL,
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger.With("source", src.Name))

	if err := cl.Connect(m.ctx); err != nil {
		return err
	}
	defer cl.Close()

	m.connected.Add(1)
	defer m.connected.Add(-1)

	if err := m.subscribe(cl, src); err != nil {
		return err
	}

	m.logger.Info("feed subscribed",
		"source", src.Name,
		"instruments", len(src.Instruments),
	)

	for {
		select {
		case <-m.ctx.Done():
			return nil
		case err := <-cl.Errors():
			return err
		case msg, ok := <-cl.Messages():
			if !ok {
				return errors.New("message channel closed")
			}
			m.handleFrame(src, msg)
		}
	}
}

// subscribe sends the orders-channel subscribe command.
func (m *Manager) subscribe(cl Client, src Source) error {
	id := atomic.AddInt64(&m.cmdID, 1)
	cmd, err := subscribeCommand(id, src.Instruments)
	if err != nil {
		return err
	}
	return cl.Send(cmd)
}

// handleFrame parses one raw frame and pushes the order onto the ring.
func (m *Manager) handleFrame(src Source, msg TimestampedMessage) {
	m.received.Add(1)

	o, isOrder, err := ParseOrder(msg.Data)
	if err != nil {
		m.parseErrors.Add(1)
		m.logger.Warn("unparseable frame",
			"source", src.Name,
			"error", err,
		)
		return
	}
	if !isOrder {
		return
	}

	if err := m.ring.Push(o); err != nil {
		// ErrFull: the consumer cannot keep up. Drop and count; the read
		// loop must not block.
		m.dropped.Add(1)
		m.logger.Warn("ingestion ring full, dropping order",
			"source", src.Name,
			"order_id", o.OrderID,
			"instrument", o.InstrumentID,
		)
		return
	}
	m.parsed.Add(1)
}
