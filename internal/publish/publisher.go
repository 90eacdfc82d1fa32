package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/relay"
)

// messageWriter is the subset of kafka.Writer the publisher uses. Tests swap
// in a capture.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher consumes orders from its relay buffer and writes them to Kafka.
type Publisher struct {
	cfg    PublisherConfig
	logger *slog.Logger

	// Input from the store subscriber callback
	input *relay.Buffer[model.Order]

	writer messageWriter

	// Batching
	batch       []kafka.Message
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics PublisherMetrics
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultPublisherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &Publisher{
		cfg:    cfg,
		logger: logger,
		input:  relay.NewBuffer[model.Order](cfg.BufferSize, cfg.BufferCeiling),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: cfg.BatchTimeout,
		},
		batch: make([]kafka.Message, 0, cfg.BatchSize),
	}
}

// Enqueue accepts one committed order. It is the store subscriber callback:
// it never blocks, a buffer at its ceiling drops the order and counts it.
func (p *Publisher) Enqueue(o model.Order) {
	if !p.input.Send(o) {
		p.batchMu.Lock()
		p.metrics.Dropped++
		p.batchMu.Unlock()
	}
}

// Start begins consuming orders and publishing to Kafka.
func (p *Publisher) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.flushTicker = time.NewTicker(p.cfg.FlushInterval)

	p.wg.Add(1)
	go p.consumeLoop()

	p.wg.Add(1)
	go p.flushLoop()

	p.logger.Info("publisher started",
		"topic", p.cfg.Topic,
		"brokers", len(p.cfg.Brokers),
		"batch_size", p.cfg.BatchSize,
	)
	return nil
}

// Stop gracefully shuts down the publisher.
func (p *Publisher) Stop(ctx context.Context) error {
	p.logger.Info("stopping publisher")

	if p.cancel != nil {
		p.cancel()
	}

	if p.flushTicker != nil {
		p.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("publisher stopped")
	case <-ctx.Done():
		p.logger.Warn("publisher stop timed out")
	}

	// Final flush, then release the writer's connections.
	p.flush()
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("close kafka writer", "error", err)
	}

	return nil
}

// Stats returns current metrics.
func (p *Publisher) Stats() PublisherMetrics {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	return p.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (p *Publisher) consumeLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			for _, o := range p.input.DrainTo(0) {
				p.handleOrder(o)
			}
			return
		default:
			o, ok := p.input.TryReceive()
			if !ok {
				select {
				case <-p.ctx.Done():
					continue
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			p.handleOrder(o)
		}
	}
}

// flushLoop periodically flushes the batch.
func (p *Publisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.flushTicker.C:
			p.flush()
		}
	}
}

// handleOrder transforms and adds an order to the batch.
func (p *Publisher) handleOrder(o model.Order) {
	msg, err := p.transform(o)
	if err != nil {
		p.batchMu.Lock()
		p.metrics.Errors++
		p.batchMu.Unlock()
		p.logger.Error("encode order", "order_id", o.OrderID, "error", err)
		return
	}

	p.batchMu.Lock()
	p.batch = append(p.batch, msg)
	shouldFlush := len(p.batch) >= p.cfg.BatchSize
	p.batchMu.Unlock()

	if shouldFlush {
		p.flush()
	}
}

// transform converts an Order to a Kafka message. The key is the instrument
// ID so one instrument's events land on one partition in order.
func (p *Publisher) transform(o model.Order) (kafka.Message, error) {
	value, err := json.Marshal(orderJSON{
		OrderID:      o.OrderID,
		InstrumentID: o.InstrumentID,
		Side:         o.Side.String(),
		State:        o.State.String(),
		Quantity:     o.Quantity,
		Price:        o.Price,
		Timestamp:    o.Timestamp,
	})
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(o.InstrumentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(uuid.NewString())},
		},
	}, nil
}

// flush writes the current batch to Kafka.
func (p *Publisher) flush() {
	p.batchMu.Lock()
	if len(p.batch) == 0 {
		p.batchMu.Unlock()
		return
	}

	batch := p.batch
	p.batch = make([]kafka.Message, 0, p.cfg.BatchSize)
	p.batchMu.Unlock()

	start := time.Now()

	if err := p.writer.WriteMessages(context.Background(), batch...); err != nil {
		p.logger.Error("publish batch failed", "error", err, "count", len(batch))
		p.batchMu.Lock()
		p.metrics.Errors++
		p.batchMu.Unlock()
		return
	}

	p.batchMu.Lock()
	p.metrics.Published += int64(len(batch))
	p.metrics.Flushes++
	p.batchMu.Unlock()

	p.logger.Debug("published orders",
		"count", len(batch),
		"duration", time.Since(start),
	)
}
