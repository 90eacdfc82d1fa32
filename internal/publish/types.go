package publish

import "time"

// PublisherConfig contains configuration for the Kafka publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string

	// BatchSize is the number of messages to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BatchTimeout is passed to the Kafka writer.
	BatchTimeout time.Duration

	// BufferSize is the relay buffer's initial capacity.
	BufferSize int

	// BufferCeiling bounds relay buffer growth; 0 = unbounded.
	BufferCeiling int
}

// DefaultPublisherConfig returns sensible defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
		BatchTimeout:  10 * time.Millisecond,
		BufferSize:    10000,
		BufferCeiling: 1000000,
	}
}

// PublisherMetrics holds counters for the publisher.
type PublisherMetrics struct {
	Published int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}

// orderJSON is the wire form of an order on the Kafka topic.
type orderJSON struct {
	OrderID      uint64 `json:"order_id"`
	InstrumentID string `json:"instrument_id"`
	Side         string `json:"side"`
	State        string `json:"state"`
	Quantity     int64  `json:"quantity"`
	Price        int64  `json:"price"`
	Timestamp    int64  `json:"ts"`
}
