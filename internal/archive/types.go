package archive

import "time"

// WriterConfig contains configuration for the archive batch writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the relay buffer's initial capacity.
	BufferSize int

	// BufferCeiling bounds relay buffer growth; 0 = unbounded.
	BufferCeiling int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
		BufferCeiling: 1000000,
	}
}

// orderRow is a row for the orders table.
type orderRow struct {
	OrderID      uint64
	InstrumentID string
	Side         string // "BUY" or "SELL"
	State        string // "NEW", "PARTIAL", "FILLED", "CANCELLED"
	Quantity     int64
	Price        int64 // Ten-thousandths
	Ts           int64 // Microseconds
}

// WriterMetrics holds counters for the archive writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}
