package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrStale         = errors.New("connection stale (no ping)")
	ErrAlreadyClosed = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Command is a WebSocket command sent to the upstream feed.
type Command struct {
	ID     int64           `json:"id"`
	Op     string          `json:"op"`
	Params SubscribeParams `json:"params"`
}

// SubscribeParams are parameters for a subscribe command.
type SubscribeParams struct {
	Channels    []string `json:"channels"`
	Instruments []string `json:"instruments,omitempty"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL of the order feed
	PingTimeout  time.Duration // Max time without ping/pong before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100000,
	}
}

// Source is one configured upstream connection.
type Source struct {
	Name        string
	URL         string
	Instruments []string
}

// ManagerConfig configures the feed manager.
type ManagerConfig struct {
	Sources           []Source
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection
	PingTimeout       time.Duration
	WriteTimeout      time.Duration
	BufferSize        int // Per-connection message channel buffer size
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
		PingTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        100000,
	}
}

// ManagerStats provides counters across all feed connections.
type ManagerStats struct {
	Connected   int
	Sources     int
	Received    uint64 // raw frames read
	Parsed      uint64 // order events pushed to the ring
	ParseErrors uint64
	Dropped     uint64 // ring full, order discarded
	Reconnects  uint64
}
