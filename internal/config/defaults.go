package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel           = "info"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 14
	DefaultQueueCapacity      = 65536
	DefaultBridgeIdleWait     = 10 * time.Millisecond
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultFeedBufferSize     = 100000
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultSinkBufferSize     = 10000
	DefaultSinkBufferCeiling  = 1000000
	DefaultKafkaBatchTimeout  = 10 * time.Millisecond
	DefaultSnapshotInterval   = 5 * time.Minute
	DefaultHTTPPort           = 8080
)

func (c *Config) applyDefaults() {
	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Queue and bridge defaults
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = DefaultQueueCapacity
	}
	if c.Bridge.IdleWait == 0 {
		c.Bridge.IdleWait = DefaultBridgeIdleWait
	}

	// Feed defaults
	if c.Feeds.ReconnectBaseDelay == 0 {
		c.Feeds.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feeds.ReconnectMaxDelay == 0 {
		c.Feeds.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feeds.PingTimeout == 0 {
		c.Feeds.PingTimeout = DefaultPingTimeout
	}
	if c.Feeds.WriteTimeout == 0 {
		c.Feeds.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feeds.BufferSize == 0 {
		c.Feeds.BufferSize = DefaultFeedBufferSize
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultSinkBufferSize
	}
	if c.Archive.BufferCeiling == 0 {
		c.Archive.BufferCeiling = DefaultSinkBufferCeiling
	}

	// Publish defaults
	if c.Publish.BatchTimeout == 0 {
		c.Publish.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if c.Publish.BatchSize == 0 {
		c.Publish.BatchSize = DefaultBatchSize
	}
	if c.Publish.BufferSize == 0 {
		c.Publish.BufferSize = DefaultSinkBufferSize
	}
	if c.Publish.BufferCeiling == 0 {
		c.Publish.BufferCeiling = DefaultSinkBufferCeiling
	}

	// Snapshot defaults
	if c.Snapshot.Interval == 0 {
		c.Snapshot.Interval = DefaultSnapshotInterval
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
