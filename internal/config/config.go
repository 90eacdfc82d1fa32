package config

import "time"

// Config is the root configuration for an orderflow daemon instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Logging  LoggingConfig  `yaml:"logging"`
	Queue    QueueConfig    `yaml:"queue"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Publish  PublishConfig  `yaml:"publish"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LoggingConfig holds slog setup. File is optional; when set, output is
// rotated with lumberjack and mirrored to stdout.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// QueueConfig holds ingestion ring settings.
type QueueConfig struct {
	Capacity int `yaml:"capacity"` // rounded up to a power of two
}

// BridgeConfig holds queue-to-store bridge settings.
type BridgeConfig struct {
	IdleWait time.Duration `yaml:"idle_wait"`
}

// FeedSource is one upstream order feed connection.
type FeedSource struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	Instruments []string `yaml:"instruments"`
}

// FeedsConfig holds WebSocket feed settings shared by all sources.
type FeedsConfig struct {
	Sources            []FeedSource  `yaml:"sources"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the Postgres connection for the order archive.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ArchiveConfig holds Postgres batch writer settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	BufferCeiling int           `yaml:"buffer_ceiling"`
}

// PublishConfig holds Kafka publisher settings.
type PublishConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	BatchSize     int           `yaml:"batch_size"`
	BufferSize    int           `yaml:"buffer_size"`
	BufferCeiling int           `yaml:"buffer_ceiling"`
}

// SnapshotConfig holds periodic store snapshot settings.
type SnapshotConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// HTTPConfig holds the health/debug server settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}
