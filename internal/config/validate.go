package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Queue.Capacity < 1 {
		return errors.New("queue.capacity must be >= 1")
	}
	if c.Bridge.IdleWait < 0 {
		return errors.New("bridge.idle_wait must be >= 0")
	}

	for i, src := range c.Feeds.Sources {
		if src.Name == "" {
			return fmt.Errorf("feeds.sources[%d].name is required", i)
		}
		if src.URL == "" {
			return fmt.Errorf("feeds.sources[%d].url is required", i)
		}
	}
	if c.Feeds.ReconnectBaseDelay > c.Feeds.ReconnectMaxDelay {
		return fmt.Errorf("feeds.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Feeds.ReconnectBaseDelay, c.Feeds.ReconnectMaxDelay)
	}
	if c.Feeds.BufferSize < 1 {
		return errors.New("feeds.buffer_size must be >= 1")
	}

	if c.Archive.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
	}

	if c.Publish.Enabled {
		if len(c.Publish.Brokers) == 0 {
			return errors.New("publish.brokers is required when publish is enabled")
		}
		if c.Publish.Topic == "" {
			return errors.New("publish.topic is required when publish is enabled")
		}
		if c.Publish.BufferSize < 1 {
			return errors.New("publish.buffer_size must be >= 1")
		}
	}

	if c.Snapshot.Enabled {
		if c.Snapshot.Path == "" {
			return errors.New("snapshot.path is required when snapshot is enabled")
		}
		if c.Snapshot.Interval <= 0 {
			return errors.New("snapshot.interval must be > 0")
		}
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
