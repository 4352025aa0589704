package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := c.Feed.validate(); err != nil {
		return err
	}

	if c.Account.BaseURL != "" {
		if err := validateURL("account.base_url", c.Account.BaseURL, "http", "https"); err != nil {
			return err
		}
		if strings.TrimSpace(c.Account.Password) == "" {
			return errors.New("account.password is required when account.base_url is set")
		}
	}

	if c.Blog.URL != "" {
		if err := validateURL("blog.url", c.Blog.URL, "http", "https"); err != nil {
			return err
		}
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Writer.BatchSize < 1 {
			return errors.New("writer.batch_size must be >= 1")
		}
	}

	return nil
}

func (f *FeedConfig) validate() error {
	if err := validateURL("feed.ws_url", f.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if f.FlushInterval <= 0 {
		return errors.New("feed.flush_interval must be > 0")
	}
	if f.WatchdogInterval <= 0 {
		return errors.New("feed.watchdog_interval must be > 0")
	}
	if f.FallbackJitterPct < 0 || f.FallbackJitterPct > 10 {
		return fmt.Errorf("feed.fallback_jitter_pct must be between 0 and 10, got %v", f.FallbackJitterPct)
	}
	if f.ReconnectBaseDelay <= 0 {
		return errors.New("feed.reconnect_base_delay must be > 0")
	}
	if f.ReconnectMaxDelay < f.ReconnectBaseDelay {
		return fmt.Errorf("feed.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)", f.ReconnectMaxDelay, f.ReconnectBaseDelay)
	}
	if f.SubscriberBuffer < 1 {
		return errors.New("feed.subscriber_buffer must be >= 1")
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

func validateURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}
