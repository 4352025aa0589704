package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEnv                  = "local"
	DefaultLogLevel             = "info"
	DefaultServerPort           = 8080
	DefaultReadTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 15 * time.Second
	DefaultWSURL                = "wss://stream.binance.com:9443/stream"
	DefaultFlushInterval        = 2 * time.Second
	DefaultWatchdogInterval     = 5 * time.Second
	DefaultFallbackJitterPct    = 1.0
	DefaultReconnectBaseDelay   = 5 * time.Second
	DefaultReconnectMaxDelay    = 60 * time.Second
	DefaultReconnectMaxAttempts = 10
	DefaultPingTimeout          = 60 * time.Second
	DefaultSubscriberBuffer     = 256
	DefaultBalancePath          = "/balance"
	DefaultPnLPath              = "/pnl"
	DefaultFeesPath             = "/fees"
	DefaultPositionsPath        = "/positions"
	DefaultAccountTimeout       = 15 * time.Second
	DefaultAccountRetryAfter    = 5 * time.Minute
	DefaultBlogInterval         = 10 * time.Minute
	DefaultBlogTimeout          = 10 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultWriterBatchSize      = 500
	DefaultWriterFlushInterval  = 5 * time.Second
)

// DefaultAllowedOrigins are the site origins allowed by CORS when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

func (c *Config) applyDefaults() {
	if c.Instance.Env == "" {
		c.Instance.Env = DefaultEnv
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	// Feed defaults
	if c.Feed.WSURL == "" {
		c.Feed.WSURL = DefaultWSURL
	}
	if c.Feed.FlushInterval == 0 {
		c.Feed.FlushInterval = DefaultFlushInterval
	}
	if c.Feed.WatchdogInterval == 0 {
		c.Feed.WatchdogInterval = DefaultWatchdogInterval
	}
	if c.Feed.FallbackJitterPct == 0 {
		c.Feed.FallbackJitterPct = DefaultFallbackJitterPct
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	// Negative ReconnectMaxAttempts means unlimited and is kept as is.
	if c.Feed.ReconnectMaxAttempts == 0 {
		c.Feed.ReconnectMaxAttempts = DefaultReconnectMaxAttempts
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.SubscriberBuffer == 0 {
		c.Feed.SubscriberBuffer = DefaultSubscriberBuffer
	}

	// Account defaults
	if c.Account.BalancePath == "" {
		c.Account.BalancePath = DefaultBalancePath
	}
	if c.Account.PnLPath == "" {
		c.Account.PnLPath = DefaultPnLPath
	}
	if c.Account.FeesPath == "" {
		c.Account.FeesPath = DefaultFeesPath
	}
	if c.Account.PositionsPath == "" {
		c.Account.PositionsPath = DefaultPositionsPath
	}
	if c.Account.Timeout == 0 {
		c.Account.Timeout = DefaultAccountTimeout
	}
	if c.Account.RetryAfter == 0 {
		c.Account.RetryAfter = DefaultAccountRetryAfter
	}

	// Blog defaults
	if c.Blog.Interval == 0 {
		c.Blog.Interval = DefaultBlogInterval
	}
	if c.Blog.Timeout == 0 {
		c.Blog.Timeout = DefaultBlogTimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultWriterBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultWriterFlushInterval
	}
}
