package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the root configuration for a pricesync instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Feed     FeedConfig     `yaml:"feed"`
	Account  AccountConfig  `yaml:"account"`
	Blog     BlogConfig     `yaml:"blog"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DBConfig       `yaml:"database"`
	Writer   WriterConfig   `yaml:"writer"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID  string `yaml:"id"`
	Env string `yaml:"env"` // "local", "prod"
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SlogLevel maps Level to a slog level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// FeedConfig holds the live price feed and price store settings.
type FeedConfig struct {
	WSURL                string        `yaml:"ws_url"`
	Symbols              []string      `yaml:"symbols"` // Empty = built-in set
	FlushInterval        time.Duration `yaml:"flush_interval"`
	WatchdogInterval     time.Duration `yaml:"watchdog_interval"`
	FallbackJitterPct    float64       `yaml:"fallback_jitter_pct"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"` // -1 = unlimited
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	SubscriberBuffer     int           `yaml:"subscriber_buffer"`
}

// AccountConfig holds the upstream account endpoints used by the dashboard.
type AccountConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"` // Optional bearer token for the upstream
	BalancePath   string        `yaml:"balance_path"`
	PnLPath       string        `yaml:"pnl_path"`
	FeesPath      string        `yaml:"fees_path"`
	PositionsPath string        `yaml:"positions_path"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAfter    time.Duration `yaml:"retry_after"`
	Password      string        `yaml:"password"` // Usually ${DASHBOARD_PASSWORD}
}

// BlogConfig holds the blog feed relay settings.
type BlogConfig struct {
	URL      string        `yaml:"url"` // Empty disables the relay
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StorageConfig holds the key/value store settings.
type StorageConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds a Redis connection. Empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig holds the quote history database connection.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds quote history batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}
