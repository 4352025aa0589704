package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-pricesync
  env: prod
server:
  port: 9000
feed:
  ws_url: wss://stream.example.com/stream
  symbols: [BTCUSDT, ETHUSDT]
  flush_interval: 1s
account:
  base_url: https://api.example.com
  password: abc123
storage:
  redis:
    addr: localhost:6379
    db: 2
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-pricesync" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-pricesync")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Feed.WSURL != "wss://stream.example.com/stream" {
		t.Errorf("Feed.WSURL = %q, want %q", cfg.Feed.WSURL, "wss://stream.example.com/stream")
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[1] != "ETHUSDT" {
		t.Errorf("Feed.Symbols = %v, want [BTCUSDT ETHUSDT]", cfg.Feed.Symbols)
	}
	if cfg.Feed.FlushInterval != time.Second {
		t.Errorf("Feed.FlushInterval = %v, want %v", cfg.Feed.FlushInterval, time.Second)
	}
	if cfg.Storage.Redis.Addr != "localhost:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("Storage.Redis = %+v, want addr localhost:6379 db 2", cfg.Storage.Redis)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DASHBOARD_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-pricesync
account:
  base_url: https://api.example.com
  password: ${TEST_DASHBOARD_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Account.Password != "secret123" {
		t.Errorf("Account.Password = %q, want %q", cfg.Account.Password, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load() error = %q, want read config file prefix", err.Error())
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-pricesync
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Instance.Env != DefaultEnv {
		t.Errorf("Instance.Env = %q, want default %q", cfg.Instance.Env, DefaultEnv)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Feed.WSURL != DefaultWSURL {
		t.Errorf("Feed.WSURL = %q, want default %q", cfg.Feed.WSURL, DefaultWSURL)
	}
	if cfg.Feed.FlushInterval != DefaultFlushInterval {
		t.Errorf("Feed.FlushInterval = %v, want default %v", cfg.Feed.FlushInterval, DefaultFlushInterval)
	}
	if cfg.Feed.WatchdogInterval != DefaultWatchdogInterval {
		t.Errorf("Feed.WatchdogInterval = %v, want default %v", cfg.Feed.WatchdogInterval, DefaultWatchdogInterval)
	}
	if cfg.Feed.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Feed.ReconnectBaseDelay = %v, want default %v", cfg.Feed.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Feed.ReconnectMaxAttempts != DefaultReconnectMaxAttempts {
		t.Errorf("Feed.ReconnectMaxAttempts = %d, want default %d", cfg.Feed.ReconnectMaxAttempts, DefaultReconnectMaxAttempts)
	}
	if cfg.Account.RetryAfter != DefaultAccountRetryAfter {
		t.Errorf("Account.RetryAfter = %v, want default %v", cfg.Account.RetryAfter, DefaultAccountRetryAfter)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if len(cfg.Server.AllowedOrigins) != len(DefaultAllowedOrigins) {
		t.Errorf("Server.AllowedOrigins = %v, want default %v", cfg.Server.AllowedOrigins, DefaultAllowedOrigins)
	}
}

func TestLoadWithDefaultsKeepsUnlimitedAttempts(t *testing.T) {
	yaml := `
instance:
  id: test-pricesync
feed:
  reconnect_max_attempts: -1
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Feed.ReconnectMaxAttempts != -1 {
		t.Errorf("Feed.ReconnectMaxAttempts = %d, want -1", cfg.Feed.ReconnectMaxAttempts)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "log:\n  level: info\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("LoadAndValidate() expected error for missing instance id")
	}
	if err.Error() != "validate config: instance.id is required" {
		t.Errorf("LoadAndValidate() error = %q", err.Error())
	}
}

// validConfig returns a config with defaults applied that passes Validate.
func validConfig() Config {
	cfg := Config{Instance: InstanceConfig{ID: "test"}}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: `log.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "http feed url",
			mutate:  func(c *Config) { c.Feed.WSURL = "https://stream.example.com" },
			wantErr: `feed.ws_url must be a ws/wss URL, got "https://stream.example.com"`,
		},
		{
			name:    "negative jitter",
			mutate:  func(c *Config) { c.Feed.FallbackJitterPct = -1 },
			wantErr: "feed.fallback_jitter_pct must be between 0 and 10, got -1",
		},
		{
			name: "max delay below base delay",
			mutate: func(c *Config) {
				c.Feed.ReconnectBaseDelay = 10 * time.Second
				c.Feed.ReconnectMaxDelay = 5 * time.Second
			},
			wantErr: "feed.reconnect_max_delay (5s) cannot be less than reconnect_base_delay (10s)",
		},
		{
			name:    "zero subscriber buffer",
			mutate:  func(c *Config) { c.Feed.SubscriberBuffer = -1 },
			wantErr: "feed.subscriber_buffer must be >= 1",
		},
		{
			name: "account without password",
			mutate: func(c *Config) {
				c.Account.BaseURL = "https://api.example.com"
				c.Account.Password = "   "
			},
			wantErr: "account.password is required when account.base_url is set",
		},
		{
			name:    "blog url with bad scheme",
			mutate:  func(c *Config) { c.Blog.URL = "ftp://blog.example.com/feed" },
			wantErr: `blog.url must be a http/https URL, got "ftp://blog.example.com/feed"`,
		},
		{
			name: "database missing password",
			mutate: func(c *Config) {
				c.Database = DBConfig{Enabled: true, Host: "localhost", Name: "db", User: "user", MaxConns: 4}
			},
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database = DBConfig{Enabled: true, Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name: "database disabled skips db checks",
			mutate: func(c *Config) {
				c.Database = DBConfig{}
			},
			wantErr: "",
		},
		{
			name: "valid full config",
			mutate: func(c *Config) {
				c.Account.BaseURL = "https://api.example.com"
				c.Account.Password = "abc123"
				c.Blog.URL = "https://blog.example.com/feed"
				c.Database = DBConfig{Enabled: true, Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
