package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/donia1222/remix-crypto-sub000/internal/account"
	"github.com/donia1222/remix-crypto-sub000/internal/auth"
	"github.com/donia1222/remix-crypto-sub000/internal/blog"
	"github.com/donia1222/remix-crypto-sub000/internal/config"
	"github.com/donia1222/remix-crypto-sub000/internal/connection"
	"github.com/donia1222/remix-crypto-sub000/internal/dashboard"
	"github.com/donia1222/remix-crypto-sub000/internal/database"
	"github.com/donia1222/remix-crypto-sub000/internal/market"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/poller"
	"github.com/donia1222/remix-crypto-sub000/internal/pricestore"
	"github.com/donia1222/remix-crypto-sub000/internal/router"
	"github.com/donia1222/remix-crypto-sub000/internal/server"
	"github.com/donia1222/remix-crypto-sub000/internal/storage"
	"github.com/donia1222/remix-crypto-sub000/internal/version"
	"github.com/donia1222/remix-crypto-sub000/internal/writer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/pricesync.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration before the logger so the level applies from the start
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting pricesync",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"env", cfg.Instance.Env,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Components are stopped in reverse start order
	var stops []func(context.Context) error
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		for i := len(stops) - 1; i >= 0; i-- {
			if err := stops[i](shutdownCtx); err != nil {
				logger.Warn("shutdown error", "error", err)
			}
		}
		logger.Info("pricesync stopped")
	}()

	// Tracked symbols
	registry, err := market.NewDefaultRegistry(cfg.Feed.Symbols)
	if err != nil {
		logger.Error("failed to build symbol registry", "error", err)
		return 1
	}
	logger.Info("tracking symbols", "count", registry.Len(), "tickers", registry.Tickers())

	// Key/value storage for auth flags, consent and the account snapshot
	var kv storage.Store
	if cfg.Storage.Redis.Addr != "" {
		rs, err := storage.DialRedis(ctx, storage.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return 1
		}
		kv = rs
		logger.Info("redis connected", "addr", cfg.Storage.Redis.Addr)
	} else {
		kv = storage.NewMemoryStore()
		logger.Warn("no redis configured, using in-memory storage")
	}
	stops = append(stops, func(context.Context) error { return kv.Close() })

	// Price store
	quotes := pricestore.New(pricestore.Config{
		FlushInterval:    cfg.Feed.FlushInterval,
		WatchdogInterval: cfg.Feed.WatchdogInterval,
		JitterPct:        cfg.Feed.FallbackJitterPct,
		SubscriberBuffer: cfg.Feed.SubscriberBuffer,
	}, registry, logger)
	if err := quotes.Start(ctx); err != nil {
		logger.Error("failed to start price store", "error", err)
		return 1
	}
	stops = append(stops, quotes.Stop)

	// Quote history (optional)
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"target", database.Redacted(cfg.Database),
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return 1
		}
		stops = append(stops, func(context.Context) error { pool.Close(); return nil })

		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare schema", "error", err)
			return 1
		}

		qw := writer.NewQuoteWriter(writer.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
		}, quotes.Subscribe(), pool, logger)
		if err := qw.Start(ctx); err != nil {
			logger.Error("failed to start quote writer", "error", err)
			return 1
		}
		stops = append(stops, qw.Stop)
		logger.Info("quote history enabled")
	}

	// Live feed
	maxAttempts := cfg.Feed.ReconnectMaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	feed, err := connection.NewFeed(connection.FeedConfig{
		WSURL:   cfg.Feed.WSURL,
		Streams: registry.StreamNames(),
		Backoff: connection.Backoff{
			BaseDelay:   cfg.Feed.ReconnectBaseDelay,
			MaxDelay:    cfg.Feed.ReconnectMaxDelay,
			MaxAttempts: maxAttempts,
		},
		PingTimeout:       cfg.Feed.PingTimeout,
		MessageBufferSize: connection.DefaultFeedConfig().MessageBufferSize,
	}, logger)
	if err != nil {
		logger.Error("failed to create feed", "error", err)
		return 1
	}

	rt := router.NewRouter(feed.Messages(), registry, quotes, logger)
	if err := rt.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		return 1
	}
	stops = append(stops, rt.Stop)

	if err := feed.Start(ctx); err != nil {
		logger.Error("failed to start feed", "error", err)
		return 1
	}
	stops = append(stops, feed.Stop)
	logger.Info("feed started", "url", feed.URL())

	deps := server.Deps{
		Quotes:      quotes,
		Feed:        feed,
		RouterStats: rt.Stats,
		KV:          kv,
	}

	// Account dashboard (optional)
	if cfg.Account.BaseURL != "" && cfg.Account.Password != "" {
		gate, err := auth.NewGate(cfg.Account.Password, kv, auth.WithLogger(logger))
		if err != nil {
			logger.Error("failed to create password gate", "error", err)
			return 1
		}

		client := account.NewClient(cfg.Account.BaseURL, account.Paths{
			Balance:   cfg.Account.BalancePath,
			PnL:       cfg.Account.PnLPath,
			Fees:      cfg.Account.FeesPath,
			Positions: cfg.Account.PositionsPath,
		},
			account.WithAPIKey(cfg.Account.APIKey),
			account.WithTimeout(cfg.Account.Timeout),
			account.WithLogger(logger),
		)

		dcfg := dashboard.DefaultConfig()
		dcfg.RetryAfter = cfg.Account.RetryAfter
		dash := dashboard.New(dcfg, client, kv, logger)
		if err := dash.Load(ctx); err != nil {
			logger.Warn("failed to load cached account snapshot", "error", err)
		}
		stops = append(stops, func(context.Context) error { dash.Stop(); return nil })

		deps.Gate = gate
		deps.Dashboard = dash
		logger.Info("dashboard enabled", "base_url", cfg.Account.BaseURL)
	} else {
		logger.Info("dashboard disabled, account.base_url or account.password not set")
	}

	// Blog relay (optional)
	if cfg.Blog.URL != "" {
		cache := blog.NewCache()
		client := blog.NewClient(cfg.Blog.URL, blog.WithTimeout(cfg.Blog.Timeout), blog.WithLogger(logger))
		bp := poller.New[[]model.BlogPost]("blog", poller.Config{
			Interval: cfg.Blog.Interval,
			Timeout:  cfg.Blog.Timeout,
		}, poller.FetcherFunc[[]model.BlogPost](client.FetchPosts), cache, logger)
		if err := bp.Start(ctx); err != nil {
			logger.Error("failed to start blog poller", "error", err)
			return 1
		}
		stops = append(stops, bp.Stop)
		deps.Blog = cache
	}

	// HTTP API
	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		InstanceID:     cfg.Instance.ID,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, deps, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start http server", "error", err)
		return 1
	}
	stops = append(stops, srv.Stop)

	logger.Info("pricesync running",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return 0
}
