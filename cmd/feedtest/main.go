// feedtest connects to the live price feed and prints every flushed batch
// of quotes to the console.
// Usage: go run ./cmd/feedtest --config configs/pricesync.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/donia1222/remix-crypto-sub000/internal/config"
	"github.com/donia1222/remix-crypto-sub000/internal/connection"
	"github.com/donia1222/remix-crypto-sub000/internal/market"
	"github.com/donia1222/remix-crypto-sub000/internal/pricestore"
	"github.com/donia1222/remix-crypto-sub000/internal/router"
)

func main() {
	configPath := flag.String("config", "configs/pricesync.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full quote JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	registry, err := market.NewDefaultRegistry(cfg.Feed.Symbols)
	if err != nil {
		logger.Error("failed to build symbol registry", "error", err)
		os.Exit(1)
	}

	feedCfg := connection.DefaultFeedConfig()
	feedCfg.WSURL = cfg.Feed.WSURL
	feedCfg.Streams = registry.StreamNames()
	feed, err := connection.NewFeed(feedCfg, logger)
	if err != nil {
		logger.Error("failed to create feed", "error", err)
		os.Exit(1)
	}

	storeCfg := pricestore.DefaultConfig()
	storeCfg.FlushInterval = cfg.Feed.FlushInterval
	storeCfg.WatchdogInterval = cfg.Feed.WatchdogInterval
	store := pricestore.New(storeCfg, registry, logger)
	sub := store.Subscribe()

	rtr := router.NewRouter(feed.Messages(), registry, store, logger)

	logger.Info("starting price store")
	if err := store.Start(ctx); err != nil {
		logger.Error("failed to start price store", "error", err)
		os.Exit(1)
	}

	logger.Info("starting router")
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	logger.Info("starting feed", "url", feed.URL())
	if err := feed.Start(ctx); err != nil {
		logger.Error("failed to start feed", "error", err)
		os.Exit(1)
	}

	go printQuotes(ctx, store, sub, *verbose)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				feedStats := feed.Stats()
				routerStats := rtr.Stats()
				storeStats := store.Stats()
				logger.Info("stats",
					"state", feedStats.State,
					"feed_messages", feedStats.Messages,
					"feed_dropped", feedStats.Dropped,
					"router_routed", routerStats.MessagesRouted,
					"parse_errors", routerStats.ParseErrors,
					"untracked", routerStats.Untracked,
					"real_writes", storeStats.RealWrites,
					"synthetic_writes", storeStats.SyntheticWrites,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	feed.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)
	store.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printQuotes(ctx context.Context, store *pricestore.Store, sub *pricestore.Subscription, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			batch, ok := sub.TryReceive()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			for _, v := range store.Display(batch) {
				if verbose {
					data, _ := json.MarshalIndent(v, "", "  ")
					fmt.Printf("[QUOTE] %s\n", data)
					continue
				}
				tag := ""
				if v.Synthetic {
					tag = " (synthetic)"
				}
				fmt.Printf("[QUOTE] %-10s %14s %8s %s%s\n",
					v.Symbol, v.PriceText, v.ChangePercent, v.Direction, tag)
			}
		}
	}
}
