package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher produces one fresh value per poll.
type Fetcher[T any] interface {
	Fetch(ctx context.Context) (T, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc[T any] func(ctx context.Context) (T, error)

func (f FetcherFunc[T]) Fetch(ctx context.Context) (T, error) {
	return f(ctx)
}

// Handler receives successfully fetched values.
type Handler[T any] interface {
	Handle(v T) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[T any] func(T) error

func (f HandlerFunc[T]) Handle(v T) error {
	return f(v)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 10m)
	Timeout  time.Duration // Per-fetch timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Stats holds poller counters.
type Stats struct {
	Polls       int64     `json:"polls"`
	Failures    int64     `json:"failures"`
	LastSuccess time.Time `json:"last_success,omitempty"`
}

// Poller periodically fetches a value and hands it to a handler. A failed
// fetch leaves whatever the handler last received in place.
type Poller[T any] struct {
	name    string
	cfg     Config
	fetcher Fetcher[T]
	handler Handler[T]
	logger  *slog.Logger

	polls       atomic.Int64
	failures    atomic.Int64
	lastSuccess atomic.Int64 // UnixNano

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New[T any](name string, cfg Config, fetcher Fetcher[T], handler Handler[T], logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller[T]{
		name:    name,
		cfg:     cfg,
		fetcher: fetcher,
		handler: handler,
		logger:  logger.With("component", "poller", "poller", name),
	}
}

// Start begins the polling loop.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller[T]) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the poller counters.
func (p *Poller[T]) Stats() Stats {
	s := Stats{
		Polls:    p.polls.Load(),
		Failures: p.failures.Load(),
	}
	if ns := p.lastSuccess.Load(); ns > 0 {
		s.LastSuccess = time.Unix(0, ns)
	}
	return s
}

// run is the main polling loop.
func (p *Poller[T]) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll runs one fetch and hands the result to the handler.
func (p *Poller[T]) poll() {
	start := time.Now()
	p.polls.Add(1)

	if err := p.pollOnce(); err != nil {
		p.failures.Add(1)
		if p.ctx.Err() != nil {
			return
		}
		p.logger.Warn("poll failed, keeping previous data",
			"err", err,
			"duration", time.Since(start),
		)
		return
	}

	p.lastSuccess.Store(time.Now().UnixNano())
	p.logger.Debug("poll complete", "duration", time.Since(start))
}

func (p *Poller[T]) pollOnce() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	v, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	if p.handler != nil {
		if err := p.handler.Handle(v); err != nil {
			return err
		}
	}

	return nil
}
