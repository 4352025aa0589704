package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Feed owns the single multiplexed price stream and its reconnect policy.
//
// One supervisor goroutine dials, pumps frames and schedules the next
// attempt, so at most one reconnect is ever pending.
type Feed struct {
	cfg    FeedConfig
	url    string
	logger *slog.Logger

	out  chan RawMessage
	kick chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.RWMutex
	state           State
	running         bool
	lastConnectedAt time.Time

	connects          atomic.Int64
	disconnects       atomic.Int64
	reconnectAttempts atomic.Int64
	messages          atomic.Int64
	dropped           atomic.Int64
}

// NewFeed creates a feed for the configured streams.
func NewFeed(cfg FeedConfig, logger *slog.Logger) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Streams) == 0 {
		return nil, ErrNoStreams
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = DefaultFeedConfig().MessageBufferSize
	}
	if cfg.Backoff.BaseDelay <= 0 {
		cfg.Backoff = DefaultBackoff()
	}

	u, err := StreamURL(cfg.WSURL, cfg.Streams)
	if err != nil {
		return nil, err
	}

	return &Feed{
		cfg:    cfg,
		url:    u,
		logger: logger.With("component", "feed"),
		out:    make(chan RawMessage, cfg.MessageBufferSize),
		kick:   make(chan struct{}, 1),
		state:  StateConnecting,
	}, nil
}

// StreamURL builds the combined stream URL, e.g.
// wss://host/stream?streams=btcusdt@trade/ethusdt@trade.
func StreamURL(base string, streams []string) (string, error) {
	if len(streams) == 0 {
		return "", ErrNoStreams
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("parse ws url: unsupported scheme %q", u.Scheme)
	}
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// URL returns the combined stream URL the feed dials.
func (f *Feed) URL() string {
	return f.url
}

// Start begins connecting in the background. A failed first connect is
// handled like any other disconnect.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	// ctx, cancel and wg must be set before Stop can see running.
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	f.running = true
	f.mu.Unlock()

	go f.run()

	f.logger.Info("feed started", "streams", len(f.cfg.Streams))
	return nil
}

// Stop closes the connection and stops reconnecting.
func (f *Feed) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.mu.Unlock()

	f.logger.Info("stopping feed")
	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(f.out)
	case <-ctx.Done():
		f.logger.Warn("shutdown timeout, forcing close")
	}

	f.setState(StateStopped)
	f.logger.Info("feed stopped")
	return nil
}

// Reconnect drops the current connection, resets the attempt counter and
// dials again immediately. It is the only way out of StateGaveUp.
func (f *Feed) Reconnect() error {
	f.mu.RLock()
	running := f.running
	f.mu.RUnlock()
	if !running {
		return ErrStopped
	}

	select {
	case f.kick <- struct{}{}:
	default:
		// A reconnect is already pending
	}
	return nil
}

// Messages returns the output channel for the message router.
// It is closed by Stop.
func (f *Feed) Messages() <-chan RawMessage {
	return f.out
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Stats returns current statistics.
func (f *Feed) Stats() FeedStats {
	f.mu.RLock()
	state, last := f.state, f.lastConnectedAt
	f.mu.RUnlock()

	return FeedStats{
		State:             state,
		Connects:          f.connects.Load(),
		Disconnects:       f.disconnects.Load(),
		ReconnectAttempts: f.reconnectAttempts.Load(),
		Messages:          f.messages.Load(),
		Dropped:           f.dropped.Load(),
		LastConnectedAt:   last,
	}
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	prev := f.state
	f.state = s
	if s == StateLive {
		f.lastConnectedAt = time.Now()
	}
	f.mu.Unlock()

	if prev != s {
		f.logger.Debug("feed state changed", "from", prev, "to", s)
	}
}

// run is the supervisor loop: dial, pump, back off, repeat.
func (f *Feed) run() {
	defer f.wg.Done()

	attempt := 0
	for {
		if f.ctx.Err() != nil {
			return
		}

		f.setState(StateConnecting)
		c := NewClient(ClientConfig{
			URL:         f.url,
			PingTimeout: f.cfg.PingTimeout,
			BufferSize:  f.cfg.MessageBufferSize,
		}, f.logger)

		if err := c.Connect(f.ctx); err != nil {
			if f.ctx.Err() != nil {
				return
			}
			f.logger.Warn("feed connect failed", "attempt", attempt, "error", err)
			f.setState(StateDown)
		} else {
			attempt = 0
			f.connects.Add(1)
			f.setState(StateLive)
			f.logger.Info("feed connected")

			manual := f.pump(c)
			c.Close()
			if f.ctx.Err() != nil {
				return
			}
			f.disconnects.Add(1)
			if manual {
				f.logger.Info("manual reconnect requested")
				continue
			}
			f.setState(StateDown)
		}

		attempt++
		wait, ok := f.cfg.Backoff.Next(attempt)
		if !ok {
			f.setState(StateGaveUp)
			f.logger.Error("feed gave up reconnecting", "attempts", attempt-1)
			select {
			case <-f.ctx.Done():
				return
			case <-f.kick:
				attempt = 0
				f.logger.Info("manual reconnect requested")
				continue
			}
		}

		f.reconnectAttempts.Add(1)
		f.logger.Info("scheduling reconnect", "attempt", attempt, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-f.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-f.kick:
			timer.Stop()
			attempt = 0
			f.logger.Info("manual reconnect requested")
		}
	}
}

// pump forwards frames until the connection fails, the feed stops or a
// manual reconnect is requested. It reports whether the reconnect was manual.
func (f *Feed) pump(c Client) bool {
	for {
		select {
		case <-f.ctx.Done():
			return false

		case <-f.kick:
			return true

		case err := <-c.Errors():
			f.logger.Warn("feed connection error", "error", err)
			return false

		case msg := <-c.Messages():
			f.messages.Add(1)
			select {
			case f.out <- msg:
			default:
				f.dropped.Add(1)
			}
		}
	}
}
