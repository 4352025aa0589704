// Package dashboard keeps the account snapshot shown on the dashboard.
//
// Refresh fetches balance, PnL, fees and positions in parallel. When all
// four succeed the snapshot is replaced and persisted. When any fails the
// previous snapshot stays visible, marked stale, and one retry is scheduled.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/donia1222/remix-crypto-sub000/internal/account"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/storage"
)

// Errors
var (
	ErrNoData = errors.New("no account data available")
)

// Fetcher reads the upstream account endpoints.
type Fetcher interface {
	GetBalance(ctx context.Context) (model.Balance, error)
	GetPnL(ctx context.Context) ([]model.IncomeEntry, error)
	GetFees(ctx context.Context) ([]model.IncomeEntry, error)
	GetPositions(ctx context.Context) ([]model.Position, error)
}

// Compile-time check
var _ Fetcher = (*account.Client)(nil)

// Config holds dashboard settings.
type Config struct {
	RetryAfter   time.Duration // Delay before the retry after a failed refresh (default: 5m)
	FetchTimeout time.Duration // Bound on one shared fetch (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryAfter:   5 * time.Minute,
		FetchTimeout: 30 * time.Second,
	}
}

// View is what the dashboard renders.
type View struct {
	Snapshot *model.CachedSnapshot `json:"snapshot"`
	Stale    bool                  `json:"stale"`
	Error    string                `json:"error,omitempty"`
	RetryAt  *time.Time            `json:"retry_at,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the cache-aside holder of the account snapshot.
type Service struct {
	cfg     Config
	fetcher Fetcher
	store   storage.Store
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	snapshot *model.CachedSnapshot
	stale    bool
	lastErr  string
	retry    *time.Timer
	retryAt  time.Time
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Service.
func New(cfg Config, fetcher Fetcher, store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = defaults.RetryAfter
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		logger:  logger.With("component", "dashboard"),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted snapshot into memory. A loaded snapshot is
// stale until the next successful refresh. A missing snapshot is not an error.
func (s *Service) Load(ctx context.Context) error {
	var snap model.CachedSnapshot
	err := storage.GetJSON(ctx, s.store, storage.AccountSnapshotKey, &snap)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	if s.snapshot == nil {
		s.snapshot = &snap
		s.stale = true
	}
	s.mu.Unlock()

	s.logger.Info("cached snapshot loaded",
		"id", snap.ID,
		"timestamp", snap.Timestamp,
	)
	return nil
}

// Refresh fetches all account data. Concurrent calls share one fetch.
// On failure the cached snapshot is returned stale with a nil error; only
// when there is no snapshot at all is ErrNoData returned.
//
// The shared fetch runs on the service context bounded by FetchTimeout, so
// a caller giving up does not fail the others. ctx only bounds the wait.
func (s *Service) Refresh(ctx context.Context) (View, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
		defer cancel()
		return nil, s.refresh(fctx)
	})

	var err error
	select {
	case res := <-ch:
		err = res.Err
	case <-ctx.Done():
		return s.View(), ctx.Err()
	}

	v := s.View()
	if err != nil && v.Snapshot == nil {
		return v, fmt.Errorf("%w: %s", ErrNoData, errorMessage(err))
	}
	return v, nil
}

// View returns the current dashboard state.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Stale: s.stale,
		Error: s.lastErr,
	}
	if s.snapshot != nil {
		cp := *s.snapshot
		v.Snapshot = &cp
	}
	if s.retry != nil {
		at := s.retryAt
		v.RetryAt = &at
	}
	return v
}

// Stop cancels a pending retry and any retry in flight.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Service) refresh(ctx context.Context) error {
	start := time.Now()

	var snap model.CachedSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.fetcher.GetBalance(gctx)
		snap.Balance = b
		return err
	})
	g.Go(func() error {
		entries, err := s.fetcher.GetPnL(gctx)
		snap.PnLEntries = entries
		return err
	})
	g.Go(func() error {
		entries, err := s.fetcher.GetFees(gctx)
		snap.FeeEntries = entries
		return err
	})
	g.Go(func() error {
		positions, err := s.fetcher.GetPositions(gctx)
		snap.Positions = positions
		return err
	})

	if err := g.Wait(); err != nil {
		s.fail(err)
		return err
	}

	snap.ID = uuid.New()
	snap.Timestamp = s.now().UTC()

	if err := storage.SetJSON(ctx, s.store, storage.AccountSnapshotKey, snap); err != nil {
		s.logger.Warn("failed to persist snapshot", "err", err)
	}

	s.mu.Lock()
	s.snapshot = &snap
	s.stale = false
	s.lastErr = ""
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()

	s.logger.Info("account data refreshed",
		"positions", len(snap.Positions),
		"pnl_entries", len(snap.PnLEntries),
		"fee_entries", len(snap.FeeEntries),
		"duration", time.Since(start),
	)
	return nil
}

// fail records err and schedules a retry unless one is already pending.
func (s *Service) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = errorMessage(err)
	s.stale = s.snapshot != nil

	if s.stopped || s.retry != nil {
		return
	}
	s.retryAt = s.now().Add(s.cfg.RetryAfter)
	s.retry = time.AfterFunc(s.cfg.RetryAfter, s.runRetry)

	s.logger.Warn("account refresh failed",
		"err", err,
		"cached", s.snapshot != nil,
		"retry_in", s.cfg.RetryAfter,
	)
}

func (s *Service) runRetry() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	s.mu.Unlock()

	if _, err := s.Refresh(s.ctx); err != nil {
		s.logger.Debug("scheduled refresh failed", "err", err)
	}
}

// errorMessage prefers the message the upstream put in its envelope.
func errorMessage(err error) string {
	var upErr *account.UpstreamError
	if errors.As(err, &upErr) && upErr.Msg != "" {
		return upErr.Msg
	}
	return err.Error()
}
