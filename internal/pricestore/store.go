package pricestore

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/market"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// Store is the shared update buffer and displayed quote table.
type Store struct {
	cfg      Config
	registry *market.Registry
	logger   *slog.Logger
	rand     Rand
	clock    Clock

	// Quote state, guarded by mu. Real and synthetic writes share it.
	mu              sync.Mutex
	quotes          map[string]model.PriceQuote
	pending         map[string]pending
	hasReceivedData bool

	subsMu  sync.Mutex
	subs    map[*Subscription]struct{}
	stopped bool // Set by Stop; later subscriptions start closed

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	realWrites      atomic.Int64
	syntheticWrites atomic.Int64
	flushes         atomic.Int64
	published       atomic.Int64
}

// New creates a store for the registry's symbols, seeded with their
// reference prices.
func New(cfg Config, registry *market.Registry, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = def.WatchdogInterval
	}
	if cfg.JitterPct < 0 {
		cfg.JitterPct = def.JitterPct
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}

	s := &Store{
		cfg:      cfg,
		registry: registry,
		logger:   logger.With("component", "pricestore"),
		rand:     realRand{rand.New(rand.NewSource(time.Now().UnixNano()))},
		clock:    realClock{},
		quotes:   make(map[string]model.PriceQuote, registry.Len()),
		pending:  make(map[string]pending, registry.Len()),
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, sym := range registry.Symbols() {
		s.quotes[sym.Symbol] = model.PriceQuote{
			Symbol:    sym.Symbol,
			Price:     sym.ReferencePrice,
			LastPrice: sym.ReferencePrice,
			Direction: model.DirectionNeutral,
		}
	}

	return s
}

// Write buffers a real price for symbol, replacing any unflushed value.
// Untracked symbols are ignored.
func (s *Store) Write(symbol string, price decimal.Decimal, at time.Time) {
	if !s.registry.Contains(symbol) {
		return
	}

	s.mu.Lock()
	s.pending[symbol] = pending{price: price, at: at}
	s.hasReceivedData = true
	s.mu.Unlock()

	s.realWrites.Add(1)
}

// MarkReceived records that the feed delivered a valid trade, even for a
// symbol that is not tracked. The watchdog stops for good afterwards.
func (s *Store) MarkReceived() {
	s.mu.Lock()
	s.hasReceivedData = true
	s.mu.Unlock()
}

// Flush applies every non-zero pending price to the displayed table and
// publishes the changed quotes to subscribers. Symbols without a pending
// price keep their previous quote and direction.
func (s *Store) Flush() []model.PriceQuote {
	s.mu.Lock()
	var changed []model.PriceQuote
	for _, sym := range s.registry.Tickers() {
		p, ok := s.pending[sym]
		if !ok {
			continue
		}
		delete(s.pending, sym)
		if p.price.IsZero() {
			continue
		}

		q := s.quotes[sym]
		q.Direction = model.CompareDirection(p.price, q.Price)
		q.LastPrice = q.Price
		q.Price = p.price
		q.Synthetic = p.synthetic
		q.UpdatedAt = p.at
		s.quotes[sym] = q

		changed = append(changed, q)
	}
	s.mu.Unlock()

	s.flushes.Add(1)
	if len(changed) > 0 {
		s.published.Add(int64(len(changed)))
		s.publish(changed)
	}
	return changed
}

// RunWatchdog buffers a synthetic move for every symbol that has a
// displayed price and no pending value. It does nothing once a real tick
// has been received. Returns the number of synthetic prices written.
func (s *Store) RunWatchdog() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasReceivedData {
		return 0
	}

	now := s.clock.Now()
	n := 0
	for _, sym := range s.registry.Tickers() {
		if _, ok := s.pending[sym]; ok {
			continue
		}
		base := s.quotes[sym].Price
		if !base.IsPositive() {
			continue
		}

		price := s.jitter(base)
		if !price.IsPositive() {
			continue
		}
		s.pending[sym] = pending{price: price, at: now, synthetic: true}
		n++
	}

	if n > 0 {
		s.syntheticWrites.Add(int64(n))
		s.logger.Debug("watchdog wrote synthetic prices", "count", n)
	}
	return n
}

// jitter returns base moved by a uniform random amount within ±JitterPct%.
func (s *Store) jitter(base decimal.Decimal) decimal.Decimal {
	u := (s.rand.Float64()*2 - 1) * s.cfg.JitterPct / 100
	factor := decimal.NewFromFloat(1 + u)
	places := base.Exponent()
	if places > -2 {
		places = -2
	}
	return base.Mul(factor).Round(-places)
}

// HasReceivedData reports whether any real tick has been written.
func (s *Store) HasReceivedData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasReceivedData
}

// Quotes returns the displayed quotes in registry order.
func (s *Store) Quotes() []model.PriceQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PriceQuote, 0, len(s.quotes))
	for _, sym := range s.registry.Tickers() {
		out = append(out, s.quotes[sym])
	}
	return out
}

// Quote returns the displayed quote for symbol.
func (s *Store) Quote(symbol string) (model.PriceQuote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	return q, ok
}

// Views returns the displayed quotes with display metadata.
func (s *Store) Views() []model.QuoteView {
	return s.Display(s.Quotes())
}

// Display attaches registry metadata to quotes.
func (s *Store) Display(quotes []model.PriceQuote) []model.QuoteView {
	out := make([]model.QuoteView, 0, len(quotes))
	for _, q := range quotes {
		meta, _ := s.registry.Lookup(q.Symbol)
		out = append(out, q.Display(meta))
	}
	return out
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	s.subsMu.Lock()
	subs := len(s.subs)
	var dropped int64
	for sub := range s.subs {
		dropped += sub.queue.Stats().Dropped
	}
	s.subsMu.Unlock()

	return Stats{
		HasReceivedData: s.HasReceivedData(),
		RealWrites:      s.realWrites.Load(),
		SyntheticWrites: s.syntheticWrites.Load(),
		Flushes:         s.flushes.Load(),
		QuotesPublished: s.published.Load(),
		Subscribers:     subs,
		DroppedBatches:  dropped,
	}
}

// Start runs the flush and watchdog loops until Stop or ctx is done.
func (s *Store) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.flushLoop()
	go s.watchdogLoop()

	s.logger.Info("price store started",
		"symbols", s.registry.Len(),
		"flush_interval", s.cfg.FlushInterval,
		"watchdog_interval", s.cfg.WatchdogInterval,
	)
	return nil
}

// Stop halts the loops and closes every subscription.
func (s *Store) Stop(ctx context.Context) error {
	s.logger.Info("stopping price store")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("price store stop timed out")
	}

	s.subsMu.Lock()
	s.stopped = true
	for sub := range s.subs {
		sub.queue.Close()
		delete(s.subs, sub)
	}
	s.subsMu.Unlock()

	s.logger.Info("price store stopped")
	return nil
}

func (s *Store) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// watchdogLoop exits for good once real data has arrived.
func (s *Store) watchdogLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.HasReceivedData() {
				s.logger.Debug("real data received, watchdog exiting")
				return
			}
			s.RunWatchdog()
		}
	}
}
