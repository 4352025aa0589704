package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/connection"
)

// Router decodes raw feed frames and hands valid ticks to the price store.
type Router interface {
	// Start begins routing messages from the input channel to the sink.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	logger  *slog.Logger
	input   <-chan connection.RawMessage
	symbols SymbolSet
	sink    TickSink

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	received        atomic.Int64
	routed          atomic.Int64
	parseErrors     atomic.Int64
	unknownMessages atomic.Int64
	untracked       atomic.Int64
}

// NewRouter creates a new message router. A nil symbols set accepts every symbol.
func NewRouter(input <-chan connection.RawMessage, symbols SymbolSet, sink TickSink, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		logger:  logger.With("component", "router"),
		input:   input,
		symbols: symbols,
		sink:    sink,
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started")
	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	return nil
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	return RouterStats{
		MessagesReceived: r.received.Load(),
		MessagesRouted:   r.routed.Load(),
		ParseErrors:      r.parseErrors.Load(),
		UnknownMessages:  r.unknownMessages.Load(),
		Untracked:        r.untracked.Load(),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route decodes and routes a single frame.
func (r *router) route(raw connection.RawMessage) {
	r.received.Add(1)

	tick, err := DecodeTick(raw)
	switch {
	case errors.Is(err, ErrNotTrade):
		r.unknownMessages.Add(1)
		r.logger.Debug("skipping message", "error", err)
		return
	case err != nil:
		r.parseErrors.Add(1)
		r.logger.Debug("failed to decode tick", "error", err)
		return
	}

	r.sink.MarkReceived()

	if r.symbols != nil && !r.symbols.Contains(tick.Symbol) {
		r.untracked.Add(1)
		r.logger.Debug("skipping untracked symbol", "symbol", tick.Symbol)
		return
	}

	r.sink.Write(tick.Symbol, tick.Price, tick.TradeTime)
	r.routed.Add(1)
}

// DecodeTick parses a combined-stream trade frame and validates it.
// Frames without a data object or with a non-trade event return ErrNotTrade;
// malformed ones return an error wrapping ErrInvalidTick.
func DecodeTick(raw connection.RawMessage) (Tick, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return Tick{}, fmt.Errorf("%w: %v", ErrInvalidTick, err)
	}

	w := env.Data
	if w.Event != "" && w.Event != "trade" {
		return Tick{}, fmt.Errorf("%w: %q", ErrNotTrade, w.Event)
	}
	if w.Symbol == "" && w.Price == "" {
		return Tick{}, ErrNotTrade
	}

	symbol := strings.ToUpper(strings.TrimSpace(w.Symbol))
	if symbol == "" {
		return Tick{}, fmt.Errorf("%w: missing symbol", ErrInvalidTick)
	}

	price, err := decimal.NewFromString(w.Price)
	if err != nil {
		return Tick{}, fmt.Errorf("%w: price %q for %s", ErrInvalidTick, w.Price, symbol)
	}
	if !price.IsPositive() {
		return Tick{}, fmt.Errorf("%w: non-positive price %s for %s", ErrInvalidTick, price, symbol)
	}

	at := raw.ReceivedAt
	if w.TradeTime > 0 {
		at = time.UnixMilli(w.TradeTime)
	}

	return Tick{
		Symbol:     symbol,
		Price:      price,
		TradeTime:  at,
		ReceivedAt: raw.ReceivedAt,
	}, nil
}
