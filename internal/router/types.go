package router

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrInvalidTick = errors.New("invalid tick")
	ErrNotTrade    = errors.New("not a trade event")
)

// TickSink receives validated ticks. The price store implements it.
// MarkReceived is called for every valid trade frame, tracked or not.
type TickSink interface {
	Write(symbol string, price decimal.Decimal, at time.Time)
	MarkReceived()
}

// SymbolSet reports whether a symbol is tracked.
type SymbolSet interface {
	Contains(symbol string) bool
}

// Tick is a validated trade price for one symbol.
type Tick struct {
	Symbol     string
	Price      decimal.Decimal
	TradeTime  time.Time // Exchange trade time, or ReceivedAt when absent
	ReceivedAt time.Time
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64 `json:"messages_received"`
	MessagesRouted   int64 `json:"messages_routed"`
	ParseErrors      int64 `json:"parse_errors"`
	UnknownMessages  int64 `json:"unknown_messages"`
	Untracked        int64 `json:"untracked"`
}

// Wire types for JSON parsing

// streamEnvelope is the combined stream wrapper: {"stream": "...", "data": {...}}.
type streamEnvelope struct {
	Stream string    `json:"stream"`
	Data   tradeWire `json:"data"`
}

// tradeWire is the wire format for trade events.
type tradeWire struct {
	Event     string `json:"e"` // "trade"
	Symbol    string `json:"s"` // "BTCUSDT"
	Price     string `json:"p"` // "50000.10"
	TradeTime int64  `json:"T"` // Milliseconds
}
