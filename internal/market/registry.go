package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// Errors
var (
	ErrNoSymbols       = errors.New("no tracked symbols")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
)

// Registry is the immutable set of tracked symbols.
type Registry struct {
	symbols []model.TrackedSymbol
	index   map[string]int
}

// NewRegistry validates and indexes the given symbols. Order is preserved.
func NewRegistry(symbols []model.TrackedSymbol) (*Registry, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	r := &Registry{
		symbols: make([]model.TrackedSymbol, 0, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}

	for _, s := range symbols {
		sym := strings.TrimSpace(s.Symbol)
		if sym == "" {
			return nil, fmt.Errorf("symbol at position %d is empty", len(r.symbols))
		}
		if sym != strings.ToUpper(sym) {
			return nil, fmt.Errorf("symbol %q must be upper case", sym)
		}
		if _, ok := r.index[sym]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, sym)
		}
		s.Symbol = sym
		r.index[sym] = len(r.symbols)
		r.symbols = append(r.symbols, s)
	}

	return r, nil
}

// NewDefaultRegistry returns the built-in tracked set, optionally restricted
// to the given tickers (in the order given).
func NewDefaultRegistry(only []string) (*Registry, error) {
	if len(only) == 0 {
		return NewRegistry(DefaultSymbols())
	}

	defaults := make(map[string]model.TrackedSymbol)
	for _, s := range DefaultSymbols() {
		defaults[s.Symbol] = s
	}

	selected := make([]model.TrackedSymbol, 0, len(only))
	for _, sym := range only {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		s, ok := defaults[sym]
		if !ok {
			// Not in the built-in table: track it without display metadata.
			s = model.TrackedSymbol{Symbol: sym, Code: strings.TrimSuffix(sym, "USDT")}
		}
		selected = append(selected, s)
	}

	return NewRegistry(selected)
}

// Symbols returns a copy of the tracked set in registry order.
func (r *Registry) Symbols() []model.TrackedSymbol {
	out := make([]model.TrackedSymbol, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Tickers returns the exchange tickers in registry order.
func (r *Registry) Tickers() []string {
	out := make([]string, len(r.symbols))
	for i, s := range r.symbols {
		out[i] = s.Symbol
	}
	return out
}

// Lookup returns the metadata for a symbol.
func (r *Registry) Lookup(symbol string) (model.TrackedSymbol, bool) {
	i, ok := r.index[symbol]
	if !ok {
		return model.TrackedSymbol{}, false
	}
	return r.symbols[i], true
}

// Contains reports whether symbol is tracked.
func (r *Registry) Contains(symbol string) bool {
	_, ok := r.index[symbol]
	return ok
}

// Len returns the number of tracked symbols.
func (r *Registry) Len() int {
	return len(r.symbols)
}

// StreamNames returns the trade stream names for the combined stream URL,
// e.g. "btcusdt@trade".
func (r *Registry) StreamNames() []string {
	out := make([]string, len(r.symbols))
	for i, s := range r.symbols {
		out[i] = strings.ToLower(s.Symbol) + "@trade"
	}
	return out
}

// DefaultSymbols is the tracked set shown on the markets table.
func DefaultSymbols() []model.TrackedSymbol {
	return []model.TrackedSymbol{
		{Symbol: "BTCUSDT", Name: "Bitcoin", Code: "BTC", Volume: "$28.4B", MarketCap: "$1.32T", ReferencePrice: decimal.RequireFromString("67000")},
		{Symbol: "ETHUSDT", Name: "Ethereum", Code: "ETH", Volume: "$14.1B", MarketCap: "$420B", ReferencePrice: decimal.RequireFromString("3500")},
		{Symbol: "BNBUSDT", Name: "BNB", Code: "BNB", Volume: "$1.9B", MarketCap: "$89B", ReferencePrice: decimal.RequireFromString("590")},
		{Symbol: "SOLUSDT", Name: "Solana", Code: "SOL", Volume: "$3.2B", MarketCap: "$78B", ReferencePrice: decimal.RequireFromString("170")},
		{Symbol: "XRPUSDT", Name: "XRP", Code: "XRP", Volume: "$1.4B", MarketCap: "$29B", ReferencePrice: decimal.RequireFromString("0.52")},
		{Symbol: "ADAUSDT", Name: "Cardano", Code: "ADA", Volume: "$410M", MarketCap: "$16B", ReferencePrice: decimal.RequireFromString("0.45")},
		{Symbol: "DOGEUSDT", Name: "Dogecoin", Code: "DOGE", Volume: "$1.1B", MarketCap: "$22B", ReferencePrice: decimal.RequireFromString("0.16")},
		{Symbol: "AVAXUSDT", Name: "Avalanche", Code: "AVAX", Volume: "$380M", MarketCap: "$14B", ReferencePrice: decimal.RequireFromString("36")},
	}
}
