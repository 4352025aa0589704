package pricestore

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds price store settings.
type Config struct {
	FlushInterval    time.Duration // Default: 2s
	WatchdogInterval time.Duration // Default: 5s
	JitterPct        float64       // Max synthetic move in percent. Default: 1.0
	SubscriberBuffer int           // Batches kept per subscriber. Default: 256
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		FlushInterval:    2 * time.Second,
		WatchdogInterval: 5 * time.Second,
		JitterPct:        1.0,
		SubscriberBuffer: 256,
	}
}

// Rand is the random source for synthetic prices. Float64 returns a value in [0, 1).
type Rand interface {
	Float64() float64
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type realRand struct{ *rand.Rand }

func (r realRand) Float64() float64 { return r.Rand.Float64() }

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used by the watchdog.
func WithRand(r Rand) Option {
	return func(s *Store) {
		s.rand = r
	}
}

// WithClock sets the clock used to stamp synthetic updates.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// Stats contains runtime statistics.
type Stats struct {
	HasReceivedData bool  `json:"has_received_data"`
	RealWrites      int64 `json:"real_writes"`
	SyntheticWrites int64 `json:"synthetic_writes"`
	Flushes         int64 `json:"flushes"`
	QuotesPublished int64 `json:"quotes_published"`
	Subscribers     int   `json:"subscribers"`
	DroppedBatches  int64 `json:"dropped_batches"`
}

// pending is an unflushed price for one symbol.
type pending struct {
	price     decimal.Decimal
	at        time.Time
	synthetic bool
}
