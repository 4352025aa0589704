package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// IncludeSynthetic also stores quotes produced by the fallback generator.
	IncludeSynthetic bool
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// WriterMetrics holds writer counters.
type WriterMetrics struct {
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Skipped   int64 `json:"skipped"` // Synthetic quotes not stored
	Errors    int64 `json:"errors"`
	Flushes   int64 `json:"flushes"`
}

// QuoteSource yields flushed quote batches without blocking.
type QuoteSource interface {
	TryReceive() ([]model.PriceQuote, bool)
}

// BatchSender executes a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// quoteRow represents a row to be inserted into the price_quotes table.
type quoteRow struct {
	Symbol    string
	UpdatedAt time.Time
	Price     decimal.Decimal
	LastPrice decimal.Decimal
	Direction string
	Synthetic bool
}
