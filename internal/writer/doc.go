// Package writer implements the quote history batch writer.
//
// QuoteWriter consumes flushed batches from a price store subscription and
// inserts one row per quote into price_quotes. Synthetic quotes from the
// fallback generator are skipped unless configured otherwise.
//
// Writes are append-only (ON CONFLICT DO NOTHING, never update).
package writer
