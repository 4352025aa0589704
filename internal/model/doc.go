// Package model defines shared data types used across the price sync service.
//
// Conventions:
//   - Prices: shopspring decimal.Decimal, never float64, until formatted for display
//   - Timestamps: time.Time in UTC
//   - Symbols: upper-case exchange tickers (e.g. "BTCUSDT")
//   - IDs: uuid.UUID for snapshots and devices
package model
