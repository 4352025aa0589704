// Package database provides the PostgreSQL connection pool for the
// optional quote history.
//
// History is append-only: one row per flushed real quote, keyed by
// (symbol, updated_at).
package database
