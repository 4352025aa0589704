package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Errors
var (
	ErrNotFound = errors.New("key not found")
	ErrEmptyKey = errors.New("empty key")
)

// Key prefixes
const (
	authPrefix         = "auth:"
	consentPrefix      = "consent:"
	AccountSnapshotKey = "account:snapshot"
)

// Store is a byte-oriented key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with no expiry.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// AuthKey is the per-device dashboard authorization flag key.
func AuthKey(device string) string {
	return authPrefix + device
}

// ConsentKey is the per-device cookie consent key.
func ConsentKey(device string) string {
	return consentPrefix + device
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
