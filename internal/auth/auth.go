// Package auth gates the account dashboard behind a shared password.
//
// The gate is session-less: a successful login persists a per-device flag
// that stays set until Logout. There is no lockout or attempt counting.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/donia1222/remix-crypto-sub000/internal/storage"
)

// Errors
var (
	ErrNoSecret      = errors.New("dashboard password is not configured")
	ErrWrongPassword = errors.New("wrong password")
	ErrNoDevice      = errors.New("missing device id")
)

const authorizedValue = "true"

// Gate checks the dashboard password and remembers authorized devices.
type Gate struct {
	hash   []byte
	store  storage.Store
	cost   int
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithCost sets the bcrypt cost used to hash the secret.
func WithCost(cost int) Option {
	return func(g *Gate) {
		g.cost = cost
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate hashes the trimmed secret. The plain secret is not retained.
// Secrets of any length are accepted: bcrypt sees a SHA-256 digest.
func NewGate(secret string, store storage.Store, opts ...Option) (*Gate, error) {
	g := &Gate{
		store:  store,
		cost:   bcrypt.DefaultCost,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "auth")

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoSecret
	}

	hash, err := bcrypt.GenerateFromPassword(digest(secret), g.cost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	g.hash = hash

	return g, nil
}

// Login compares the trimmed input with the secret. On success the device
// is marked authorized; on mismatch ErrWrongPassword is returned.
func (g *Gate) Login(ctx context.Context, device, input string) error {
	if device == "" {
		return ErrNoDevice
	}

	input = strings.TrimSpace(input)
	if input == "" || bcrypt.CompareHashAndPassword(g.hash, digest(input)) != nil {
		g.logger.Info("dashboard login rejected", "device", device)
		return ErrWrongPassword
	}

	if err := g.store.Set(ctx, storage.AuthKey(device), []byte(authorizedValue)); err != nil {
		return fmt.Errorf("persist auth flag: %w", err)
	}

	g.logger.Info("dashboard login accepted", "device", device)
	return nil
}

// IsAuthorized reports whether device has logged in.
func (g *Gate) IsAuthorized(ctx context.Context, device string) (bool, error) {
	if device == "" {
		return false, nil
	}

	v, err := g.store.Get(ctx, storage.AuthKey(device))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read auth flag: %w", err)
	}
	return string(v) == authorizedValue, nil
}

// Logout clears the device's flag.
func (g *Gate) Logout(ctx context.Context, device string) error {
	if device == "" {
		return ErrNoDevice
	}
	if err := g.store.Delete(ctx, storage.AuthKey(device)); err != nil {
		return fmt.Errorf("clear auth flag: %w", err)
	}
	return nil
}

// digest returns the hex SHA-256 of s, which fits bcrypt's 72-byte input limit.
func digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return []byte(hex.EncodeToString(sum[:]))
}
