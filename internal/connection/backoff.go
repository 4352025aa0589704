package connection

import "time"

// Backoff computes reconnect delays.
//
// The delay for attempt n (1-based) is BaseDelay * 2^(n-1), capped at
// MaxDelay. MaxAttempts <= 0 means retry forever.
type Backoff struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff returns the reconnect policy used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{
		BaseDelay:   5 * time.Second,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 10,
	}
}

// Next returns the delay before the given attempt, or false once the
// attempt budget is spent.
func (b Backoff) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}

	wait := b.BaseDelay
	for i := 1; i < attempt; i++ {
		wait *= 2
		if b.MaxDelay > 0 && wait >= b.MaxDelay {
			return b.MaxDelay, true
		}
	}
	if b.MaxDelay > 0 && wait > b.MaxDelay {
		wait = b.MaxDelay
	}
	return wait, true
}
