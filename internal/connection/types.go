package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoStreams       = errors.New("no streams to subscribe")
	ErrStopped         = errors.New("feed stopped")
)

// State is the feed connection state reported to the views.
type State string

const (
	StateConnecting State = "connecting"
	StateLive       State = "live"
	StateDown       State = "down"
	StateGaveUp     State = "gave_up"
	StateStopped    State = "stopped"
)

// RawMessage is a frame from the feed to the message router.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when the client received the frame
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Full stream URL including the streams query
	PingTimeout  time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout time.Duration // Write deadline for control frames
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1024,
	}
}

// FeedConfig configures the Feed.
type FeedConfig struct {
	WSURL             string   // Combined stream endpoint, e.g. wss://stream.binance.com:9443/stream
	Streams           []string // Stream names, e.g. btcusdt@trade
	Backoff           Backoff
	PingTimeout       time.Duration
	MessageBufferSize int // Buffer size for the output message channel
}

// DefaultFeedConfig returns sensible defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Backoff:           DefaultBackoff(),
		PingTimeout:       60 * time.Second,
		MessageBufferSize: 4096,
	}
}

// FeedStats provides statistics about the feed.
type FeedStats struct {
	State             State     `json:"state"`
	Connects          int64     `json:"connects"`
	Disconnects       int64     `json:"disconnects"`
	ReconnectAttempts int64     `json:"reconnect_attempts"`
	Messages          int64     `json:"messages"`
	Dropped           int64     `json:"dropped"`
	LastConnectedAt   time.Time `json:"last_connected_at"`
}
