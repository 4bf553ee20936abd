package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting for the API server.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Suppressor tracks traders who recently produced an alert so repeat alerts
// inside the suppression window can be skipped.
type Suppressor interface {
	// Mark records that the trader just alerted. It returns false when the
	// trader was already marked within the window (the alert should be
	// suppressed), true when this is the first mark.
	Mark(ctx context.Context, trader string, window time.Duration) (bool, error)
	// Clear drops the trader's mark, releasing a window claimed for an alert
	// that was never written.
	Clear(ctx context.Context, trader string) error
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
