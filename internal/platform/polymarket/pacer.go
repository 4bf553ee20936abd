package polymarket

import (
	"context"
	"sync"
	"time"
)

// defaultRequestInterval is the minimum spacing between data API requests.
const defaultRequestInterval = 100 * time.Millisecond

// Pacer enforces a minimum interval between outbound requests. It is shared
// by every call the data client makes, so the spacing holds process-wide even
// when lookups run concurrently. Inject one Pacer per upstream host.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewPacer creates a Pacer with the given minimum interval. A non-positive
// interval falls back to the default 100ms.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = defaultRequestInterval
	}
	return &Pacer{interval: interval}
}

// Wait blocks until the caller may issue the next request. Slots are reserved
// under the lock, so concurrent callers queue up at interval spacing instead
// of racing through together. Returns the context error if cancelled while
// waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	at := p.next
	if at.Before(now) {
		at = now
	}
	p.next = at.Add(p.interval)
	p.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
