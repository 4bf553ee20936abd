package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// Suppressor implements domain.Suppressor using Redis SETNX with a TTL. The
// first Mark for a trader claims the key for the suppression window; marks
// from every other process in the window lose the SETNX race, so suppression
// holds across replicas.
type Suppressor struct {
	rdb *redis.Client
}

// NewSuppressor creates a Suppressor backed by the given Client.
func NewSuppressor(c *Client) *Suppressor {
	return &Suppressor{rdb: c.Underlying()}
}

func suppressKey(trader string) string {
	return "suppress:" + trader
}

// Mark records that the trader just alerted. It returns true when this is
// the first mark inside the window, false when the trader is already marked
// and the alert should be suppressed.
func (s *Suppressor) Mark(ctx context.Context, trader string, window time.Duration) (bool, error) {
	first, err := s.rdb.SetNX(ctx, suppressKey(trader), time.Now().UTC().Format(time.RFC3339Nano), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark suppression for %s: %w", trader, err)
	}
	return first, nil
}

// Clear drops the trader's suppression mark before its TTL expires. Used when
// the mark was claimed for an alert whose write then failed.
func (s *Suppressor) Clear(ctx context.Context, trader string) error {
	if err := s.rdb.Del(ctx, suppressKey(trader)).Err(); err != nil {
		return fmt.Errorf("redis: clear suppression for %s: %w", trader, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Suppressor = (*Suppressor)(nil)
