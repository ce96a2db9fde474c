package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sequence hands out monotonically increasing ids backed by Redis INCRBY.
// Key format: seq:<name>
type Sequence struct {
	client *redis.Client
	prefix string
}

// NewSequence creates a Sequence wrapping the given Redis client.
func NewSequence(client *redis.Client) *Sequence {
	return &Sequence{client: client, prefix: "seq:"}
}

// Next reserves n consecutive ids of the named sequence and returns the first.
func (s *Sequence) Next(ctx context.Context, name string, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("sequence %s: invalid batch size %d", name, n)
	}
	last, err := s.client.IncrBy(ctx, s.prefix+name, int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", name, err)
	}
	return last - int64(n) + 1, nil
}

// Ping reports whether Redis is reachable.
func (s *Sequence) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
