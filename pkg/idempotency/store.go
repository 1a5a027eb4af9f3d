package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store deduplicates consumed messages across redeliveries and consumer
// restarts. Keys are derived from the envelope message id rather than the
// topic offset: a rebalance changes the offset of a redelivered message but
// not its identity.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(consumer, messageID string) string {
	return fmt.Sprintf("dedup:%s:%s", consumer, messageID)
}

// Seen reports whether the key has been marked. It never writes: marking is
// left to the caller so a message is only recorded once its effects are
// durable.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key so later deliveries are treated as duplicates.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
