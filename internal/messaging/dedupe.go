package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "sms_seen:"

// DedupeStore remembers provider message ids so a replayed webhook is acked
// without being processed twice. The carrier retries on non-2xx responses,
// so replays are routine, not exceptional. Ids are recorded only after the
// message row is committed: a failed attempt leaves no trace here, so the
// carrier's redelivery is processed instead of being misclassified as a
// duplicate.
type DedupeStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewDedupeStore returns nil when no redis client is configured; a nil store
// treats every message as unseen and marking as a no-op.
func NewDedupeStore(client *redis.Client, ttl time.Duration) *DedupeStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DedupeStore{redis: client, ttl: ttl}
}

// Seen reports whether the provider message id was recorded by a previous
// successful ingest.
func (s *DedupeStore) Seen(ctx context.Context, providerMessageID string) (bool, error) {
	if s == nil || s.redis == nil || providerMessageID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, seenKeyPrefix+providerMessageID).Result()
	if err != nil {
		return false, fmt.Errorf("messaging: check message seen: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records the provider message id. Call only after the message row
// is committed.
func (s *DedupeStore) MarkSeen(ctx context.Context, providerMessageID string) error {
	if s == nil || s.redis == nil || providerMessageID == "" {
		return nil
	}
	err := s.redis.Set(ctx, seenKeyPrefix+providerMessageID, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("messaging: mark message seen: %w", err)
	}
	return nil
}
