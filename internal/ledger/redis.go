package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	KeyPrefix string
	TTL       time.Duration // <= 0 stores keys without expiry
	Clock     clockwork.Clock
}

// RedisLedger shares first-seen times between replicas. SET NX makes the
// first writer win; the stored value is unix milliseconds.
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewRedisLedger(client redis.Cmdable, cfg RedisConfig) *RedisLedger {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &RedisLedger{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    ttl,
		clock:  clock,
	}
}

func (l *RedisLedger) RecordFirstSeen(ctx context.Context, pullRequestID int) (bool, error) {
	if pullRequestID <= 0 {
		return false, nil
	}

	now := l.clock.Now().UnixMilli()
	created, err := l.client.SetNX(ctx, l.key(pullRequestID), now, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording first seen for pull request %d: %w", pullRequestID, err)
	}
	return created, nil
}

func (l *RedisLedger) IsTooSoon(ctx context.Context, pullRequestID int, window time.Duration) (bool, error) {
	if pullRequestID <= 0 {
		return false, nil
	}

	ms, err := l.client.Get(ctx, l.key(pullRequestID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading first seen for pull request %d: %w", pullRequestID, err)
	}

	return l.clock.Since(time.UnixMilli(ms)) < window, nil
}

func (l *RedisLedger) key(pullRequestID int) string {
	return l.prefix + strconv.Itoa(pullRequestID)
}
