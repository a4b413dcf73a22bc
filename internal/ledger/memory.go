package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
)

type MemoryConfig struct {
	MaxEntries int           // oldest entries are evicted beyond this; <= 0 means unbounded
	TTL        time.Duration // <= 0 keeps entries for the process lifetime
	Clock      clockwork.Clock
}

// MemoryLedger keeps first-seen times in a bounded, expiring LRU.
// Suitable for a single replica; use RedisLedger when running several.
type MemoryLedger struct {
	mu      sync.Mutex
	entries *expirable.LRU[int, time.Time]
	ttl     time.Duration
	clock   clockwork.Clock
}

func NewMemoryLedger(cfg MemoryConfig) *MemoryLedger {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}
	size := cfg.MaxEntries
	if size < 0 {
		size = 0
	}
	return &MemoryLedger{
		entries: expirable.NewLRU[int, time.Time](size, nil, ttl),
		ttl:     ttl,
		clock:   clock,
	}
}

func (l *MemoryLedger) RecordFirstSeen(_ context.Context, pullRequestID int) (bool, error) {
	if pullRequestID <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.lookup(pullRequestID); ok {
		return false, nil
	}
	l.entries.Add(pullRequestID, l.clock.Now())
	return true, nil
}

func (l *MemoryLedger) IsTooSoon(_ context.Context, pullRequestID int, window time.Duration) (bool, error) {
	if pullRequestID <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	firstSeen, ok := l.lookup(pullRequestID)
	if !ok {
		return false, nil
	}
	return l.clock.Since(firstSeen) < window, nil
}

// Len is the number of remembered pull requests.
func (l *MemoryLedger) Len() int {
	return l.entries.Len()
}

// lookup also applies the TTL against the ledger clock, since the LRU
// expires entries on wall time only. Caller holds l.mu.
func (l *MemoryLedger) lookup(pullRequestID int) (time.Time, bool) {
	firstSeen, ok := l.entries.Peek(pullRequestID)
	if !ok {
		return time.Time{}, false
	}
	if l.ttl > 0 && l.clock.Since(firstSeen) >= l.ttl {
		l.entries.Remove(pullRequestID)
		return time.Time{}, false
	}
	return firstSeen, true
}
