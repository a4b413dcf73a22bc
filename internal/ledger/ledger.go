// Package ledger remembers when each pull request was first seen so that a
// "completed" notification racing ahead of the "active" one can be ignored.
package ledger

import (
	"context"
	"time"
)

// DefaultWindow is how long after first sight a completed event is treated
// as out of order.
const DefaultWindow = 5 * time.Second

// Ledger maps pull request ids to the time they were first seen.
// Entries are written once and expire on their own; ids <= 0 are ignored.
type Ledger interface {
	// RecordFirstSeen stores the current time for pullRequestID unless an
	// entry already exists, and reports whether this call created it.
	// Concurrent calls for one id record exactly once. An entry that expired
	// or was evicted is created again, so callers must not read a created
	// entry as proof that the pull request was just opened.
	RecordFirstSeen(ctx context.Context, pullRequestID int) (bool, error)
	// IsTooSoon reports whether pullRequestID was first seen less than
	// window ago. Unknown ids are never too soon.
	IsTooSoon(ctx context.Context, pullRequestID int, window time.Duration) (bool, error)
}
