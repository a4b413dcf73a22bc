package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"basegraph.app/prsync/internal/domain"
)

type stateUpdate struct {
	ID    int
	State string
}

// fakeTracker is an in-memory Azure DevOps project implementing azdo.Client.
type fakeTracker struct {
	mu sync.Mutex

	items       map[int]*domain.WorkItem
	typeStates  map[string][]string
	links       []int
	linksErr    error
	getErr      map[int]error
	statesErr   error
	updateErr   map[int]error
	updates     []stateUpdate
	getCalls    int
	linkLookups int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		items:      map[int]*domain.WorkItem{},
		typeStates: map[string][]string{},
		getErr:     map[int]error{},
		updateErr:  map[int]error{},
	}
}

func (f *fakeTracker) addWorkItem(id int, workItemType, state string) {
	f.items[id] = &domain.WorkItem{ID: id, Type: workItemType, State: state}
}

func (f *fakeTracker) GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	wi, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("work item %d does not exist", id)
	}
	copied := *wi
	return &copied, nil
}

func (f *fakeTracker) GetAllowedStates(ctx context.Context, workItemType string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statesErr != nil {
		return nil, f.statesErr
	}
	return f.typeStates[workItemType], nil
}

func (f *fakeTracker) UpdateWorkItemState(ctx context.Context, id int, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.items[id].State = state
	f.updates = append(f.updates, stateUpdate{ID: id, State: state})
	return nil
}

func (f *fakeTracker) GetLinkedWorkItemIDs(ctx context.Context, repositoryID string, pullRequestID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkLookups++
	if f.linksErr != nil {
		return nil, f.linksErr
	}
	return f.links, nil
}

// failingLedger simulates an unreachable shared ledger.
type failingLedger struct{}

func (failingLedger) RecordFirstSeen(ctx context.Context, pullRequestID int) (bool, error) {
	return false, fmt.Errorf("dial tcp: connection refused")
}

func (failingLedger) IsTooSoon(ctx context.Context, pullRequestID int, window time.Duration) (bool, error) {
	return false, fmt.Errorf("dial tcp: connection refused")
}

// expiringRedis backs a RedisLedger with SET NX/GET over a map whose keys
// expire on the test clock.
type expiringRedis struct {
	redis.Cmdable
	clock     clockwork.Clock
	values    map[string]string
	expiresAt map[string]time.Time
}

func newExpiringRedis(clock clockwork.Clock) *expiringRedis {
	return &expiringRedis{clock: clock, values: map[string]string{}, expiresAt: map[string]time.Time{}}
}

func (r *expiringRedis) live(key string) bool {
	if at, ok := r.expiresAt[key]; ok && !r.clock.Now().Before(at) {
		delete(r.values, key)
		delete(r.expiresAt, key)
	}
	_, ok := r.values[key]
	return ok
}

func (r *expiringRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if r.live(key) {
		return redis.NewBoolResult(false, nil)
	}
	r.values[key] = strconv.FormatInt(value.(int64), 10)
	if expiration > 0 {
		r.expiresAt[key] = r.clock.Now().Add(expiration)
	}
	return redis.NewBoolResult(true, nil)
}

func (r *expiringRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if !r.live(key) {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(r.values[key], nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var agileTaskStates = []string{"To Do", "Doing", "CodeReview", "Done"}
