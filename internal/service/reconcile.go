package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/prsync/common/logger"
	"basegraph.app/prsync/internal/azdo"
	"basegraph.app/prsync/internal/domain"
	"basegraph.app/prsync/internal/ledger"
)

type Outcome string

const (
	OutcomeNoStateChange         Outcome = "no_state_change"
	OutcomeIgnoredEarlyCompleted Outcome = "ignored_early_completed"
	OutcomeNoLinkedWorkItems     Outcome = "no_linked_work_items"
	OutcomeUpdated               Outcome = "updated"
)

type WorkItemFailure struct {
	WorkItemID int
	Err        error
}

type ReconcileResult struct {
	Outcome     Outcome
	State       domain.State
	WorkItemIDs []int
	UpdatedIDs  []int
	SkippedIDs  []int
	Failures    []WorkItemFailure
}

func (r *ReconcileResult) Updated() int {
	return len(r.UpdatedIDs)
}

// Message is the short text returned to the webhook sender.
func (r *ReconcileResult) Message() string {
	switch r.Outcome {
	case OutcomeNoStateChange:
		return "No state change"
	case OutcomeIgnoredEarlyCompleted:
		return "Ignored early completed"
	case OutcomeNoLinkedWorkItems:
		return "No linked work items"
	}

	msg := fmt.Sprintf("Updated %d work item(s) → %s", r.Updated(), r.State)
	if len(r.Failures) > 0 {
		msg += fmt.Sprintf(" (%d failed)", len(r.Failures))
	}
	return msg
}

type ReconcileService interface {
	HandleEvent(ctx context.Context, event domain.PullRequestEvent) (*ReconcileResult, error)
}

type reconcileService struct {
	ledger ledger.Ledger
	client azdo.Client
	gate   TransitionGate
	window time.Duration
	logger *slog.Logger
}

func NewReconcileService(l ledger.Ledger, client azdo.Client, gate TransitionGate, window time.Duration, logger *slog.Logger) ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reconcileService{
		ledger: l,
		client: client,
		gate:   gate,
		window: window,
		logger: logger,
	}
}

func (s *reconcileService) HandleEvent(ctx context.Context, event domain.PullRequestEvent) (*ReconcileResult, error) {
	fields := logger.LogFields{Component: "prsync.service.reconcile"}
	if event.PullRequestID > 0 {
		fields.PullRequestID = logger.Ptr(int64(event.PullRequestID))
	}
	if event.RepositoryID != "" {
		fields.RepositoryID = logger.Ptr(event.RepositoryID)
	}
	ctx = logger.WithLogFields(ctx, fields)

	sc := logger.StartSpan(ctx, "prsync.reconcile.handle_event")
	defer sc.End()
	ctx = sc.Context()

	firstSighting, err := s.ledger.RecordFirstSeen(ctx, event.PullRequestID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record pull request first seen", "error", err)
	}

	desired, ok := domain.Decide(event.Status)
	if !ok {
		s.logger.InfoContext(ctx, "no state change for pull request status", "status", event.Status)
		return s.finish(sc, &ReconcileResult{Outcome: OutcomeNoStateChange}), nil
	}

	// Only completion is guarded: a stale "completed" can arrive before the
	// "active" notification of the same pull request. The window is measured
	// from an earlier event; an entry created just now (new, expired or
	// evicted pull request) has nothing to be early relative to.
	if desired == domain.StateDone && !firstSighting {
		tooSoon, err := s.ledger.IsTooSoon(ctx, event.PullRequestID, s.window)
		if err != nil {
			s.logger.WarnContext(ctx, "early completion check failed, continuing", "error", err)
		} else if tooSoon {
			s.logger.InfoContext(ctx, "ignoring early completed event", "window", s.window)
			return s.finish(sc, &ReconcileResult{Outcome: OutcomeIgnoredEarlyCompleted, State: desired}), nil
		}
	}

	ids := s.linkedWorkItemIDs(ctx, event)
	s.logger.InfoContext(ctx, "linked work items resolved", "work_item_ids", ids)
	if len(ids) == 0 {
		return s.finish(sc, &ReconcileResult{Outcome: OutcomeNoLinkedWorkItems, State: desired}), nil
	}

	result := &ReconcileResult{
		Outcome:     OutcomeUpdated,
		State:       desired,
		WorkItemIDs: ids,
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			sc.RecordError(err)
			return nil, fmt.Errorf("reconciling pull request %d: %w", event.PullRequestID, err)
		}

		itemCtx := logger.WithLogFields(ctx, logger.LogFields{WorkItemID: logger.Ptr(int64(id))})
		updated, err := s.gate.ApplyIfLegal(itemCtx, id, desired)
		switch {
		case err == nil && updated:
			result.UpdatedIDs = append(result.UpdatedIDs, id)
		case err == nil:
			result.SkippedIDs = append(result.SkippedIDs, id)
		case errors.Is(err, ErrWriteFailed):
			s.logger.ErrorContext(itemCtx, "failed to update work item state", "error", err, "desired_state", desired)
			result.Failures = append(result.Failures, WorkItemFailure{WorkItemID: id, Err: err})
		default:
			s.logger.WarnContext(itemCtx, "skipping work item after read failure", "error", err)
			result.SkippedIDs = append(result.SkippedIDs, id)
		}
	}

	s.logger.InfoContext(ctx, "reconciliation complete",
		"state", desired,
		"updated", result.Updated(),
		"skipped", len(result.SkippedIDs),
		"failed", len(result.Failures),
	)

	return s.finish(sc, result), nil
}

// linkedWorkItemIDs prefers the refs carried on the payload and asks the
// tracker otherwise. A failed lookup means no linked work items.
func (s *reconcileService) linkedWorkItemIDs(ctx context.Context, event domain.PullRequestEvent) []int {
	if ids := uniquePositive(event.WorkItemIDs); len(ids) > 0 {
		return ids
	}

	ids, err := s.client.GetLinkedWorkItemIDs(ctx, event.RepositoryID, event.PullRequestID)
	if err != nil {
		s.logger.WarnContext(ctx, "linked work item lookup failed, treating as none", "error", err)
		return nil
	}
	return uniquePositive(ids)
}

func (s *reconcileService) finish(sc *logger.SpanContext, result *ReconcileResult) *ReconcileResult {
	sc.SetAttributes(
		attribute.String("prsync.outcome", string(result.Outcome)),
		attribute.String("prsync.state", string(result.State)),
		attribute.Int("prsync.updated", result.Updated()),
		attribute.Int("prsync.failed", len(result.Failures)),
	)
	return result
}

func uniquePositive(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
