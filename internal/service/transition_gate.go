package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/prsync/internal/azdo"
	"basegraph.app/prsync/internal/domain"
)

var (
	// ErrReadFailed marks a work item that could not be read; it is skipped.
	ErrReadFailed = errors.New("work item read failed")
	// ErrWriteFailed marks a work item whose state patch was rejected.
	ErrWriteFailed = errors.New("work item write failed")
)

// TransitionGate decides, against live tracker data, whether and how a work
// item can be moved to a desired state, and applies the move when it is legal.
type TransitionGate interface {
	// ResolveTargetState returns the tracker state to use for desired, or nil
	// when the work item's type supports neither desired nor any fallback.
	ResolveTargetState(ctx context.Context, workItemID int, desired domain.State) (*domain.Target, error)
	// ApplyIfLegal reports whether the work item was updated. Skips are not
	// errors; errors wrap ErrReadFailed or ErrWriteFailed.
	ApplyIfLegal(ctx context.Context, workItemID int, desired domain.State) (bool, error)
}

type transitionGate struct {
	client azdo.Client
	logger *slog.Logger
}

func NewTransitionGate(client azdo.Client, logger *slog.Logger) TransitionGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &transitionGate{
		client: client,
		logger: logger,
	}
}

func (g *transitionGate) ResolveTargetState(ctx context.Context, workItemID int, desired domain.State) (*domain.Target, error) {
	wi, err := g.client.GetWorkItem(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	allowed, err := g.client.GetAllowedStates(ctx, wi.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	target, ok := domain.ResolveTarget(desired, allowed)
	if !ok {
		g.logger.InfoContext(ctx, "work item type does not support desired state",
			"work_item_type", wi.Type,
			"desired_state", desired,
			"candidates", domain.Candidates(desired),
			"allowed_states", allowed,
		)
		return nil, nil
	}

	if target.State != string(desired) {
		g.logger.DebugContext(ctx, "using fallback state",
			"work_item_type", wi.Type,
			"desired_state", desired,
			"target_state", target.State,
			"stands_in_for", target.Canonical,
		)
	}

	return &target, nil
}

func (g *transitionGate) ApplyIfLegal(ctx context.Context, workItemID int, desired domain.State) (bool, error) {
	target, err := g.ResolveTargetState(ctx, workItemID, desired)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}

	// Read again: the tracker is the source of truth and may have moved on.
	wi, err := g.client.GetWorkItem(ctx, workItemID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	current := wi.State
	if current == "" {
		g.logger.InfoContext(ctx, "work item has no current state, skipping")
		return false, nil
	}

	if current == target.State {
		g.logger.InfoContext(ctx, "work item already in target state", "state", current)
		return false, nil
	}

	// The table only knows canonical names, so a fallback such as "Closed"
	// is resolvable but never written.
	if !domain.CanTransition(current, domain.State(target.State)) {
		var next []domain.State
		if from, ok := domain.ParseState(current); ok {
			if from.IsTerminal() {
				g.logger.InfoContext(ctx, "work item is in a terminal state, skipping", "state", current)
				return false, nil
			}
			next = domain.Successors(from)
		}
		g.logger.InfoContext(ctx, "transition not allowed, skipping",
			"from_state", current,
			"to_state", target.State,
			"allowed_next", next,
		)
		return false, nil
	}

	if err := g.client.UpdateWorkItemState(ctx, workItemID, target.State); err != nil {
		return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	g.logger.InfoContext(ctx, "work item state updated",
		"from_state", current,
		"to_state", target.State,
	)
	return true, nil
}
