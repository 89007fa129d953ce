package commands

import (
	"context"
	"errors"
	"fmt"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
)

// PatchOrderCommandHandler applies an approve, reject or cancel action to an order.
//
// The handler reads the current status, lets the state machine decide, and writes with
// the status it read as the expected value. If the row changed in between, it re-reads
// once: the fresh status either explains the miss as a business error or the write is
// reported as a concurrent modification wrapping order.ErrStatusChanged.
//
// Example:
//
//	handler := NewPatchOrderCommandHandler(repo)
//	cancelled := true
//	cmd, _ := NewPatchOrderCommand(id, nil, &cancelled)
//
//	switch err := handler.Handle(ctx, cmd); {
//	case errors.Is(err, order.ErrAlreadyProcessed):
//	    // second cancel of the same order
//	case errors.Is(err, order.ErrTransitionNotAllowed):
//	    // e.g. cancelling a rejected order
//	}
type PatchOrderCommandHandler struct {
	repo ports.OrderRepository
}

// NewPatchOrderCommandHandler creates a handler backed by repo.
func NewPatchOrderCommandHandler(repo ports.OrderRepository) PatchOrderCommandHandler {
	return PatchOrderCommandHandler{repo: repo}
}

// Handle performs the command. Errors are errs.ObjectNotFoundError, *order.TransitionError
// (wrapping ErrTransitionNotAllowed or ErrAlreadyProcessed), an order.ErrStatusChanged
// conflict, or a store failure.
func (h PatchOrderCommandHandler) Handle(ctx context.Context, cmd PatchOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	current, err := h.repo.GetByID(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	expected := current.Status()
	if decision := order.CanTransition(expected, cmd.Action()); !decision.Allowed {
		return decision.Err
	}

	err = h.write(ctx, cmd, expected)
	if !errors.Is(err, order.ErrStatusChanged) {
		return err
	}

	latest, err := h.repo.GetByID(ctx, cmd.OrderID())
	if err != nil {
		return err
	}
	if decision := order.CanTransition(latest.Status(), cmd.Action()); !decision.Allowed {
		return decision.Err
	}

	return fmt.Errorf("order %s moved from %s to %s while it was being updated: %w",
		cmd.OrderID(), expected, latest.Status(), order.ErrStatusChanged)
}

func (h PatchOrderCommandHandler) write(ctx context.Context, cmd PatchOrderCommand, expected order.Status) error {
	switch cmd.Action() {
	case order.Approve:
		return h.repo.SetApproval(ctx, cmd.OrderID(), true, expected)
	case order.Reject:
		return h.repo.SetApproval(ctx, cmd.OrderID(), false, expected)
	case order.Cancel:
		return h.repo.Cancel(ctx, cmd.OrderID(), expected)
	default:
		return cmd.Action().Validate()
	}
}
