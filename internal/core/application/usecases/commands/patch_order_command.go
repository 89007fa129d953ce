package commands

import (
	"errors"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/pkg/errs"
	"orderadmin/internal/pkg/guard"
)

var (
	ErrPatchOrderCommandIsNotConstructed = errors.New(
		"PatchOrderCommand must be created via NewPatchOrderCommand constructor",
	)
)

const (
	msgExactlyOneField   = "either 'isApproved' or 'isCancelled' must be provided, but not both"
	msgCancelledMustTrue = "isCancelled must be true when provided"
)

// PatchOrderCommand requests a single status action on one order.
//
// The request body carries exactly one of isApproved or isCancelled:
//
//	{"isApproved": true}   -> approve
//	{"isApproved": false}  -> reject
//	{"isCancelled": true}  -> cancel
//
// Example:
//
//	approved := true
//	cmd, err := NewPatchOrderCommand(id, &approved, nil)
//	if err != nil {
//	    return err // *errs.ValidationError
//	}
//	err = handler.Handle(ctx, cmd)
type PatchOrderCommand struct { //nolint:recvcheck //using for validation
	orderID string
	action  order.Action

	guard guard.ConstructorGuard
}

// NewPatchOrderCommand validates the order id and the patch body. A nil pointer means
// the field was absent from the body.
func NewPatchOrderCommand(orderID string, isApproved, isCancelled *bool) (PatchOrderCommand, error) {
	if err := order.ValidateID(orderID); err != nil {
		return PatchOrderCommand{}, err
	}

	cmd := PatchOrderCommand{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}

	if err := cmd.setAction(isApproved, isCancelled); err != nil {
		return PatchOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c PatchOrderCommand) Validate() error {
	return c.guard.Validate(ErrPatchOrderCommandIsNotConstructed)
}

func (c PatchOrderCommand) OrderID() string {
	return c.orderID
}

func (c PatchOrderCommand) Action() order.Action {
	return c.action
}

func (c *PatchOrderCommand) setAction(isApproved, isCancelled *bool) error {
	validationErr := errs.NewValidationError("body")

	switch {
	case (isApproved == nil) == (isCancelled == nil):
		validationErr.Add("root", msgExactlyOneField)
	case isCancelled != nil && !*isCancelled:
		validationErr.Add("isCancelled", msgCancelledMustTrue)
	case isCancelled != nil:
		c.action = order.Cancel
	case *isApproved:
		c.action = order.Approve
	default:
		c.action = order.Reject
	}

	return validationErr.OrNil()
}
