package order

import (
	"errors"
	"fmt"
	"strings"

	"orderadmin/internal/pkg/errs"
)

var (
	// ErrTransitionNotAllowed is returned when the state machine has no edge for the
	// requested action from the current status.
	ErrTransitionNotAllowed = errors.New("status transition is not allowed")

	// ErrAlreadyProcessed is returned when the order already sits in the status the
	// action would move it to, e.g. cancelling a cancelled order.
	ErrAlreadyProcessed = errors.New("order is already processed")

	// ErrStatusChanged is returned by compare-and-swap writes when the stored status no
	// longer matches the status the caller decided on.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Status represents the lifecycle state of an order and is persisted as-is.
// It is the single source of truth: approval and cancellation flags are derived.
//
// State transitions:
//
//	pending ──approve──> approved ──cancel──> cancelled
//	   │                                         ^
//	   ├──reject──> rejected                     │
//	   └──────────────────cancel─────────────────┘
//
// rejected and cancelled are final. approved cannot go back to pending.
type Status string

const (
	Pending   Status = "pending"
	Approved  Status = "approved"
	Rejected  Status = "rejected"
	Cancelled Status = "cancelled"
)

// Action is a request to move an order along the state machine.
type Action string

const (
	Approve Action = "approve"
	Reject  Action = "reject"
	Cancel  Action = "cancel"
)

// Statuses lists the closed status enumeration in display order.
func Statuses() []Status {
	return []Status{Pending, Approved, Rejected, Cancelled}
}

// transitions is the full edge set of the state machine.
func transitions() map[Status]map[Action]Status {
	return map[Status]map[Action]Status{
		Pending: {
			Approve: Approved,
			Reject:  Rejected,
			Cancel:  Cancelled,
		},
		Approved: {
			Cancel: Cancelled,
		},
		Rejected:  {},
		Cancelled: {},
	}
}

// ParseStatus converts an external value into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

// Validate checks that the status is part of the enumeration.
func (s Status) Validate() error {
	if _, ok := transitions()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%q is not one of: %s", string(s), statusList()),
		)
	}
	return nil
}

func (s Status) String() string {
	return string(s)
}

// IsApproved is the derived approval flag exposed to API clients.
func (s Status) IsApproved() bool {
	return s == Approved
}

// IsCancelled is the derived cancellation flag exposed to API clients.
func (s Status) IsCancelled() bool {
	return s == Cancelled
}

// AllowedActions lists the actions accepted from this status in a stable order.
func (s Status) AllowedActions() []Action {
	edges := transitions()[s]
	actions := make([]Action, 0, len(edges))
	for _, a := range Actions() {
		if _, ok := edges[a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// Apply returns the status reached by performing action from s.
//
// Returns a *TransitionError wrapping ErrAlreadyProcessed when s already equals the
// action's target status, and one wrapping ErrTransitionNotAllowed for any other
// missing edge.
func (s Status) Apply(action Action) (Status, error) {
	if err := action.Validate(); err != nil {
		return "", err
	}
	if err := s.Validate(); err != nil {
		return "", err
	}

	if next, ok := transitions()[s][action]; ok {
		return next, nil
	}

	if s == action.Target() {
		return "", &TransitionError{Action: action, Status: s, Allowed: s.AllowedActions(), Cause: ErrAlreadyProcessed}
	}
	return "", &TransitionError{Action: action, Status: s, Allowed: s.AllowedActions(), Cause: ErrTransitionNotAllowed}
}

// Decision is the outcome of consulting the state machine without applying it.
// Err is the error a caller should report when the action is not allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

// CanTransition reports whether action is legal from current and, if not, why.
func CanTransition(current Status, action Action) Decision {
	if _, err := current.Apply(action); err != nil {
		reason := err.Error()
		if errors.Is(err, ErrTransitionNotAllowed) {
			reason = fmt.Sprintf("%s. Allowed actions: %s", reason, actionList(current.AllowedActions()))
		}
		return Decision{Allowed: false, Reason: reason, Err: err}
	}
	return Decision{Allowed: true}
}

// Actions lists every action in a stable order.
func Actions() []Action {
	return []Action{Approve, Reject, Cancel}
}

// Validate checks that the action is known.
func (a Action) Validate() error {
	switch a {
	case Approve, Reject, Cancel:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause(
			"action is invalid",
			fmt.Errorf("%q is not one of: approve, reject, cancel", string(a)),
		)
	}
}

// Target is the status an action moves a pending order to.
func (a Action) Target() Status {
	switch a {
	case Approve:
		return Approved
	case Reject:
		return Rejected
	case Cancel:
		return Cancelled
	default:
		return ""
	}
}

func (a Action) String() string {
	return string(a)
}

// TransitionError carries the attempted action and the status it was attempted from.
// Allowed lists the actions that status accepts.
type TransitionError struct {
	Action  Action
	Status  Status
	Allowed []Action
	Cause   error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Cause, ErrAlreadyProcessed) {
		return fmt.Sprintf("order is already %s and cannot be modified", e.Status)
	}
	return fmt.Sprintf("cannot %s order with status %s", e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error {
	return e.Cause
}

func statusList() string {
	parts := make([]string, 0, 4)
	for _, s := range Statuses() {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}

func actionList(actions []Action) string {
	if len(actions) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ", ")
}
