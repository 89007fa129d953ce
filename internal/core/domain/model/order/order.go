package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderadmin/internal/pkg/errs"
)

// TimestampLayout is the persisted form of CreatedAt. It is fixed width and always UTC,
// so the stored strings also sort lexicographically in chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via RestoreOrder constructor")
)

// Order is the admin view of a persisted order. Orders are created by seeding; their
// status changes in the store, never on this value.
type Order struct {
	id            string
	customer      string
	status        Status
	totalCents    int64
	createdAt     time.Time
	lineItemCount int

	isConstructed bool
}

// RestoreOrder rebuilds an order from stored values and validates them.
func RestoreOrder(
	id string,
	customer string,
	status Status,
	totalCents int64,
	createdAt time.Time,
	lineItemCount int,
) (*Order, error) {
	o := &Order{isConstructed: true}

	if err := errors.Join(
		o.setID(id),
		o.setCustomer(customer),
		o.setStatus(status),
		o.setTotalCents(totalCents),
		o.setCreatedAt(createdAt),
		o.setLineItemCount(lineItemCount),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order instance was created through RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() string {
	return o.id
}

func (o *Order) Customer() string {
	return o.customer
}

func (o *Order) Status() Status {
	return o.status
}

// TotalCents is the order total in minor currency units.
func (o *Order) TotalCents() int64 {
	return o.totalCents
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// LineItemCount is the number of order_items rows owned by the order.
func (o *Order) LineItemCount() int {
	return o.lineItemCount
}

func (o *Order) IsApproved() bool {
	return o.status.IsApproved()
}

func (o *Order) IsCancelled() bool {
	return o.status.IsCancelled()
}

func (o *Order) setID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.NewValueIsRequiredError("order id")
	}
	o.id = id
	return nil
}

func (o *Order) setCustomer(customer string) error {
	if strings.TrimSpace(customer) == "" {
		return errs.NewValueIsRequiredError("customer")
	}
	o.customer = customer
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setTotalCents(totalCents int64) error {
	if totalCents < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total is invalid", fmt.Errorf("%d is negative", totalCents))
	}
	o.totalCents = totalCents
	return nil
}

func (o *Order) setCreatedAt(createdAt time.Time) error {
	if createdAt.IsZero() {
		return errs.NewValueIsRequiredError("created at")
	}
	o.createdAt = createdAt.UTC()
	return nil
}

func (o *Order) setLineItemCount(count int) error {
	if count < 0 {
		return errs.NewValueIsInvalidErrorWithCause("line item count is invalid", fmt.Errorf("%d is negative", count))
	}
	o.lineItemCount = count
	return nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads a stored timestamp. RFC 3339 input is accepted as well so rows
// imported by other tools still load.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errs.NewValueIsInvalidErrorWithCause("created at is invalid", err)
	}
	return t.UTC(), nil
}
