// Package ports defines the contracts between the order admin core and its adapters.
// Use cases depend on these interfaces; the implementations live under internal/adapters.
package ports

import (
	"context"
	"fmt"
	"math"
	"slices"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/pkg/errs"
)

// MaxOffset is the largest number of rows a list request may skip. Keeping offsets in
// 32 bits leaves (page-1)*limit and page*limit far from overflowing int64.
const MaxOffset = math.MaxInt32

// MaxPage returns the highest page whose offset stays within MaxOffset at pageSize.
func MaxPage(pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	return MaxOffset/pageSize + 1
}

// SortColumn is a physical orders column that list results may be ordered by.
type SortColumn string

const (
	SortByCreatedAt SortColumn = "created_at"
	SortByTotal     SortColumn = "total_cents"
	SortByCustomer  SortColumn = "customer"
	SortByStatus    SortColumn = "status"
)

// SortColumns is the allow-list of sortable columns.
func SortColumns() []SortColumn {
	return []SortColumn{SortByCreatedAt, SortByTotal, SortByCustomer, SortByStatus}
}

// SortOrder is the direction of a list ordering.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// OrderFilter narrows list and count results. Zero values mean "no filter".
type OrderFilter struct {
	// Query matches case-insensitively as a substring of the customer name or the id.
	Query string

	// Status matches exactly when non-empty.
	Status order.Status
}

// ListCriteria is a canonical, already validated list request.
type ListCriteria struct {
	Filter    OrderFilter
	Page      int
	Limit     int
	SortBy    SortColumn
	SortOrder SortOrder
}

// Validate checks the bounds Offset relies on and the sort allow-lists.
func (c ListCriteria) Validate() error {
	if c.Limit < 1 || c.Limit > MaxOffset {
		return errs.NewValueIsOutOfRangeError("limit", c.Limit, 1, MaxOffset)
	}
	if maxPage := MaxPage(c.Limit); c.Page < 1 || c.Page > maxPage {
		return errs.NewValueIsOutOfRangeError("page", c.Page, 1, maxPage)
	}
	if !slices.Contains(SortColumns(), c.SortBy) {
		return errs.NewValueIsInvalidErrorWithCause("sort column", fmt.Errorf("%q is not sortable", c.SortBy))
	}
	if c.SortOrder != SortAsc && c.SortOrder != SortDesc {
		return errs.NewValueIsInvalidErrorWithCause("sort order", fmt.Errorf("%q is not asc or desc", c.SortOrder))
	}
	return nil
}

// Offset is the number of rows skipped before the requested page.
func (c ListCriteria) Offset() int {
	return (c.Page - 1) * c.Limit
}

// OrderRepository defines the persistence contract for orders.
//
// Mutations are compare-and-swap on the status column: expected is the status the
// caller read and validated against the state machine. A write whose expected status
// no longer matches reports order.ErrStatusChanged, or order.ErrAlreadyProcessed when
// the row already holds the target status.
type OrderRepository interface {
	// Count returns the number of orders matching filter.
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// List returns one page of orders with their line item counts, aggregated in the
	// same statement.
	List(ctx context.Context, criteria ListCriteria) ([]*order.Order, error)

	// GetByID returns the order and its line item count, or errs.ObjectNotFoundError.
	GetByID(ctx context.Context, id string) (*order.Order, error)

	// SetApproval records an approval (approved) or a rejection (!approved).
	SetApproval(ctx context.Context, id string, approved bool, expected order.Status) error

	// Cancel moves the order to cancelled. Cancelling twice reports
	// order.ErrAlreadyProcessed.
	Cancel(ctx context.Context, id string, expected order.Status) error
}
