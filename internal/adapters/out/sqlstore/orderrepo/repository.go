package orderrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
	"orderadmin/internal/pkg/errs"

	"gorm.io/gorm"
)

const (
	orderColumns = "orders.id, orders.customer, orders.status, orders.total_cents, orders.created_at"
	selectOrders = orderColumns + ", COUNT(order_items.id) AS line_item_count"
	joinItems    = "LEFT JOIN order_items ON order_items.order_id = orders.id"
	tieBreaker   = "orders.id ASC"
)

// searchClause matches the folded term against the search key and the id. Rows written
// outside the repository may lack a search key; they still match the name as stored.
const searchClause = `(orders.search_key LIKE ? ESCAPE '\' OR ` +
	`LOWER(orders.customer) LIKE LOWER(?) ESCAPE '\' OR ` +
	`LOWER(orders.id) LIKE ? ESCAPE '\')`

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db       *gorm.DB
	recorder operationRecorder
}

// operationRecorder receives the outcome of every repository call.
type operationRecorder interface {
	RecordStoreOperation(operation string, latency time.Duration, err error)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, recorder operationRecorder) *GormOrderRepository {
	return &GormOrderRepository{
		db:       db,
		recorder: recorder,
	}
}

// Count returns the number of orders matching filter.
func (r *GormOrderRepository) Count(ctx context.Context, filter ports.OrderFilter) (total int64, err error) {
	defer r.observe("count", time.Now(), &err)

	if err = r.db.WithContext(ctx).Model(&OrderDTO{}).Scopes(withFilter(filter)).Count(&total).Error; err != nil {
		return 0, errs.NewStoreError("count orders", err)
	}
	return total, nil
}

// List returns one page of orders. Line item counts come from the same joined
// aggregate query.
func (r *GormOrderRepository) List(ctx context.Context, criteria ports.ListCriteria) (_ []*order.Order, err error) {
	defer r.observe("list", time.Now(), &err)

	if err = criteria.Validate(); err != nil {
		return nil, err
	}

	orderBy, err := r.orderBy(criteria.SortBy, criteria.SortOrder)
	if err != nil {
		return nil, err
	}

	var rows []orderRow
	err = r.aggregate(ctx).
		Scopes(withFilter(criteria.Filter)).
		Order(orderBy).
		Order(tieBreaker).
		Limit(criteria.Limit).
		Offset(criteria.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, errs.NewStoreError("list orders", err)
	}

	orders := make([]*order.Order, 0, len(rows))
	for _, row := range rows {
		o, mapErr := toDomain(row)
		if mapErr != nil {
			return nil, mapErr
		}
		orders = append(orders, o)
	}

	return orders, nil
}

// GetByID retrieves an order with its line item count.
func (r *GormOrderRepository) GetByID(ctx context.Context, id string) (_ *order.Order, err error) {
	defer r.observe("get_by_id", time.Now(), &err)

	var rows []orderRow
	if err = r.aggregate(ctx).Where("orders.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, errs.NewStoreError("get order", err)
	}
	if len(rows) == 0 {
		return nil, errs.NewObjectNotFoundError("id", id)
	}

	return toDomain(rows[0])
}

// SetApproval moves a pending order to approved, or to rejected when approved is false.
func (r *GormOrderRepository) SetApproval(
	ctx context.Context,
	id string,
	approved bool,
	expected order.Status,
) (err error) {
	defer r.observe("set_approval", time.Now(), &err)

	action := order.Reject
	if approved {
		action = order.Approve
	}
	return r.compareAndSwap(ctx, id, action, expected)
}

// Cancel moves the order to cancelled.
func (r *GormOrderRepository) Cancel(ctx context.Context, id string, expected order.Status) (err error) {
	defer r.observe("cancel", time.Now(), &err)

	return r.compareAndSwap(ctx, id, order.Cancel, expected)
}

// compareAndSwap writes the status action leads to from expected, but only while the
// row still holds expected. A miss is explained by re-reading the row.
func (r *GormOrderRepository) compareAndSwap(
	ctx context.Context,
	id string,
	action order.Action,
	expected order.Status,
) error {
	target, err := expected.Apply(action)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("orders.id = ? AND orders.status = ?", id, expected.String()).
		Update("status", target.String())
	if result.Error != nil {
		return errs.NewStoreError(string(action)+" order", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var current OrderDTO
	err = r.db.WithContext(ctx).Select("status").Where("orders.id = ?", id).Take(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NewObjectNotFoundErrorWithCause("id", id, err)
	case err != nil:
		return errs.NewStoreError(string(action)+" order", err)
	case order.Status(current.Status) == target:
		return &order.TransitionError{
			Action:  action,
			Status:  target,
			Allowed: target.AllowedActions(),
			Cause:   order.ErrAlreadyProcessed,
		}
	default:
		return fmt.Errorf("order %s is %s, expected %s: %w", id, current.Status, expected, order.ErrStatusChanged)
	}
}

// aggregate selects orders joined with their line item counts.
func (r *GormOrderRepository) aggregate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("orders").
		Select(selectOrders).
		Joins(joinItems).
		Group(orderColumns)
}

// orderBy builds the ORDER BY term. The column and direction are checked against
// their allow-lists again here because they are interpolated, not bound.
func (r *GormOrderRepository) orderBy(column ports.SortColumn, direction ports.SortOrder) (string, error) {
	var expr string
	switch column {
	case ports.SortByCreatedAt:
		expr = r.temporal("orders.created_at")
	case ports.SortByTotal:
		expr = "orders.total_cents"
	case ports.SortByCustomer:
		expr = "orders.customer"
	case ports.SortByStatus:
		expr = "orders.status"
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("sort column", fmt.Errorf("%q is not sortable", column))
	}

	switch direction {
	case ports.SortAsc:
		return expr + " ASC", nil
	case ports.SortDesc:
		return expr + " DESC", nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("sort order", fmt.Errorf("%q is not asc or desc", direction))
	}
}

// temporal orders a stored timestamp by its time value rather than its text.
func (r *GormOrderRepository) temporal(column string) string {
	switch r.db.Dialector.Name() {
	case "postgres":
		return "CAST(" + column + " AS TIMESTAMPTZ)"
	case "sqlite":
		return "julianday(" + column + ")"
	default:
		return column
	}
}

func (r *GormOrderRepository) observe(operation string, started time.Time, err *error) {
	r.recorder.RecordStoreOperation(operation, time.Since(started), *err)
}

func withFilter(filter ports.OrderFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Query != "" {
			folded := "%" + escapeLike(SearchKey(filter.Query)) + "%"
			verbatim := "%" + escapeLike(filter.Query) + "%"
			db = db.Where(searchClause, folded, verbatim, folded)
		}
		if filter.Status != "" {
			db = db.Where("orders.status = ?", filter.Status.String())
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
