// Package orderrepo provides the table mappings and the GORM query builder for orders.
// Rows are converted into order.Order values; line items are only ever counted.
package orderrepo

import (
	"context"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/pkg/errs"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// OrderDTO is the orders table. Only status is stored; the approval and cancellation
// flags are derived from it.
type OrderDTO struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	Customer   string         `gorm:"type:varchar(255);not null;index"`
	Status     string         `gorm:"type:varchar(16);not null;index;check:chk_orders_status,status IN ('pending','approved','rejected','cancelled')"`
	TotalCents int64          `gorm:"not null;check:chk_orders_total,total_cents >= 0"`
	CreatedAt  string         `gorm:"type:varchar(32);not null;index;autoCreateTime:false"`
	SearchKey  string         `gorm:"type:text;not null;default:''"`
	Items      []OrderItemDTO `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// BeforeCreate derives the search key from the customer name.
func (d *OrderDTO) BeforeCreate(*gorm.DB) error {
	d.SearchKey = SearchKey(d.Customer)
	return nil
}

// SearchKey case-folds s with full Unicode folding. Customer names are matched
// against their folded form because SQLite's LOWER only folds ASCII.
func SearchKey(s string) string {
	return cases.Fold().String(s)
}

// BackfillSearchKeys derives the search key of rows stored without one.
func BackfillSearchKeys(ctx context.Context, db *gorm.DB) (int, error) {
	var rows []OrderDTO
	err := db.WithContext(ctx).
		Select("id", "customer").
		Where("search_key = ? AND customer <> ?", "", "").
		Find(&rows).Error
	if err != nil {
		return 0, errs.NewStoreError("find orders without search key", err)
	}

	for _, row := range rows {
		err = db.WithContext(ctx).
			Model(&OrderDTO{}).
			Where("id = ?", row.ID).
			Update("search_key", SearchKey(row.Customer)).Error
		if err != nil {
			return 0, errs.NewStoreError("backfill search key", err)
		}
	}
	return len(rows), nil
}

// OrderItemDTO is the order_items table.
type OrderItemDTO struct {
	ID      string `gorm:"type:varchar(36);primaryKey"`
	OrderID string `gorm:"type:varchar(36);not null;index"`
	SKU     string `gorm:"column:sku;type:varchar(64);not null"`
	Qty     int    `gorm:"not null;check:chk_order_items_qty,qty > 0"`
}

func (OrderItemDTO) TableName() string {
	return "order_items"
}

// orderRow is one result row of the aggregated orders query.
type orderRow struct {
	ID            string
	Customer      string
	Status        string
	TotalCents    int64
	CreatedAt     string
	LineItemCount int
}

// NewOrderDTO maps an order and its line items to insertable rows. It is used by
// seeding; the API never creates orders.
func NewOrderDTO(o *order.Order, items ...OrderItemDTO) OrderDTO {
	for i := range items {
		items[i].OrderID = o.ID()
	}

	return OrderDTO{
		ID:         o.ID(),
		Customer:   o.Customer(),
		Status:     o.Status().String(),
		TotalCents: o.TotalCents(),
		CreatedAt:  order.FormatTimestamp(o.CreatedAt()),
		Items:      items,
	}
}

func toDomain(row orderRow) (*order.Order, error) {
	createdAt, err := order.ParseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, errs.NewStoreError("map order "+row.ID, err)
	}

	o, err := order.RestoreOrder(row.ID, row.Customer, order.Status(row.Status), row.TotalCents, createdAt, row.LineItemCount)
	if err != nil {
		return nil, errs.NewStoreError("map order "+row.ID, err)
	}
	return o, nil
}
