package queries

import (
	"context"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
)

// GetOrderQueryHandler reads one order.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderQueryHandler creates a handler backed by repo.
func NewGetOrderQueryHandler(repo ports.OrderRepository) GetOrderQueryHandler {
	return GetOrderQueryHandler{repo: repo}
}

// Handle returns the order or an errs.ObjectNotFoundError.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.repo.GetByID(ctx, query.ID())
}
