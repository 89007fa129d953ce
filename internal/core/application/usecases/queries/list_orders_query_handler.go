package queries

import (
	"context"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
)

// ListOrdersResult is one page of orders plus the size of the whole filtered set.
type ListOrdersResult struct {
	Items   []*order.Order
	Page    int
	Limit   int
	Total   int64
	HasMore bool
}

// ListOrdersQueryHandler runs the count and page queries for a validated list request.
//
// Example:
//
//	handler := NewListOrdersQueryHandler(repo)
//	result, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("page %d of %d orders\n", result.Page, result.Total)
type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

// NewListOrdersQueryHandler creates a handler backed by repo.
func NewListOrdersQueryHandler(repo ports.OrderRepository) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{repo: repo}
}

// Handle returns the requested page. The total counts every matching order, not just
// the page, and HasMore reports whether a further page exists.
func (h ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (ListOrdersResult, error) {
	if err := query.Validate(); err != nil {
		return ListOrdersResult{}, err
	}

	total, err := h.repo.Count(ctx, query.Filter())
	if err != nil {
		return ListOrdersResult{}, err
	}

	items, err := h.repo.List(ctx, query.Criteria())
	if err != nil {
		return ListOrdersResult{}, err
	}

	return ListOrdersResult{
		Items:   items,
		Page:    query.Page(),
		Limit:   query.Limit(),
		Total:   total,
		HasMore: int64(query.Page())*int64(query.Limit()) < total,
	}, nil
}
