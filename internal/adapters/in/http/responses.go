package http

import (
	"orderadmin/internal/core/application/usecases/queries"
	"orderadmin/internal/core/domain/model/order"

	"github.com/shopspring/decimal"
)

// minorUnitExponent converts stored cents to major units.
const minorUnitExponent = -2

// OrderResponse is the API view of an order. The approval and cancellation flags are
// derived from the status.
type OrderResponse struct {
	ID            string  `json:"id"`
	Customer      string  `json:"customer"`
	Status        string  `json:"status"`
	Total         float64 `json:"total"`
	CreatedAt     string  `json:"createdAt"`
	IsApproved    bool    `json:"isApproved"`
	IsCancelled   bool    `json:"isCancelled"`
	LineItemCount int     `json:"lineItemCount"`
}

type OrderPageResponse struct {
	Items   []OrderResponse `json:"items"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"hasMore"`
}

// PatchOrderRequest is the PATCH body. Absent keys stay nil.
type PatchOrderRequest struct {
	IsApproved  *bool `json:"isApproved"`
	IsCancelled *bool `json:"isCancelled"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID(),
		Customer:      o.Customer(),
		Status:        o.Status().String(),
		Total:         decimal.New(o.TotalCents(), minorUnitExponent).InexactFloat64(),
		CreatedAt:     order.FormatTimestamp(o.CreatedAt()),
		IsApproved:    o.IsApproved(),
		IsCancelled:   o.IsCancelled(),
		LineItemCount: o.LineItemCount(),
	}
}

func toOrderPageResponse(result queries.ListOrdersResult) OrderPageResponse {
	items := make([]OrderResponse, 0, len(result.Items))
	for _, o := range result.Items {
		items = append(items, toOrderResponse(o))
	}

	return OrderPageResponse{
		Items:   items,
		Page:    result.Page,
		Limit:   result.Limit,
		Total:   result.Total,
		HasMore: result.HasMore,
	}
}
