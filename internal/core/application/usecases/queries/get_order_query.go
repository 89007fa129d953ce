package queries

import (
	"errors"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/pkg/guard"
)

var (
	ErrGetOrderQueryIsNotConstructed = errors.New(
		"GetOrderQuery must be created via NewGetOrderQuery constructor",
	)
)

// GetOrderQuery fetches a single order with its line item count.
type GetOrderQuery struct {
	id string

	guard guard.ConstructorGuard
}

// NewGetOrderQuery validates that id is a UUID.
func NewGetOrderQuery(id string) (GetOrderQuery, error) {
	if err := order.ValidateID(id); err != nil {
		return GetOrderQuery{}, err
	}
	return GetOrderQuery{id: id, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

func (q GetOrderQuery) ID() string {
	return q.id
}
