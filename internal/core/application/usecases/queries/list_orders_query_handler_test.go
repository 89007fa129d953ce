package queries_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"orderadmin/internal/core/application/usecases/queries"
	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Count(ctx context.Context, filter ports.OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, criteria ports.ListCriteria) ([]*order.Order, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) SetApproval(ctx context.Context, id string, approved bool, expected order.Status) error {
	args := m.Called(ctx, id, approved, expected)
	return args.Error(0)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, id string, expected order.Status) error {
	args := m.Called(ctx, id, expected)
	return args.Error(0)
}

func newTestOrder(t *testing.T, id string, status order.Status) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(id, "Dana K.", status, 4200, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	return o
}

func TestListOrdersQueryHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	query, err := queries.NewListOrdersQuery(url.Values{
		"page":   {"2"},
		"limit":  {"2"},
		"status": {"pending"},
	}, queries.DefaultPageLimits())
	require.NoError(t, err)

	items := []*order.Order{
		newTestOrder(t, "0f8fad5b-d9cb-469f-a165-70867728950e", order.Pending),
		newTestOrder(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", order.Pending),
	}

	repo := new(MockOrderRepository)
	mock.InOrder(
		repo.On("Count", ctx, ports.OrderFilter{Status: order.Pending}).Return(int64(5), nil).Once(),
		repo.On("List", ctx, query.Criteria()).Return(items, nil).Once(),
	)

	handler := queries.NewListOrdersQueryHandler(repo)
	result, err := handler.Handle(ctx, query)

	require.NoError(t, err)
	assert.Equal(t, items, result.Items)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, int64(5), result.Total)
	assert.True(t, result.HasMore)
	repo.AssertExpectations(t)
}

func TestListOrdersQueryHandler_Handle_HasMore(t *testing.T) {
	testCases := []struct {
		name    string
		page    string
		limit   string
		total   int64
		hasMore bool
	}{
		{name: "empty result", page: "1", limit: "20", total: 0, hasMore: false},
		{name: "exactly one page", page: "1", limit: "20", total: 20, hasMore: false},
		{name: "one more than a page", page: "1", limit: "20", total: 21, hasMore: true},
		{name: "last partial page", page: "3", limit: "10", total: 25, hasMore: false},
		{name: "page beyond the end", page: "9", limit: "10", total: 25, hasMore: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := t.Context()
			query, err := queries.NewListOrdersQuery(url.Values{
				"page":  {tc.page},
				"limit": {tc.limit},
			}, queries.DefaultPageLimits())
			require.NoError(t, err)

			repo := new(MockOrderRepository)
			repo.On("Count", ctx, mock.Anything).Return(tc.total, nil).Once()
			repo.On("List", ctx, mock.Anything).Return([]*order.Order{}, nil).Once()

			result, err := queries.NewListOrdersQueryHandler(repo).Handle(ctx, query)

			require.NoError(t, err)
			assert.Equal(t, tc.total, result.Total)
			assert.Equal(t, tc.hasMore, result.HasMore)
			assert.NotNil(t, result.Items)
		})
	}
}

func TestListOrdersQueryHandler_Handle_CountError(t *testing.T) {
	ctx := t.Context()
	query, err := queries.NewListOrdersQuery(url.Values{}, queries.DefaultPageLimits())
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	repo.On("Count", ctx, mock.Anything).Return(int64(0), errors.New("count error")).Once()

	_, err = queries.NewListOrdersQueryHandler(repo).Handle(ctx, query)

	require.EqualError(t, err, "count error")
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListOrdersQueryHandler_Handle_ListError(t *testing.T) {
	ctx := t.Context()
	query, err := queries.NewListOrdersQuery(url.Values{}, queries.DefaultPageLimits())
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	mock.InOrder(
		repo.On("Count", ctx, mock.Anything).Return(int64(3), nil).Once(),
		repo.On("List", ctx, mock.Anything).Return(nil, errors.New("list error")).Once(),
	)

	_, err = queries.NewListOrdersQueryHandler(repo).Handle(ctx, query)

	require.EqualError(t, err, "list error")
	repo.AssertExpectations(t)
}

func TestListOrdersQueryHandler_Handle_ValidationError(t *testing.T) {
	repo := new(MockOrderRepository)

	_, err := queries.NewListOrdersQueryHandler(repo).Handle(t.Context(), queries.ListOrdersQuery{})

	require.ErrorIs(t, err, queries.ErrListOrdersQueryIsNotConstructed)
	repo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}
