package orderrepo_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"orderadmin/internal/adapters/out/sqlstore"
	"orderadmin/internal/adapters/out/sqlstore/orderrepo"
	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
	"orderadmin/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// MockOperationRecorder is a mock implementation of the repository's operation recorder.
type MockOperationRecorder struct {
	mock.Mock
}

func (m *MockOperationRecorder) RecordStoreOperation(operation string, latency time.Duration, err error) {
	m.Called(operation, latency, err)
}

const (
	idDana  = "0a6f3c1e-1111-4a8c-9d52-0f0f3e1f2a11"
	idAvi   = "1b7e4d2f-2222-4b9d-8e63-1a1a4f2a3b22"
	idNoa   = "2c8f5e3a-3333-4cae-9f74-2b2b5a3b4c33"
	idLior  = "3d9a6f4b-4444-4dbf-a085-3c3c6b4c5d44"
	idMaya  = "4eab7a5c-5555-4ec0-b196-4d4d7c5d6e55"
	idEmpty = "5fbc8b6d-6666-4fd1-82a7-5e5e8d6e7f66"
)

// OrderRepositoryTestSuite runs the repository against an in-memory SQLite store.
type OrderRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	recorder   *MockOperationRecorder
}

func TestOrderRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryTestSuite))
}

func (suite *OrderRepositoryTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: sqlstore.MemoryPath}, logger)
	suite.Require().NoError(err)
	suite.Require().NoError(sqlstore.Migrate(suite.T().Context(), db))
	suite.db = db

	suite.recorder = new(MockOperationRecorder)
	suite.recorder.On("RecordStoreOperation", mock.Anything, mock.Anything, mock.Anything).Maybe()
	suite.repository = orderrepo.NewGormOrderRepository(db, suite.recorder)

	suite.insert(idDana, "Dana K.", order.Pending, 12000, "2025-05-03T09:00:00.000Z", 3)
	suite.insert(idAvi, "Avi L.", order.Approved, 4500, "2025-05-01T09:00:00.000Z", 1)
	suite.insert(idNoa, "Noa B.", order.Rejected, 4500, "2025-05-04T09:00:00.000Z", 2)
	suite.insert(idLior, "Lior 50% off", order.Cancelled, 25000, "2025-05-02T09:00:00.000Z", 6)
	suite.insert(idMaya, "maya_t", order.Approved, 1000, "2025-05-05T09:00:00.000Z", 4)
	suite.insert(idEmpty, "Dana 500", order.Pending, 7800, "2025-04-30T09:00:00.000Z", 0)
}

func (suite *OrderRepositoryTestSuite) TearDownTest() {
	suite.Require().NoError(sqlstore.Close(suite.db))
}

func (suite *OrderRepositoryTestSuite) TestGetByID_ReturnsOrderWithLineItemCount() {
	o, err := suite.repository.GetByID(suite.T().Context(), idLior)

	suite.Require().NoError(err)
	suite.Equal(idLior, o.ID())
	suite.Equal("Lior 50% off", o.Customer())
	suite.Equal(order.Cancelled, o.Status())
	suite.Equal(int64(25000), o.TotalCents())
	suite.Equal(time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC), o.CreatedAt())
	suite.Equal(6, o.LineItemCount())
	suite.True(o.IsCancelled())
	suite.False(o.IsApproved())
}

func (suite *OrderRepositoryTestSuite) TestGetByID_OrderWithoutItems() {
	o, err := suite.repository.GetByID(suite.T().Context(), idEmpty)

	suite.Require().NoError(err)
	suite.Equal(0, o.LineItemCount())
}

func (suite *OrderRepositoryTestSuite) TestGetByID_NotFound() {
	o, err := suite.repository.GetByID(suite.T().Context(), "9f9f9f9f-0000-4000-8000-000000000000")

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
	suite.Nil(o)
}

func (suite *OrderRepositoryTestSuite) TestCount_Filters() {
	testCases := []struct {
		name     string
		filter   ports.OrderFilter
		expected int64
	}{
		{name: "no filter", filter: ports.OrderFilter{}, expected: 6},
		{name: "status", filter: ports.OrderFilter{Status: order.Approved}, expected: 2},
		{name: "customer is case insensitive", filter: ports.OrderFilter{Query: "DANA"}, expected: 2},
		{name: "id substring", filter: ports.OrderFilter{Query: "3333-4cae"}, expected: 1},
		{name: "query and status", filter: ports.OrderFilter{Query: "dana", Status: order.Pending}, expected: 2},
		{name: "no match", filter: ports.OrderFilter{Query: "zelda"}, expected: 0},
		{name: "percent is literal", filter: ports.OrderFilter{Query: "50%"}, expected: 1},
		{name: "underscore is literal", filter: ports.OrderFilter{Query: "a_t"}, expected: 1},
		{name: "underscore does not match any char", filter: ports.OrderFilter{Query: "a_k"}, expected: 0},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			total, err := suite.repository.Count(suite.T().Context(), tc.filter)

			suite.Require().NoError(err)
			suite.Equal(tc.expected, total)
		})
	}
}

func (suite *OrderRepositoryTestSuite) TestCount_FoldsNonASCIINames() {
	suite.insert("7a7a7a7a-7777-4777-8777-777777777777", "Ömer Çelik", order.Pending, 100, "2025-05-07T09:00:00.000Z", 1)

	for _, query := range []string{"Ömer", "ömer", "ÖMER", "çelik", "ÇELIK", "mer"} {
		suite.Run(query, func() {
			total, err := suite.repository.Count(suite.T().Context(), ports.OrderFilter{Query: query})

			suite.Require().NoError(err)
			suite.Equal(int64(1), total)
		})
	}
}

func (suite *OrderRepositoryTestSuite) TestCount_MatchesRowsWithoutSearchKey() {
	suite.Require().NoError(suite.db.Exec(
		"INSERT INTO orders (id, customer, status, total_cents, created_at) VALUES (?, ?, ?, ?, ?)",
		"8b8b8b8b-8888-4888-8888-888888888888", "Şule Ünal", "pending", 100, "2025-05-08T09:00:00.000Z",
	).Error)

	total, err := suite.repository.Count(suite.T().Context(), ports.OrderFilter{Query: "Şule"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	filled, err := orderrepo.BackfillSearchKeys(suite.T().Context(), suite.db)
	suite.Require().NoError(err)
	suite.Equal(1, filled)

	total, err = suite.repository.Count(suite.T().Context(), ports.OrderFilter{Query: "şULE"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
}

func (suite *OrderRepositoryTestSuite) TestList_SortsAndBreaksTiesByID() {
	testCases := []struct {
		name     string
		sortBy   ports.SortColumn
		order    ports.SortOrder
		expected []string
	}{
		{
			name:     "created at desc",
			sortBy:   ports.SortByCreatedAt,
			order:    ports.SortDesc,
			expected: []string{idMaya, idNoa, idDana, idLior, idAvi, idEmpty},
		},
		{
			name:     "total asc with equal totals ordered by id",
			sortBy:   ports.SortByTotal,
			order:    ports.SortAsc,
			expected: []string{idMaya, idAvi, idNoa, idEmpty, idDana, idLior},
		},
		{
			name:     "total desc keeps id asc for ties",
			sortBy:   ports.SortByTotal,
			order:    ports.SortDesc,
			expected: []string{idLior, idDana, idEmpty, idAvi, idNoa, idMaya},
		},
		{
			name:     "status asc",
			sortBy:   ports.SortByStatus,
			order:    ports.SortAsc,
			expected: []string{idAvi, idMaya, idLior, idDana, idEmpty, idNoa},
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			orders, err := suite.repository.List(suite.T().Context(), ports.ListCriteria{
				Page: 1, Limit: 10, SortBy: tc.sortBy, SortOrder: tc.order,
			})

			suite.Require().NoError(err)
			suite.Equal(tc.expected, ids(orders))
		})
	}
}

func (suite *OrderRepositoryTestSuite) TestList_OrdersTimestampsByTime() {
	// 10:00+05:00 is 05:00Z: earlier in time, later as text.
	suite.insert("6acd9c7e-7777-4fe2-93b8-6f6f9e7f8a77", "Tamar O.", order.Pending, 100,
		"2025-05-06T10:00:00.000+05:00", 1)
	suite.insert("7bde0d8f-8888-4af3-a4c9-7a7a0f8a9b88", "Yossi P.", order.Pending, 100,
		"2025-05-06T06:00:00.000Z", 1)

	orders, err := suite.repository.List(suite.T().Context(), ports.ListCriteria{
		Page: 1, Limit: 2, SortBy: ports.SortByCreatedAt, SortOrder: ports.SortDesc,
	})

	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Equal("Yossi P.", orders[0].Customer())
	suite.Equal("Tamar O.", orders[1].Customer())
}

func (suite *OrderRepositoryTestSuite) TestList_Paginates() {
	criteria := ports.ListCriteria{Page: 2, Limit: 4, SortBy: ports.SortByCreatedAt, SortOrder: ports.SortAsc}

	orders, err := suite.repository.List(suite.T().Context(), criteria)

	suite.Require().NoError(err)
	suite.Equal([]string{idNoa, idMaya}, ids(orders))

	criteria.Page = 3
	orders, err = suite.repository.List(suite.T().Context(), criteria)

	suite.Require().NoError(err)
	suite.Empty(orders)
}

func (suite *OrderRepositoryTestSuite) TestList_AggregatesLineItemCounts() {
	orders, err := suite.repository.List(suite.T().Context(), ports.ListCriteria{
		Filter: ports.OrderFilter{Query: "dana"}, Page: 1, Limit: 10,
		SortBy: ports.SortByCustomer, SortOrder: ports.SortAsc,
	})

	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Equal("Dana 500", orders[0].Customer())
	suite.Equal(0, orders[0].LineItemCount())
	suite.Equal("Dana K.", orders[1].Customer())
	suite.Equal(3, orders[1].LineItemCount())
}

func (suite *OrderRepositoryTestSuite) TestList_RejectsUnknownSort() {
	testCases := []ports.ListCriteria{
		{Page: 1, Limit: 10, SortBy: "id; DROP TABLE orders", SortOrder: ports.SortAsc},
		{Page: 1, Limit: 10, SortBy: ports.SortByTotal, SortOrder: "sideways"},
		{Page: 1, Limit: 10},
	}

	for _, criteria := range testCases {
		orders, err := suite.repository.List(suite.T().Context(), criteria)

		suite.Require().ErrorIs(err, errs.ErrValueIsInvalid)
		suite.Nil(orders)
	}

	total, err := suite.repository.Count(suite.T().Context(), ports.OrderFilter{})
	suite.Require().NoError(err)
	suite.Equal(int64(6), total)
}

func (suite *OrderRepositoryTestSuite) TestSetApproval() {
	ctx := suite.T().Context()

	suite.Require().NoError(suite.repository.SetApproval(ctx, idDana, true, order.Pending))
	suite.Require().NoError(suite.repository.SetApproval(ctx, idEmpty, false, order.Pending))

	suite.Equal(order.Approved, suite.statusOf(idDana))
	suite.Equal(order.Rejected, suite.statusOf(idEmpty))
}

func (suite *OrderRepositoryTestSuite) TestSetApproval_AlreadyApproved() {
	err := suite.repository.SetApproval(suite.T().Context(), idAvi, true, order.Pending)

	suite.Require().ErrorIs(err, order.ErrAlreadyProcessed)
	suite.Equal(order.Approved, suite.statusOf(idAvi))
}

func (suite *OrderRepositoryTestSuite) TestCancel_TwiceReportsAlreadyProcessed() {
	ctx := suite.T().Context()

	suite.Require().NoError(suite.repository.Cancel(ctx, idAvi, order.Approved))
	suite.Equal(order.Cancelled, suite.statusOf(idAvi))

	err := suite.repository.Cancel(ctx, idAvi, order.Approved)
	suite.Require().ErrorIs(err, order.ErrAlreadyProcessed)

	err = suite.repository.Cancel(ctx, idAvi, order.Cancelled)
	suite.Require().ErrorIs(err, order.ErrAlreadyProcessed)
	suite.Equal(order.Cancelled, suite.statusOf(idAvi))
}

func (suite *OrderRepositoryTestSuite) TestCancel_StaleExpectedStatus() {
	// Dana is pending; a caller that read "approved" lost a race.
	err := suite.repository.Cancel(suite.T().Context(), idDana, order.Approved)

	suite.Require().ErrorIs(err, order.ErrStatusChanged)
	suite.Equal(order.Pending, suite.statusOf(idDana))
}

func (suite *OrderRepositoryTestSuite) TestCancel_IllegalFromExpectedStatus() {
	err := suite.repository.Cancel(suite.T().Context(), idNoa, order.Rejected)

	suite.Require().ErrorIs(err, order.ErrTransitionNotAllowed)
	suite.Equal(order.Rejected, suite.statusOf(idNoa))
}

func (suite *OrderRepositoryTestSuite) TestCancel_NotFound() {
	err := suite.repository.Cancel(suite.T().Context(), "9f9f9f9f-0000-4000-8000-000000000000", order.Pending)

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryTestSuite) TestRecordsEveryOperation() {
	recorder := new(MockOperationRecorder)
	repository := orderrepo.NewGormOrderRepository(suite.db, recorder)
	ctx := suite.T().Context()

	mock.InOrder(
		recorder.On("RecordStoreOperation", "count", mock.AnythingOfType("time.Duration"), nil).Once(),
		recorder.On("RecordStoreOperation", "get_by_id", mock.AnythingOfType("time.Duration"), mock.Anything).Once(),
		recorder.On("RecordStoreOperation", "cancel", mock.AnythingOfType("time.Duration"), nil).Once(),
	)

	_, err := repository.Count(ctx, ports.OrderFilter{})
	suite.Require().NoError(err)
	_, err = repository.GetByID(ctx, "9f9f9f9f-0000-4000-8000-000000000000")
	suite.Require().Error(err)
	suite.Require().NoError(repository.Cancel(ctx, idDana, order.Pending))

	recorder.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryTestSuite) insert(
	id, customer string,
	status order.Status,
	totalCents int64,
	createdAt string,
	items int,
) {
	dto := orderrepo.OrderDTO{
		ID:         id,
		Customer:   customer,
		Status:     status.String(),
		TotalCents: totalCents,
		CreatedAt:  createdAt,
	}
	for i := range items {
		dto.Items = append(dto.Items, orderrepo.OrderItemDTO{
			ID:  id[:9] + "item-" + string(rune('a'+i)),
			SKU: "SKU-100",
			Qty: i + 1,
		})
	}
	suite.Require().NoError(suite.db.Create(&dto).Error)
}

func (suite *OrderRepositoryTestSuite) statusOf(id string) order.Status {
	var dto orderrepo.OrderDTO
	suite.Require().NoError(suite.db.First(&dto, "id = ?", id).Error)
	return order.Status(dto.Status)
}

func ids(orders []*order.Order) []string {
	result := make([]string, 0, len(orders))
	for _, o := range orders {
		result = append(result, o.ID())
	}
	return result
}
