package queries_test

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"orderadmin/internal/core/application/usecases/queries"
	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
	"orderadmin/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)

	fields := make(map[string]string, len(validationErr.Fields))
	for _, f := range validationErr.Fields {
		fields[f.Field] = f.Message
	}
	return fields
}

func TestNewListOrdersQuery_Defaults(t *testing.T) {
	query, err := queries.NewListOrdersQuery(url.Values{}, queries.DefaultPageLimits())

	require.NoError(t, err)
	require.NoError(t, query.Validate())
	assert.Equal(t, 1, query.Page())
	assert.Equal(t, queries.DefaultPageSize, query.Limit())
	assert.Empty(t, query.Search())
	assert.Empty(t, query.Status())
	assert.Equal(t, ports.SortByCreatedAt, query.SortBy())
	assert.Equal(t, ports.SortDesc, query.SortOrder())
}

func TestNewListOrdersQuery_AllParameters(t *testing.T) {
	params := url.Values{
		"page":   {"3"},
		"limit":  {"15"},
		"q":      {"  Dana  "},
		"status": {"approved"},
		"sort":   {"total:asc"},
	}

	query, err := queries.NewListOrdersQuery(params, queries.DefaultPageLimits())

	require.NoError(t, err)
	assert.Equal(t, 3, query.Page())
	assert.Equal(t, 15, query.Limit())
	assert.Equal(t, "Dana", query.Search())
	assert.Equal(t, order.Approved, query.Status())

	criteria := query.Criteria()
	assert.Equal(t, ports.ListCriteria{
		Filter:    ports.OrderFilter{Query: "Dana", Status: order.Approved},
		Page:      3,
		Limit:     15,
		SortBy:    ports.SortByTotal,
		SortOrder: ports.SortAsc,
	}, criteria)
	assert.Equal(t, 30, criteria.Offset())
}

func TestNewListOrdersQuery_Limit(t *testing.T) {
	limits := queries.DefaultPageLimits()

	t.Run("max is accepted", func(t *testing.T) {
		query, err := queries.NewListOrdersQuery(url.Values{"limit": {"100"}}, limits)

		require.NoError(t, err)
		assert.Equal(t, 100, query.Limit())
	})

	t.Run("anything above max is rejected, never clamped", func(t *testing.T) {
		for _, raw := range []string{"101", "150", "1000", "999999999", "99999999999999999999999"} {
			_, err := queries.NewListOrdersQuery(url.Values{"limit": {raw}}, limits)

			require.Error(t, err, raw)
			assert.Equal(t, "limit cannot exceed 100", fieldErrors(t, err)["limit"])
		}
	})

	t.Run("configured max is honoured", func(t *testing.T) {
		custom := queries.PageLimits{DefaultPageSize: 5, MaxPageSize: 10}

		query, err := queries.NewListOrdersQuery(url.Values{}, custom)
		require.NoError(t, err)
		assert.Equal(t, 5, query.Limit())

		_, err = queries.NewListOrdersQuery(url.Values{"limit": {"11"}}, custom)
		assert.Equal(t, "limit cannot exceed 10", fieldErrors(t, err)["limit"])
	})

	t.Run("below one and non integers", func(t *testing.T) {
		testCases := map[string]string{
			"0":   "limit must be at least 1",
			"-5":  "limit must be at least 1",
			"abc": "limit must be an integer",
			"2.5": "limit must be an integer",
			"":    "limit must be an integer",
		}
		for raw, expected := range testCases {
			_, err := queries.NewListOrdersQuery(url.Values{"limit": {raw}}, limits)

			assert.Equal(t, expected, fieldErrors(t, err)["limit"], raw)
		}
	})
}

func TestNewListOrdersQuery_Page(t *testing.T) {
	t.Run("invalid pages", func(t *testing.T) {
		testCases := map[string]string{
			"0":    "page must be at least 1",
			"-1":   "page must be at least 1",
			"one":  "page must be an integer",
			"1e3":  "page must be an integer",
			"0x10": "page must be an integer",
		}
		for raw, expected := range testCases {
			_, err := queries.NewListOrdersQuery(url.Values{"page": {raw}}, queries.DefaultPageLimits())

			assert.Equal(t, expected, fieldErrors(t, err)["page"], raw)
		}
	})

	t.Run("pages whose offset would overflow are rejected", func(t *testing.T) {
		maxPage := ports.MaxPage(queries.MaxPageSize)
		require.Equal(t, 21474837, maxPage)

		for _, raw := range []string{
			strconv.Itoa(maxPage + 1),
			strconv.Itoa(math.MaxInt),
			"9223372036854775807",
			"99999999999999999999999",
		} {
			_, err := queries.NewListOrdersQuery(url.Values{"page": {raw}, "limit": {"20"}}, queries.DefaultPageLimits())

			require.Error(t, err, raw)
			assert.Equal(t, "page cannot exceed 21474837", fieldErrors(t, err)["page"], raw)
		}
	})

	t.Run("last page keeps a bounded offset at the largest limit", func(t *testing.T) {
		maxPage := ports.MaxPage(queries.MaxPageSize)

		query, err := queries.NewListOrdersQuery(
			url.Values{"page": {strconv.Itoa(maxPage)}, "limit": {"100"}},
			queries.DefaultPageLimits(),
		)

		require.NoError(t, err)
		criteria := query.Criteria()
		require.NoError(t, criteria.Validate())
		assert.Equal(t, (maxPage-1)*100, criteria.Offset())
		assert.LessOrEqual(t, criteria.Offset(), ports.MaxOffset)
	})
}

func TestNewListOrdersQuery_Search(t *testing.T) {
	t.Run("blank search is rejected", func(t *testing.T) {
		_, err := queries.NewListOrdersQuery(url.Values{"q": {"   "}}, queries.DefaultPageLimits())

		assert.Equal(t, "search query cannot be empty", fieldErrors(t, err)["q"])
	})

	t.Run("255 characters are accepted after trimming", func(t *testing.T) {
		term := strings.Repeat("ä", 255)

		query, err := queries.NewListOrdersQuery(url.Values{"q": {" " + term + " "}}, queries.DefaultPageLimits())

		require.NoError(t, err)
		assert.Equal(t, term, query.Search())
	})

	t.Run("256 characters are rejected", func(t *testing.T) {
		_, err := queries.NewListOrdersQuery(url.Values{"q": {strings.Repeat("x", 256)}}, queries.DefaultPageLimits())

		assert.Equal(t, "search query cannot exceed 255 characters", fieldErrors(t, err)["q"])
	})
}

func TestNewListOrdersQuery_Status(t *testing.T) {
	for _, status := range order.Statuses() {
		query, err := queries.NewListOrdersQuery(url.Values{"status": {status.String()}}, queries.DefaultPageLimits())

		require.NoError(t, err)
		assert.Equal(t, status, query.Status())
	}

	for _, raw := range []string{"", "APPROVED", "shipped"} {
		_, err := queries.NewListOrdersQuery(url.Values{"status": {raw}}, queries.DefaultPageLimits())

		assert.Equal(t,
			"status must be one of: pending, approved, rejected, cancelled",
			fieldErrors(t, err)["status"], raw)
	}
}

func TestNewListOrdersQuery_Sort(t *testing.T) {
	t.Run("valid tokens resolve only to allow-listed columns", func(t *testing.T) {
		allowed := map[ports.SortColumn]bool{}
		for _, c := range ports.SortColumns() {
			allowed[c] = true
		}

		testCases := map[string]ports.SortColumn{
			"createdAt": ports.SortByCreatedAt,
			"total":     ports.SortByTotal,
			"customer":  ports.SortByCustomer,
			"status":    ports.SortByStatus,
		}
		for field, column := range testCases {
			for _, direction := range []ports.SortOrder{ports.SortAsc, ports.SortDesc} {
				query, err := queries.NewListOrdersQuery(
					url.Values{"sort": {field + ":" + string(direction)}},
					queries.DefaultPageLimits(),
				)

				require.NoError(t, err)
				assert.Equal(t, column, query.SortBy())
				assert.True(t, allowed[query.SortBy()])
				assert.Equal(t, direction, query.SortOrder())
			}
		}
	})

	t.Run("anything else is rejected before reaching the query layer", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"createdAt",
			"created_at:desc",
			"total:ASC",
			"total:up",
			"id:asc",
			"total:asc:extra",
			"customer; DROP TABLE orders:asc",
			"status:asc, id",
		} {
			query, err := queries.NewListOrdersQuery(url.Values{"sort": {raw}}, queries.DefaultPageLimits())

			require.Error(t, err, raw)
			assert.Contains(t, fieldErrors(t, err)["sort"], `sort must be in format "field:direction"`, raw)
			assert.Empty(t, query.SortBy())
		}
	})
}

func TestNewListOrdersQuery_ReportsEveryViolation(t *testing.T) {
	params := url.Values{
		"page":   {"0"},
		"limit":  {"500"},
		"q":      {""},
		"status": {"lost"},
		"sort":   {"price:asc"},
	}

	_, err := queries.NewListOrdersQuery(params, queries.DefaultPageLimits())

	require.ErrorIs(t, err, errs.ErrValidationFailed)
	fields := fieldErrors(t, err)
	assert.Len(t, fields, 5)
	for _, field := range []string{"page", "limit", "q", "status", "sort"} {
		assert.Contains(t, fields, field)
	}
}

func TestNewListOrdersQuery_RepeatedParameter(t *testing.T) {
	_, err := queries.NewListOrdersQuery(url.Values{"page": {"1", "2"}}, queries.DefaultPageLimits())

	assert.Equal(t, "page must be specified once", fieldErrors(t, err)["page"])
}

func TestListOrdersQuery_NotConstructedViaConstructor(t *testing.T) {
	query := queries.ListOrdersQuery{}

	err := query.Validate()

	require.ErrorIs(t, err, queries.ErrListOrdersQueryIsNotConstructed)
}
