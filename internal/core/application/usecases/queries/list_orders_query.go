package queries

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/core/ports"
	"orderadmin/internal/pkg/errs"
	"orderadmin/internal/pkg/guard"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxQueryLength  = 255
	DefaultSort     = "createdAt:desc"
)

var (
	ErrListOrdersQueryIsNotConstructed = errors.New(
		"ListOrdersQuery must be created via NewListOrdersQuery constructor",
	)
)

// sortFields maps the public sort field names onto physical columns.
func sortFields() map[string]ports.SortColumn {
	return map[string]ports.SortColumn{
		"createdAt": ports.SortByCreatedAt,
		"total":     ports.SortByTotal,
		"customer":  ports.SortByCustomer,
		"status":    ports.SortByStatus,
	}
}

// PageLimits bounds the page size of list requests.
type PageLimits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPageLimits returns the limits used when configuration does not override them.
func DefaultPageLimits() PageLimits {
	return PageLimits{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}
}

// ListOrdersQuery is the canonical form of a list request: every value is bounded and
// the sort column is allow-listed, so it can be handed to the query builder as is.
//
// Example:
//
//	query, err := NewListOrdersQuery(c.QueryParams(), DefaultPageLimits())
//	if err != nil {
//	    // err is an *errs.ValidationError listing every bad parameter
//	}
//	result, err := handler.Handle(ctx, query)
type ListOrdersQuery struct {
	page      int
	limit     int
	q         string
	status    order.Status
	sortBy    ports.SortColumn
	sortOrder ports.SortOrder

	guard guard.ConstructorGuard
}

// NewListOrdersQuery parses raw query parameters. Missing page, limit and sort take
// their defaults; anything present but malformed is reported, never silently fixed.
// Unknown parameters are ignored.
func NewListOrdersQuery(params url.Values, limits PageLimits) (ListOrdersQuery, error) {
	query := ListOrdersQuery{
		page:  1,
		limit: limits.DefaultPageSize,
		guard: guard.NewConstructorGuard(),
	}

	validationErr := errs.NewValidationError("query")
	query.setPage(params, limits.MaxPageSize, validationErr)
	query.setLimit(params, limits.MaxPageSize, validationErr)
	query.setSearch(params, validationErr)
	query.setStatus(params, validationErr)
	query.setSort(params, validationErr)

	if err := validationErr.OrNil(); err != nil {
		return ListOrdersQuery{}, err
	}

	return query, nil
}

// Validate ensures the query was created through the constructor.
func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

func (q ListOrdersQuery) Page() int {
	return q.page
}

func (q ListOrdersQuery) Limit() int {
	return q.limit
}

// Search returns the trimmed search term, empty when absent.
func (q ListOrdersQuery) Search() string {
	return q.q
}

// Status returns the status filter, empty when absent.
func (q ListOrdersQuery) Status() order.Status {
	return q.status
}

func (q ListOrdersQuery) SortBy() ports.SortColumn {
	return q.sortBy
}

func (q ListOrdersQuery) SortOrder() ports.SortOrder {
	return q.sortOrder
}

// Filter returns the part of the query shared by list and count.
func (q ListOrdersQuery) Filter() ports.OrderFilter {
	return ports.OrderFilter{Query: q.q, Status: q.status}
}

// Criteria converts the query into repository input.
func (q ListOrdersQuery) Criteria() ports.ListCriteria {
	return ports.ListCriteria{
		Filter:    q.Filter(),
		Page:      q.page,
		Limit:     q.limit,
		SortBy:    q.sortBy,
		SortOrder: q.sortOrder,
	}
}

// setPage bounds page by the largest page size so the offset of any accepted page
// fits whatever limit accompanies it.
func (q *ListOrdersQuery) setPage(params url.Values, maxPageSize int, verr *errs.ValidationError) {
	raw, present, ok := single(params, "page", verr)
	if !present || !ok {
		return
	}

	maxPage := ports.MaxPage(maxPageSize)
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case errors.Is(err, strconv.ErrRange) && page > 0:
		verr.Add("page", fmt.Sprintf("page cannot exceed %d", maxPage))
	case err != nil:
		verr.Add("page", "page must be an integer")
	case page < 1:
		verr.Add("page", "page must be at least 1")
	case page > maxPage:
		verr.Add("page", fmt.Sprintf("page cannot exceed %d", maxPage))
	default:
		q.page = page
	}
}

func (q *ListOrdersQuery) setLimit(params url.Values, maxPageSize int, verr *errs.ValidationError) {
	raw, present, ok := single(params, "limit", verr)
	if !present || !ok {
		return
	}

	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case errors.Is(err, strconv.ErrRange) && limit > 0:
		verr.Add("limit", fmt.Sprintf("limit cannot exceed %d", maxPageSize))
	case err != nil:
		verr.Add("limit", "limit must be an integer")
	case limit < 1:
		verr.Add("limit", "limit must be at least 1")
	case limit > maxPageSize:
		verr.Add("limit", fmt.Sprintf("limit cannot exceed %d", maxPageSize))
	default:
		q.limit = limit
	}
}

func (q *ListOrdersQuery) setSearch(params url.Values, verr *errs.ValidationError) {
	raw, present, ok := single(params, "q", verr)
	if !present || !ok {
		return
	}

	term := strings.TrimSpace(raw)
	switch {
	case term == "":
		verr.Add("q", "search query cannot be empty")
	case utf8.RuneCountInString(term) > MaxQueryLength:
		verr.Add("q", fmt.Sprintf("search query cannot exceed %d characters", MaxQueryLength))
	default:
		q.q = term
	}
}

func (q *ListOrdersQuery) setStatus(params url.Values, verr *errs.ValidationError) {
	raw, present, ok := single(params, "status", verr)
	if !present || !ok {
		return
	}

	status, err := order.ParseStatus(raw)
	if err != nil {
		verr.Add("status", "status must be one of: pending, approved, rejected, cancelled")
		return
	}
	q.status = status
}

func (q *ListOrdersQuery) setSort(params url.Values, verr *errs.ValidationError) {
	raw, present, ok := single(params, "sort", verr)
	if !ok {
		return
	}
	if !present {
		raw = DefaultSort
	}

	const msg = `sort must be in format "field:direction" where field is createdAt|total|customer|status ` +
		`and direction is asc|desc`

	field, direction, found := strings.Cut(raw, ":")
	if !found {
		verr.Add("sort", msg)
		return
	}

	column, known := sortFields()[field]
	if !known {
		verr.Add("sort", msg)
		return
	}

	switch ports.SortOrder(direction) {
	case ports.SortAsc, ports.SortDesc:
		q.sortBy = column
		q.sortOrder = ports.SortOrder(direction)
	default:
		verr.Add("sort", msg)
	}
}

// single returns the only value of key. Repeated keys are a validation failure.
func single(params url.Values, key string, verr *errs.ValidationError) (string, bool, bool) {
	values, present := params[key]
	if !present {
		return "", false, true
	}
	if len(values) != 1 {
		verr.Add(key, key+" must be specified once")
		return "", true, false
	}
	return values[0], true, true
}
