package orders

import (
	"fmt"
	"strings"

	"github.com/kflex/dashboard/internal/platform/textutil"
)

// PageSize is the number of orders shown per page.
const PageSize = 5

// StatusFilter selects orders by status. StatusFilterAll disables the filter.
type StatusFilter string

// StatusFilterAll matches every order.
const StatusFilterAll StatusFilter = "All"

// ParseStatusFilter accepts "All" (or an empty value) and the known statuses, case-insensitively.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, string(StatusFilterAll)) {
		return StatusFilterAll, nil
	}
	status, ok := ParseStatus(trimmed)
	if !ok {
		return "", fmt.Errorf("orders: unknown status filter %q", raw)
	}
	return StatusFilter(status), nil
}

// Criteria holds the filters applied to the order set.
type Criteria struct {
	Status StatusFilter
	Query  string
}

func (c Criteria) statusFilter() StatusFilter {
	if c.Status == "" {
		return StatusFilterAll
	}
	return c.Status
}

// Filter returns the orders that match c in their original order. The input is not modified.
func Filter(orders []Order, c Criteria) []Order {
	status := c.statusFilter()
	matcher := textutil.NewMatcher(c.Query)

	results := make([]Order, 0, len(orders))
	for _, order := range orders {
		if status != StatusFilterAll && order.Status != Status(status) {
			continue
		}
		if !matcher.MatchAny(order.CustomerName) {
			continue
		}
		results = append(results, order)
	}
	return results
}

// Pagination captures pagination metadata.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	NextPage   *int `json:"nextPage,omitempty"`
	PrevPage   *int `json:"prevPage,omitempty"`
}

// PageCount returns ceil(total / size).
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate slices orders into the 1-indexed page. Pages outside 1..PageCount yield an
// empty slice. A non-positive size falls back to PageSize.
func Paginate(orders []Order, page, size int) ([]Order, Pagination) {
	if size <= 0 {
		size = PageSize
	}
	total := len(orders)
	pagination := Pagination{
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: PageCount(total, size),
	}
	if page < 1 || page > pagination.TotalPages {
		return []Order{}, pagination
	}

	start := (page - 1) * size
	end := min(start+size, total)
	if end < total {
		next := page + 1
		pagination.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		pagination.PrevPage = &prev
	}
	return append([]Order(nil), orders[start:end]...), pagination
}

// StatusCount captures counts per status for a result set.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

func statusDistribution(orders []Order) []StatusCount {
	counts := make(map[Status]int, len(Statuses))
	for _, order := range orders {
		counts[order.Status]++
	}
	out := make([]StatusCount, 0, len(Statuses))
	for _, status := range Statuses {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out
}
