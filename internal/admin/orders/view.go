package orders

// View tracks the filter and page selection of an orders table. Changing the status
// filter or the query moves the view back to the first page.
type View struct {
	criteria Criteria
	page     int
}

// NewView returns a view on page 1 with no filters.
func NewView() *View {
	return &View{criteria: Criteria{Status: StatusFilterAll}, page: 1}
}

// Criteria returns the active filters.
func (v *View) Criteria() Criteria {
	return v.criteria
}

// Page returns the selected page.
func (v *View) Page() int {
	return v.page
}

// SetStatusFilter changes the status filter.
func (v *View) SetStatusFilter(filter StatusFilter) {
	if filter == "" {
		filter = StatusFilterAll
	}
	if filter == v.criteria.Status {
		return
	}
	v.criteria.Status = filter
	v.page = 1
}

// SetQuery changes the customer name query.
func (v *View) SetQuery(query string) {
	if query == v.criteria.Query {
		return
	}
	v.criteria.Query = query
	v.page = 1
}

// SetPage selects a page. Out of range pages are kept and render as empty.
func (v *View) SetPage(page int) {
	v.page = page
}

// Matches returns every order matching the active filters, across all pages.
func (v *View) Matches(orders []Order) []Order {
	return Filter(orders, v.criteria)
}

// Render filters orders and returns the selected page. The result is recomputed from
// orders on every call.
func (v *View) Render(orders []Order) ([]Order, Pagination) {
	return Paginate(v.Matches(orders), v.page, PageSize)
}

