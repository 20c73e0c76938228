// Package listing holds the state behind a paginated, filtered list view:
// the query being shown, the retrieval that fills it, the two-phase delete
// flow and the detail selection. Nothing here performs rendering.
package listing

import "pmdash/internal/api"

// Query is the filter and pagination position driving the next retrieval.
// PageNumber always stays within [1, max(1, TotalPages())].
type Query struct {
	Title        string
	PageNumber   int
	PageSize     int
	TotalRecords int
}

func NewQuery(pageSize int) Query {
	if pageSize <= 0 {
		pageSize = 10
	}
	return Query{PageNumber: 1, PageSize: pageSize}
}

func (q Query) TotalPages() int {
	if q.PageSize <= 0 || q.TotalRecords <= 0 {
		return 0
	}
	return (q.TotalRecords + q.PageSize - 1) / q.PageSize
}

func (q Query) Params() api.ListParams {
	return api.ListParams{Title: q.Title, PageNumber: q.PageNumber, PageSize: q.PageSize}
}

// SetTitleFilter replaces the title filter and returns to the first page.
// It reports whether the request parameters changed.
func (q *Query) SetTitleFilter(title string) bool {
	before := q.Params()
	q.Title = title
	q.PageNumber = 1
	return q.Params() != before
}

func (q *Query) NextPage() bool {
	if q.PageNumber >= q.TotalPages() {
		return false
	}
	q.PageNumber++
	return true
}

func (q *Query) PrevPage() bool {
	if q.PageNumber <= 1 {
		return false
	}
	q.PageNumber--
	return true
}

// SetPageSize ignores non-positive sizes.
func (q *Query) SetPageSize(n int) bool {
	if n <= 0 || n == q.PageSize {
		return false
	}
	before := q.Params()
	q.PageSize = n
	q.clamp()
	return q.Params() != before
}

// SetTotalRecordCount stores the count reported by the backend and pulls the
// page number back into range. It reports whether the page number moved.
func (q *Query) SetTotalRecordCount(n int) bool {
	if n < 0 {
		n = 0
	}
	before := q.PageNumber
	q.TotalRecords = n
	q.clamp()
	return q.PageNumber != before
}

func (q *Query) clamp() {
	last := q.TotalPages()
	if last < 1 {
		last = 1
	}
	if q.PageNumber > last {
		q.PageNumber = last
	}
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
}
