package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	HasNext    bool `json:"has_next"`
	PrevPage   int  `json:"prev_page,omitempty"`
	NextPage   int  `json:"next_page,omitempty"`
}

// NewPagination computes pagination metadata from a known total.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	p := Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages, HasNext: page < totalPages}
	return p.withLinks()
}

// NewPaging computes metadata for windowed listings that fetched one extra
// row to detect a next page.
func NewPaging(page, perPage int, hasNext bool) Pagination {
	page, perPage = normalizePage(page, perPage)
	p := Pagination{Page: page, PerPage: perPage, HasNext: hasNext}
	return p.withLinks()
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p Pagination) withLinks() Pagination {
	if p.Page > 1 {
		p.PrevPage = p.Page - 1
	}
	if p.HasNext {
		p.NextPage = p.Page + 1
	}
	return p
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}
