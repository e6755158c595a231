package gateway

// Pagination is a 1-based page request.
type Pagination struct {
	Page    int
	PerPage int
}

// NewPagination clamps page and perPage to sane values. perPage falls back to
// def when unset and is capped at max.
func NewPagination(page, perPage, def, max int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = def
	}
	if max > 0 && perPage > max {
		perPage = max
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}
