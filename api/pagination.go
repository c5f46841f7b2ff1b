package api

import "math"

// Pagination bounds for list endpoints
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// PaginationParams holds pagination query parameters
type PaginationParams struct {
	Page  int `json:"page"`  // 1-based page number
	Limit int `json:"limit"` // Items per page
}

// PaginationResponse is a paginated response wrapper
type PaginationResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// Normalize applies defaults and caps
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// CalculateOffset converts page and limit to a slice offset
func (p PaginationParams) CalculateOffset() int {
	pageMinusOne := p.Page - 1
	if pageMinusOne <= 0 {
		return 0
	}
	if p.Limit > 0 && pageMinusOne > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return pageMinusOne * p.Limit
}

// Paginate slices items to the requested page
func Paginate[T any](items []T, p PaginationParams) PaginationResponse[T] {
	p = p.Normalize()
	total := len(items)

	start := p.CalculateOffset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total || end < start {
		end = total
	}

	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	if totalPages < 1 {
		totalPages = 1
	}

	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	return PaginationResponse[T]{
		Items:      page,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
	}
}
