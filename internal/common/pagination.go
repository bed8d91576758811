package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// MaxPage bounds the page query parameter so offsets stay well inside int.
const MaxPage = 100000

// ParsePagination extracts page and limit query parameters. perPage is capped
// at maxPerPage and page at MaxPage; zero perPage means "everything".
func ParsePagination(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = min(p, MaxPage)
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// Paginate returns the slice of items for the requested page.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	meta := Pagination{Page: page, PerPage: perPage, TotalItems: len(items)}
	if perPage <= 0 {
		meta.PerPage = len(items)
		return items, meta
	}
	if page < 1 || page-1 >= (len(items)+perPage-1)/perPage {
		return []T{}, meta
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(items))
	return items[start:end], meta
}
