package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, page)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 5}, meta)

	page, _ = Paginate(items, 3, 2)
	require.Equal(t, []int{5}, page)

	page, _ = Paginate(items, 9, 2)
	require.Empty(t, page)

	page, meta = Paginate(items, 1, 0)
	require.Len(t, page, 5)
	require.Equal(t, 5, meta.PerPage)
}

func TestParsePaginationCaps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?page=3&limit=900", nil)
	page, per := ParsePagination(req, 50, 200)
	require.Equal(t, 3, page)
	require.Equal(t, 200, per)
}

func TestPaginationHugePageIsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?page=36893488147419104&limit=500", nil)
	page, per := ParsePagination(req, 50, 200)
	require.Equal(t, MaxPage, page)
	require.Equal(t, 200, per)

	items, meta := Paginate([]int{1, 2, 3}, page, per)
	require.Empty(t, items)
	require.Equal(t, 3, meta.TotalItems)

	items, _ = Paginate([]int{1, 2, 3}, int(^uint(0)>>1), 500)
	require.Empty(t, items)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	require.Equal(t, "10.0.0.9", ClientIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	require.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	WriteError(rec, NewAppError("NOT_FOUND", "booking not found", http.StatusNotFound, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"booking not found"}}`, rec.Body.String())
}
