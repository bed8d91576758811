package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/obs"
)

type stubStore struct {
	entries []Entry
	err     error
}

func (s *stubStore) InsertAudit(_ context.Context, e Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, limit, offset int) ([]Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if offset >= len(s.entries) {
		return []Entry{}, nil
	}
	return s.entries[offset:min(offset+limit, len(s.entries))], nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, Now: func() time.Time { return fixed }}

	req := httptest.NewRequest(http.MethodPut, "https://api.test/api/v1/admin/pricing?dry=1", nil)
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := common.WithStaff(req.Context(), common.Staff{Username: "admin", Role: "admin"})
	ctx = obs.WithRoutePattern(ctx, "/api/v1/admin/pricing")
	req = req.WithContext(ctx)

	require.NoError(t, svc.Record(req.Context(), "", "", "", req, http.StatusOK, nil))
	require.Len(t, store.entries, 1)
	e := store.entries[0]
	require.Equal(t, "admin", e.Actor)
	require.Equal(t, "admin", e.Role)
	require.Equal(t, "PUT /api/v1/admin/pricing", e.Action)
	require.Equal(t, "admin.pricing", e.Resource)
	require.Equal(t, "req-123", e.RequestID)
	require.Equal(t, "10.0.0.2", e.IP)
	require.Equal(t, fixed, e.CreatedAt)
	require.JSONEq(t, `{"query":"dry=1"}`, string(e.Metadata))
}

func TestServiceRecordDisabledOrAnonymous(t *testing.T) {
	store := &stubStore{}
	req := httptest.NewRequest(http.MethodPost, "/x", nil)

	require.NoError(t, Service{Store: store}.Record(context.Background(), "a", "b", "", req, 200, nil))
	require.Empty(t, store.entries)

	require.NoError(t, Service{Store: store, Enabled: true}.Record(context.Background(), "cancel", "booking", "PC1", req, 0, nil))
	require.Len(t, store.entries, 1)
	require.Equal(t, "anonymous", store.entries[0].Actor)
	require.Equal(t, http.StatusOK, store.entries[0].Status)
	require.Equal(t, "PC1", store.entries[0].ResourceID)

	require.Error(t, Service{Enabled: true}.Record(context.Background(), "", "", "", req, 200, nil))
}

func TestMiddlewareRecordsStatusAndResourceID(t *testing.T) {
	store := &stubStore{}
	var reported error
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}, OnError: func(err error) { reported = err }}

	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{Action: "booking.cancel", Resource: "booking", ResourceIDParam: "id"})).
		Post("/bookings/{id}/cancel", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/bookings/PC42/cancel", nil))
	require.Equal(t, http.StatusConflict, res.Code)
	require.Len(t, store.entries, 1)
	require.Equal(t, "booking.cancel", store.entries[0].Action)
	require.Equal(t, "PC42", store.entries[0].ResourceID)
	require.Equal(t, http.StatusConflict, store.entries[0].Status)
	require.NoError(t, reported)

	store.err = errors.New("db down")
	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/bookings/PC42/cancel", nil))
	require.Equal(t, http.StatusConflict, res.Code)
	require.EqualError(t, reported, "db down")
}

func TestHandlerList(t *testing.T) {
	store := &stubStore{entries: []Entry{{Action: "a"}, {Action: "b"}, {Action: "c"}}}
	h := Handler{Store: store}

	res := httptest.NewRecorder()
	h.List(res, httptest.NewRequest(http.MethodGet, "/admin/audit?page=2&limit=2", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Data []Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "c", body.Data[0].Action)

	res = httptest.NewRecorder()
	Handler{}.List(res, httptest.NewRequest(http.MethodGet, "/admin/audit", nil))
	require.Equal(t, http.StatusInternalServerError, res.Code)
}
