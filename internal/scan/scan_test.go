package scan_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
	"github.com/noah-isme/parkconnect-api/internal/repo"
	"github.com/noah-isme/parkconnect-api/internal/scan"
)

var npt = time.FixedZone("NPT", 5*3600+45*60)

var now = time.Date(2026, 4, 15, 9, 30, 0, 0, npt)

func ticket(id string) booking.Booking {
	return booking.Booking{
		ID: id, FullName: "Gate Demo", DateOfVisit: "2026-04-15", NumberOfVisitors: 1,
		Visitors:      []booking.Visitor{{Name: "Gate Demo", Country: pricing.CategoryNepal}},
		TotalPrice:    100,
		Status:        booking.StatusConfirmed,
		PaymentStatus: booking.PaymentPaid,
		CheckInStatus: booking.NotCheckedIn,
	}
}

func newService(t *testing.T, bookings ...booking.Booking) (*scan.Service, map[string]int) {
	t.Helper()
	store := repo.NewMemory(repo.Seed{Pricing: pricing.DefaultTiers, Bookings: bookings})
	clock := func() time.Time { return now }
	outcomes := map[string]int{}
	svc := &scan.Service{
		Bookings: &booking.Service{Store: store, Location: npt, Now: clock},
		Location: npt,
		Now:      clock,
		OnScan:   func(o string) { outcomes[o]++ },
	}
	return svc, outcomes
}

func TestEvaluateReasons(t *testing.T) {
	ok := ticket("A")
	require.True(t, scan.Evaluate(ok, now).Valid)
	require.Empty(t, scan.Evaluate(ok, now).Reasons)

	bad := ticket("B")
	bad.Status = booking.StatusCancelled
	bad.PaymentStatus = booking.PaymentFailed
	bad.DateOfVisit = "2026-04-16"
	v := scan.Evaluate(bad, now)
	require.False(t, v.Valid)
	require.Equal(t, []scan.Reason{scan.ReasonCancelled, scan.ReasonPaymentFailed, scan.ReasonWrongDate}, v.Reasons)

	legacy := ticket("C")
	legacy.PaymentStatus = ""
	require.Equal(t, []scan.Reason{scan.ReasonUnpaid}, scan.Evaluate(legacy, now).Reasons)

	done := ticket("D")
	done.CheckInStatus = booking.CheckedIn
	done.EntryTime = "08:00 AM"
	done.ExitTime = "09:00 AM"
	require.Equal(t, []scan.Reason{scan.ReasonCheckedOut}, scan.Evaluate(done, now).Reasons)

	inside := ticket("E")
	inside.CheckInStatus = booking.CheckedIn
	require.True(t, scan.Evaluate(inside, now).Valid)
}

func TestVerifyOutcomes(t *testing.T) {
	unpaid := ticket("CNP-0002-BBBBBBBB")
	unpaid.PaymentStatus = booking.PaymentUnpaid
	svc, outcomes := newService(t, ticket("CNP-0001-AAAAAAAA"), unpaid)

	v, err := svc.Verify(context.Background(), "cnp-0001-aaaaaaaa")
	require.NoError(t, err)
	require.True(t, v.Valid)

	v, err = svc.Verify(context.Background(), "CNP-0002-BBBBBBBB")
	require.NoError(t, err)
	require.False(t, v.Valid)

	_, err = svc.Verify(context.Background(), "CNP-MISSING")
	require.ErrorIs(t, err, booking.ErrNotFound)

	require.Equal(t, map[string]int{scan.OutcomeValid: 1, scan.OutcomeInvalid: 1, scan.OutcomeNotFound: 1}, outcomes)
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlerGateFlow(t *testing.T) {
	svc, _ := newService(t, ticket("CNP-0001-AAAAAAAA"))
	h := &scan.Handler{Svc: svc}

	rec := httptest.NewRecorder()
	h.Verify(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "CNP-NOPE"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.CheckIn(rec, withID(httptest.NewRequest(http.MethodPost, "/", nil), "CNP-0001-AAAAAAAA"))
	require.Equal(t, http.StatusOK, rec.Code)
	var in struct {
		Data booking.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	require.Equal(t, booking.CheckedIn, in.Data.CheckInStatus)
	require.Equal(t, "09:30 AM", in.Data.EntryTime)

	rec = httptest.NewRecorder()
	h.CheckIn(rec, withID(httptest.NewRequest(http.MethodPost, "/", nil), "CNP-0001-AAAAAAAA"))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.CheckOut(rec, withID(httptest.NewRequest(http.MethodPost, "/", nil), "CNP-0001-AAAAAAAA"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Verify(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "CNP-0001-AAAAAAAA"))
	require.Equal(t, http.StatusOK, rec.Code)
	var verdict struct {
		Data scan.Verdict `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	require.False(t, verdict.Data.Valid)
	require.Equal(t, []scan.Reason{scan.ReasonCheckedOut}, verdict.Data.Reasons)
}
