package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
	"github.com/noah-isme/parkconnect-api/internal/records"
	"github.com/noah-isme/parkconnect-api/internal/report"
)

var npt = time.FixedZone("NPT", 5*3600+45*60)

type listSource struct {
	bookings []booking.Booking
	err      error
}

func (s listSource) List(context.Context) ([]booking.Booking, error) { return s.bookings, s.err }

func engine() *records.Engine {
	e := records.NewEngine(npt)
	e.Now = func() time.Time { return time.Date(2026, 4, 15, 23, 55, 0, 0, npt) }
	return e
}

func fixtures() []booking.Booking {
	return []booking.Booking{
		{ID: "CNP-0001-AAAAAAAA", FullName: "Sita Sharma", Email: "sita@example.com", Phone: "9812345678",
			DateOfVisit: "2026-04-15", NumberOfVisitors: 1,
			Visitors:   []booking.Visitor{{Name: "Sita", Country: pricing.CategoryNepal}},
			TotalPrice: 100, PaymentStatus: booking.PaymentPaid},
		{ID: "CNP-0002-BBBBBBBB", FullName: "Ravi Kumar", Email: "ravi@example.in", Phone: "9800000001",
			DateOfVisit: "2026-04-13", NumberOfVisitors: 1,
			Visitors:   []booking.Visitor{{Name: "Ravi", Country: pricing.CategorySAARC}},
			TotalPrice: 200, PaymentStatus: booking.PaymentUnpaid},
	}
}

func newArchive(t *testing.T) (*report.Archive, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return &report.Archive{R: redis.NewClient(&redis.Options{Addr: mr.Addr()}), TTL: time.Hour}, mr
}

func task(t *testing.T, p report.Payload) *asynq.Task {
	t.Helper()
	tk, err := report.NewGenerateTask(p)
	require.NoError(t, err)
	return tk
}

func TestGeneratorArchivesWindow(t *testing.T) {
	archive, mr := newArchive(t)
	outcomes := map[string]string{}
	g := &report.Generator{
		Source:   listSource{bookings: fixtures()},
		Engine:   engine(),
		Archive:  archive,
		Logger:   zerolog.Nop(),
		OnExport: func(kind, outcome string) { outcomes[kind] = outcome },
	}

	require.NoError(t, g.ProcessTask(context.Background(), task(t, report.Payload{Kind: records.ReportWeekly})))
	name := "visitors-weekly-report-2026-04-13-to-2026-04-19.csv"
	require.True(t, mr.Exists("report:archive:"+name))

	body, err := archive.Get(context.Background(), name)
	require.NoError(t, err)
	require.Contains(t, string(body), "CNP-0002-BBBBBBBB")
	require.Less(t, strings.Index(string(body), "CNP-0002"), strings.Index(string(body), "CNP-0001"))
	require.Equal(t, "archived", outcomes["weekly"])
}

func TestGeneratorEmptyWindowIsNoop(t *testing.T) {
	archive, mr := newArchive(t)
	g := &report.Generator{Source: listSource{bookings: fixtures()}, Engine: engine(), Archive: archive, Logger: zerolog.Nop()}

	require.NoError(t, g.ProcessTask(context.Background(), task(t, report.Payload{Kind: records.ReportDaily, Date: "2026-05-01"})))
	require.Empty(t, mr.Keys())
}

func TestGeneratorSkipsRetryOnBadPayload(t *testing.T) {
	g := &report.Generator{Source: listSource{}, Engine: engine(), Logger: zerolog.Nop()}

	err := g.ProcessTask(context.Background(), asynq.NewTask(report.TypeGenerate, []byte(`{"kind":"yearly"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = g.ProcessTask(context.Background(), asynq.NewTask(report.TypeGenerate, []byte(`{"kind":"daily","date":"15/04/2026"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = g.ProcessTask(context.Background(), asynq.NewTask(report.TypeGenerate, []byte(`not json`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestGeneratorRetriesStoreFailure(t *testing.T) {
	boom := errors.New("store down")
	g := &report.Generator{Source: listSource{err: boom}, Engine: engine(), Logger: zerolog.Nop()}

	err := g.ProcessTask(context.Background(), task(t, report.Payload{Kind: records.ReportDaily}))
	require.ErrorIs(t, err, boom)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewGenerateTaskRejectsUnknownKind(t *testing.T) {
	_, err := report.NewGenerateTask(report.Payload{Kind: "yearly"})
	require.ErrorIs(t, err, records.ErrUnknownReport)
}

func TestArchiveNames(t *testing.T) {
	require.True(t, report.ValidName("visitors-daily-report-2026-04-15.csv"))
	require.True(t, report.ValidName("visitors-weekly-report-2026-04-13-to-2026-04-19.csv"))
	require.True(t, report.ValidName("visitors-monthly-report-2026-04.csv"))
	require.False(t, report.ValidName("../etc/passwd"))
	require.False(t, report.ValidName("visitors-export-2026-04-15.csv"))

	archive, _ := newArchive(t)
	_, err := archive.Get(context.Background(), "visitors-daily-report-2026-01-01.csv")
	require.ErrorIs(t, err, report.ErrNotArchived)
}

type recordingRegistrar struct{ specs []string }

func (r *recordingRegistrar) Register(spec string, _ *asynq.Task, _ ...asynq.Option) (string, error) {
	r.specs = append(r.specs, spec)
	return "entry", nil
}

func TestRegisterSchedules(t *testing.T) {
	reg := &recordingRegistrar{}
	n, err := report.RegisterSchedules(reg, report.Schedules{
		records.ReportDaily:   "55 23 * * *",
		records.ReportWeekly:  "",
		records.ReportMonthly: "0 0 1 * *",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"55 23 * * *", "0 0 1 * *"}, reg.specs)
}

type fakeQueue struct{ tasks []*asynq.Task }

func (q *fakeQueue) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Queue: report.Queue}, nil
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlerEnqueueAndDownload(t *testing.T) {
	archive, _ := newArchive(t)
	q := &fakeQueue{}
	h := &report.Handler{Tasks: q, Archive: archive, Engine: engine()}

	rec := httptest.NewRecorder()
	h.Enqueue(rec, withParam(httptest.NewRequest(http.MethodPost, "/?date=2026-04-10", nil), "kind", "monthly"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, q.tasks, 1)
	p, err := report.DecodePayload(q.tasks[0])
	require.NoError(t, err)
	require.Equal(t, report.Payload{Kind: records.ReportMonthly, Date: "2026-04-10"}, p)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "task-1", body.Data["taskId"])

	rec = httptest.NewRecorder()
	h.Enqueue(rec, withParam(httptest.NewRequest(http.MethodPost, "/", nil), "kind", "yearly"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	name := "visitors-monthly-report-2026-04.csv"
	rec = httptest.NewRecorder()
	h.Download(rec, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "name", name))
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, archive.Save(context.Background(), name, []byte("a,b\n")))
	rec = httptest.NewRecorder()
	h.Download(rec, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "name", name))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a,b\n", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), name)

	rec = httptest.NewRecorder()
	h.Download(rec, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "name", "secrets.txt"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
