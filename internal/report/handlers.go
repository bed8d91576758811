package report

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/records"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler exposes report archiving to admins.
type Handler struct {
	Tasks   Enqueuer
	Archive *Archive
	Engine  *records.Engine
}

// Enqueue handles POST /api/v1/admin/reports/{kind}/archive.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.Tasks == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "report archiving requires redis", nil)
		return
	}
	kind, err := records.ParseReportKind(chi.URLParam(r, "kind"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_REPORT", "report must be daily, weekly or monthly", nil)
		return
	}
	ref, err := h.Engine.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "date must be yyyy-MM-dd", nil)
		return
	}
	p := Payload{Kind: kind, Date: ref.Format(booking.DateLayout)}
	task, err := NewGenerateTask(p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	info, err := h.Tasks.EnqueueContext(r.Context(), task)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "could not enqueue report", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{
		"taskId": info.ID,
		"queue":  info.Queue,
		"kind":   p.Kind,
		"date":   p.Date,
	}})
}

// Download handles GET /api/v1/admin/reports/archive/{name}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := h.Archive.Get(r.Context(), name)
	switch {
	case errors.Is(err, ErrInvalidName):
		common.JSONError(w, http.StatusBadRequest, "INVALID_NAME", "not a report file name", nil)
		return
	case errors.Is(err, ErrNotArchived):
		common.JSONError(w, http.StatusNotFound, "REPORT_NOT_FOUND", "report has not been archived", nil)
		return
	case err != nil:
		common.WriteError(w, err)
		return
	}
	common.Attachment(w, "text/csv; charset=utf-8", name, body)
}
