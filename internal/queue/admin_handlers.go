package queue

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/common"
)

// Inspector is the part of *asynq.Inspector the admin API needs.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunTask(queue, id string) error
	RunAllArchivedTasks(queue string) (int, error)
}

// AdminHandler exposes queue stats and dead task replay for the report and
// notification queues.
type AdminHandler struct {
	Inspector Inspector
	Queues    []string
	PageSize  int
	Logger    zerolog.Logger
}

type queueStats struct {
	Queue     string  `json:"queue"`
	Size      int     `json:"size"`
	Pending   int     `json:"pending"`
	Active    int     `json:"active"`
	Scheduled int     `json:"scheduled"`
	Retry     int     `json:"retry"`
	Dead      int     `json:"dead"`
	Processed int     `json:"processedToday"`
	Failed    int     `json:"failedToday"`
	LatencyMS int64   `json:"latencyMs"`
	Paused    bool    `json:"paused"`
	ErrorRate float64 `json:"errorRate"`
}

type deadTask struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Payload      string    `json:"payload"`
	Retried      int       `json:"retried"`
	MaxRetry     int       `json:"maxRetry"`
	LastError    string    `json:"lastError,omitempty"`
	LastFailedAt time.Time `json:"lastFailedAt,omitempty"`
}

type replayRequest struct {
	IDs []string `json:"ids"`
}

// Stats handles GET /api/v1/admin/queues.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "background jobs are not configured", nil)
		return
	}
	items := make([]queueStats, 0, len(h.Queues))
	for _, name := range h.Queues {
		info, err := h.Inspector.GetQueueInfo(name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			items = append(items, queueStats{Queue: name})
			observeQueue(name, 0, 0)
			continue
		}
		if err != nil {
			h.Logger.Error().Err(err).Str("queue", name).Msg("inspect queue")
			common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "unable to inspect queues", nil)
			return
		}
		stats := queueStats{
			Queue:     name,
			Size:      info.Size,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Dead:      info.Archived,
			Processed: info.Processed,
			Failed:    info.Failed,
			LatencyMS: info.Latency.Milliseconds(),
			Paused:    info.Paused,
		}
		if info.Processed > 0 {
			stats.ErrorRate = float64(info.Failed) / float64(info.Processed)
		}
		observeQueue(name, info.Pending, info.Archived)
		items = append(items, stats)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ListDead handles GET /api/v1/admin/queues/{queue}/dead.
func (h *AdminHandler) ListDead(w http.ResponseWriter, r *http.Request) {
	name, ok := h.queue(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, h.pageSize(), 200)
	tasks, err := h.Inspector.ListArchivedTasks(name, asynq.Page(page), asynq.PageSize(perPage))
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		h.Logger.Error().Err(err).Str("queue", name).Msg("list dead tasks")
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "unable to list dead tasks", nil)
		return
	}
	items := make([]deadTask, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, deadTask{
			ID:           t.ID,
			Type:         t.Type,
			Payload:      string(t.Payload),
			Retried:      t.Retried,
			MaxRetry:     t.MaxRetry,
			LastError:    t.LastErr,
			LastFailedAt: t.LastFailedAt,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"queue":      name,
		"data":       items,
		"pagination": map[string]int{"page": page, "per_page": perPage},
	})
}

// ReplayDead handles POST /api/v1/admin/queues/{queue}/dead/replay. An empty
// id list replays every dead task in the queue.
func (h *AdminHandler) ReplayDead(w http.ResponseWriter, r *http.Request) {
	name, ok := h.queue(w, r)
	if !ok {
		return
	}
	var req replayRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}

	ids := uniqueStrings(req.IDs)
	if len(ids) == 0 {
		n, err := h.Inspector.RunAllArchivedTasks(name)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			h.Logger.Error().Err(err).Str("queue", name).Msg("replay dead tasks")
			common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "unable to replay dead tasks", nil)
			return
		}
		h.Logger.Info().Str("queue", name).Int("count", n).Msg("dead tasks replayed")
		common.JSON(w, http.StatusOK, map[string]any{"queue": name, "replayed": n})
		return
	}

	replayed := make([]string, 0, len(ids))
	failed := make(map[string]string)
	for _, id := range ids {
		err := h.Inspector.RunTask(name, id)
		switch {
		case err == nil:
			replayed = append(replayed, id)
		case errors.Is(err, asynq.ErrTaskNotFound):
			failed[id] = "not found"
		default:
			failed[id] = err.Error()
		}
	}
	h.Logger.Info().Str("queue", name).Int("count", len(replayed)).Int("failed", len(failed)).Msg("dead tasks replayed")
	resp := map[string]any{"queue": name, "replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) queue(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "background jobs are not configured", nil)
		return "", false
	}
	name := strings.TrimSpace(chi.URLParam(r, "queue"))
	if !slices.Contains(h.Queues, name) {
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_QUEUE", "unknown queue", map[string]any{"queues": h.Queues})
		return "", false
	}
	return name, true
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
