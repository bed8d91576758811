package analytics

import (
	"net/http"

	"github.com/noah-isme/parkconnect-api/internal/common"
)

// Handler exposes the admin dashboard.
type Handler struct {
	Svc *Service
}

// Dashboard returns visitor counters for the current day, week, month and year.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	stats, err := h.Svc.Dashboard(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "ANALYTICS_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}
