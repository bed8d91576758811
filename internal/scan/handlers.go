package scan

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/common"
)

// Handler exposes the gate scanner endpoints.
type Handler struct {
	Svc *Service
}

// Verify handles GET /api/v1/scan/{id}.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		booking.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// CheckIn handles POST /api/v1/scan/{id}/check-in.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.CheckIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		booking.WriteError(w, err)
		return
	}
	h.log(r, "check_in", b)
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

// CheckOut handles POST /api/v1/scan/{id}/check-out.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.CheckOut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		booking.WriteError(w, err)
		return
	}
	h.log(r, "check_out", b)
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

func (h *Handler) log(r *http.Request, action string, b booking.Booking) {
	ev := h.Svc.Logger.Info().Str("action", action).Str("booking_id", b.ID)
	if staff, ok := common.StaffFrom(r.Context()); ok {
		ev = ev.Str("staff", staff.Username)
	}
	ev.Msg("gate scan")
}
