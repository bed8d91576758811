package pricing

import (
	"errors"
	"net/http"

	"github.com/noah-isme/parkconnect-api/internal/common"
)

// Handler exposes pricing endpoints.
type Handler struct {
	Service *Service
}

// Get handles GET /api/v1/pricing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tiers, warn := h.Service.Current(r.Context())
	resp := map[string]any{"data": tiers}
	if warn != nil {
		resp["warning"] = "Live pricing unavailable; showing the last known prices."
	}
	common.JSON(w, http.StatusOK, resp)
}

type quoteRequest struct {
	Visitors []struct {
		Country Category `json:"country"`
	} `json:"visitors"`
}

// QuoteLine is the subtotal for one category in a quote.
type QuoteLine struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Price    Money    `json:"unitPrice"`
	Subtotal Money    `json:"subtotal"`
}

// Quote handles POST /api/v1/pricing/quote, the live total shown while the
// booking form is being filled in.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	tiers, warn := h.Service.Current(r.Context())
	categories := make([]Category, len(req.Visitors))
	counts := map[Category]int{}
	for i, v := range req.Visitors {
		categories[i] = v.Country
		counts[v.Country]++
	}
	lines := make([]QuoteLine, 0, len(Categories))
	for _, c := range Categories {
		if counts[c] == 0 {
			continue
		}
		lines = append(lines, QuoteLine{Category: c, Count: counts[c], Price: tiers.Price(c), Subtotal: Money(counts[c]) * tiers.Price(c)})
	}
	resp := map[string]any{
		"total": ComputeTotal(categories, tiers),
		"lines": lines,
		"tiers": tiers,
	}
	if warn != nil {
		resp["warning"] = "Live pricing unavailable; total uses the last known prices."
	}
	common.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /api/v1/admin/pricing.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req Tiers
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	tiers, err := h.Service.Update(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidTiers) {
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_TIERS", "all three prices must be positive numbers", nil)
			return
		}
		common.JSONError(w, http.StatusServiceUnavailable, "PRICING_UPDATE_FAILED", "pricing could not be saved, please retry", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tiers})
}
