package records

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// Source lists every stored booking.
type Source interface {
	List(ctx context.Context) ([]booking.Booking, error)
}

// Handler serves the admin visitor records view.
type Handler struct {
	Source Source
	Engine *Engine
	Logger zerolog.Logger
	// OnExport is called with the report kind ("view" for filtered exports)
	// and outcome of every CSV request.
	OnExport func(kind, outcome string)
}

// ParseQuery reads criteria and sort from query parameters.
func ParseQuery(q url.Values) (Criteria, Sort, error) {
	c := Criteria{
		Search:  q.Get("search"),
		Window:  DateWindow(strings.ToLower(q.Get("date"))),
		Country: pricing.Category(q.Get("country")),
		Payment: booking.PaymentStatus(q.Get("payment")),
		CheckIn: booking.CheckInStatus(q.Get("checkin")),
	}
	if !c.Window.Valid() {
		return Criteria{}, Sort{}, common.NewAppError("INVALID_FILTER", "date must be one of all, today, week, month", http.StatusBadRequest, nil)
	}
	if c.Country != "" && !c.Country.Valid() {
		return Criteria{}, Sort{}, common.NewAppError("INVALID_FILTER", "country must be one of Nepal, SAARC, Other", http.StatusBadRequest, nil)
	}
	if c.Payment != "" && !c.Payment.Valid() {
		return Criteria{}, Sort{}, common.NewAppError("INVALID_FILTER", "payment must be one of Unpaid, Paid, Failed", http.StatusBadRequest, nil)
	}
	if c.CheckIn != "" && !c.CheckIn.Valid() {
		return Criteria{}, Sort{}, common.NewAppError("INVALID_FILTER", "checkin must be Checked-In or Not Checked-In", http.StatusBadRequest, nil)
	}

	s := DefaultSort
	if key := q.Get("sort"); key != "" {
		s = Sort{Key: SortKey(key), Dir: Asc}
		if !s.Key.Valid() {
			return Criteria{}, Sort{}, common.NewAppError("INVALID_SORT", "unsupported sort key", http.StatusBadRequest, nil)
		}
	}
	switch Direction(strings.ToLower(q.Get("dir"))) {
	case "":
	case Asc:
		s.Dir = Asc
	case Desc:
		s.Dir = Desc
	default:
		return Criteria{}, Sort{}, common.NewAppError("INVALID_SORT", "dir must be asc or desc", http.StatusBadRequest, nil)
	}
	return c, s, nil
}

// List handles GET /api/v1/admin/visitors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	c, s, err := ParseQuery(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	all, err := h.Source.List(r.Context())
	if err != nil {
		booking.WriteError(w, err)
		return
	}
	view := h.Engine.Query(all, c, s)
	page, perPage := common.ParsePagination(r, 0, 500)
	items, meta := common.Paginate(view, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": meta,
		"summary":    Summarize(view),
		"sort":       s,
	})
}

// Export handles GET /api/v1/admin/visitors/export, downloading the current
// filtered and sorted view.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	c, s, err := ParseQuery(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	all, err := h.Source.List(r.Context())
	if err != nil {
		h.exported("view", "error")
		booking.WriteError(w, err)
		return
	}
	body, err := CSV(h.Engine.Query(all, c, s))
	if err != nil {
		h.exported("view", "error")
		common.WriteError(w, err)
		return
	}
	h.exported("view", "ok")
	name := "visitors-export-" + h.Engine.now().Format(booking.DateLayout) + ".csv"
	common.Attachment(w, "text/csv; charset=utf-8", name, body)
}

// Report handles GET /api/v1/admin/reports/{kind}. An optional date query
// parameter (yyyy-MM-dd) selects the window; it defaults to today.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseReportKind(chi.URLParam(r, "kind"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_REPORT", "report must be daily, weekly or monthly", nil)
		return
	}
	ref, err := h.Engine.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "date must be yyyy-MM-dd", nil)
		return
	}
	all, err := h.Source.List(r.Context())
	if err != nil {
		h.exported(string(kind), "error")
		booking.WriteError(w, err)
		return
	}
	rep, err := h.Engine.BuildReport(all, kind, ref)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rep.Empty() {
		h.exported(string(kind), "empty")
		h.Logger.Info().Str("report", string(kind)).Str("file", rep.Filename).Msg("report window has no records")
		common.JSON(w, http.StatusOK, map[string]any{
			"code":    "NO_DATA",
			"message": "No data available for " + string(kind) + " report.",
			"report":  rep,
		})
		return
	}
	body, err := rep.CSV()
	if err != nil {
		h.exported(string(kind), "error")
		common.WriteError(w, err)
		return
	}
	h.exported(string(kind), "ok")
	common.Attachment(w, "text/csv; charset=utf-8", rep.Filename, body)
}

func (h *Handler) exported(kind, outcome string) {
	if h.OnExport != nil {
		h.OnExport(kind, outcome)
	}
}

// IsUnknownReport reports whether err came from an unsupported report kind.
func IsUnknownReport(err error) bool { return errors.Is(err, ErrUnknownReport) }
