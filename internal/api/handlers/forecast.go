package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
)

// ForecastHandler serves the dated view of confirmed and planned rows.
type ForecastHandler struct {
	svc Ledger
}

// Forecast handles GET /api/forecast?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := parseDate(w, "from", q.Get("from"))
	if !ok {
		return
	}
	to, ok := parseDate(w, "to", q.Get("to"))
	if !ok {
		return
	}

	view, err := h.svc.Forecast(r.Context(), from, to)
	if err != nil {
		fail(w, r, err, "Failed to build forecast")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"from":         view.From,
		"to":           view.To,
		"transactions": view.Transactions,
		"count":        len(view.Transactions),
		"confirmed":    view.Confirmed,
		"projected":    view.Projected,
		"net":          view.Confirmed.Net().Add(view.Projected.Net()),
	})
}
