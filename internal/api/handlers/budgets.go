package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// BudgetsHandler serves monthly category budgets.
type BudgetsHandler struct {
	svc Ledger
}

// SetBudget handles PUT /api/budgets
func (h *BudgetsHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var in ledger.BudgetInput
	if !decode(w, r, &in) {
		return
	}

	b, err := h.svc.SetBudget(r.Context(), in)
	if err != nil {
		fail(w, r, err, "Failed to set budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// ListBudgets handles GET /api/budgets?month=M&year=YYYY
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month: expected 1-12")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}

	status, err := h.svc.Budgets(r.Context(), time.Month(month), year)
	if err != nil {
		fail(w, r, err, "Failed to load budgets")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"budgets": status,
		"count":   len(status),
	})
}
