package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// RecurringHandler serves recurring templates and reconciliation.
type RecurringHandler struct {
	svc Ledger
}

// CreateTemplate handles POST /api/recurring
func (h *RecurringHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in ledger.TemplateInput
	if !decode(w, r, &in) {
		return
	}

	tmpl, planned, err := h.svc.CreateRecurringTemplate(r.Context(), in)
	if err != nil {
		fail(w, r, err, "Failed to create recurring template")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"template": tmpl,
		"planned":  planned,
	})
}

// DeleteTemplate handles DELETE /api/recurring/{id}
func (h *RecurringHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecurringTemplate(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, "Failed to delete recurring template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /api/transactions/{id}/reconcile
func (h *RecurringHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var in ledger.ReconcileInput
	if !decode(w, r, &in) {
		return
	}

	res, err := h.svc.Reconcile(r.Context(), r.PathValue("id"), in)
	if err != nil {
		fail(w, r, err, "Failed to reconcile transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
