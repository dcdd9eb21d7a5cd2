package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// TransactionsHandler serves direct entries, deletions and transfers.
type TransactionsHandler struct {
	svc Ledger
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.DirectInput
	if !decode(w, r, &in) {
		return
	}

	rows, err := h.svc.CreateDirectTransaction(r.Context(), in)
	if err != nil {
		fail(w, r, err, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"transactions": rows,
		"count":        len(rows),
	})
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	row, err := h.svc.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err, "Failed to load transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, row)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.UpdateInput
	if !decode(w, r, &in) {
		return
	}

	row, err := h.svc.UpdateTransaction(r.Context(), r.PathValue("id"), in)
	if err != nil {
		fail(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, row)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transfer handles POST /api/transfers
func (h *TransactionsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var in ledger.TransferInput
	if !decode(w, r, &in) {
		return
	}

	out, incoming, err := h.svc.Transfer(r.Context(), in)
	if err != nil {
		fail(w, r, err, "Failed to transfer")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"outgoing": out,
		"incoming": incoming,
	})
}
