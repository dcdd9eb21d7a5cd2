package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// CardsHandler serves credit cards and invoice payments.
type CardsHandler struct {
	svc Ledger
}

// CreateCard handles POST /api/cards
func (h *CardsHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req domain.CreditCard
	if !decode(w, r, &req) {
		return
	}

	card, err := h.svc.CreateCard(r.Context(), req)
	if err != nil {
		fail(w, r, err, "Failed to create card")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// GetCard handles GET /api/cards/{id}
func (h *CardsHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.CardSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err, "Failed to load card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// DeleteCard handles DELETE /api/cards/{id}
func (h *CardsHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInvoice handles GET /api/invoices/{id}
func (h *CardsHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Invoice(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err, "Failed to load invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, inv)
}

// PayInvoice handles POST /api/invoices/{id}/pay
func (h *CardsHandler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string          `json:"account_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}

	payment, err := h.svc.PayInvoice(r.Context(), r.PathValue("id"), req.AccountID, req.Amount)
	if err != nil {
		fail(w, r, err, "Failed to pay invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, payment)
}
