package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountsHandler serves accounts, balance adjustments and categories.
type AccountsHandler struct {
	svc Ledger
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Balances(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to list accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string             `json:"name"`
		Type     domain.AccountType `json:"type"`
		Currency string             `json:"currency"`
	}
	if !decode(w, r, &req) {
		return
	}

	acc, err := h.svc.CreateAccount(r.Context(), req.Name, req.Type, req.Currency)
	if err != nil {
		fail(w, r, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// AdjustBalance handles POST /api/accounts/{id}/adjust
func (h *AccountsHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance decimal.Decimal `json:"balance"`
		Date    civil.Date      `json:"date"`
	}
	if !decode(w, r, &req) {
		return
	}

	// a missing date books the adjustment today
	adj, err := h.svc.AdjustAccountBalance(r.Context(), r.PathValue("id"), req.Balance, req.Date)
	if err != nil {
		fail(w, r, err, "Failed to adjust balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"adjustment": adj,
	})
}

// EnsureCategory handles POST /api/categories
func (h *AccountsHandler) EnsureCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string                 `json:"name"`
		Kind domain.TransactionKind `json:"kind"`
	}
	if !decode(w, r, &req) {
		return
	}

	cat, err := h.svc.EnsureCategory(r.Context(), req.Name, req.Kind)
	if err != nil {
		fail(w, r, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, cat)
}
