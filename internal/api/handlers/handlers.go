// Package handlers exposes the ledger engine over JSON/HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/lock"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// Ledger is the slice of the ledger service the HTTP layer drives.
type Ledger interface {
	CreateAccount(ctx context.Context, name string, typ domain.AccountType, currency string) (*domain.Account, error)
	CreateCard(ctx context.Context, c domain.CreditCard) (*domain.CreditCard, error)
	EnsureCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error)
	Balances(ctx context.Context) ([]*domain.Account, error)
	AdjustAccountBalance(ctx context.Context, accountID string, target decimal.Decimal, date civil.Date) (*domain.Transaction, error)

	Transaction(ctx context.Context, id string) (*domain.Transaction, error)
	CreateDirectTransaction(ctx context.Context, in ledger.DirectInput) ([]*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, in ledger.UpdateInput) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Transfer(ctx context.Context, in ledger.TransferInput) (out, incoming *domain.Transaction, err error)

	CreateRecurringTemplate(ctx context.Context, in ledger.TemplateInput) (*domain.RecurringTemplate, *domain.Transaction, error)
	DeleteRecurringTemplate(ctx context.Context, id string) error
	Reconcile(ctx context.Context, plannedID string, in ledger.ReconcileInput) (*ledger.ReconcileResult, error)

	Invoice(ctx context.Context, id string) (*domain.Invoice, error)
	PayInvoice(ctx context.Context, invoiceID, accountID string, amount decimal.Decimal) (*domain.Transaction, error)
	CardSummary(ctx context.Context, cardID string) (*ledger.CardSummary, error)
	DeleteCard(ctx context.Context, cardID string) error

	SetBudget(ctx context.Context, in ledger.BudgetInput) (*domain.Budget, error)
	Budgets(ctx context.Context, month time.Month, year int) ([]*ledger.BudgetStatus, error)

	Forecast(ctx context.Context, from, to civil.Date) (*ledger.ForecastView, error)
}

var _ Ledger = (*ledger.Service)(nil)

// Register mounts every ledger endpoint on mux.
func Register(mux *http.ServeMux, svc Ledger) {
	tx := &TransactionsHandler{svc: svc}
	rec := &RecurringHandler{svc: svc}
	acc := &AccountsHandler{svc: svc}
	cards := &CardsHandler{svc: svc}
	fc := &ForecastHandler{svc: svc}
	budgets := &BudgetsHandler{svc: svc}

	mux.HandleFunc("POST /api/transactions", tx.CreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", tx.GetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", tx.UpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", tx.DeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/reconcile", rec.Reconcile)
	mux.HandleFunc("POST /api/transfers", tx.Transfer)

	mux.HandleFunc("POST /api/recurring", rec.CreateTemplate)
	mux.HandleFunc("DELETE /api/recurring/{id}", rec.DeleteTemplate)

	mux.HandleFunc("GET /api/accounts", acc.ListAccounts)
	mux.HandleFunc("POST /api/accounts", acc.CreateAccount)
	mux.HandleFunc("POST /api/accounts/{id}/adjust", acc.AdjustBalance)
	mux.HandleFunc("POST /api/categories", acc.EnsureCategory)

	mux.HandleFunc("POST /api/cards", cards.CreateCard)
	mux.HandleFunc("GET /api/cards/{id}", cards.GetCard)
	mux.HandleFunc("DELETE /api/cards/{id}", cards.DeleteCard)
	mux.HandleFunc("GET /api/invoices/{id}", cards.GetInvoice)
	mux.HandleFunc("POST /api/invoices/{id}/pay", cards.PayInvoice)

	mux.HandleFunc("PUT /api/budgets", budgets.SetBudget)
	mux.HandleFunc("GET /api/budgets", budgets.ListBudgets)

	mux.HandleFunc("GET /api/forecast", fc.Forecast)
}

// decode reads a JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps ledger sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, lock.ErrNotAcquired):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail logs err and writes the matching error response. Server-side failures
// are reported to the client with msg only.
func fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	log.Warn().Err(err).Int("status", status).Msg(msg)
	middleware.WriteError(w, status, err.Error())
}

func parseDate(w http.ResponseWriter, name, value string) (civil.Date, bool) {
	d, err := civil.ParseDate(value)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name+": expected YYYY-MM-DD")
		return civil.Date{}, false
	}
	return d, true
}
