package ledger

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Store opens units of work over the ledger tables.
//
// RunInTx applies every mutation made through tx atomically: if fn returns an
// error (or panics) nothing it did is visible afterwards. View runs fn against
// a read-only snapshot.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of row operations available inside a unit of work.
// Lookups of unknown ids return an error wrapping ErrNotFound.
type Tx interface {
	AccountRepository
	CardRepository
	InvoiceRepository
	TransactionRepository
	TemplateRepository
	CategoryRepository
	BudgetRepository
}

// AccountRepository provides account reads and balance mutation.
type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	InsertAccount(ctx context.Context, a *domain.Account) error
	// AddToBalance increments the cached balance by delta.
	AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error
}

// CardRepository provides credit card reads.
type CardRepository interface {
	GetCard(ctx context.Context, id string) (*domain.CreditCard, error)
	InsertCard(ctx context.Context, c *domain.CreditCard) error
	DeleteCard(ctx context.Context, id string) error
}

// InvoiceRepository provides invoice reads and the aggregate mutations the
// ledger performs on them.
type InvoiceRepository interface {
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	// FindInvoice returns the invoice of a card for one billing month.
	FindInvoice(ctx context.Context, cardID string, month time.Month, year int) (*domain.Invoice, error)
	// FindInvoiceByPayment returns the invoice whose payment is transactionID.
	FindInvoiceByPayment(ctx context.Context, transactionID string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, cardID string) ([]*domain.Invoice, error)
	InsertInvoice(ctx context.Context, inv *domain.Invoice) error
	AddToInvoice(ctx context.Context, invoiceID string, delta decimal.Decimal) error
	// MarkInvoicePaid moves an OPEN invoice to PAID. It fails with
	// ErrInvalidStateTransition when the invoice is not OPEN.
	MarkInvoicePaid(ctx context.Context, invoiceID, paymentTransactionID string) error
	ReopenInvoice(ctx context.Context, invoiceID string) error
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
// From and To are inclusive.
type TransactionFilter struct {
	AccountID  string
	InvoiceID  string
	TemplateID string
	Status     domain.TransactionStatus
	From       *civil.Date
	To         *civil.Date
}

// TransactionRepository provides ledger row persistence.
type TransactionRepository interface {
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	// ConfirmTransaction overwrites a PLANNED row with t and marks it
	// CONFIRMED. The status check and the write are one step: if the stored
	// row is no longer PLANNED it fails with ErrInvalidStateTransition.
	ConfirmTransaction(ctx context.Context, t *domain.Transaction) error
	// UpdateTransaction overwrites the description, amount, date, kind,
	// category and tag of an existing row. Links and status are left alone.
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]*domain.Transaction, error)
	// DetachFromTemplate clears the template reference of every row of
	// templateID.
	DetachFromTemplate(ctx context.Context, templateID string) error
}

// TemplateRepository provides recurring template persistence.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, id string) (*domain.RecurringTemplate, error)
	InsertTemplate(ctx context.Context, t *domain.RecurringTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// CategoryRepository is the slice of the category collaborator the ledger
// needs.
type CategoryRepository interface {
	CategoryExists(ctx context.Context, id string) (bool, error)
	// UpsertCategory returns the category with this name and kind, creating
	// it when absent. Calling it twice yields the same row.
	UpsertCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error)
}

// BudgetRepository stores one spending limit per category and month.
type BudgetRepository interface {
	// UpsertBudget sets the amount of the budget for b's category and period,
	// creating it when absent, and returns the stored row.
	UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error)
	ListBudgets(ctx context.Context, month time.Month, year int) ([]*domain.Budget, error)
}

// AttachmentRemover drops the opaque blobs attached to a transaction.
type AttachmentRemover interface {
	RemoveAttachments(ctx context.Context, transactionID string) error
}
