package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
}

// Accounts

func (t *tx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	return a.Clone(), nil
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(t.s.accounts))
	for _, a := range t.s.accounts {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	if a.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	if _, ok := t.s.accounts[a.ID]; ok {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	remember(t, t.s.accounts, a.ID)
	t.s.accounts[a.ID] = a.Clone()
	return nil
}

func (t *tx) AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, ok := t.s.accounts[accountID]
	if !ok {
		return notFound("account", accountID)
	}
	next := a.Clone()
	next.Balance = next.Balance.Add(delta)
	remember(t, t.s.accounts, accountID)
	t.s.accounts[accountID] = next
	return nil
}

// Cards

func (t *tx) GetCard(ctx context.Context, id string) (*domain.CreditCard, error) {
	c, ok := t.s.cards[id]
	if !ok {
		return nil, notFound("card", id)
	}
	return c.Clone(), nil
}

func (t *tx) InsertCard(ctx context.Context, c *domain.CreditCard) error {
	if err := t.writable(); err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("card ID is required")
	}
	remember(t, t.s.cards, c.ID)
	t.s.cards[c.ID] = c.Clone()
	return nil
}

func (t *tx) DeleteCard(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.cards[id]; !ok {
		return notFound("card", id)
	}
	remember(t, t.s.cards, id)
	delete(t.s.cards, id)
	return nil
}

// Invoices

func (t *tx) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, ok := t.s.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	return inv.Clone(), nil
}

func (t *tx) FindInvoice(ctx context.Context, cardID string, month time.Month, year int) (*domain.Invoice, error) {
	for _, inv := range t.s.invoices {
		if inv.CardID == cardID && inv.Month == month && inv.Year == year {
			return inv.Clone(), nil
		}
	}
	return nil, notFound("invoice", fmt.Sprintf("%s %02d/%d", cardID, month, year))
}

func (t *tx) FindInvoiceByPayment(ctx context.Context, transactionID string) (*domain.Invoice, error) {
	for _, inv := range t.s.invoices {
		if inv.PaymentTransactionID == transactionID {
			return inv.Clone(), nil
		}
	}
	return nil, notFound("invoice paid by", transactionID)
}

func (t *tx) ListInvoices(ctx context.Context, cardID string) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range t.s.invoices {
		if inv.CardID == cardID {
			out = append(out, inv.Clone())
		}
	}
	return out, nil
}

func (t *tx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.FindInvoice(ctx, inv.CardID, inv.Month, inv.Year); err == nil {
		return fmt.Errorf("invoice %02d/%d of card %s already exists", inv.Month, inv.Year, inv.CardID)
	}
	remember(t, t.s.invoices, inv.ID)
	t.s.invoices[inv.ID] = inv.Clone()
	return nil
}

// updateInvoice applies fn to a copy of the stored invoice and swaps it in.
func (t *tx) updateInvoice(id string, fn func(inv *domain.Invoice) error) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.s.invoices[id]
	if !ok {
		return notFound("invoice", id)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	remember(t, t.s.invoices, id)
	t.s.invoices[id] = next
	return nil
}

func (t *tx) AddToInvoice(ctx context.Context, invoiceID string, delta decimal.Decimal) error {
	return t.updateInvoice(invoiceID, func(inv *domain.Invoice) error {
		inv.Amount = inv.Amount.Add(delta)
		return nil
	})
}

func (t *tx) MarkInvoicePaid(ctx context.Context, invoiceID, paymentTransactionID string) error {
	return t.updateInvoice(invoiceID, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceOpen {
			return fmt.Errorf("invoice %s is %s: %w", invoiceID, inv.Status, ledger.ErrInvalidStateTransition)
		}
		inv.Status = domain.InvoicePaid
		inv.PaymentTransactionID = paymentTransactionID
		return nil
	})
}

func (t *tx) ReopenInvoice(ctx context.Context, invoiceID string) error {
	return t.updateInvoice(invoiceID, func(inv *domain.Invoice) error {
		inv.Status = domain.InvoiceOpen
		inv.PaymentTransactionID = ""
		return nil
	})
}

func (t *tx) DeleteInvoice(ctx context.Context, invoiceID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.invoices[invoiceID]; !ok {
		return notFound("invoice", invoiceID)
	}
	remember(t, t.s.invoices, invoiceID)
	delete(t.s.invoices, invoiceID)
	return nil
}

// Transactions

func (t *tx) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row, ok := t.s.transactions[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	return row.Clone(), nil
}

func (t *tx) InsertTransaction(ctx context.Context, row *domain.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if row.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if _, ok := t.s.transactions[row.ID]; ok {
		return fmt.Errorf("transaction %s already exists", row.ID)
	}
	remember(t, t.s.transactions, row.ID)
	t.s.transactions[row.ID] = row.Clone()
	return nil
}

func (t *tx) ConfirmTransaction(ctx context.Context, row *domain.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.s.transactions[row.ID]
	if !ok {
		return notFound("transaction", row.ID)
	}
	if !cur.IsPlanned() {
		return fmt.Errorf("transaction %s is %s: %w", row.ID, cur.Status, ledger.ErrInvalidStateTransition)
	}
	next := row.Clone()
	next.Status = domain.StatusConfirmed
	remember(t, t.s.transactions, row.ID)
	t.s.transactions[row.ID] = next
	return nil
}

func (t *tx) UpdateTransaction(ctx context.Context, row *domain.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.s.transactions[row.ID]
	if !ok {
		return notFound("transaction", row.ID)
	}
	next := cur.Clone()
	next.Description = row.Description
	next.Amount = row.Amount
	next.Date = row.Date
	next.Kind = row.Kind
	next.CategoryID = row.CategoryID
	next.TagID = row.TagID
	remember(t, t.s.transactions, row.ID)
	t.s.transactions[row.ID] = next
	return nil
}

func (t *tx) DeleteTransaction(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	remember(t, t.s.transactions, id)
	delete(t.s.transactions, id)
	return nil
}

func matches(row *domain.Transaction, f ledger.TransactionFilter) bool {
	switch {
	case f.AccountID != "" && row.AccountID != f.AccountID:
		return false
	case f.InvoiceID != "" && row.InvoiceID != f.InvoiceID:
		return false
	case f.TemplateID != "" && row.RecurringTemplateID != f.TemplateID:
		return false
	case f.Status != "" && row.Status != f.Status:
		return false
	case f.From != nil && row.Date.Before(*f.From):
		return false
	case f.To != nil && row.Date.After(*f.To):
		return false
	}
	return true
}

func (t *tx) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, row := range t.s.transactions {
		if matches(row, f) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

func (t *tx) DetachFromTemplate(ctx context.Context, templateID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for id, row := range t.s.transactions {
		if row.RecurringTemplateID != templateID {
			continue
		}
		next := row.Clone()
		next.RecurringTemplateID = ""
		remember(t, t.s.transactions, id)
		t.s.transactions[id] = next
	}
	return nil
}

// Templates

func (t *tx) GetTemplate(ctx context.Context, id string) (*domain.RecurringTemplate, error) {
	tmpl, ok := t.s.templates[id]
	if !ok {
		return nil, notFound("template", id)
	}
	return tmpl.Clone(), nil
}

func (t *tx) InsertTemplate(ctx context.Context, tmpl *domain.RecurringTemplate) error {
	if err := t.writable(); err != nil {
		return err
	}
	if tmpl.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	remember(t, t.s.templates, tmpl.ID)
	t.s.templates[tmpl.ID] = tmpl.Clone()
	return nil
}

func (t *tx) DeleteTemplate(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.templates[id]; !ok {
		return notFound("template", id)
	}
	remember(t, t.s.templates, id)
	delete(t.s.templates, id)
	return nil
}

// Categories

func (t *tx) CategoryExists(ctx context.Context, id string) (bool, error) {
	_, ok := t.s.categories[id]
	return ok, nil
}

func (t *tx) UpsertCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error) {
	for _, c := range t.s.categories {
		if c.Kind == kind && strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	if err := t.writable(); err != nil {
		return nil, err
	}
	c := &domain.Category{ID: uuid.NewString(), Name: name, Kind: kind}
	remember(t, t.s.categories, c.ID)
	t.s.categories[c.ID] = c
	cp := *c
	return &cp, nil
}

// Budgets

func (t *tx) UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	next := b.Clone()
	for id, cur := range t.s.budgets {
		if cur.CategoryID == b.CategoryID && cur.Month == b.Month && cur.Year == b.Year {
			next = cur.Clone()
			next.Amount = b.Amount
			next.ID = id
			break
		}
	}
	if next.ID == "" {
		return nil, fmt.Errorf("budget ID is required")
	}
	remember(t, t.s.budgets, next.ID)
	t.s.budgets[next.ID] = next
	return next.Clone(), nil
}

func (t *tx) ListBudgets(ctx context.Context, month time.Month, year int) ([]*domain.Budget, error) {
	var out []*domain.Budget
	for _, b := range t.s.budgets {
		if b.Month == month && b.Year == year {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}
