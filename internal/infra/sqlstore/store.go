package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed implementation of ledger.Store.
type Store struct {
	db *gorm.DB
}

// New wraps an open database. Call Migrate first.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RunInTx implements ledger.Store with a database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, &tx{db: gtx})
	})
}

// View implements ledger.Store. Reads share one transaction so they see a
// consistent snapshot.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.RunInTx(ctx, fn)
}

type tx struct {
	db *gorm.DB
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*tx)(nil)
)

// first loads one row by condition, mapping a miss to ledger.ErrNotFound.
func first(db *gorm.DB, dest any, what string, query string, args ...any) error {
	err := db.Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// mustAffect turns a zero-row update into ledger.ErrNotFound.
func mustAffect(res *gorm.DB, what string) error {
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", what, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return nil
}

// Accounts

func (t *tx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var row accountRow
	if err := first(t.db, &row, "account "+id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	if err := t.db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	row := accountRow{ID: a.ID, Name: a.Name, Type: string(a.Type), Balance: a.Balance, Currency: a.Currency}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("InsertAccount: %w", err)
	}
	return nil
}

func (t *tx) AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	var row accountRow
	if err := first(t.db, &row, "account "+accountID, "id = ?", accountID); err != nil {
		return err
	}
	res := t.db.Model(&accountRow{}).Where("id = ?", accountID).
		Update("balance", row.Balance.Add(delta))
	return mustAffect(res, "account "+accountID)
}

// Cards

func (t *tx) GetCard(ctx context.Context, id string) (*domain.CreditCard, error) {
	var row cardRow
	if err := first(t.db, &row, "card "+id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *tx) InsertCard(ctx context.Context, c *domain.CreditCard) error {
	row := cardRow{
		ID:               c.ID,
		Name:             c.Name,
		Limit:            c.Limit,
		ClosingDay:       c.ClosingDay,
		DueDay:           c.DueDay,
		DefaultAccountID: c.DefaultAccountID,
	}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("InsertCard: %w", err)
	}
	return nil
}

func (t *tx) DeleteCard(ctx context.Context, id string) error {
	return mustAffect(t.db.Where("id = ?", id).Delete(&cardRow{}), "card "+id)
}

// Invoices

func (t *tx) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var row invoiceRow
	if err := first(t.db, &row, "invoice "+id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *tx) FindInvoice(ctx context.Context, cardID string, month time.Month, year int) (*domain.Invoice, error) {
	var row invoiceRow
	what := fmt.Sprintf("invoice %s %02d/%d", cardID, month, year)
	if err := first(t.db, &row, what, "card_id = ? AND month = ? AND year = ?", cardID, int(month), year); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *tx) FindInvoiceByPayment(ctx context.Context, transactionID string) (*domain.Invoice, error) {
	var row invoiceRow
	if err := first(t.db, &row, "invoice paid by "+transactionID, "payment_transaction_id = ?", transactionID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *tx) ListInvoices(ctx context.Context, cardID string) ([]*domain.Invoice, error) {
	var rows []invoiceRow
	if err := t.db.Where("card_id = ?", cardID).Order("year, month").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}
	out := make([]*domain.Invoice, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (t *tx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	row := invoiceRow{
		ID:                   inv.ID,
		CardID:               inv.CardID,
		Month:                int(inv.Month),
		Year:                 inv.Year,
		Amount:               inv.Amount,
		Status:               string(inv.Status),
		PaymentTransactionID: inv.PaymentTransactionID,
	}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("InsertInvoice: %w", err)
	}
	return nil
}

func (t *tx) AddToInvoice(ctx context.Context, invoiceID string, delta decimal.Decimal) error {
	var row invoiceRow
	if err := first(t.db, &row, "invoice "+invoiceID, "id = ?", invoiceID); err != nil {
		return err
	}
	res := t.db.Model(&invoiceRow{}).Where("id = ?", invoiceID).
		Update("amount", row.Amount.Add(delta))
	return mustAffect(res, "invoice "+invoiceID)
}

func (t *tx) MarkInvoicePaid(ctx context.Context, invoiceID, paymentTransactionID string) error {
	res := t.db.Model(&invoiceRow{}).
		Where("id = ? AND status = ?", invoiceID, string(domain.InvoiceOpen)).
		Updates(map[string]any{
			"status":                 string(domain.InvoicePaid),
			"payment_transaction_id": paymentTransactionID,
		})
	if res.Error != nil {
		return fmt.Errorf("MarkInvoicePaid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		return fmt.Errorf("invoice %s is not open: %w", invoiceID, ledger.ErrInvalidStateTransition)
	}
	return nil
}

func (t *tx) ReopenInvoice(ctx context.Context, invoiceID string) error {
	res := t.db.Model(&invoiceRow{}).Where("id = ?", invoiceID).
		Updates(map[string]any{
			"status":                 string(domain.InvoiceOpen),
			"payment_transaction_id": "",
		})
	return mustAffect(res, "invoice "+invoiceID)
}

func (t *tx) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return mustAffect(t.db.Where("id = ?", invoiceID).Delete(&invoiceRow{}), "invoice "+invoiceID)
}

// Transactions

func (t *tx) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var row transactionRow
	if err := first(t.db, &row, "transaction "+id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	if err := t.db.Create(transactionFromDomain(tr)).Error; err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

func (t *tx) ConfirmTransaction(ctx context.Context, tr *domain.Transaction) error {
	row := transactionFromDomain(tr)
	res := t.db.Model(&transactionRow{}).
		Where("id = ? AND status = ?", tr.ID, string(domain.StatusPlanned)).
		Updates(map[string]any{
			"description":           row.Description,
			"amount":                row.Amount,
			"date":                  row.Date,
			"kind":                  row.Kind,
			"status":                string(domain.StatusConfirmed),
			"account_id":            row.AccountID,
			"invoice_id":            row.InvoiceID,
			"recurring_template_id": row.RecurringTemplateID,
			"category_id":           row.CategoryID,
			"tag_id":                row.TagID,
		})
	if res.Error != nil {
		return fmt.Errorf("ConfirmTransaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.GetTransaction(ctx, tr.ID); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s is not planned: %w", tr.ID, ledger.ErrInvalidStateTransition)
	}
	return nil
}

func (t *tx) UpdateTransaction(ctx context.Context, tr *domain.Transaction) error {
	row := transactionFromDomain(tr)
	res := t.db.Model(&transactionRow{}).
		Where("id = ?", tr.ID).
		Updates(map[string]any{
			"description": row.Description,
			"amount":      row.Amount,
			"date":        row.Date,
			"kind":        row.Kind,
			"category_id": row.CategoryID,
			"tag_id":      row.TagID,
		})
	return mustAffect(res, "transaction "+tr.ID)
}

func (t *tx) DeleteTransaction(ctx context.Context, id string) error {
	return mustAffect(t.db.Where("id = ?", id).Delete(&transactionRow{}), "transaction "+id)
}

func (t *tx) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]*domain.Transaction, error) {
	q := t.db.Model(&transactionRow{})
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.InvoiceID != "" {
		q = q.Where("invoice_id = ?", f.InvoiceID)
	}
	if f.TemplateID != "" {
		q = q.Where("recurring_template_id = ?", f.TemplateID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.From != nil {
		q = q.Where("date >= ?", f.From.String())
	}
	if f.To != nil {
		q = q.Where("date <= ?", f.To.String())
	}

	var rows []transactionRow
	if err := q.Order("date, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		tr, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		out = append(out, tr)
	}
	return out, nil
}

func (t *tx) DetachFromTemplate(ctx context.Context, templateID string) error {
	err := t.db.Model(&transactionRow{}).
		Where("recurring_template_id = ?", templateID).
		Update("recurring_template_id", "").Error
	if err != nil {
		return fmt.Errorf("DetachFromTemplate: %w", err)
	}
	return nil
}

// Templates

func (t *tx) GetTemplate(ctx context.Context, id string) (*domain.RecurringTemplate, error) {
	var row templateRow
	if err := first(t.db, &row, "template "+id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (t *tx) InsertTemplate(ctx context.Context, tmpl *domain.RecurringTemplate) error {
	if err := t.db.Create(templateFromDomain(tmpl)).Error; err != nil {
		return fmt.Errorf("InsertTemplate: %w", err)
	}
	return nil
}

func (t *tx) DeleteTemplate(ctx context.Context, id string) error {
	return mustAffect(t.db.Where("id = ?", id).Delete(&templateRow{}), "template "+id)
}

// Categories

func (t *tx) CategoryExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := t.db.Model(&categoryRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("CategoryExists: %w", err)
	}
	return n > 0, nil
}

func (t *tx) UpsertCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error) {
	var row categoryRow
	err := t.db.Where("LOWER(name) = LOWER(?) AND kind = ?", name, string(kind)).
		Attrs(categoryRow{ID: uuid.NewString(), Name: name, Kind: string(kind)}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, fmt.Errorf("UpsertCategory: %w", err)
	}
	return &domain.Category{ID: row.ID, Name: row.Name, Kind: domain.TransactionKind(row.Kind)}, nil
}

// Budgets

func (t *tx) UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	row := budgetRow{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Month:      int(b.Month),
		Year:       b.Year,
		Amount:     b.Amount,
	}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("UpsertBudget: %w", err)
	}

	var stored budgetRow
	if err := first(t.db, &stored, "budget", "category_id = ? AND month = ? AND year = ?",
		b.CategoryID, int(b.Month), b.Year); err != nil {
		return nil, err
	}
	return stored.toDomain(), nil
}

func (t *tx) ListBudgets(ctx context.Context, month time.Month, year int) ([]*domain.Budget, error) {
	var rows []budgetRow
	if err := t.db.Where("month = ? AND year = ?", int(month), year).Order("category_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}
	out := make([]*domain.Budget, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
