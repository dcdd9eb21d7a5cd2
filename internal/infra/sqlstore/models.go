package sqlstore

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Money columns are TEXT so SQLite keeps the exact decimal string; dates are
// ISO strings, which sort chronologically.

type accountRow struct {
	ID        string          `gorm:"primaryKey;size:36"`
	Name      string          `gorm:"size:128;not null"`
	Type      string          `gorm:"size:16;not null"`
	Balance   decimal.Decimal `gorm:"type:text;not null"`
	Currency  string          `gorm:"size:3;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (accountRow) TableName() string { return "accounts" }

func (r *accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:       r.ID,
		Name:     r.Name,
		Type:     domain.AccountType(r.Type),
		Balance:  r.Balance,
		Currency: r.Currency,
	}
}

type cardRow struct {
	ID               string          `gorm:"primaryKey;size:36"`
	Name             string          `gorm:"size:128;not null"`
	Limit            decimal.Decimal `gorm:"column:credit_limit;type:text;not null"`
	ClosingDay       int             `gorm:"not null"`
	DueDay           int             `gorm:"not null"`
	DefaultAccountID string          `gorm:"size:36"`
	CreatedAt        time.Time
}

func (cardRow) TableName() string { return "credit_cards" }

func (r *cardRow) toDomain() *domain.CreditCard {
	return &domain.CreditCard{
		ID:               r.ID,
		Name:             r.Name,
		Limit:            r.Limit,
		ClosingDay:       r.ClosingDay,
		DueDay:           r.DueDay,
		DefaultAccountID: r.DefaultAccountID,
	}
}

type invoiceRow struct {
	ID                   string          `gorm:"primaryKey;size:36"`
	CardID               string          `gorm:"size:36;not null;uniqueIndex:idx_invoice_period"`
	Month                int             `gorm:"not null;uniqueIndex:idx_invoice_period"`
	Year                 int             `gorm:"not null;uniqueIndex:idx_invoice_period"`
	Amount               decimal.Decimal `gorm:"type:text;not null"`
	Status               string          `gorm:"size:8;not null"`
	PaymentTransactionID string          `gorm:"size:36;index"`
}

func (invoiceRow) TableName() string { return "invoices" }

func (r *invoiceRow) toDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:                   r.ID,
		CardID:               r.CardID,
		Month:                time.Month(r.Month),
		Year:                 r.Year,
		Amount:               r.Amount,
		Status:               domain.InvoiceStatus(r.Status),
		PaymentTransactionID: r.PaymentTransactionID,
	}
}

type transactionRow struct {
	ID                  string          `gorm:"primaryKey;size:36"`
	Description         string          `gorm:"size:255;not null"`
	Amount              decimal.Decimal `gorm:"type:text;not null"`
	Date                string          `gorm:"size:10;index;not null"`
	Kind                string          `gorm:"size:8;not null"`
	Status              string          `gorm:"size:9;not null"`
	AccountID           string          `gorm:"size:36;index"`
	InvoiceID           string          `gorm:"size:36;index"`
	TransferID          string          `gorm:"size:36"`
	RecurringTemplateID string          `gorm:"size:36;index"`
	InstallmentNumber   int
	TotalInstallments   int
	CategoryID          string `gorm:"size:36"`
	TagID               string `gorm:"size:36"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (transactionRow) TableName() string { return "transactions" }

func transactionFromDomain(t *domain.Transaction) *transactionRow {
	return &transactionRow{
		ID:                  t.ID,
		Description:         t.Description,
		Amount:              t.Amount,
		Date:                t.Date.String(),
		Kind:                string(t.Kind),
		Status:              string(t.Status),
		AccountID:           t.AccountID,
		InvoiceID:           t.InvoiceID,
		TransferID:          t.TransferID,
		RecurringTemplateID: t.RecurringTemplateID,
		InstallmentNumber:   t.InstallmentNumber,
		TotalInstallments:   t.TotalInstallments,
		CategoryID:          t.CategoryID,
		TagID:               t.TagID,
	}
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	d, err := civil.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad date %q: %w", r.ID, r.Date, err)
	}
	return &domain.Transaction{
		ID:                  r.ID,
		Description:         r.Description,
		Amount:              r.Amount,
		Date:                d,
		Kind:                domain.TransactionKind(r.Kind),
		Status:              domain.TransactionStatus(r.Status),
		AccountID:           r.AccountID,
		InvoiceID:           r.InvoiceID,
		TransferID:          r.TransferID,
		RecurringTemplateID: r.RecurringTemplateID,
		InstallmentNumber:   r.InstallmentNumber,
		TotalInstallments:   r.TotalInstallments,
		CategoryID:          r.CategoryID,
		TagID:               r.TagID,
	}, nil
}

type templateRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Description string          `gorm:"size:255;not null"`
	Amount      decimal.Decimal `gorm:"type:text;not null"`
	Kind        string          `gorm:"size:8;not null"`
	CategoryID  string          `gorm:"size:36"`
	Frequency   string          `gorm:"size:8;not null"`
	StartDate   string          `gorm:"size:10;not null"`
	EndDate     *string         `gorm:"size:10"`
}

func (templateRow) TableName() string { return "recurring_templates" }

func templateFromDomain(t *domain.RecurringTemplate) *templateRow {
	r := &templateRow{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount,
		Kind:        string(t.Kind),
		CategoryID:  t.CategoryID,
		Frequency:   string(t.Frequency),
		StartDate:   t.StartDate.String(),
	}
	if t.EndDate != nil {
		s := t.EndDate.String()
		r.EndDate = &s
	}
	return r
}

func (r *templateRow) toDomain() (*domain.RecurringTemplate, error) {
	start, err := civil.ParseDate(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("template %s: bad start date: %w", r.ID, err)
	}
	t := &domain.RecurringTemplate{
		ID:          r.ID,
		Description: r.Description,
		Amount:      r.Amount,
		Kind:        domain.TransactionKind(r.Kind),
		CategoryID:  r.CategoryID,
		Frequency:   domain.Frequency(r.Frequency),
		StartDate:   start,
	}
	if r.EndDate != nil {
		end, err := civil.ParseDate(*r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("template %s: bad end date: %w", r.ID, err)
		}
		t.EndDate = &end
	}
	return t, nil
}

type categoryRow struct {
	ID   string `gorm:"primaryKey;size:36"`
	Name string `gorm:"size:64;not null;uniqueIndex:idx_category_name_kind"`
	Kind string `gorm:"size:8;not null;uniqueIndex:idx_category_name_kind"`
}

func (categoryRow) TableName() string { return "categories" }

type budgetRow struct {
	ID         string          `gorm:"primaryKey;size:36"`
	CategoryID string          `gorm:"size:36;not null;uniqueIndex:idx_budget_period"`
	Month      int             `gorm:"not null;uniqueIndex:idx_budget_period"`
	Year       int             `gorm:"not null;uniqueIndex:idx_budget_period"`
	Amount     decimal.Decimal `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

func (budgetRow) TableName() string { return "budgets" }

func (r *budgetRow) toDomain() *domain.Budget {
	return &domain.Budget{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Month:      time.Month(r.Month),
		Year:       r.Year,
		Amount:     r.Amount,
	}
}
