package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	Description     string     `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC, signed
	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Kind            string     `bigquery:"kind"`             // REQUIRED INCOME|EXPENSE|TRANSFER
	Status          string     `bigquery:"status"`           // REQUIRED PLANNED|CONFIRMED

	AccountID           bigquery.NullString `bigquery:"account_id"`            // NULLABLE
	InvoiceID           bigquery.NullString `bigquery:"invoice_id"`            // NULLABLE
	TransferID          bigquery.NullString `bigquery:"transfer_id"`           // NULLABLE
	RecurringTemplateID bigquery.NullString `bigquery:"recurring_template_id"` // NULLABLE

	InstallmentNumber bigquery.NullInt64 `bigquery:"installment_number"` // NULLABLE
	TotalInstallments bigquery.NullInt64 `bigquery:"total_installments"` // NULLABLE

	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE
	TagID      bigquery.NullString `bigquery:"tag_id"`      // NULLABLE
}

func (r *TransactionRow) toDomain() (*domain.Transaction, error) {
	amount, err := decimalFromRat(r.Amount)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:                  r.TransactionID,
		Description:         r.Description,
		Amount:              amount,
		Date:                r.TransactionDate,
		Kind:                domain.TransactionKind(r.Kind),
		Status:              domain.TransactionStatus(r.Status),
		AccountID:           str(r.AccountID),
		InvoiceID:           str(r.InvoiceID),
		TransferID:          str(r.TransferID),
		RecurringTemplateID: str(r.RecurringTemplateID),
		InstallmentNumber:   int(r.InstallmentNumber.Int64),
		TotalInstallments:   int(r.TotalInstallments.Int64),
		CategoryID:          str(r.CategoryID),
		TagID:               str(r.TagID),
	}, nil
}

// transactionParams binds every column of t to the named parameters used by
// INSERT and confirm statements. Empty ids and zero installment counts are
// sent as-is and turned into NULL by the SQL.
func transactionParams(t *domain.Transaction) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "transaction_id", Value: t.ID},
		{Name: "description", Value: t.Description},
		{Name: "amount", Value: ratFromDecimal(t.Amount)},
		{Name: "transaction_date", Value: t.Date},
		{Name: "kind", Value: string(t.Kind)},
		{Name: "status", Value: string(t.Status)},
		{Name: "account_id", Value: t.AccountID},
		{Name: "invoice_id", Value: t.InvoiceID},
		{Name: "transfer_id", Value: t.TransferID},
		{Name: "recurring_template_id", Value: t.RecurringTemplateID},
		{Name: "installment_number", Value: t.InstallmentNumber},
		{Name: "total_installments", Value: t.TotalInstallments},
		{Name: "category_id", Value: t.CategoryID},
		{Name: "tag_id", Value: t.TagID},
	}
}
