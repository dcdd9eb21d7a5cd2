package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type InvoiceRow struct {
	InvoiceID            string              `bigquery:"invoice_id"`             // REQUIRED
	CardID               string              `bigquery:"card_id"`                // REQUIRED
	Month                int64               `bigquery:"month"`                  // REQUIRED 1-12
	Year                 int64               `bigquery:"year"`                   // REQUIRED
	Amount               *big.Rat            `bigquery:"amount"`                 // REQUIRED NUMERIC
	Status               string              `bigquery:"status"`                 // REQUIRED OPEN|PAID
	PaymentTransactionID bigquery.NullString `bigquery:"payment_transaction_id"` // NULLABLE
}

func (r *InvoiceRow) toDomain() (*domain.Invoice, error) {
	amount, err := decimalFromRat(r.Amount)
	if err != nil {
		return nil, err
	}
	return &domain.Invoice{
		ID:                   r.InvoiceID,
		CardID:               r.CardID,
		Month:                time.Month(r.Month),
		Year:                 int(r.Year),
		Amount:               amount,
		Status:               domain.InvoiceStatus(r.Status),
		PaymentTransactionID: str(r.PaymentTransactionID),
	}, nil
}
