package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `invoice_id, card_id, month, year, amount, status, payment_transaction_id`

func (t *tx) oneInvoice(ctx context.Context, what, where string, params ...bigquery.QueryParameter) (*domain.Invoice, error) {
	row, err := readOne[InvoiceRow](ctx, t, what, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
	`, invoiceColumns, t.table("invoices"), where), params...)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// GetInvoice loads one invoice.
func (t *tx) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return t.oneInvoice(ctx, "invoice "+id, "invoice_id = @invoice_id",
		bigquery.QueryParameter{Name: "invoice_id", Value: id})
}

// FindInvoice loads the invoice of a card for one billing month.
func (t *tx) FindInvoice(ctx context.Context, cardID string, month time.Month, year int) (*domain.Invoice, error) {
	return t.oneInvoice(ctx, fmt.Sprintf("invoice %s %02d/%d", cardID, month, year),
		"card_id = @card_id AND month = @month AND year = @year",
		bigquery.QueryParameter{Name: "card_id", Value: cardID},
		bigquery.QueryParameter{Name: "month", Value: int(month)},
		bigquery.QueryParameter{Name: "year", Value: year},
	)
}

// FindInvoiceByPayment loads the invoice settled by transactionID.
func (t *tx) FindInvoiceByPayment(ctx context.Context, transactionID string) (*domain.Invoice, error) {
	return t.oneInvoice(ctx, "invoice paid by "+transactionID, "payment_transaction_id = @transaction_id",
		bigquery.QueryParameter{Name: "transaction_id", Value: transactionID})
}

// ListInvoices returns the invoices of a card in billing order.
func (t *tx) ListInvoices(ctx context.Context, cardID string) ([]*domain.Invoice, error) {
	rows, err := readRows[InvoiceRow](ctx, t, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE card_id = @card_id
		ORDER BY year, month
	`, invoiceColumns, t.table("invoices")),
		bigquery.QueryParameter{Name: "card_id", Value: cardID},
	)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}

	out := make([]*domain.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListInvoices: %w", err)
		}
		out = append(out, inv)
	}
	return out, nil
}

// InsertInvoice adds an invoice row.
func (t *tx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@invoice_id, @card_id, @month, @year, @amount, @status, NULLIF(@payment_transaction_id, ''))
	`, t.table("invoices"), invoiceColumns),
		bigquery.QueryParameter{Name: "invoice_id", Value: inv.ID},
		bigquery.QueryParameter{Name: "card_id", Value: inv.CardID},
		bigquery.QueryParameter{Name: "month", Value: int(inv.Month)},
		bigquery.QueryParameter{Name: "year", Value: inv.Year},
		bigquery.QueryParameter{Name: "amount", Value: ratFromDecimal(inv.Amount)},
		bigquery.QueryParameter{Name: "status", Value: string(inv.Status)},
		bigquery.QueryParameter{Name: "payment_transaction_id", Value: inv.PaymentTransactionID},
	)
	if err != nil {
		return fmt.Errorf("InsertInvoice: %w", err)
	}
	return nil
}

// AddToInvoice increments an invoice amount in a single UPDATE.
func (t *tx) AddToInvoice(ctx context.Context, invoiceID string, delta decimal.Decimal) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET amount = amount + @delta
		WHERE invoice_id = @invoice_id
	`, t.table("invoices")),
		bigquery.QueryParameter{Name: "delta", Value: ratFromDecimal(delta)},
		bigquery.QueryParameter{Name: "invoice_id", Value: invoiceID},
	)
	return mustAffect(n, err, "invoice "+invoiceID)
}

// MarkInvoicePaid moves an OPEN invoice to PAID. The status predicate makes
// the update a compare-and-set.
func (t *tx) MarkInvoicePaid(ctx context.Context, invoiceID, paymentTransactionID string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = 'PAID', payment_transaction_id = @payment_transaction_id
		WHERE invoice_id = @invoice_id AND status = 'OPEN'
	`, t.table("invoices")),
		bigquery.QueryParameter{Name: "payment_transaction_id", Value: paymentTransactionID},
		bigquery.QueryParameter{Name: "invoice_id", Value: invoiceID},
	)
	if err != nil {
		return fmt.Errorf("MarkInvoicePaid: %w", err)
	}
	if n == 0 {
		if _, err := t.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		return fmt.Errorf("invoice %s is not open: %w", invoiceID, ledger.ErrInvalidStateTransition)
	}
	return nil
}

// ReopenInvoice sets an invoice back to OPEN and clears its payment.
func (t *tx) ReopenInvoice(ctx context.Context, invoiceID string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = 'OPEN', payment_transaction_id = NULL
		WHERE invoice_id = @invoice_id
	`, t.table("invoices")),
		bigquery.QueryParameter{Name: "invoice_id", Value: invoiceID},
	)
	return mustAffect(n, err, "invoice "+invoiceID)
}

// DeleteInvoice removes an invoice row.
func (t *tx) DeleteInvoice(ctx context.Context, invoiceID string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE invoice_id = @invoice_id
	`, t.table("invoices")),
		bigquery.QueryParameter{Name: "invoice_id", Value: invoiceID},
	)
	return mustAffect(n, err, "invoice "+invoiceID)
}
