package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountPlaces is the number of decimal places kept on installment amounts.
const amountPlaces = 2

// installment is one slice of a card purchase bound to its invoice.
type installment struct {
	invoice *domain.Invoice
	date    civil.Date
	amount  decimal.Decimal
	number  int
}

// installmentBase is total/n truncated to cents.
func installmentBase(total decimal.Decimal, n int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(n))).Truncate(amountPlaces)
}

// splitInstallments divides total into n amounts truncated to cents.
func splitInstallments(total decimal.Decimal, n int, policy RemainderPolicy) []decimal.Decimal {
	base := installmentBase(total, n)
	parts := make([]decimal.Decimal, n)
	for i := range parts {
		parts[i] = base
	}
	if policy == RemainderLast {
		allocated := base.Mul(decimal.NewFromInt(int64(n - 1)))
		parts[n-1] = total.Sub(allocated)
	}
	return parts
}

// allocate books a card purchase onto the card's invoices, one per
// installment starting at the purchase's billing month. Each invoice is
// found or opened and its amount increased by the installment.
func (s *Service) allocate(ctx context.Context, tx Tx, card *domain.CreditCard, purchase civil.Date, total decimal.Decimal, n int) ([]installment, error) {
	month, year := billingPeriod(purchase, card.ClosingDay)
	parts := splitInstallments(total, n, s.remainder)

	out := make([]installment, 0, n)
	for i, amount := range parts {
		m, y := addMonths(month, year, i)

		inv, err := tx.FindInvoice(ctx, card.ID, m, y)
		switch {
		case errors.Is(err, ErrNotFound):
			inv = &domain.Invoice{
				ID:     uuid.NewString(),
				CardID: card.ID,
				Month:  m,
				Year:   y,
				Amount: decimal.Zero,
				Status: domain.InvoiceOpen,
			}
			if err := tx.InsertInvoice(ctx, inv); err != nil {
				return nil, fmt.Errorf("allocate: open invoice %02d/%d: %w", m, y, err)
			}
		case err != nil:
			return nil, fmt.Errorf("allocate: find invoice %02d/%d: %w", m, y, err)
		case inv.Status == domain.InvoicePaid:
			log := logger.FromContext(ctx)
			log.Warn().
				Str("invoice_id", inv.ID).
				Str("card_id", card.ID).
				Msg("Charging an invoice that is already paid")
		}

		if err := tx.AddToInvoice(ctx, inv.ID, amount); err != nil {
			return nil, fmt.Errorf("allocate: add to invoice %s: %w", inv.ID, err)
		}
		inv.Amount = inv.Amount.Add(amount)

		out = append(out, installment{
			invoice: inv,
			date:    clampedDate(y, m, card.DueDay),
			amount:  amount,
			number:  i + 1,
		})
	}
	return out, nil
}
