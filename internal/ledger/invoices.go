package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayInvoice settles an OPEN invoice from an account. It records a CONFIRMED
// TRANSFER row on the account dated today, marks the invoice PAID and lowers
// the account balance by amount.
func (s *Service) PayInvoice(ctx context.Context, invoiceID, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("PayInvoice: %w", err)
	}
	if accountID == "" {
		return nil, fmt.Errorf("PayInvoice: %w", invalid("account is required"))
	}

	var payment *domain.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoicePaid {
			return fmt.Errorf("%w: invoice %s is already paid", ErrInvalidStateTransition, inv.ID)
		}
		if _, err := tx.GetAccount(ctx, accountID); err != nil {
			return err
		}
		card, err := tx.GetCard(ctx, inv.CardID)
		if err != nil {
			return fmt.Errorf("card of invoice: %w", err)
		}
		cat, err := tx.UpsertCategory(ctx, CategoryInvoicePayment, domain.KindExpense)
		if err != nil {
			return fmt.Errorf("category: %w", err)
		}

		payment = &domain.Transaction{
			ID:          uuid.NewString(),
			Description: fmt.Sprintf("Invoice payment %s (%02d/%d)", card.Name, int(inv.Month), inv.Year),
			Amount:      amount.Neg(),
			Date:        s.today(),
			Kind:        domain.KindTransfer,
			Status:      domain.StatusConfirmed,
			AccountID:   accountID,
			CategoryID:  cat.ID,
		}
		if err := tx.InsertTransaction(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := tx.MarkInvoicePaid(ctx, inv.ID, payment.ID); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		if err := tx.AddToBalance(ctx, accountID, payment.Amount); err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("PayInvoice: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("invoice_id", invoiceID).
		Str("transaction_id", payment.ID).
		Str("amount", amount.String()).
		Msg("Invoice paid")
	return payment, nil
}

// usedLimit sums the invoices that have not been paid yet.
func usedLimit(invoices []*domain.Invoice) decimal.Decimal {
	used := decimal.Zero
	for _, inv := range invoices {
		if inv.Status != domain.InvoicePaid {
			used = used.Add(inv.Amount)
		}
	}
	return used
}

// Invoice returns one invoice.
func (s *Service) Invoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		inv, err = tx.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Invoice: %w", err)
	}
	return inv, nil
}

// AvailableLimit returns the card limit minus the amount of every unpaid
// invoice. It can be negative.
func (s *Service) AvailableLimit(ctx context.Context, cardID string) (decimal.Decimal, error) {
	sum, err := s.CardSummary(ctx, cardID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AvailableLimit: %w", err)
	}
	return sum.Available, nil
}

// CardSummary is a read-only view of a card and its invoices.
type CardSummary struct {
	Card      *domain.CreditCard `json:"card"`
	Invoices  []*domain.Invoice  `json:"invoices"`
	Used      decimal.Decimal    `json:"used"`
	Available decimal.Decimal    `json:"available"`
}

// CardSummary returns the card with its invoices in billing order.
func (s *Service) CardSummary(ctx context.Context, cardID string) (*CardSummary, error) {
	var sum *CardSummary
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		card, err := tx.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		invoices, err := tx.ListInvoices(ctx, cardID)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		sort.Slice(invoices, func(i, j int) bool { return invoices[i].Before(invoices[j]) })

		used := usedLimit(invoices)
		sum = &CardSummary{
			Card:      card,
			Invoices:  invoices,
			Used:      used,
			Available: card.Limit.Sub(used),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CardSummary: %w", err)
	}
	return sum, nil
}

// DeleteCard removes a card, its invoices and the charges booked on them.
// Payment rows stay on their accounts.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	var removed []string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetCard(ctx, cardID); err != nil {
			return err
		}
		invoices, err := tx.ListInvoices(ctx, cardID)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		for _, inv := range invoices {
			rows, err := tx.ListTransactions(ctx, TransactionFilter{InvoiceID: inv.ID})
			if err != nil {
				return fmt.Errorf("list charges of %s: %w", inv.ID, err)
			}
			for _, row := range rows {
				if err := tx.DeleteTransaction(ctx, row.ID); err != nil {
					return fmt.Errorf("delete charge %s: %w", row.ID, err)
				}
				removed = append(removed, row.ID)
			}
			if err := tx.DeleteInvoice(ctx, inv.ID); err != nil {
				return fmt.Errorf("delete invoice %s: %w", inv.ID, err)
			}
		}
		return tx.DeleteCard(ctx, cardID)
	})
	if err != nil {
		return fmt.Errorf("DeleteCard: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("card_id", cardID).
		Int("charges_removed", len(removed)).
		Msg("Card deleted")
	s.dropAttachments(ctx, removed)
	return nil
}
