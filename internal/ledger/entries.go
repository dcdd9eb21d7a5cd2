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

// maxInstallments bounds how many invoices one purchase can touch.
const maxInstallments = 120

// DirectInput describes a transaction entered directly as CONFIRMED.
type DirectInput struct {
	Description  string                 `json:"description"`
	Amount       decimal.Decimal        `json:"amount"`
	Date         civil.Date             `json:"date"`
	Kind         domain.TransactionKind `json:"kind"`
	Target       Target                 `json:"target"`
	CategoryID   string                 `json:"category_id"`
	TagID        string                 `json:"tag_id,omitempty"`
	Installments int                    `json:"installments,omitempty"`
}

func (in *DirectInput) validate() error {
	if in.Description == "" {
		return invalid("description is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if err := validateDate("date", in.Date); err != nil {
		return err
	}
	if err := validateKind(in.Kind); err != nil {
		return err
	}
	if err := validateTarget(in.Target, in.Kind); err != nil {
		return err
	}
	if in.Installments < 0 || in.Installments > maxInstallments {
		return invalid("installments must be between 1 and %d, got %d", maxInstallments, in.Installments)
	}
	if in.Installments > 1 && !in.Target.IsCard() {
		return invalid("installments are only allowed on card purchases")
	}
	if n := max(in.Installments, 1); in.Target.IsCard() && installmentBase(in.Amount, n).IsZero() {
		return invalid("amount %s is too small to split into %d installments", in.Amount, n)
	}
	return nil
}

// CreateDirectTransaction records a confirmed transaction. An account target
// yields one row and moves the account balance. A card target is split into
// installments, each booked on its invoice; the rows are returned in
// installment order.
func (s *Service) CreateDirectTransaction(ctx context.Context, in DirectInput) ([]*domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("CreateDirectTransaction: %w", err)
	}
	if in.Installments == 0 {
		in.Installments = 1
	}

	var created []*domain.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		var err error
		if in.Target.IsCard() {
			created, err = s.createCardEntries(ctx, tx, in)
		} else {
			created, err = s.createAccountEntry(ctx, tx, in)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("CreateDirectTransaction: %w", err)
	}

	log := logger.FromContext(ctx)
	for _, t := range created {
		log.Info().
			Str("transaction_id", t.ID).
			Str("account_id", t.AccountID).
			Str("invoice_id", t.InvoiceID).
			Str("amount", t.Amount.String()).
			Msg("Transaction created")
	}
	return created, nil
}

func (s *Service) createAccountEntry(ctx context.Context, tx Tx, in DirectInput) ([]*domain.Transaction, error) {
	if _, err := tx.GetAccount(ctx, in.Target.AccountID); err != nil {
		return nil, fmt.Errorf("createAccountEntry: %w", err)
	}

	t := &domain.Transaction{
		ID:          uuid.NewString(),
		Description: in.Description,
		Amount:      in.Kind.Sign(in.Amount),
		Date:        in.Date,
		Kind:        in.Kind,
		Status:      domain.StatusConfirmed,
		AccountID:   in.Target.AccountID,
		CategoryID:  in.CategoryID,
		TagID:       in.TagID,
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("createAccountEntry: insert: %w", err)
	}
	if err := tx.AddToBalance(ctx, t.AccountID, t.Amount); err != nil {
		return nil, fmt.Errorf("createAccountEntry: balance: %w", err)
	}
	return []*domain.Transaction{t}, nil
}

func (s *Service) createCardEntries(ctx context.Context, tx Tx, in DirectInput) ([]*domain.Transaction, error) {
	card, err := tx.GetCard(ctx, in.Target.CardID)
	if err != nil {
		return nil, fmt.Errorf("createCardEntries: %w", err)
	}

	parts, err := s.allocate(ctx, tx, card, in.Date, in.Amount, in.Installments)
	if err != nil {
		return nil, fmt.Errorf("createCardEntries: %w", err)
	}

	rows := make([]*domain.Transaction, 0, len(parts))
	for _, p := range parts {
		t := &domain.Transaction{
			ID:          uuid.NewString(),
			Description: in.Description,
			Amount:      p.amount.Neg(),
			Date:        p.date,
			Kind:        domain.KindExpense,
			Status:      domain.StatusConfirmed,
			InvoiceID:   p.invoice.ID,
			CategoryID:  in.CategoryID,
			TagID:       in.TagID,
		}
		if in.Installments > 1 {
			t.InstallmentNumber = p.number
			t.TotalInstallments = in.Installments
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return nil, fmt.Errorf("createCardEntries: insert installment %d: %w", p.number, err)
		}
		rows = append(rows, t)
	}
	return rows, nil
}

// Transaction returns one ledger row.
func (s *Service) Transaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var row *domain.Transaction
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		row, err = tx.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Transaction: %w", err)
	}
	return row, nil
}

// DeleteTransaction removes a row and reverses whatever it applied. A
// transfer leg takes its pair with it; an invoice payment reopens the invoice.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	var removed []string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		row, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		removed, err = s.removeRow(ctx, tx, row, map[string]bool{})
		return err
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("transaction_id", id).
		Strs("removed", removed).
		Msg("Transaction deleted")
	s.dropAttachments(ctx, removed)
	return nil
}

// removeRow reverses and deletes row, following the transfer link once.
// It returns the ids it deleted.
func (s *Service) removeRow(ctx context.Context, tx Tx, row *domain.Transaction, seen map[string]bool) ([]string, error) {
	seen[row.ID] = true
	var removed []string

	if row.TransferID != "" && !seen[row.TransferID] {
		pair, err := tx.GetTransaction(ctx, row.TransferID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("removeRow: %w: transfer leg %s points at missing leg %s",
				ErrConsistency, row.ID, row.TransferID)
		}
		if err != nil {
			return nil, fmt.Errorf("removeRow: load transfer leg: %w", err)
		}
		ids, err := s.removeRow(ctx, tx, pair, seen)
		if err != nil {
			return nil, err
		}
		removed = append(removed, ids...)
	}

	if row.IsConfirmed() {
		if row.AccountID != "" {
			if err := tx.AddToBalance(ctx, row.AccountID, row.Amount.Neg()); err != nil {
				return nil, fmt.Errorf("removeRow: reverse balance: %w", err)
			}
		}
		if row.InvoiceID != "" {
			if err := tx.AddToInvoice(ctx, row.InvoiceID, row.Amount.Abs().Neg()); err != nil {
				return nil, fmt.Errorf("removeRow: reverse invoice: %w", err)
			}
		}
	}

	inv, err := tx.FindInvoiceByPayment(ctx, row.ID)
	switch {
	case err == nil:
		if err := tx.ReopenInvoice(ctx, inv.ID); err != nil {
			return nil, fmt.Errorf("removeRow: reopen invoice %s: %w", inv.ID, err)
		}
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("removeRow: find paid invoice: %w", err)
	}

	if err := tx.DeleteTransaction(ctx, row.ID); err != nil {
		return nil, fmt.Errorf("removeRow: delete: %w", err)
	}
	return append(removed, row.ID), nil
}

// UpdateInput carries the editable fields of a ledger row. Amount is a
// magnitude; the sign follows Kind.
type UpdateInput struct {
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Date        civil.Date             `json:"date"`
	Kind        domain.TransactionKind `json:"kind"`
	CategoryID  string                 `json:"category_id"`
	TagID       string                 `json:"tag_id,omitempty"`
}

func (in *UpdateInput) validate() error {
	if in.Description == "" {
		return invalid("description is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if err := validateDate("date", in.Date); err != nil {
		return err
	}
	return validateKind(in.Kind)
}

// UpdateTransaction edits a row in place. On a CONFIRMED row the old amount
// is taken off its account or invoice and the new one applied, in the same
// unit of work as the edit. Card rows keep their invoice, so their date is
// fixed and they stay EXPENSE. Transfer legs and invoice payments are
// rejected; delete and record them again instead.
func (s *Service) UpdateTransaction(ctx context.Context, id string, in UpdateInput) (*domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	var updated *domain.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if cur.TransferID != "" || cur.Kind == domain.KindTransfer {
			return invalid("transaction %s is a transfer and cannot be edited", id)
		}
		switch _, err := tx.FindInvoiceByPayment(ctx, cur.ID); {
		case err == nil:
			return invalid("transaction %s pays an invoice and cannot be edited", id)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("find paid invoice: %w", err)
		}
		if cur.InvoiceID != "" {
			if in.Kind != domain.KindExpense {
				return invalid("card transactions must be EXPENSE, got %s", in.Kind)
			}
			if in.Date != cur.Date {
				return invalid("card transaction %s is due on %s and its date cannot change", id, cur.Date)
			}
		}
		if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}

		next := cur.Clone()
		next.Description = in.Description
		next.Amount = in.Kind.Sign(in.Amount)
		next.Date = in.Date
		next.Kind = in.Kind
		next.CategoryID = in.CategoryID
		next.TagID = in.TagID

		if cur.IsConfirmed() {
			if err := reapply(ctx, tx, cur, next); err != nil {
				return err
			}
		}
		if err := tx.UpdateTransaction(ctx, next); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", id).
		Str("amount", updated.Amount.String()).
		Msg("Transaction updated")
	return updated, nil
}

// reapply reverses the effect of old on its account or invoice and applies
// the effect of next.
func reapply(ctx context.Context, tx Tx, old, next *domain.Transaction) error {
	switch {
	case old.AccountID != "":
		if err := tx.AddToBalance(ctx, old.AccountID, old.Amount.Neg()); err != nil {
			return fmt.Errorf("reverse balance: %w", err)
		}
		if err := tx.AddToBalance(ctx, next.AccountID, next.Amount); err != nil {
			return fmt.Errorf("apply balance: %w", err)
		}
	case old.InvoiceID != "":
		if err := tx.AddToInvoice(ctx, old.InvoiceID, old.Amount.Abs().Neg()); err != nil {
			return fmt.Errorf("reverse invoice: %w", err)
		}
		if err := tx.AddToInvoice(ctx, next.InvoiceID, next.Amount.Abs()); err != nil {
			return fmt.Errorf("apply invoice: %w", err)
		}
	}
	return nil
}
