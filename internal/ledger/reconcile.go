package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// ReconcileInput carries the actual values of a planned occurrence.
type ReconcileInput struct {
	Amount decimal.Decimal        `json:"amount"`
	Date   civil.Date             `json:"date"`
	Target Target                 `json:"target"`
	Kind   domain.TransactionKind `json:"kind"`
}

func (in *ReconcileInput) validate() error {
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if err := validateDate("date", in.Date); err != nil {
		return err
	}
	if err := validateKind(in.Kind); err != nil {
		return err
	}
	return validateTarget(in.Target, in.Kind)
}

// ReconcileResult is the outcome of confirming a planned row.
type ReconcileResult struct {
	Confirmed *domain.Transaction `json:"confirmed"`
	// Next is the newly planned occurrence, nil when the series has ended.
	Next *domain.Transaction `json:"next,omitempty"`
}

// Reconcile confirms a PLANNED row with its actual amount, date and target,
// applies the balance or invoice effect, and plans the template's next
// occurrence one frequency step after the originally planned date.
//
// Only one caller can confirm a given row: concurrent attempts are serialised
// on the row id and the store rejects the losers with
// ErrInvalidStateTransition.
func (s *Service) Reconcile(ctx context.Context, plannedID string, in ReconcileInput) (*ReconcileResult, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	var res *ReconcileResult
	err := s.locker.WithLock(ctx, "reconcile:"+plannedID, func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			res, err = s.reconcile(ctx, tx, plannedID, in)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	log := logger.FromContext(ctx)
	ev := log.Info().
		Str("transaction_id", res.Confirmed.ID).
		Str("amount", res.Confirmed.Amount.String())
	if res.Next != nil {
		ev = ev.Str("next_transaction_id", res.Next.ID).Str("next_date", res.Next.Date.String())
	}
	ev.Msg("Planned transaction reconciled")
	return res, nil
}

func (s *Service) reconcile(ctx context.Context, tx Tx, plannedID string, in ReconcileInput) (*ReconcileResult, error) {
	row, err := tx.GetTransaction(ctx, plannedID)
	if err != nil {
		return nil, err
	}
	if !row.IsPlanned() {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrInvalidStateTransition, row.ID, row.Status)
	}
	plannedDate := row.Date

	row.Kind = in.Kind
	row.Status = domain.StatusConfirmed
	row.AccountID = ""
	row.InvoiceID = ""

	if in.Target.IsCard() {
		card, err := tx.GetCard(ctx, in.Target.CardID)
		if err != nil {
			return nil, err
		}
		parts, err := s.allocate(ctx, tx, card, in.Date, in.Amount, 1)
		if err != nil {
			return nil, err
		}
		row.InvoiceID = parts[0].invoice.ID
		row.Date = parts[0].date
		row.Amount = parts[0].amount.Neg()
	} else {
		if _, err := tx.GetAccount(ctx, in.Target.AccountID); err != nil {
			return nil, err
		}
		row.AccountID = in.Target.AccountID
		row.Date = in.Date
		row.Amount = in.Kind.Sign(in.Amount)
	}

	if err := tx.ConfirmTransaction(ctx, row); err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if row.AccountID != "" {
		if err := tx.AddToBalance(ctx, row.AccountID, row.Amount); err != nil {
			return nil, fmt.Errorf("balance: %w", err)
		}
	}

	res := &ReconcileResult{Confirmed: row}
	if row.RecurringTemplateID == "" {
		return res, nil
	}

	next, err := s.planNext(ctx, tx, row.RecurringTemplateID, plannedDate)
	if err != nil {
		return nil, err
	}
	res.Next = next
	return res, nil
}

// planNext inserts the occurrence following plannedDate, unless it falls
// outside the template's validity window.
func (s *Service) planNext(ctx context.Context, tx Tx, templateID string, plannedDate civil.Date) (*domain.Transaction, error) {
	tmpl, err := tx.GetTemplate(ctx, templateID)
	if errors.Is(err, ErrNotFound) {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("template_id", templateID).
			Msg("Planned row references a missing template, not planning the next occurrence")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("planNext: %w", err)
	}

	pending, err := tx.ListTransactions(ctx, TransactionFilter{
		TemplateID: templateID,
		Status:     domain.StatusPlanned,
	})
	if err != nil {
		return nil, fmt.Errorf("planNext: list planned rows: %w", err)
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("planNext: %w: template %s already has planned row %s",
			ErrConsistency, templateID, pending[0].ID)
	}

	date := nextOccurrence(plannedDate, tmpl.Frequency, tmpl.StartDate.Day)
	if !tmpl.Covers(date) {
		return nil, nil
	}
	next := plannedFor(tmpl, date)
	if err := tx.InsertTransaction(ctx, next); err != nil {
		return nil, fmt.Errorf("planNext: insert: %w", err)
	}
	return next, nil
}
