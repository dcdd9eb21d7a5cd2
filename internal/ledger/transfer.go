package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferInput moves money between two accounts.
type TransferInput struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          civil.Date      `json:"date"`
}

func (in *TransferInput) validate() error {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return invalid("both source and destination accounts are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return invalid("cannot transfer to the same account")
	}
	if in.Description == "" {
		return invalid("description is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	return validateDate("date", in.Date)
}

// Transfer records a pair of CONFIRMED TRANSFER legs that reference each
// other: a debit on the source account and a credit on the destination.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (out, incoming *domain.Transaction, err error) {
	if err := in.validate(); err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		from, err := tx.GetAccount(ctx, in.FromAccountID)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		to, err := tx.GetAccount(ctx, in.ToAccountID)
		if err != nil {
			return fmt.Errorf("destination: %w", err)
		}
		if from.Currency != to.Currency {
			return invalid("currency mismatch: %s to %s", from.Currency, to.Currency)
		}

		cat, err := tx.UpsertCategory(ctx, CategoryTransfer, domain.KindTransfer)
		if err != nil {
			return fmt.Errorf("category: %w", err)
		}

		out = &domain.Transaction{
			ID:          uuid.NewString(),
			Description: in.Description,
			Amount:      in.Amount.Neg(),
			Date:        in.Date,
			Kind:        domain.KindTransfer,
			Status:      domain.StatusConfirmed,
			AccountID:   from.ID,
			CategoryID:  cat.ID,
		}
		incoming = &domain.Transaction{
			ID:          uuid.NewString(),
			Description: in.Description,
			Amount:      in.Amount,
			Date:        in.Date,
			Kind:        domain.KindTransfer,
			Status:      domain.StatusConfirmed,
			AccountID:   to.ID,
			CategoryID:  cat.ID,
		}
		out.TransferID = incoming.ID
		incoming.TransferID = out.ID

		for _, leg := range []*domain.Transaction{out, incoming} {
			if err := tx.InsertTransaction(ctx, leg); err != nil {
				return fmt.Errorf("insert leg: %w", err)
			}
			if err := tx.AddToBalance(ctx, leg.AccountID, leg.Amount); err != nil {
				return fmt.Errorf("balance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("out_transaction_id", out.ID).
		Str("in_transaction_id", incoming.ID).
		Str("amount", in.Amount.String()).
		Msg("Transfer recorded")
	return out, incoming, nil
}
