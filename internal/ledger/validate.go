package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Target is where a transaction lands: exactly one of AccountID and CardID.
type Target struct {
	AccountID string `json:"account_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
}

// IsCard reports whether the target is a credit card.
func (t Target) IsCard() bool { return t.CardID != "" }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateTarget(t Target, kind domain.TransactionKind) error {
	switch {
	case t.AccountID == "" && t.CardID == "":
		return invalid("target account or card is required")
	case t.AccountID != "" && t.CardID != "":
		return invalid("target must be either an account or a card, not both")
	case t.CardID != "" && kind != domain.KindExpense:
		return invalid("card transactions must be EXPENSE, got %s", kind)
	}
	return nil
}

func validateKind(kind domain.TransactionKind) error {
	if kind != domain.KindIncome && kind != domain.KindExpense {
		return invalid("kind must be INCOME or EXPENSE, got %q", kind)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount must be positive, got %s", amount)
	}
	return validateCents(amount)
}

// validateCents rejects amounts finer than a cent.
func validateCents(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(amountPlaces)) {
		return invalid("amount %s has more than %d decimal places", amount, amountPlaces)
	}
	return nil
}

func validateDate(name string, d civil.Date) error {
	if !d.IsValid() {
		return invalid("%s %q is not a valid date", name, d)
	}
	return nil
}

func checkCategory(ctx context.Context, tx Tx, id string) error {
	if id == "" {
		return invalid("category is required")
	}
	ok, err := tx.CategoryExists(ctx, id)
	if err != nil {
		return fmt.Errorf("checkCategory: %w", err)
	}
	if !ok {
		return invalid("unknown category %s", id)
	}
	return nil
}
