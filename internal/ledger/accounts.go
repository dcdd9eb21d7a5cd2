package ledger

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccount registers an account with a zero balance.
func (s *Service) CreateAccount(ctx context.Context, name string, typ domain.AccountType, currency string) (*domain.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("CreateAccount: %w", invalid("name is required"))
	}
	if currency == "" {
		return nil, fmt.Errorf("CreateAccount: %w", invalid("currency is required"))
	}
	if typ == "" {
		typ = domain.AccountChecking
	}

	a := &domain.Account{
		ID:       uuid.NewString(),
		Name:     name,
		Type:     typ,
		Balance:  decimal.Zero,
		Currency: currency,
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertAccount(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return a, nil
}

// CreateCard registers a credit card.
func (s *Service) CreateCard(ctx context.Context, c domain.CreditCard) (*domain.CreditCard, error) {
	switch {
	case c.Name == "":
		return nil, fmt.Errorf("CreateCard: %w", invalid("name is required"))
	case c.ClosingDay < 1 || c.ClosingDay > 31:
		return nil, fmt.Errorf("CreateCard: %w", invalid("closing day must be 1-31, got %d", c.ClosingDay))
	case c.DueDay < 1 || c.DueDay > 31:
		return nil, fmt.Errorf("CreateCard: %w", invalid("due day must be 1-31, got %d", c.DueDay))
	case c.Limit.IsNegative():
		return nil, fmt.Errorf("CreateCard: %w", invalid("limit must not be negative"))
	}

	card := c.Clone()
	card.ID = uuid.NewString()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if card.DefaultAccountID != "" {
			if _, err := tx.GetAccount(ctx, card.DefaultAccountID); err != nil {
				return fmt.Errorf("default account: %w", err)
			}
		}
		return tx.InsertCard(ctx, card)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateCard: %w", err)
	}
	return card, nil
}

// EnsureCategory returns the category called name, creating it when absent.
func (s *Service) EnsureCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("EnsureCategory: %w", invalid("name is required"))
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("EnsureCategory: %w", invalid("unknown kind %q", kind))
	}

	var cat *domain.Category
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		cat, err = tx.UpsertCategory(ctx, name, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("EnsureCategory: %w", err)
	}
	return cat, nil
}

// Balances lists every account ordered by name.
func (s *Service) Balances(ctx context.Context) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Balances: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// AdjustAccountBalance brings an account to target by booking the difference
// as a CONFIRMED row, so the balance stays the sum of its rows. It returns nil
// when the balance already matches. A zero date books the row today.
func (s *Service) AdjustAccountBalance(ctx context.Context, accountID string, target decimal.Decimal, date civil.Date) (*domain.Transaction, error) {
	if date.IsZero() {
		date = s.today()
	}
	if err := validateDate("date", date); err != nil {
		return nil, fmt.Errorf("AdjustAccountBalance: %w", err)
	}
	if err := validateCents(target); err != nil {
		return nil, fmt.Errorf("AdjustAccountBalance: %w", err)
	}

	var adj *domain.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		diff := target.Sub(acc.Balance)
		if diff.IsZero() {
			return nil
		}

		kind := domain.KindIncome
		if diff.IsNegative() {
			kind = domain.KindExpense
		}
		cat, err := tx.UpsertCategory(ctx, CategoryBalanceAdjustment, kind)
		if err != nil {
			return fmt.Errorf("category: %w", err)
		}

		adj = &domain.Transaction{
			ID:          uuid.NewString(),
			Description: CategoryBalanceAdjustment,
			Amount:      diff,
			Date:        date,
			Kind:        kind,
			Status:      domain.StatusConfirmed,
			AccountID:   acc.ID,
			CategoryID:  cat.ID,
		}
		if err := tx.InsertTransaction(ctx, adj); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return tx.AddToBalance(ctx, acc.ID, diff)
	})
	if err != nil {
		return nil, fmt.Errorf("AdjustAccountBalance: %w", err)
	}

	if adj != nil {
		log := logger.FromContext(ctx)
		log.Info().
			Str("account_id", accountID).
			Str("transaction_id", adj.ID).
			Str("difference", adj.Amount.String()).
			Msg("Account balance adjusted")
	}
	return adj, nil
}
