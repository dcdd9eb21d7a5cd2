package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetInput sets the spending limit of a category for one month.
type BudgetInput struct {
	CategoryID string          `json:"category_id"`
	Month      time.Month      `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
}

func validatePeriod(month time.Month, year int) error {
	if month < time.January || month > time.December {
		return invalid("month must be 1-12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return invalid("year %d is out of range", year)
	}
	return nil
}

func (in *BudgetInput) validate() error {
	if in.CategoryID == "" {
		return invalid("category is required")
	}
	if err := validatePeriod(in.Month, in.Year); err != nil {
		return err
	}
	return validateAmount(in.Amount)
}

// SetBudget creates the budget of a category for a month, or replaces its
// amount when one exists.
func (s *Service) SetBudget(ctx context.Context, in BudgetInput) (*domain.Budget, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("SetBudget: %w", err)
	}

	var stored *domain.Budget
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		var err error
		stored, err = tx.UpsertBudget(ctx, &domain.Budget{
			ID:         uuid.NewString(),
			CategoryID: in.CategoryID,
			Month:      in.Month,
			Year:       in.Year,
			Amount:     in.Amount,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("SetBudget: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("budget_id", stored.ID).
		Str("category_id", stored.CategoryID).
		Str("amount", stored.Amount.String()).
		Msg("Budget set")
	return stored, nil
}

// BudgetStatus compares a budget with the expenses of its month.
type BudgetStatus struct {
	Budget    *domain.Budget  `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Over      bool            `json:"over"`
}

// Budgets returns the budgets of a month, ordered by category, each with the
// CONFIRMED expenses of its category dated in that month. Card charges count
// in the month they are due.
func (s *Service) Budgets(ctx context.Context, month time.Month, year int) ([]*BudgetStatus, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}

	var out []*BudgetStatus
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		budgets, err := tx.ListBudgets(ctx, month, year)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		if len(budgets) == 0 {
			return nil
		}

		from := civil.Date{Year: year, Month: month, Day: 1}
		to := clampedDate(year, month, 31)
		rows, err := tx.ListTransactions(ctx, TransactionFilter{
			Status: domain.StatusConfirmed,
			From:   &from,
			To:     &to,
		})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		spent := make(map[string]decimal.Decimal)
		for _, r := range rows {
			if r.Kind == domain.KindExpense {
				spent[r.CategoryID] = spent[r.CategoryID].Add(r.Amount.Abs())
			}
		}

		sort.Slice(budgets, func(i, j int) bool { return budgets[i].CategoryID < budgets[j].CategoryID })
		out = make([]*BudgetStatus, 0, len(budgets))
		for _, b := range budgets {
			used := spent[b.CategoryID]
			out = append(out, &BudgetStatus{
				Budget:    b,
				Spent:     used,
				Remaining: b.Amount.Sub(used),
				Over:      used.GreaterThan(b.Amount),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}
	return out, nil
}
