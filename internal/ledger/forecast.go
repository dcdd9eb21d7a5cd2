package ledger

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals splits a period's money by direction. Expenses are positive
// magnitudes.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Net is income minus expense.
func (t Totals) Net() decimal.Decimal { return t.Income.Sub(t.Expense) }

func (t *Totals) add(amount decimal.Decimal) {
	if amount.IsNegative() {
		t.Expense = t.Expense.Add(amount.Neg())
		return
	}
	t.Income = t.Income.Add(amount)
}

// ForecastView merges what happened with what is planned over a period.
type ForecastView struct {
	From         civil.Date            `json:"from"`
	To           civil.Date            `json:"to"`
	Transactions []*domain.Transaction `json:"transactions"`
	Confirmed    Totals                `json:"confirmed"`
	Projected    Totals                `json:"projected"`
}

// Forecast returns every CONFIRMED and PLANNED row dated within [from, to],
// ordered by date. Transfer rows are listed but left out of the totals since
// they only move money between the user's own accounts.
func (s *Service) Forecast(ctx context.Context, from, to civil.Date) (*ForecastView, error) {
	if err := validateDate("from", from); err != nil {
		return nil, fmt.Errorf("Forecast: %w", err)
	}
	if err := validateDate("to", to); err != nil {
		return nil, fmt.Errorf("Forecast: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("Forecast: %w", invalid("period ends before it starts"))
	}

	view := &ForecastView{
		From:      from,
		To:        to,
		Confirmed: Totals{Income: decimal.Zero, Expense: decimal.Zero},
		Projected: Totals{Income: decimal.Zero, Expense: decimal.Zero},
	}
	err := s.store.View(ctx, func(ctx context.Context, tx Tx) error {
		rows, err := tx.ListTransactions(ctx, TransactionFilter{From: &from, To: &to})
		if err != nil {
			return err
		}
		view.Transactions = rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Forecast: %w", err)
	}

	sort.SliceStable(view.Transactions, func(i, j int) bool {
		a, b := view.Transactions[i], view.Transactions[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	for _, t := range view.Transactions {
		if t.Kind == domain.KindTransfer {
			continue
		}
		if t.IsPlanned() {
			view.Projected.add(t.Amount)
		} else {
			view.Confirmed.add(t.Amount)
		}
	}
	return view, nil
}
