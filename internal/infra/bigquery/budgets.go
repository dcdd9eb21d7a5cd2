package bigquery

import (
	"math/big"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

type BudgetRow struct {
	BudgetID   string   `bigquery:"budget_id"`   // REQUIRED
	CategoryID string   `bigquery:"category_id"` // REQUIRED
	Month      int64    `bigquery:"month"`       // REQUIRED 1-12
	Year       int64    `bigquery:"year"`        // REQUIRED
	Amount     *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC
}

func (r *BudgetRow) toDomain() (*domain.Budget, error) {
	amount, err := decimalFromRat(r.Amount)
	if err != nil {
		return nil, err
	}
	return &domain.Budget{
		ID:         r.BudgetID,
		CategoryID: r.CategoryID,
		Month:      time.Month(r.Month),
		Year:       int(r.Year),
		Amount:     amount,
	}, nil
}
