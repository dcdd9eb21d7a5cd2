package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

const budgetColumns = `budget_id, category_id, month, year, amount`

// UpsertBudget sets the amount of the budget of a category and month,
// inserting the row when absent.
func (t *tx) UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	period := []bigquery.QueryParameter{
		{Name: "category_id", Value: b.CategoryID},
		{Name: "month", Value: int(b.Month)},
		{Name: "year", Value: b.Year},
	}
	_, err := t.exec(ctx, fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @category_id AS category_id, @month AS month, @year AS year) s
		ON t.category_id = s.category_id AND t.month = s.month AND t.year = s.year
		WHEN MATCHED THEN
			UPDATE SET amount = @amount, updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN
			INSERT (budget_id, category_id, month, year, amount, updated_ts)
			VALUES (@budget_id, @category_id, @month, @year, @amount, CURRENT_TIMESTAMP())
	`, t.table("budgets")), append(period,
		bigquery.QueryParameter{Name: "budget_id", Value: b.ID},
		bigquery.QueryParameter{Name: "amount", Value: ratFromDecimal(b.Amount)},
	)...)
	if err != nil {
		return nil, fmt.Errorf("UpsertBudget: merge: %w", err)
	}

	row, err := readOne[BudgetRow](ctx, t, fmt.Sprintf("budget %s %02d/%d", b.CategoryID, b.Month, b.Year), fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE category_id = @category_id AND month = @month AND year = @year
	`, budgetColumns, t.table("budgets")), period...)
	if err != nil {
		return nil, fmt.Errorf("UpsertBudget: %w", err)
	}
	return row.toDomain()
}

// ListBudgets returns the budgets of one month.
func (t *tx) ListBudgets(ctx context.Context, month time.Month, year int) ([]*domain.Budget, error) {
	rows, err := readRows[BudgetRow](ctx, t, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE month = @month AND year = @year
		ORDER BY category_id
	`, budgetColumns, t.table("budgets")),
		bigquery.QueryParameter{Name: "month", Value: int(month)},
		bigquery.QueryParameter{Name: "year", Value: year},
	)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}

	out := make([]*domain.Budget, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
