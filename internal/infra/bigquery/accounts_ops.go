package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, name, account_type, balance, currency`

// GetAccount loads one account.
func (t *tx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row, err := readOne[AccountRow](ctx, t, "account "+id, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE account_id = @account_id
	`, accountColumns, t.table("accounts")),
		bigquery.QueryParameter{Name: "account_id", Value: id},
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListAccounts returns every account ordered by name.
func (t *tx) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := readRows[AccountRow](ctx, t, fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY name
	`, accountColumns, t.table("accounts")))
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// InsertAccount adds an account row.
func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, created_ts)
		VALUES (@account_id, @name, @account_type, @balance, @currency, CURRENT_TIMESTAMP())
	`, t.table("accounts"), accountColumns),
		bigquery.QueryParameter{Name: "account_id", Value: a.ID},
		bigquery.QueryParameter{Name: "name", Value: a.Name},
		bigquery.QueryParameter{Name: "account_type", Value: string(a.Type)},
		bigquery.QueryParameter{Name: "balance", Value: ratFromDecimal(a.Balance)},
		bigquery.QueryParameter{Name: "currency", Value: a.Currency},
	)
	if err != nil {
		return fmt.Errorf("InsertAccount: %w", err)
	}
	return nil
}

// AddToBalance increments the cached balance in a single UPDATE.
func (t *tx) AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET balance = balance + @delta, updated_ts = CURRENT_TIMESTAMP()
		WHERE account_id = @account_id
	`, t.table("accounts")),
		bigquery.QueryParameter{Name: "delta", Value: ratFromDecimal(delta)},
		bigquery.QueryParameter{Name: "account_id", Value: accountID},
	)
	return mustAffect(n, err, "account "+accountID)
}

const cardColumns = `card_id, name, credit_limit, closing_day, due_day, default_account_id`

// GetCard loads one credit card.
func (t *tx) GetCard(ctx context.Context, id string) (*domain.CreditCard, error) {
	row, err := readOne[CardRow](ctx, t, "card "+id, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE card_id = @card_id
	`, cardColumns, t.table("credit_cards")),
		bigquery.QueryParameter{Name: "card_id", Value: id},
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// InsertCard adds a credit card row.
func (t *tx) InsertCard(ctx context.Context, c *domain.CreditCard) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@card_id, @name, @credit_limit, @closing_day, @due_day, NULLIF(@default_account_id, ''))
	`, t.table("credit_cards"), cardColumns),
		bigquery.QueryParameter{Name: "card_id", Value: c.ID},
		bigquery.QueryParameter{Name: "name", Value: c.Name},
		bigquery.QueryParameter{Name: "credit_limit", Value: ratFromDecimal(c.Limit)},
		bigquery.QueryParameter{Name: "closing_day", Value: c.ClosingDay},
		bigquery.QueryParameter{Name: "due_day", Value: c.DueDay},
		bigquery.QueryParameter{Name: "default_account_id", Value: c.DefaultAccountID},
	)
	if err != nil {
		return fmt.Errorf("InsertCard: %w", err)
	}
	return nil
}

// DeleteCard removes a credit card row.
func (t *tx) DeleteCard(ctx context.Context, id string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE card_id = @card_id
	`, t.table("credit_cards")),
		bigquery.QueryParameter{Name: "card_id", Value: id},
	)
	return mustAffect(n, err, "card "+id)
}
