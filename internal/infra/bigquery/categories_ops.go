package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
)

// CategoryExists reports whether a category id is known.
func (t *tx) CategoryExists(ctx context.Context, id string) (bool, error) {
	type countRow struct {
		N int64 `bigquery:"n"`
	}
	rows, err := readRows[countRow](ctx, t, fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s
		WHERE category_id = @category_id
	`, t.table("categories")),
		bigquery.QueryParameter{Name: "category_id", Value: id},
	)
	if err != nil {
		return false, fmt.Errorf("CategoryExists: %w", err)
	}
	return len(rows) > 0 && rows[0].N > 0, nil
}

// UpsertCategory returns the category with this name and kind, inserting it
// when absent.
// The MERGE makes a repeated call a no-op.
func (t *tx) UpsertCategory(ctx context.Context, name string, kind domain.TransactionKind) (*domain.Category, error) {
	if !t.readOnly {
		_, err := t.exec(ctx, fmt.Sprintf(`
			MERGE %s c
			USING (SELECT @name AS name, @kind AS kind) s
			ON LOWER(c.name) = LOWER(s.name) AND c.kind = s.kind
			WHEN NOT MATCHED THEN
				INSERT (category_id, name, kind)
				VALUES (@category_id, @name, @kind)
		`, t.table("categories")),
			bigquery.QueryParameter{Name: "name", Value: name},
			bigquery.QueryParameter{Name: "category_id", Value: uuid.NewString()},
			bigquery.QueryParameter{Name: "kind", Value: string(kind)},
		)
		if err != nil {
			return nil, fmt.Errorf("UpsertCategory: merge: %w", err)
		}
	}

	row, err := readOne[CategoryRow](ctx, t, "category "+name, fmt.Sprintf(`
		SELECT category_id, name, kind
		FROM %s
		WHERE LOWER(name) = LOWER(@name) AND kind = @kind
		LIMIT 1
	`, t.table("categories")),
		bigquery.QueryParameter{Name: "name", Value: name},
		bigquery.QueryParameter{Name: "kind", Value: string(kind)},
	)
	if err != nil {
		return nil, fmt.Errorf("UpsertCategory: %w", err)
	}
	return &domain.Category{ID: row.CategoryID, Name: row.Name, Kind: domain.TransactionKind(row.Kind)}, nil
}
