package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const transactionColumns = `
	transaction_id,
	description,
	amount,
	transaction_date,
	kind,
	status,
	account_id,
	invoice_id,
	transfer_id,
	recurring_template_id,
	installment_number,
	total_installments,
	category_id,
	tag_id`

// GetTransaction loads one ledger row.
func (t *tx) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := readOne[TransactionRow](ctx, t, "transaction "+id, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE transaction_id = @transaction_id
	`, transactionColumns, t.table("transactions")),
		bigquery.QueryParameter{Name: "transaction_id", Value: id},
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// InsertTransaction adds a ledger row with DML so it takes part in the
// session transaction.
func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, created_ts)
		VALUES (
			@transaction_id,
			@description,
			@amount,
			@transaction_date,
			@kind,
			@status,
			NULLIF(@account_id, ''),
			NULLIF(@invoice_id, ''),
			NULLIF(@transfer_id, ''),
			NULLIF(@recurring_template_id, ''),
			NULLIF(@installment_number, 0),
			NULLIF(@total_installments, 0),
			NULLIF(@category_id, ''),
			NULLIF(@tag_id, ''),
			CURRENT_TIMESTAMP()
		)
	`, t.table("transactions"), transactionColumns), transactionParams(tr)...)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// ConfirmTransaction overwrites a PLANNED row and marks it CONFIRMED. The
// status predicate makes the update a compare-and-set.
func (t *tx) ConfirmTransaction(ctx context.Context, tr *domain.Transaction) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET
			description = @description,
			amount = @amount,
			transaction_date = @transaction_date,
			kind = @kind,
			status = 'CONFIRMED',
			account_id = NULLIF(@account_id, ''),
			invoice_id = NULLIF(@invoice_id, ''),
			recurring_template_id = NULLIF(@recurring_template_id, ''),
			category_id = NULLIF(@category_id, ''),
			tag_id = NULLIF(@tag_id, ''),
			updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id AND status = 'PLANNED'
	`, t.table("transactions")), confirmParams(tr)...)
	if err != nil {
		return fmt.Errorf("ConfirmTransaction: %w", err)
	}
	if n == 0 {
		if _, err := t.GetTransaction(ctx, tr.ID); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s is not planned: %w", tr.ID, ledger.ErrInvalidStateTransition)
	}
	return nil
}

// confirmParams keeps only the parameters the confirm statement references;
// BigQuery rejects unused named parameters.
func confirmParams(tr *domain.Transaction) []bigquery.QueryParameter {
	return pickParams(tr, "transaction_id", "description", "amount", "transaction_date",
		"kind", "account_id", "invoice_id", "recurring_template_id", "category_id", "tag_id")
}

func updateParams(tr *domain.Transaction) []bigquery.QueryParameter {
	return pickParams(tr, "transaction_id", "description", "amount", "transaction_date",
		"kind", "category_id", "tag_id")
}

func pickParams(tr *domain.Transaction, names ...string) []bigquery.QueryParameter {
	used := make(map[string]bool, len(names))
	for _, n := range names {
		used[n] = true
	}
	var out []bigquery.QueryParameter
	for _, p := range transactionParams(tr) {
		if used[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// UpdateTransaction rewrites the editable columns of a row.
func (t *tx) UpdateTransaction(ctx context.Context, tr *domain.Transaction) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET
			description = @description,
			amount = @amount,
			transaction_date = @transaction_date,
			kind = @kind,
			category_id = NULLIF(@category_id, ''),
			tag_id = NULLIF(@tag_id, ''),
			updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
	`, t.table("transactions")), updateParams(tr)...)
	return mustAffect(n, err, "transaction "+tr.ID)
}

// DeleteTransaction removes a ledger row.
func (t *tx) DeleteTransaction(ctx context.Context, id string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
	`, t.table("transactions")),
		bigquery.QueryParameter{Name: "transaction_id", Value: id},
	)
	return mustAffect(n, err, "transaction "+id)
}

// transactionFilterSQL builds the WHERE clause and parameters for f.
func transactionFilterSQL(f ledger.TransactionFilter) (string, []bigquery.QueryParameter) {
	conds := []string{"TRUE"}
	var params []bigquery.QueryParameter
	add := func(cond, name string, value any) {
		conds = append(conds, cond)
		params = append(params, bigquery.QueryParameter{Name: name, Value: value})
	}

	if f.AccountID != "" {
		add("account_id = @account_id", "account_id", f.AccountID)
	}
	if f.InvoiceID != "" {
		add("invoice_id = @invoice_id", "invoice_id", f.InvoiceID)
	}
	if f.TemplateID != "" {
		add("recurring_template_id = @template_id", "template_id", f.TemplateID)
	}
	if f.Status != "" {
		add("status = @status", "status", string(f.Status))
	}
	if f.From != nil {
		add("transaction_date >= @from_date", "from_date", *f.From)
	}
	if f.To != nil {
		add("transaction_date <= @to_date", "to_date", *f.To)
	}
	return strings.Join(conds, " AND "), params
}

// ListTransactions returns the rows matching f ordered by date.
func (t *tx) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]*domain.Transaction, error) {
	where, params := transactionFilterSQL(f)
	rows, err := readRows[TransactionRow](ctx, t, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY transaction_date, transaction_id
	`, transactionColumns, t.table("transactions"), where), params...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		tr, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		out = append(out, tr)
	}
	return out, nil
}

// DetachFromTemplate clears the template link on every row of templateID.
func (t *tx) DetachFromTemplate(ctx context.Context, templateID string) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET recurring_template_id = NULL, updated_ts = CURRENT_TIMESTAMP()
		WHERE recurring_template_id = @template_id
	`, t.table("transactions")),
		bigquery.QueryParameter{Name: "template_id", Value: templateID},
	)
	if err != nil {
		return fmt.Errorf("DetachFromTemplate: %w", err)
	}
	return nil
}
