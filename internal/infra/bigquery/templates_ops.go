package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

const templateColumns = `template_id, description, amount, kind, category_id, frequency, start_date, end_date`

// GetTemplate loads one recurring template.
func (t *tx) GetTemplate(ctx context.Context, id string) (*domain.RecurringTemplate, error) {
	row, err := readOne[TemplateRow](ctx, t, "template "+id, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE template_id = @template_id
	`, templateColumns, t.table("recurring_templates")),
		bigquery.QueryParameter{Name: "template_id", Value: id},
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// InsertTemplate adds a recurring template row.
func (t *tx) InsertTemplate(ctx context.Context, tmpl *domain.RecurringTemplate) error {
	_, err := t.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (
			@template_id,
			@description,
			@amount,
			@kind,
			NULLIF(@category_id, ''),
			@frequency,
			@start_date,
			PARSE_DATE('%%Y-%%m-%%d', NULLIF(@end_date, ''))
		)
	`, t.table("recurring_templates"), templateColumns),
		bigquery.QueryParameter{Name: "template_id", Value: tmpl.ID},
		bigquery.QueryParameter{Name: "description", Value: tmpl.Description},
		bigquery.QueryParameter{Name: "amount", Value: ratFromDecimal(tmpl.Amount)},
		bigquery.QueryParameter{Name: "kind", Value: string(tmpl.Kind)},
		bigquery.QueryParameter{Name: "category_id", Value: tmpl.CategoryID},
		bigquery.QueryParameter{Name: "frequency", Value: string(tmpl.Frequency)},
		bigquery.QueryParameter{Name: "start_date", Value: tmpl.StartDate},
		bigquery.QueryParameter{Name: "end_date", Value: endDateParam(tmpl)},
	)
	if err != nil {
		return fmt.Errorf("InsertTemplate: %w", err)
	}
	return nil
}

// DeleteTemplate removes a recurring template row.
func (t *tx) DeleteTemplate(ctx context.Context, id string) error {
	n, err := t.exec(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE template_id = @template_id
	`, t.table("recurring_templates")),
		bigquery.QueryParameter{Name: "template_id", Value: id},
	)
	return mustAffect(n, err, "template "+id)
}
