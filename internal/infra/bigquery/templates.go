package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type TemplateRow struct {
	TemplateID  string              `bigquery:"template_id"` // REQUIRED
	Description string              `bigquery:"description"` // REQUIRED
	Amount      *big.Rat            `bigquery:"amount"`      // REQUIRED NUMERIC, magnitude
	Kind        string              `bigquery:"kind"`        // REQUIRED
	CategoryID  bigquery.NullString `bigquery:"category_id"` // NULLABLE
	Frequency   string              `bigquery:"frequency"`   // REQUIRED
	StartDate   civil.Date          `bigquery:"start_date"`  // REQUIRED
	EndDate     bigquery.NullDate   `bigquery:"end_date"`    // NULLABLE
}

func (r *TemplateRow) toDomain() (*domain.RecurringTemplate, error) {
	amount, err := decimalFromRat(r.Amount)
	if err != nil {
		return nil, err
	}
	t := &domain.RecurringTemplate{
		ID:          r.TemplateID,
		Description: r.Description,
		Amount:      amount,
		Kind:        domain.TransactionKind(r.Kind),
		CategoryID:  str(r.CategoryID),
		Frequency:   domain.Frequency(r.Frequency),
		StartDate:   r.StartDate,
	}
	if r.EndDate.Valid {
		end := r.EndDate.Date
		t.EndDate = &end
	}
	return t, nil
}

// endDateParam renders an optional end date as the string the INSERT parses;
// an open-ended template sends "".
func endDateParam(t *domain.RecurringTemplate) string {
	if t.EndDate == nil {
		return ""
	}
	return t.EndDate.String()
}
