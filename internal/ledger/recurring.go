package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TemplateInput describes a new recurring template.
type TemplateInput struct {
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Kind        domain.TransactionKind `json:"kind"`
	CategoryID  string                 `json:"category_id"`
	Frequency   domain.Frequency       `json:"frequency"`
	StartDate   civil.Date             `json:"start_date"`
	EndDate     *civil.Date            `json:"end_date,omitempty"`
}

func (in *TemplateInput) validate() error {
	if in.Description == "" {
		return invalid("description is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if err := validateKind(in.Kind); err != nil {
		return err
	}
	if !in.Frequency.Valid() {
		return invalid("unknown frequency %q", in.Frequency)
	}
	if err := validateDate("start date", in.StartDate); err != nil {
		return err
	}
	if in.EndDate != nil {
		return validateDate("end date", *in.EndDate)
	}
	return nil
}

// plannedFor builds the PLANNED row of tmpl due on date.
func plannedFor(tmpl *domain.RecurringTemplate, date civil.Date) *domain.Transaction {
	return &domain.Transaction{
		ID:                  uuid.NewString(),
		Description:         tmpl.Description,
		Amount:              tmpl.Kind.Sign(tmpl.Amount),
		Date:                date,
		Kind:                tmpl.Kind,
		Status:              domain.StatusPlanned,
		RecurringTemplateID: tmpl.ID,
		CategoryID:          tmpl.CategoryID,
	}
}

// CreateRecurringTemplate stores a template and its first PLANNED row, dated
// on the start date. A template whose window holds no occurrence is stored
// without a planned row, and nil is returned for it.
func (s *Service) CreateRecurringTemplate(ctx context.Context, in TemplateInput) (*domain.RecurringTemplate, *domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, nil, fmt.Errorf("CreateRecurringTemplate: %w", err)
	}

	tmpl := &domain.RecurringTemplate{
		ID:          uuid.NewString(),
		Description: in.Description,
		Amount:      in.Amount,
		Kind:        in.Kind,
		CategoryID:  in.CategoryID,
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}

	var first *domain.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.InsertTemplate(ctx, tmpl); err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		if !tmpl.Covers(tmpl.StartDate) {
			return nil
		}
		first = plannedFor(tmpl, tmpl.StartDate)
		if err := tx.InsertTransaction(ctx, first); err != nil {
			return fmt.Errorf("insert planned row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("CreateRecurringTemplate: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("template_id", tmpl.ID).
		Str("frequency", string(tmpl.Frequency)).
		Bool("has_planned_row", first != nil).
		Msg("Recurring template created")
	return tmpl, first, nil
}

// DeleteRecurringTemplate deletes a template together with its PLANNED row.
// Rows already confirmed stay in the ledger, detached from the template.
func (s *Service) DeleteRecurringTemplate(ctx context.Context, id string) error {
	var removed []string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetTemplate(ctx, id); err != nil {
			return err
		}
		planned, err := tx.ListTransactions(ctx, TransactionFilter{
			TemplateID: id,
			Status:     domain.StatusPlanned,
		})
		if err != nil {
			return fmt.Errorf("list planned rows: %w", err)
		}
		for _, row := range planned {
			if err := tx.DeleteTransaction(ctx, row.ID); err != nil {
				return fmt.Errorf("delete planned row: %w", err)
			}
			removed = append(removed, row.ID)
		}
		if err := tx.DetachFromTemplate(ctx, id); err != nil {
			return fmt.Errorf("detach confirmed rows: %w", err)
		}
		return tx.DeleteTemplate(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("DeleteRecurringTemplate: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("template_id", id).
		Int("planned_removed", len(removed)).
		Msg("Recurring template deleted")
	s.dropAttachments(ctx, removed)
	return nil
}
