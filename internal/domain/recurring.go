package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a recurring template.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringTemplate describes the shape and cadence of a repeating
// transaction. Amount is a magnitude; Kind decides the sign of spawned rows.
// A nil EndDate means the template never expires.
type RecurringTemplate struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	CategoryID  string          `json:"category_id"`
	Frequency   Frequency       `json:"frequency"`
	StartDate   civil.Date      `json:"start_date"`
	EndDate     *civil.Date     `json:"end_date,omitempty"`
}

// Clone returns a deep copy of r.
func (r *RecurringTemplate) Clone() *RecurringTemplate {
	c := *r
	if r.EndDate != nil {
		end := *r.EndDate
		c.EndDate = &end
	}
	return &c
}

// Covers reports whether d falls inside the template validity window.
func (r *RecurringTemplate) Covers(d civil.Date) bool {
	if d.Before(r.StartDate) {
		return false
	}
	return r.EndDate == nil || !d.After(*r.EndDate)
}
