package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the spending limit of an expense category for one month.
type Budget struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	Month      time.Month      `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
}

// Clone returns a copy of b.
func (b *Budget) Clone() *Budget {
	c := *b
	return &c
}
