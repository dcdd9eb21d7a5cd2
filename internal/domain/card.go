package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditCard holds the static billing parameters of a card.
type CreditCard struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Limit            decimal.Decimal `json:"limit"`
	ClosingDay       int             `json:"closing_day"`
	DueDay           int             `json:"due_day"`
	DefaultAccountID string          `json:"default_account_id,omitempty"`
}

// Clone returns a copy of c.
func (c *CreditCard) Clone() *CreditCard {
	cc := *c
	return &cc
}

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceOpen InvoiceStatus = "OPEN"
	InvoicePaid InvoiceStatus = "PAID"
)

// Invoice accumulates a card's charges for one billing month.
// Amount is kept as a positive magnitude.
type Invoice struct {
	ID                   string          `json:"id"`
	CardID               string          `json:"card_id"`
	Month                time.Month      `json:"month"`
	Year                 int             `json:"year"`
	Amount               decimal.Decimal `json:"amount"`
	Status               InvoiceStatus   `json:"status"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
}

// Clone returns a copy of i.
func (i *Invoice) Clone() *Invoice {
	c := *i
	return &c
}

// Before orders invoices chronologically by billing period.
func (i *Invoice) Before(o *Invoice) bool {
	if i.Year != o.Year {
		return i.Year < o.Year
	}
	return i.Month < o.Month
}
