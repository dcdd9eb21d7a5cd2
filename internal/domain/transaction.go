package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies the direction of a ledger row.
type TransactionKind string

const (
	KindIncome   TransactionKind = "INCOME"
	KindExpense  TransactionKind = "EXPENSE"
	KindTransfer TransactionKind = "TRANSFER"
)

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Sign applies the kind's sign convention to a magnitude: income is positive,
// expenses are negative. Transfers carry their sign per leg and are returned
// unchanged.
func (k TransactionKind) Sign(magnitude decimal.Decimal) decimal.Decimal {
	switch k {
	case KindIncome:
		return magnitude.Abs()
	case KindExpense:
		return magnitude.Abs().Neg()
	}
	return magnitude
}

// TransactionStatus is the reconciliation state of a row.
type TransactionStatus string

const (
	// StatusPlanned marks a forecast row that has not touched any balance yet.
	StatusPlanned TransactionStatus = "PLANNED"
	// StatusConfirmed marks a row whose balance or invoice effects are applied.
	StatusConfirmed TransactionStatus = "CONFIRMED"
)

// Transaction represents one ledger row.
// Amount is signed: income positive, expense negative, transfer legs signed
// per direction. At most one of AccountID and InvoiceID is set on a
// confirmed row; planned rows carry neither.
type Transaction struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        civil.Date        `json:"date"`
	Kind        TransactionKind   `json:"kind"`
	Status      TransactionStatus `json:"status"`

	AccountID           string `json:"account_id,omitempty"`
	InvoiceID           string `json:"invoice_id,omitempty"`
	TransferID          string `json:"transfer_id,omitempty"`
	RecurringTemplateID string `json:"recurring_template_id,omitempty"`

	InstallmentNumber int `json:"installment_number,omitempty"`
	TotalInstallments int `json:"total_installments,omitempty"`

	CategoryID string `json:"category_id,omitempty"`
	TagID      string `json:"tag_id,omitempty"`
}

// IsConfirmed reports whether the row has applied its effects.
func (t *Transaction) IsConfirmed() bool { return t.Status == StatusConfirmed }

// IsPlanned reports whether the row is still a forecast.
func (t *Transaction) IsPlanned() bool { return t.Status == StatusPlanned }

// Clone returns a copy that shares no mutable state with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}
