package domain

import "github.com/shopspring/decimal"

// AccountType is the flavour of a bank account. The engine does not branch on
// it; it is carried for the presentation layer.
type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountInvestment AccountType = "INVESTMENT"
	AccountWallet     AccountType = "WALLET"
)

// Account is a money container whose Balance is a cached aggregate of the
// confirmed rows referencing it. Only the ledger engine mutates Balance.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// Clone returns a copy of a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
