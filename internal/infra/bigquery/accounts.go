package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

type AccountRow struct {
	AccountID   string   `bigquery:"account_id"`   // REQUIRED
	Name        string   `bigquery:"name"`         // REQUIRED
	AccountType string   `bigquery:"account_type"` // REQUIRED
	Balance     *big.Rat `bigquery:"balance"`      // REQUIRED NUMERIC
	Currency    string   `bigquery:"currency"`     // REQUIRED
}

func (r *AccountRow) toDomain() (*domain.Account, error) {
	balance, err := decimalFromRat(r.Balance)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:       r.AccountID,
		Name:     r.Name,
		Type:     domain.AccountType(r.AccountType),
		Balance:  balance,
		Currency: r.Currency,
	}, nil
}

type CardRow struct {
	CardID           string              `bigquery:"card_id"`            // REQUIRED
	Name             string              `bigquery:"name"`               // REQUIRED
	CreditLimit      *big.Rat            `bigquery:"credit_limit"`       // REQUIRED NUMERIC
	ClosingDay       int64               `bigquery:"closing_day"`        // REQUIRED
	DueDay           int64               `bigquery:"due_day"`            // REQUIRED
	DefaultAccountID bigquery.NullString `bigquery:"default_account_id"` // NULLABLE
}

func (r *CardRow) toDomain() (*domain.CreditCard, error) {
	limit, err := decimalFromRat(r.CreditLimit)
	if err != nil {
		return nil, err
	}
	return &domain.CreditCard{
		ID:               r.CardID,
		Name:             r.Name,
		Limit:            limit,
		ClosingDay:       int(r.ClosingDay),
		DueDay:           int(r.DueDay),
		DefaultAccountID: str(r.DefaultAccountID),
	}, nil
}
