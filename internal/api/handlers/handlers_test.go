package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/infra/memory"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t *testing.T
	h http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	now := time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)
	svc := ledger.New(memory.NewStore(), ledger.WithClock(func() time.Time { return now }))

	mux := http.NewServeMux()
	handlers.Register(mux, svc)
	return &server{t: t, h: mux}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

// call performs the request, asserts the status and decodes the body into out.
func (s *server) call(method, path, body string, want int, out any) {
	s.t.Helper()
	rec := s.do(method, path, body)
	require.Equal(s.t, want, rec.Code, "body: %s", rec.Body.String())
	if out != nil {
		require.NoError(s.t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(out))
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed creates an account holding 1000, a card and two categories.
func (s *server) seed() (account, card, food, salary string) {
	var acc domain.Account
	s.call(http.MethodPost, "/api/accounts", `{"name":"Main","currency":"BRL"}`, http.StatusCreated, &acc)
	s.call(http.MethodPost, "/api/accounts/"+acc.ID+"/adjust", `{"balance":"1000"}`, http.StatusOK, nil)

	var c domain.CreditCard
	s.call(http.MethodPost, "/api/cards", `{"name":"Visa","limit":"5000","closing_day":10,"due_day":20}`, http.StatusCreated, &c)

	var f, sal domain.Category
	s.call(http.MethodPost, "/api/categories", `{"name":"Food","kind":"EXPENSE"}`, http.StatusCreated, &f)
	s.call(http.MethodPost, "/api/categories", `{"name":"Salary","kind":"INCOME"}`, http.StatusCreated, &sal)
	return acc.ID, c.ID, f.ID, sal.ID
}

func TestCardPurchaseAndInvoicePayment(t *testing.T) {
	s := newServer(t)
	account, card, food, _ := s.seed()

	var created struct {
		Transactions []*domain.Transaction `json:"transactions"`
		Count        int                   `json:"count"`
	}
	s.call(http.MethodPost, "/api/transactions", `{
		"description": "Laptop",
		"amount": "300",
		"date": "2024-05-02",
		"kind": "EXPENSE",
		"target": {"card_id": "`+card+`"},
		"category_id": "`+food+`",
		"installments": 3
	}`, http.StatusCreated, &created)
	require.Equal(t, 3, created.Count)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.May, Day: 20}, created.Transactions[0].Date)

	var summary ledger.CardSummary
	s.call(http.MethodGet, "/api/cards/"+card, "", http.StatusOK, &summary)
	require.Len(t, summary.Invoices, 3)
	assert.True(t, dec("300").Equal(summary.Used))
	assert.True(t, dec("4700").Equal(summary.Available))

	may := summary.Invoices[0]
	var payment domain.Transaction
	s.call(http.MethodPost, "/api/invoices/"+may.ID+"/pay", `{"account_id":"`+account+`","amount":"100"}`, http.StatusCreated, &payment)
	assert.Equal(t, domain.KindTransfer, payment.Kind)

	var paid domain.Invoice
	s.call(http.MethodGet, "/api/invoices/"+may.ID, "", http.StatusOK, &paid)
	assert.Equal(t, domain.InvoicePaid, paid.Status)
	assert.Equal(t, payment.ID, paid.PaymentTransactionID)

	// paying twice is a state conflict
	s.call(http.MethodPost, "/api/invoices/"+may.ID+"/pay", `{"account_id":"`+account+`","amount":"100"}`, http.StatusConflict, nil)

	var accounts struct {
		Accounts []*domain.Account `json:"accounts"`
	}
	s.call(http.MethodGet, "/api/accounts", "", http.StatusOK, &accounts)
	require.Len(t, accounts.Accounts, 1)
	assert.True(t, dec("900").Equal(accounts.Accounts[0].Balance))

	s.call(http.MethodGet, "/api/cards/"+card, "", http.StatusOK, &summary)
	assert.True(t, dec("200").Equal(summary.Used))
}

func TestRecurringReconcile(t *testing.T) {
	s := newServer(t)
	account, _, _, salary := s.seed()

	var created struct {
		Template *domain.RecurringTemplate `json:"template"`
		Planned  *domain.Transaction       `json:"planned"`
	}
	s.call(http.MethodPost, "/api/recurring", `{
		"description": "Salary",
		"amount": "500",
		"kind": "INCOME",
		"category_id": "`+salary+`",
		"frequency": "MONTHLY",
		"start_date": "2024-05-05"
	}`, http.StatusCreated, &created)
	require.NotNil(t, created.Planned)
	assert.Equal(t, domain.StatusPlanned, created.Planned.Status)

	path := "/api/transactions/" + created.Planned.ID + "/reconcile"
	body := `{"amount":"510","date":"2024-05-06","kind":"INCOME","target":{"account_id":"` + account + `"}}`

	var res ledger.ReconcileResult
	s.call(http.MethodPost, path, body, http.StatusOK, &res)
	assert.Equal(t, domain.StatusConfirmed, res.Confirmed.Status)
	require.NotNil(t, res.Next)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.June, Day: 5}, res.Next.Date)

	s.call(http.MethodPost, path, body, http.StatusConflict, nil)

	s.call(http.MethodDelete, "/api/recurring/"+created.Template.ID, "", http.StatusNoContent, nil)
	s.call(http.MethodDelete, "/api/recurring/"+created.Template.ID, "", http.StatusNotFound, nil)
}

func TestTransferAndDelete(t *testing.T) {
	s := newServer(t)
	account, _, _, _ := s.seed()

	var savings domain.Account
	s.call(http.MethodPost, "/api/accounts", `{"name":"Savings","type":"SAVINGS","currency":"BRL"}`, http.StatusCreated, &savings)

	var legs struct {
		Outgoing *domain.Transaction `json:"outgoing"`
		Incoming *domain.Transaction `json:"incoming"`
	}
	s.call(http.MethodPost, "/api/transfers", `{
		"from_account_id": "`+account+`",
		"to_account_id": "`+savings.ID+`",
		"amount": "250",
		"description": "Savings",
		"date": "2024-05-02"
	}`, http.StatusCreated, &legs)
	assert.Equal(t, legs.Outgoing.TransferID, legs.Incoming.ID)

	var leg domain.Transaction
	s.call(http.MethodGet, "/api/transactions/"+legs.Outgoing.ID, "", http.StatusOK, &leg)
	assert.True(t, dec("-250").Equal(leg.Amount))

	s.call(http.MethodDelete, "/api/transactions/"+legs.Incoming.ID, "", http.StatusNoContent, nil)
	s.call(http.MethodGet, "/api/transactions/"+legs.Outgoing.ID, "", http.StatusNotFound, nil)
	s.call(http.MethodDelete, "/api/transactions/"+legs.Outgoing.ID, "", http.StatusNotFound, nil)

	var accounts struct {
		Accounts []*domain.Account `json:"accounts"`
	}
	s.call(http.MethodGet, "/api/accounts", "", http.StatusOK, &accounts)
	for _, a := range accounts.Accounts {
		if a.ID == account {
			assert.True(t, dec("1000").Equal(a.Balance))
		} else {
			assert.True(t, a.Balance.IsZero())
		}
	}
}

func TestForecast(t *testing.T) {
	s := newServer(t)
	account, _, food, _ := s.seed()

	s.call(http.MethodPost, "/api/transactions", `{
		"description": "Groceries",
		"amount": "40",
		"date": "2024-05-03",
		"kind": "EXPENSE",
		"target": {"account_id": "`+account+`"},
		"category_id": "`+food+`"
	}`, http.StatusCreated, nil)

	var view struct {
		Count     int          `json:"count"`
		Confirmed ledger.Totals `json:"confirmed"`
	}
	s.call(http.MethodGet, "/api/forecast?from=2024-05-01&to=2024-05-31", "", http.StatusOK, &view)
	// the opening balance adjustment and the groceries
	assert.Equal(t, 2, view.Count)
	assert.True(t, dec("40").Equal(view.Confirmed.Expense))
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	account, card, food, _ := s.seed()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", http.MethodPost, "/api/transactions", `{"amount":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/transfers", `{"bogus":1}`, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/api/transactions", `{"description":"x","amount":"0","date":"2024-05-02","kind":"EXPENSE","target":{"account_id":"` + account + `"},"category_id":"` + food + `"}`, http.StatusBadRequest},
		{"income on card", http.MethodPost, "/api/transactions", `{"description":"x","amount":"5","date":"2024-05-02","kind":"INCOME","target":{"card_id":"` + card + `"},"category_id":"` + food + `"}`, http.StatusBadRequest},
		{"unknown account", http.MethodPost, "/api/transactions", `{"description":"x","amount":"5","date":"2024-05-02","kind":"EXPENSE","target":{"account_id":"nope"},"category_id":"` + food + `"}`, http.StatusNotFound},
		{"missing transaction", http.MethodDelete, "/api/transactions/nope", "", http.StatusNotFound},
		{"missing card", http.MethodGet, "/api/cards/nope", "", http.StatusNotFound},
		{"missing invoice", http.MethodPost, "/api/invoices/nope/pay", `{"account_id":"` + account + `","amount":"1"}`, http.StatusNotFound},
		{"bad forecast date", http.MethodGet, "/api/forecast?from=May&to=2024-05-31", "", http.StatusBadRequest},
		{"inverted forecast", http.MethodGet, "/api/forecast?from=2024-06-01&to=2024-05-01", "", http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/transfers", "", http.StatusMethodNotAllowed},
		{"fraction of a cent", http.MethodPost, "/api/transactions", `{"description":"x","amount":"10.005","date":"2024-05-02","kind":"EXPENSE","target":{"card_id":"` + card + `"},"category_id":"` + food + `"}`, http.StatusBadRequest},
		{"too many installments", http.MethodPost, "/api/transactions", `{"description":"x","amount":"500","date":"2024-05-02","kind":"EXPENSE","target":{"card_id":"` + card + `"},"category_id":"` + food + `","installments":121}`, http.StatusBadRequest},
		{"edit missing transaction", http.MethodPut, "/api/transactions/nope", `{"description":"x","amount":"5","date":"2024-05-02","kind":"EXPENSE","category_id":"` + food + `"}`, http.StatusNotFound},
		{"budget month out of range", http.MethodPut, "/api/budgets", `{"category_id":"` + food + `","month":13,"year":2024,"amount":"10"}`, http.StatusBadRequest},
		{"budget list without month", http.MethodGet, "/api/budgets?year=2024", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestEditAndBudgets(t *testing.T) {
	s := newServer(t)
	account, _, food, _ := s.seed()

	var created struct {
		Transactions []*domain.Transaction `json:"transactions"`
	}
	s.call(http.MethodPost, "/api/transactions",
		`{"description":"Market","amount":"40","date":"2024-05-03","kind":"EXPENSE","target":{"account_id":"`+account+`"},"category_id":"`+food+`"}`,
		http.StatusCreated, &created)
	require.Len(t, created.Transactions, 1)

	var edited domain.Transaction
	s.call(http.MethodPut, "/api/transactions/"+created.Transactions[0].ID,
		`{"description":"Market and bakery","amount":"55.50","date":"2024-05-03","kind":"EXPENSE","category_id":"`+food+`"}`,
		http.StatusOK, &edited)
	assert.True(t, edited.Amount.Equal(dec("-55.50")))

	var accounts struct {
		Accounts []*domain.Account `json:"accounts"`
	}
	s.call(http.MethodGet, "/api/accounts", "", http.StatusOK, &accounts)
	require.Len(t, accounts.Accounts, 1)
	assert.True(t, accounts.Accounts[0].Balance.Equal(dec("944.50")))

	var b domain.Budget
	s.call(http.MethodPut, "/api/budgets", `{"category_id":"`+food+`","month":5,"year":2024,"amount":"50"}`, http.StatusOK, &b)
	assert.Equal(t, time.May, b.Month)

	var list struct {
		Budgets []*ledger.BudgetStatus `json:"budgets"`
		Count   int                    `json:"count"`
	}
	s.call(http.MethodGet, "/api/budgets?month=5&year=2024", "", http.StatusOK, &list)
	require.Equal(t, 1, list.Count)
	assert.True(t, list.Budgets[0].Spent.Equal(dec("55.50")))
	assert.True(t, list.Budgets[0].Over)
}
