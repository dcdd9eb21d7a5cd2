package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/infra/memory"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d     = decimal.RequireFromString
	today = time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)
)

func day(y int, m time.Month, dd int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: dd}
}

// fixture seeds one account (balance 1000), a second account (balance 0),
// a card closing on the 10th and due on the 20th, and an expense category.
type fixture struct {
	ctx      context.Context
	store    *memory.Store
	svc      *ledger.Service
	account  string
	savings  string
	card     string
	category string
	removed  *recordingRemover
}

type recordingRemover struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRemover) RemoveAttachments(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		account:  "acc-main",
		savings:  "acc-savings",
		card:     "card-1",
		category: "cat-food",
		removed:  &recordingRemover{},
	}
	opts = append([]ledger.Option{
		ledger.WithClock(func() time.Time { return today }),
		ledger.WithAttachments(f.removed),
	}, opts...)
	f.svc = ledger.New(f.store, opts...)

	err := f.store.RunInTx(f.ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.InsertAccount(ctx, &domain.Account{ID: f.account, Name: "Main", Type: domain.AccountChecking, Balance: d("1000"), Currency: "BRL"}); err != nil {
			return err
		}
		if err := tx.InsertAccount(ctx, &domain.Account{ID: f.savings, Name: "Savings", Type: domain.AccountSavings, Balance: decimal.Zero, Currency: "BRL"}); err != nil {
			return err
		}
		if err := tx.InsertCard(ctx, &domain.CreditCard{ID: f.card, Name: "Visa", Limit: d("5000"), ClosingDay: 10, DueDay: 20}); err != nil {
			return err
		}
		cat, err := tx.UpsertCategory(ctx, "Food", domain.KindExpense)
		if err != nil {
			return err
		}
		f.category = cat.ID
		return nil
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	accounts, err := f.svc.Balances(f.ctx)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == id {
			return a.Balance
		}
	}
	t.Fatalf("account %s not found", id)
	return decimal.Zero
}

func (f *fixture) invoices(t *testing.T) []*domain.Invoice {
	t.Helper()
	sum, err := f.svc.CardSummary(f.ctx, f.card)
	require.NoError(t, err)
	return sum.Invoices
}

func (f *fixture) transaction(t *testing.T, id string) (*domain.Transaction, error) {
	t.Helper()
	var row *domain.Transaction
	err := f.store.View(f.ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		row, err = tx.GetTransaction(ctx, id)
		return err
	})
	return row, err
}

func (f *fixture) rows(t *testing.T, filter ledger.TransactionFilter) []*domain.Transaction {
	t.Helper()
	var rows []*domain.Transaction
	err := f.store.View(f.ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		rows, err = tx.ListTransactions(ctx, filter)
		return err
	})
	require.NoError(t, err)
	return rows
}

// assertBalancesMatchRows checks every account balance against its seed plus
// the confirmed rows that reference it.
func (f *fixture) assertBalancesMatchRows(t *testing.T) {
	t.Helper()
	seed := map[string]decimal.Decimal{f.account: d("1000"), f.savings: decimal.Zero}
	for id, start := range seed {
		sum := start
		for _, r := range f.rows(t, ledger.TransactionFilter{AccountID: id, Status: domain.StatusConfirmed}) {
			sum = sum.Add(r.Amount)
		}
		assert.True(t, f.balance(t, id).Equal(sum), "account %s: balance %s, rows %s", id, f.balance(t, id), sum)
	}
}

func (f *fixture) assertInvoicesMatchRows(t *testing.T) {
	t.Helper()
	for _, inv := range f.invoices(t) {
		sum := decimal.Zero
		for _, r := range f.rows(t, ledger.TransactionFilter{InvoiceID: inv.ID}) {
			sum = sum.Add(r.Amount.Abs())
		}
		assert.True(t, inv.Amount.Equal(sum), "invoice %02d/%d: amount %s, rows %s", inv.Month, inv.Year, inv.Amount, sum)
	}
}

func (f *fixture) expense(amount string, target ledger.Target) ledger.DirectInput {
	return ledger.DirectInput{
		Description: "Groceries",
		Amount:      d(amount),
		Date:        day(2024, 3, 15),
		Kind:        domain.KindExpense,
		Target:      target,
		CategoryID:  f.category,
	}
}

func TestCreateDirectTransaction_Account(t *testing.T) {
	f := newFixture(t)

	rows, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("120.50", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(d("-120.50")))
	assert.Equal(t, domain.StatusConfirmed, rows[0].Status)
	assert.True(t, f.balance(t, f.account).Equal(d("879.50")))

	income := f.expense("200", ledger.Target{AccountID: f.account})
	income.Kind = domain.KindIncome
	_, err = f.svc.CreateDirectTransaction(f.ctx, income)
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.account).Equal(d("1079.50")))
	f.assertBalancesMatchRows(t)
}

func TestCreateDirectTransaction_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(in *ledger.DirectInput)
		want   error
	}{
		{"zero amount", func(in *ledger.DirectInput) { in.Amount = decimal.Zero }, ledger.ErrValidation},
		{"negative amount", func(in *ledger.DirectInput) { in.Amount = d("-5") }, ledger.ErrValidation},
		{"no description", func(in *ledger.DirectInput) { in.Description = "" }, ledger.ErrValidation},
		{"no target", func(in *ledger.DirectInput) { in.Target = ledger.Target{} }, ledger.ErrValidation},
		{"both targets", func(in *ledger.DirectInput) { in.Target.CardID = f.card }, ledger.ErrValidation},
		{"transfer kind", func(in *ledger.DirectInput) { in.Kind = domain.KindTransfer }, ledger.ErrValidation},
		{"installments on account", func(in *ledger.DirectInput) { in.Installments = 3 }, ledger.ErrValidation},
		{"unknown category", func(in *ledger.DirectInput) { in.CategoryID = "nope" }, ledger.ErrValidation},
		{"unknown account", func(in *ledger.DirectInput) { in.Target.AccountID = "nope" }, ledger.ErrNotFound},
		{"income on card", func(in *ledger.DirectInput) {
			in.Target = ledger.Target{CardID: f.card}
			in.Kind = domain.KindIncome
		}, ledger.ErrValidation},
		{"unknown card", func(in *ledger.DirectInput) { in.Target = ledger.Target{CardID: "nope"} }, ledger.ErrNotFound},
		{"fraction of a cent", func(in *ledger.DirectInput) { in.Amount = d("10.005") }, ledger.ErrValidation},
		{"fraction of a cent on card", func(in *ledger.DirectInput) {
			in.Target = ledger.Target{CardID: f.card}
			in.Amount = d("10.005")
		}, ledger.ErrValidation},
		{"installment below a cent", func(in *ledger.DirectInput) {
			in.Target = ledger.Target{CardID: f.card}
			in.Amount = d("0.02")
			in.Installments = 3
		}, ledger.ErrValidation},
		{"too many installments", func(in *ledger.DirectInput) {
			in.Target = ledger.Target{CardID: f.card}
			in.Installments = 121
		}, ledger.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.expense("10", ledger.Target{AccountID: f.account})
			tt.mutate(&in)
			_, err := f.svc.CreateDirectTransaction(f.ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	assert.Empty(t, f.invoices(t))
	assert.Empty(t, f.rows(t, ledger.TransactionFilter{}))
}

// A 300 purchase on 2024-03-15 in 3 installments on a card closing on the 10th
// and due on the 20th lands on the April, May and June invoices.
func TestCardInstallments_ScenarioA(t *testing.T) {
	f := newFixture(t)

	in := f.expense("300", ledger.Target{CardID: f.card})
	in.Installments = 3
	rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	invoices := f.invoices(t)
	require.Len(t, invoices, 3)
	for i, want := range []time.Month{time.April, time.May, time.June} {
		assert.Equal(t, want, invoices[i].Month)
		assert.Equal(t, 2024, invoices[i].Year)
		assert.True(t, invoices[i].Amount.Equal(d("100")))
		assert.Equal(t, domain.InvoiceOpen, invoices[i].Status)

		assert.Equal(t, day(2024, want, 20), rows[i].Date)
		assert.Equal(t, invoices[i].ID, rows[i].InvoiceID)
		assert.Empty(t, rows[i].AccountID)
		assert.Equal(t, i+1, rows[i].InstallmentNumber)
		assert.Equal(t, 3, rows[i].TotalInstallments)
		assert.True(t, rows[i].Amount.Equal(d("-100")))
	}

	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	limit, err := f.svc.AvailableLimit(f.ctx, f.card)
	require.NoError(t, err)
	assert.True(t, limit.Equal(d("4700")))
	f.assertInvoicesMatchRows(t)
}

func TestCardPurchase_ClosingDayBoundary(t *testing.T) {
	f := newFixture(t)

	onClosing := f.expense("10", ledger.Target{CardID: f.card})
	onClosing.Date = day(2024, 3, 10)
	rows, err := f.svc.CreateDirectTransaction(f.ctx, onClosing)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 4, 20), rows[0].Date)

	before := f.expense("10", ledger.Target{CardID: f.card})
	before.Date = day(2024, 3, 9)
	rows, err = f.svc.CreateDirectTransaction(f.ctx, before)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 20), rows[0].Date)

	invoices := f.invoices(t)
	require.Len(t, invoices, 2)
	assert.Equal(t, time.March, invoices[0].Month)
	assert.Equal(t, time.April, invoices[1].Month)
}

func TestCardPurchase_DueDayClamped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.RunInTx(f.ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertCard(ctx, &domain.CreditCard{ID: "card-31", Name: "Late", Limit: d("1000"), ClosingDay: 25, DueDay: 31})
	}))

	in := f.expense("10", ledger.Target{CardID: "card-31"})
	in.Date = day(2024, 1, 26)
	rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), rows[0].Date)
}

func TestCardInstallments_RemainderPolicy(t *testing.T) {
	t.Run("drop", func(t *testing.T) {
		f := newFixture(t)
		in := f.expense("100", ledger.Target{CardID: f.card})
		in.Installments = 3
		rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, r := range rows {
			sum = sum.Add(r.Amount.Abs())
		}
		assert.True(t, sum.Equal(d("99.99")), "dropped cent stays visible: %s", sum)
		f.assertInvoicesMatchRows(t)
	})

	t.Run("last", func(t *testing.T) {
		f := newFixture(t, ledger.WithRemainderPolicy(ledger.RemainderLast))
		in := f.expense("100", ledger.Target{CardID: f.card})
		in.Installments = 3
		rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, r := range rows {
			sum = sum.Add(r.Amount.Abs())
		}
		assert.True(t, sum.Equal(d("100")))
		assert.True(t, rows[2].Amount.Equal(d("-33.34")))
		f.assertInvoicesMatchRows(t)
	})
}

func TestDeleteTransaction_RoundTrip(t *testing.T) {
	f := newFixture(t)

	rows, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("75", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTransaction(f.ctx, rows[0].ID))

	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	_, err = f.transaction(t, rows[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Equal(t, []string{rows[0].ID}, f.removed.ids)

	err = f.svc.DeleteTransaction(f.ctx, rows[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteTransaction_CardInstallment(t *testing.T) {
	f := newFixture(t)

	in := f.expense("300", ledger.Target{CardID: f.card})
	in.Installments = 3
	rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTransaction(f.ctx, rows[1].ID))

	invoices := f.invoices(t)
	assert.True(t, invoices[0].Amount.Equal(d("100")))
	assert.True(t, invoices[1].Amount.IsZero())
	assert.True(t, invoices[2].Amount.Equal(d("100")))
	f.assertInvoicesMatchRows(t)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)

	out, in, err := f.svc.Transfer(f.ctx, ledger.TransferInput{
		FromAccountID: f.account,
		ToAccountID:   f.savings,
		Amount:        d("250"),
		Description:   "Save",
		Date:          day(2024, 4, 1),
	})
	require.NoError(t, err)

	assert.True(t, out.Amount.Equal(in.Amount.Neg()))
	assert.Equal(t, in.ID, out.TransferID)
	assert.Equal(t, out.ID, in.TransferID)
	assert.Equal(t, domain.KindTransfer, out.Kind)
	assert.True(t, f.balance(t, f.account).Equal(d("750")))
	assert.True(t, f.balance(t, f.savings).Equal(d("250")))
	f.assertBalancesMatchRows(t)

	require.NoError(t, f.svc.DeleteTransaction(f.ctx, in.ID))
	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	assert.True(t, f.balance(t, f.savings).IsZero())
	_, err = f.transaction(t, out.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ElementsMatch(t, []string{out.ID, in.ID}, f.removed.ids)
}

func TestTransfer_Rejects(t *testing.T) {
	f := newFixture(t)
	base := ledger.TransferInput{FromAccountID: f.account, ToAccountID: f.savings, Amount: d("10"), Description: "x", Date: day(2024, 4, 1)}

	same := base
	same.ToAccountID = f.account
	_, _, err := f.svc.Transfer(f.ctx, same)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	zero := base
	zero.Amount = decimal.Zero
	_, _, err = f.svc.Transfer(f.ctx, zero)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	missing := base
	missing.ToAccountID = "nope"
	_, _, err = f.svc.Transfer(f.ctx, missing)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	assert.Empty(t, f.rows(t, ledger.TransactionFilter{}))
}

func (f *fixture) salary(t *testing.T, start civil.Date, end *civil.Date) (*domain.RecurringTemplate, *domain.Transaction) {
	t.Helper()
	tmpl, first, err := f.svc.CreateRecurringTemplate(f.ctx, ledger.TemplateInput{
		Description: "Salary",
		Amount:      d("50"),
		Kind:        domain.KindIncome,
		CategoryID:  f.category,
		Frequency:   domain.FrequencyMonthly,
		StartDate:   start,
		EndDate:     end,
	})
	require.NoError(t, err)
	return tmpl, first
}

// A monthly income template of 50 starting 2024-01-05, reconciled at 55,
// plans 2024-02-05 at the template value.
func TestReconcile_ScenarioB(t *testing.T) {
	f := newFixture(t)

	tmpl, first := f.salary(t, day(2024, 1, 5), nil)
	require.NotNil(t, first)
	assert.Equal(t, domain.StatusPlanned, first.Status)
	assert.Equal(t, day(2024, 1, 5), first.Date)
	assert.True(t, f.balance(t, f.account).Equal(d("1000")), "planned rows never move balances")

	res, err := f.svc.Reconcile(f.ctx, first.ID, ledger.ReconcileInput{
		Amount: d("55"),
		Date:   day(2024, 1, 6),
		Target: ledger.Target{AccountID: f.account},
		Kind:   domain.KindIncome,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, res.Confirmed.ID)
	assert.Equal(t, domain.StatusConfirmed, res.Confirmed.Status)
	assert.True(t, res.Confirmed.Amount.Equal(d("55")))
	assert.Equal(t, day(2024, 1, 6), res.Confirmed.Date)
	assert.True(t, f.balance(t, f.account).Equal(d("1055")))

	require.NotNil(t, res.Next)
	assert.Equal(t, domain.StatusPlanned, res.Next.Status)
	assert.Equal(t, day(2024, 2, 5), res.Next.Date)
	assert.True(t, res.Next.Amount.Equal(d("50")))
	assert.Equal(t, tmpl.ID, res.Next.RecurringTemplateID)

	planned := f.rows(t, ledger.TransactionFilter{TemplateID: tmpl.ID, Status: domain.StatusPlanned})
	require.Len(t, planned, 1)
	assert.Equal(t, res.Next.ID, planned[0].ID)
	f.assertBalancesMatchRows(t)
}

func TestReconcile_MonthEndAnchor(t *testing.T) {
	f := newFixture(t)
	_, first := f.salary(t, day(2024, 1, 31), nil)

	in := ledger.ReconcileInput{Amount: d("50"), Date: day(2024, 1, 31), Target: ledger.Target{AccountID: f.account}, Kind: domain.KindIncome}
	res, err := f.svc.Reconcile(f.ctx, first.ID, in)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), res.Next.Date)

	res, err = f.svc.Reconcile(f.ctx, res.Next.ID, in)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 31), res.Next.Date)
}

func TestReconcile_StopsAtEndDate(t *testing.T) {
	f := newFixture(t)
	end := day(2024, 1, 31)
	tmpl, first := f.salary(t, day(2024, 1, 5), &end)

	res, err := f.svc.Reconcile(f.ctx, first.ID, ledger.ReconcileInput{
		Amount: d("50"), Date: day(2024, 1, 5), Target: ledger.Target{AccountID: f.account}, Kind: domain.KindIncome,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Next)
	assert.Empty(t, f.rows(t, ledger.TransactionFilter{TemplateID: tmpl.ID, Status: domain.StatusPlanned}))
}

func TestReconcile_CardTarget(t *testing.T) {
	f := newFixture(t)
	tmpl, first, err := f.svc.CreateRecurringTemplate(f.ctx, ledger.TemplateInput{
		Description: "Streaming",
		Amount:      d("30"),
		Kind:        domain.KindExpense,
		CategoryID:  f.category,
		Frequency:   domain.FrequencyMonthly,
		StartDate:   day(2024, 3, 12),
	})
	require.NoError(t, err)

	res, err := f.svc.Reconcile(f.ctx, first.ID, ledger.ReconcileInput{
		Amount: d("32"), Date: day(2024, 3, 12), Target: ledger.Target{CardID: f.card}, Kind: domain.KindExpense,
	})
	require.NoError(t, err)

	assert.Equal(t, day(2024, 4, 20), res.Confirmed.Date)
	assert.NotEmpty(t, res.Confirmed.InvoiceID)
	assert.Empty(t, res.Confirmed.AccountID)
	assert.True(t, res.Confirmed.Amount.Equal(d("-32")))
	assert.Equal(t, day(2024, 4, 12), res.Next.Date)
	assert.True(t, res.Next.Amount.Equal(d("-30")))
	assert.Equal(t, tmpl.ID, res.Next.RecurringTemplateID)
	f.assertInvoicesMatchRows(t)

	_, err = f.svc.Reconcile(f.ctx, res.Next.ID, ledger.ReconcileInput{
		Amount: d("30"), Date: day(2024, 4, 12), Target: ledger.Target{CardID: f.card}, Kind: domain.KindIncome,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestReconcile_Rejects(t *testing.T) {
	f := newFixture(t)
	_, first := f.salary(t, day(2024, 1, 5), nil)
	in := ledger.ReconcileInput{Amount: d("50"), Date: day(2024, 1, 5), Target: ledger.Target{AccountID: f.account}, Kind: domain.KindIncome}

	_, err := f.svc.Reconcile(f.ctx, "missing", in)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.svc.Reconcile(f.ctx, first.ID, in)
	require.NoError(t, err)

	_, err = f.svc.Reconcile(f.ctx, first.ID, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidStateTransition)
	assert.True(t, f.balance(t, f.account).Equal(d("1050")))

	direct, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("5", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	_, err = f.svc.Reconcile(f.ctx, direct[0].ID, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidStateTransition)
}

func TestReconcile_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	tmpl, first := f.salary(t, day(2024, 1, 5), nil)
	in := ledger.ReconcileInput{Amount: d("50"), Date: day(2024, 1, 5), Target: ledger.Target{AccountID: f.account}, Kind: domain.KindIncome}

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reconcile(f.ctx, first.ID, in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ledger.ErrInvalidStateTransition)
	}
	assert.Equal(t, 1, wins)
	assert.True(t, f.balance(t, f.account).Equal(d("1050")))
	assert.Len(t, f.rows(t, ledger.TransactionFilter{TemplateID: tmpl.ID, Status: domain.StatusPlanned}), 1)
}

func TestCreateRecurringTemplate_ZeroOccurrences(t *testing.T) {
	f := newFixture(t)
	end := day(2024, 1, 1)
	tmpl, first := f.salary(t, day(2024, 2, 1), &end)

	assert.NotEmpty(t, tmpl.ID)
	assert.Nil(t, first)
	assert.Empty(t, f.rows(t, ledger.TransactionFilter{TemplateID: tmpl.ID}))
}

func TestDeleteRecurringTemplate(t *testing.T) {
	f := newFixture(t)
	tmpl, first := f.salary(t, day(2024, 1, 5), nil)

	res, err := f.svc.Reconcile(f.ctx, first.ID, ledger.ReconcileInput{
		Amount: d("50"), Date: day(2024, 1, 5), Target: ledger.Target{AccountID: f.account}, Kind: domain.KindIncome,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecurringTemplate(f.ctx, tmpl.ID))

	_, err = f.transaction(t, res.Next.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	kept, err := f.transaction(t, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, kept.Status)
	assert.Empty(t, kept.RecurringTemplateID)
	assert.True(t, f.balance(t, f.account).Equal(d("1050")))

	assert.ErrorIs(t, f.svc.DeleteRecurringTemplate(f.ctx, tmpl.ID), ledger.ErrNotFound)
}

// Paying a 300 invoice from a 1000 account leaves 700; deleting the payment
// reopens the invoice and restores 1000.
func TestPayInvoice_ScenarioC(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("300", ledger.Target{CardID: f.card}))
	require.NoError(t, err)
	inv := f.invoices(t)[0]
	require.True(t, inv.Amount.Equal(d("300")))

	got, err := f.svc.Invoice(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv, got)
	_, err = f.svc.Invoice(f.ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.svc.Transaction(f.ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	payment, err := f.svc.PayInvoice(f.ctx, inv.ID, f.account, d("300"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindTransfer, payment.Kind)
	assert.Equal(t, civil.DateOf(today), payment.Date)
	assert.Equal(t, "Invoice payment Visa (04/2024)", payment.Description)
	assert.True(t, f.balance(t, f.account).Equal(d("700")))

	paid := f.invoices(t)[0]
	assert.Equal(t, domain.InvoicePaid, paid.Status)
	assert.Equal(t, payment.ID, paid.PaymentTransactionID)

	limit, err := f.svc.AvailableLimit(f.ctx, f.card)
	require.NoError(t, err)
	assert.True(t, limit.Equal(d("5000")))

	_, err = f.svc.PayInvoice(f.ctx, inv.ID, f.account, d("300"))
	assert.ErrorIs(t, err, ledger.ErrInvalidStateTransition)

	require.NoError(t, f.svc.DeleteTransaction(f.ctx, payment.ID))
	reopened := f.invoices(t)[0]
	assert.Equal(t, domain.InvoiceOpen, reopened.Status)
	assert.Empty(t, reopened.PaymentTransactionID)
	assert.True(t, reopened.Amount.Equal(d("300")))
	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
	f.assertBalancesMatchRows(t)
}

func TestAdjustAccountBalance(t *testing.T) {
	f := newFixture(t)

	adj, err := f.svc.AdjustAccountBalance(f.ctx, f.account, d("940"), day(2024, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.True(t, adj.Amount.Equal(d("-60")))
	assert.Equal(t, domain.KindExpense, adj.Kind)
	assert.True(t, f.balance(t, f.account).Equal(d("940")))

	noop, err := f.svc.AdjustAccountBalance(f.ctx, f.account, d("940"), day(2024, 4, 1))
	require.NoError(t, err)
	assert.Nil(t, noop)

	// no date books the row on the service clock
	up, err := f.svc.AdjustAccountBalance(f.ctx, f.account, d("1000"), civil.Date{})
	require.NoError(t, err)
	assert.Equal(t, civil.DateOf(today), up.Date)
	assert.Equal(t, domain.KindIncome, up.Kind)
	f.assertBalancesMatchRows(t)

	// each direction books under a category of its own kind
	assert.NotEqual(t, adj.CategoryID, up.CategoryID)
	require.NoError(t, f.store.View(f.ctx, func(ctx context.Context, tx ledger.Tx) error {
		for kind, id := range map[domain.TransactionKind]string{domain.KindExpense: adj.CategoryID, domain.KindIncome: up.CategoryID} {
			cat, err := tx.UpsertCategory(ctx, ledger.CategoryBalanceAdjustment, kind)
			if err != nil {
				return err
			}
			assert.Equal(t, id, cat.ID)
			assert.Equal(t, kind, cat.Kind)
		}
		return nil
	}))

	_, err = f.svc.AdjustAccountBalance(f.ctx, f.account, d("1000.001"), day(2024, 4, 1))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDeleteCard(t *testing.T) {
	f := newFixture(t)

	in := f.expense("300", ledger.Target{CardID: f.card})
	in.Installments = 2
	rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCard(f.ctx, f.card))

	_, err = f.svc.CardSummary(f.ctx, f.card)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	for _, r := range rows {
		_, err := f.transaction(t, r.ID)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	}
	assert.Len(t, f.removed.ids, 2)
}

func TestForecast(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("40", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	f.salary(t, day(2024, 3, 25), nil)
	_, _, err = f.svc.Transfer(f.ctx, ledger.TransferInput{
		FromAccountID: f.account, ToAccountID: f.savings, Amount: d("10"), Description: "Move", Date: day(2024, 3, 20),
	})
	require.NoError(t, err)

	view, err := f.svc.Forecast(f.ctx, day(2024, 3, 1), day(2024, 3, 31))
	require.NoError(t, err)
	require.Len(t, view.Transactions, 4)
	assert.Equal(t, day(2024, 3, 15), view.Transactions[0].Date)
	assert.Equal(t, day(2024, 3, 25), view.Transactions[3].Date)
	assert.True(t, view.Confirmed.Expense.Equal(d("40")))
	assert.True(t, view.Confirmed.Income.IsZero())
	assert.True(t, view.Projected.Income.Equal(d("50")))
	assert.True(t, view.Projected.Net().Equal(d("50")))

	_, err = f.svc.Forecast(f.ctx, day(2024, 3, 31), day(2024, 3, 1))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

type failingStore struct {
	ledger.Store
}

func (failingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return errors.New("connection reset")
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	svc := ledger.New(failingStore{Store: memory.NewStore()})
	_, err := svc.CreateDirectTransaction(context.Background(), ledger.DirectInput{
		Description: "x", Amount: d("1"), Date: day(2024, 1, 1), Kind: domain.KindExpense,
		Target: ledger.Target{AccountID: "a"}, CategoryID: "c",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CreateDirectTransaction")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCardPurchase_KeepsEveryCent(t *testing.T) {
	f := newFixture(t)

	rows, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("10.01", ledger.Target{CardID: f.card}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(d("-10.01")))
	assert.True(t, f.invoices(t)[0].Amount.Equal(d("10.01")))

	in := f.expense("120", ledger.Target{CardID: f.card})
	in.Installments = 120
	rows, err = f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)
	assert.Len(t, rows, 120)
	f.assertInvoicesMatchRows(t)
}

func (f *fixture) edit(amount string, kind domain.TransactionKind, date civil.Date) ledger.UpdateInput {
	return ledger.UpdateInput{
		Description: "Edited",
		Amount:      d(amount),
		Date:        date,
		Kind:        kind,
		CategoryID:  f.category,
	}
}

func TestUpdateTransaction_Account(t *testing.T) {
	f := newFixture(t)

	rows, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("75", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	require.True(t, f.balance(t, f.account).Equal(d("925")))

	got, err := f.svc.UpdateTransaction(f.ctx, rows[0].ID, f.edit("100", domain.KindIncome, day(2024, 3, 16)))
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(d("100")))
	assert.Equal(t, domain.KindIncome, got.Kind)
	assert.Equal(t, f.account, got.AccountID)
	assert.True(t, f.balance(t, f.account).Equal(d("1100")))

	stored, err := f.svc.Transaction(f.ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", stored.Description)
	assert.Equal(t, day(2024, 3, 16), stored.Date)
	f.assertBalancesMatchRows(t)
}

func TestUpdateTransaction_CardInstallment(t *testing.T) {
	f := newFixture(t)

	in := f.expense("300", ledger.Target{CardID: f.card})
	in.Installments = 3
	rows, err := f.svc.CreateDirectTransaction(f.ctx, in)
	require.NoError(t, err)

	_, err = f.svc.UpdateTransaction(f.ctx, rows[0].ID, f.edit("90", domain.KindExpense, rows[0].Date))
	require.NoError(t, err)
	assert.True(t, f.invoices(t)[0].Amount.Equal(d("90")))
	f.assertInvoicesMatchRows(t)

	_, err = f.svc.UpdateTransaction(f.ctx, rows[1].ID, f.edit("90", domain.KindExpense, rows[1].Date.AddDays(1)))
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = f.svc.UpdateTransaction(f.ctx, rows[1].ID, f.edit("90", domain.KindIncome, rows[1].Date))
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.True(t, f.invoices(t)[1].Amount.Equal(d("100")))
}

func TestUpdateTransaction_PlannedRowHasNoEffect(t *testing.T) {
	f := newFixture(t)

	_, planned, err := f.svc.CreateRecurringTemplate(f.ctx, ledger.TemplateInput{
		Description: "Rent",
		Amount:      d("500"),
		Kind:        domain.KindExpense,
		CategoryID:  f.category,
		Frequency:   domain.FrequencyMonthly,
		StartDate:   day(2024, 4, 5),
	})
	require.NoError(t, err)

	got, err := f.svc.UpdateTransaction(f.ctx, planned.ID, f.edit("550", domain.KindExpense, day(2024, 4, 6)))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlanned, got.Status)
	assert.True(t, got.Amount.Equal(d("-550")))
	assert.Equal(t, planned.RecurringTemplateID, got.RecurringTemplateID)
	assert.True(t, f.balance(t, f.account).Equal(d("1000")))
}

func TestUpdateTransaction_Rejects(t *testing.T) {
	f := newFixture(t)

	out, _, err := f.svc.Transfer(f.ctx, ledger.TransferInput{
		FromAccountID: f.account, ToAccountID: f.savings, Amount: d("50"), Description: "Save", Date: day(2024, 3, 1),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateDirectTransaction(f.ctx, f.expense("300", ledger.Target{CardID: f.card}))
	require.NoError(t, err)
	payment, err := f.svc.PayInvoice(f.ctx, f.invoices(t)[0].ID, f.account, d("300"))
	require.NoError(t, err)
	rows, err := f.svc.CreateDirectTransaction(f.ctx, f.expense("20", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	before := f.balance(t, f.account)

	tests := []struct {
		name string
		id   string
		in   ledger.UpdateInput
		want error
	}{
		{"transfer leg", out.ID, f.edit("60", domain.KindExpense, day(2024, 3, 1)), ledger.ErrValidation},
		{"invoice payment", payment.ID, f.edit("10", domain.KindExpense, day(2024, 5, 2)), ledger.ErrValidation},
		{"unknown row", "missing", f.edit("10", domain.KindExpense, day(2024, 3, 1)), ledger.ErrNotFound},
		{"fraction of a cent", rows[0].ID, f.edit("10.001", domain.KindExpense, day(2024, 3, 1)), ledger.ErrValidation},
		{"transfer kind", rows[0].ID, f.edit("10", domain.KindTransfer, day(2024, 3, 1)), ledger.ErrValidation},
		{"unknown category", rows[0].ID, func() ledger.UpdateInput {
			in := f.edit("10", domain.KindExpense, day(2024, 3, 1))
			in.CategoryID = "nope"
			return in
		}(), ledger.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateTransaction(f.ctx, tt.id, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.True(t, f.balance(t, f.account).Equal(before))
	f.assertBalancesMatchRows(t)
}

func TestBudgets(t *testing.T) {
	f := newFixture(t)

	budget, err := f.svc.SetBudget(f.ctx, ledger.BudgetInput{CategoryID: f.category, Month: time.March, Year: 2024, Amount: d("500")})
	require.NoError(t, err)

	// counted: an account expense on 03-15 and a card charge due on 03-20
	_, err = f.svc.CreateDirectTransaction(f.ctx, f.expense("120", ledger.Target{AccountID: f.account}))
	require.NoError(t, err)
	card := f.expense("80", ledger.Target{CardID: f.card})
	card.Date = day(2024, 2, 15)
	_, err = f.svc.CreateDirectTransaction(f.ctx, card)
	require.NoError(t, err)

	// not counted: income, another month, a planned row
	income := f.expense("999", ledger.Target{AccountID: f.account})
	income.Kind = domain.KindIncome
	_, err = f.svc.CreateDirectTransaction(f.ctx, income)
	require.NoError(t, err)
	april := f.expense("40", ledger.Target{AccountID: f.account})
	april.Date = day(2024, 4, 1)
	_, err = f.svc.CreateDirectTransaction(f.ctx, april)
	require.NoError(t, err)
	_, _, err = f.svc.CreateRecurringTemplate(f.ctx, ledger.TemplateInput{
		Description: "Rent", Amount: d("700"), Kind: domain.KindExpense, CategoryID: f.category,
		Frequency: domain.FrequencyMonthly, StartDate: day(2024, 3, 25),
	})
	require.NoError(t, err)

	status, err := f.svc.Budgets(f.ctx, time.March, 2024)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, budget.ID, status[0].Budget.ID)
	assert.True(t, status[0].Spent.Equal(d("200")), "spent %s", status[0].Spent)
	assert.True(t, status[0].Remaining.Equal(d("300")))
	assert.False(t, status[0].Over)

	lowered, err := f.svc.SetBudget(f.ctx, ledger.BudgetInput{CategoryID: f.category, Month: time.March, Year: 2024, Amount: d("150")})
	require.NoError(t, err)
	assert.Equal(t, budget.ID, lowered.ID)
	status, err = f.svc.Budgets(f.ctx, time.March, 2024)
	require.NoError(t, err)
	assert.True(t, status[0].Remaining.Equal(d("-50")))
	assert.True(t, status[0].Over)

	empty, err := f.svc.Budgets(f.ctx, time.May, 2024)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for name, in := range map[string]ledger.BudgetInput{
		"bad month":        {CategoryID: f.category, Month: 13, Year: 2024, Amount: d("1")},
		"zero amount":      {CategoryID: f.category, Month: time.March, Year: 2024, Amount: decimal.Zero},
		"unknown category": {CategoryID: "nope", Month: time.March, Year: 2024, Amount: d("1")},
		"no category":      {Month: time.March, Year: 2024, Amount: d("1")},
	} {
		_, err := f.svc.SetBudget(f.ctx, in)
		assert.ErrorIs(t, err, ledger.ErrValidation, name)
	}
	_, err = f.svc.Budgets(f.ctx, 0, 2024)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
