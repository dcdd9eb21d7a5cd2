// Package memory is a process-local ledger store. It keeps every table in
// maps guarded by one lock and undoes a failed unit of work from a journal.
// Data is lost on restart; use sqlstore or bigquery for persistence.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// errReadOnly is returned by mutations attempted inside View.
var errReadOnly = errors.New("memory: read-only unit of work")

// Store is an in-memory implementation of ledger.Store.
// Units of work run one at a time; reads may run concurrently.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	cards        map[string]*domain.CreditCard
	invoices     map[string]*domain.Invoice
	transactions map[string]*domain.Transaction
	templates    map[string]*domain.RecurringTemplate
	categories   map[string]*domain.Category
	budgets      map[string]*domain.Budget
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		cards:        make(map[string]*domain.CreditCard),
		invoices:     make(map[string]*domain.Invoice),
		transactions: make(map[string]*domain.Transaction),
		templates:    make(map[string]*domain.RecurringTemplate),
		categories:   make(map[string]*domain.Category),
		budgets:      make(map[string]*domain.Budget),
	}
}

// RunInTx implements ledger.Store. If fn fails or panics, every change it made
// is rolled back before returning (or re-panicking).
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// View implements ledger.Store.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &tx{s: s, readOnly: true})
}

// tx is a unit of work over the store maps. Stored values are never mutated
// in place: every write swaps in a fresh copy so the journal can restore the
// previous pointer.
type tx struct {
	s        *Store
	readOnly bool
	undo     []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// remember journals the current value of m[id] so rollback can restore it.
func remember[V any](t *tx, m map[string]*V, id string) {
	prev, existed := m[id]
	t.undo = append(t.undo, func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*tx)(nil)
)
