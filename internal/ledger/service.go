// Package ledger keeps account balances, credit card invoices, recurring
// forecasts and transfers consistent with the transaction rows that back them.
// Every exported operation runs as a single unit of work on a Store.
package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/lock"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// RemainderPolicy decides what happens to the cents left over when an
// installment purchase does not split evenly.
type RemainderPolicy string

const (
	// RemainderDrop books total/n on every installment and loses the rest.
	RemainderDrop RemainderPolicy = "drop"
	// RemainderLast adds the leftover cents to the final installment.
	RemainderLast RemainderPolicy = "last"
)

// ParseRemainderPolicy maps a configuration value to a policy.
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch RemainderPolicy(s) {
	case "", RemainderDrop:
		return RemainderDrop, nil
	case RemainderLast:
		return RemainderLast, nil
	}
	return "", fmt.Errorf("ParseRemainderPolicy: unknown policy %q", s)
}

// System category names the ledger creates on demand.
const (
	CategoryInvoicePayment    = "Invoice payment"
	CategoryTransfer          = "Transfer"
	CategoryBalanceAdjustment = "Balance adjustment"
)

// Service is the ledger engine.
type Service struct {
	store       Store
	locker      lock.Locker
	attachments AttachmentRemover
	now         func() time.Time
	remainder   RemainderPolicy
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serialises reconciliation of the same planned row through l.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithAttachments sets the collaborator that drops blobs of deleted rows.
func WithAttachments(a AttachmentRemover) Option {
	return func(s *Service) { s.attachments = a }
}

// WithClock overrides the clock used to date invoice payments.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRemainderPolicy sets how installment remainders are booked.
func WithRemainderPolicy(p RemainderPolicy) Option {
	return func(s *Service) { s.remainder = p }
}

// New creates a ledger service on top of store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		locker:    lock.NewLocal(),
		now:       time.Now,
		remainder: RemainderDrop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now())
}

// dropAttachments asks the attachment collaborator to forget every removed
// row. Failures are logged; the ledger change has already committed.
func (s *Service) dropAttachments(ctx context.Context, ids []string) {
	if s.attachments == nil {
		return
	}
	log := logger.FromContext(ctx)
	for _, id := range ids {
		if err := s.attachments.RemoveAttachments(ctx, id); err != nil {
			log.Warn().Err(err).Str("transaction_id", id).Msg("Failed to remove attachments")
		}
	}
}
