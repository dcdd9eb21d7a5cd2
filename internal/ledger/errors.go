package ledger

import "errors"

// Error kinds returned by the ledger. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	// ErrValidation rejects malformed input before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an unknown account, card, invoice, transaction,
	// template or category id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStateTransition rejects a transition the row's current
	// status does not allow, such as confirming a confirmed row.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrConsistency reports stored data that breaks a ledger invariant.
	ErrConsistency = errors.New("ledger inconsistency")
)
