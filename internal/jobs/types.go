// Package jobs runs ledger side effects that may be retried outside the
// request that caused them. Today that is removing the attachments of deleted
// transactions.
package jobs

import (
	"context"
	"fmt"
	"time"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// RemoveAttachmentsJob deletes every stored attachment of one transaction.
type RemoveAttachmentsJob struct {
	JobID         string    `json:"job_id"`
	TransactionID string    `json:"transaction_id"`
	Status        JobStatus `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	Error         string    `json:"error,omitempty"`
	RetryCount    int       `json:"retry_count"`
	MaxRetries    int       `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *RemoveAttachmentsJob) error
}

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *RemoveAttachmentsJob) error

// Remover satisfies the ledger's attachment hook by queueing the removal
// instead of doing it inline.
type Remover struct {
	pub Publisher
}

// NewRemover returns a Remover publishing to pub.
func NewRemover(pub Publisher) *Remover {
	return &Remover{pub: pub}
}

// RemoveAttachments enqueues a RemoveAttachmentsJob for transactionID.
func (r *Remover) RemoveAttachments(ctx context.Context, transactionID string) error {
	if err := r.pub.Publish(ctx, &RemoveAttachmentsJob{TransactionID: transactionID}); err != nil {
		return fmt.Errorf("RemoveAttachments: %w", err)
	}
	return nil
}
