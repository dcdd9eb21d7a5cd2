// Package inmemory is a channel-backed job queue for a single process.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when publishing to a stopped queue.
var ErrClosed = errors.New("queue is closed")

// Config sizes the queue.
type Config struct {
	// BufferSize is how many jobs can wait before Publish blocks.
	BufferSize int
	// Workers is the number of concurrent handlers.
	Workers int
	// MaxRetries applies to jobs published without their own limit.
	MaxRetries int
	// Backoff is multiplied by the retry count before a failed job is requeued.
	Backoff time.Duration
}

// DefaultConfig returns the settings used by the API server.
func DefaultConfig() Config {
	return Config{BufferSize: 100, Workers: 5, MaxRetries: 3, Backoff: time.Second}
}

// Queue is an in-memory job publisher and consumer. It is safe for
// concurrent use.
type Queue struct {
	cfg       Config
	log       zerolog.Logger
	jobChan   chan *jobs.RemoveAttachmentsJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewQueue creates a new in-memory job queue.
func NewQueue(cfg Config, log zerolog.Logger) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Queue{
		cfg:       cfg,
		log:       log,
		jobChan:   make(chan *jobs.RemoveAttachmentsJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
	}
}

// Publish enqueues a job for asynchronous processing.
func (q *Queue) Publish(ctx context.Context, job *jobs.RemoveAttachmentsJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}
	job.Status = jobs.JobStatusPending

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrClosed
	}
}

// Start launches the workers. They run until ctx is cancelled or Stop is
// called.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

// process runs one job and requeues it with a linear backoff on failure.
func (q *Queue) process(ctx context.Context, job *jobs.RemoveAttachmentsJob, handler jobs.Handler) {
	job.Status = jobs.JobStatusRunning
	log := q.log.With().Str("job_id", job.JobID).Str("transaction_id", job.TransactionID).Logger()

	err := handler(ctx, job)
	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Debug().Msg("Attachments removed")
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Int("attempts", job.RetryCount+1).Msg("Attachment removal failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Attachment removal failed, retrying")

	time.AfterFunc(time.Duration(job.RetryCount)*q.cfg.Backoff, func() {
		if err := q.Publish(context.WithoutCancel(ctx), job); err != nil {
			log.Error().Err(err).Msg("Failed to requeue job")
		}
	})
}

// Stop closes the queue and waits for in-flight jobs to complete. Jobs still
// buffered are dropped.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if n := len(q.jobChan); n > 0 {
			q.log.Warn().Int("dropped", n).Msg("Queue stopped with pending jobs")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ jobs.Publisher = (*Queue)(nil)
