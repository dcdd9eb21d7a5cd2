// Package app assembles the ledger service from configuration. Both the API
// server and the CLI start through Open.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/attachments"
	"github.com/dvloznov/finance-ledger/internal/config"
	bqstore "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/memory"
	"github.com/dvloznov/finance-ledger/internal/infra/sqlstore"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/lock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the wired service and the resources behind it.
type App struct {
	Ledger      *ledger.Service
	Attachments attachments.Store

	closers []func() error
}

type options struct {
	asyncCleanup bool
	queue        inmemory.Config
}

// Option tunes Open.
type Option func(*options)

// WithAsyncCleanup removes attachments of deleted transactions on a
// background worker pool with retries instead of inline. Only long-running
// processes should use it; pending jobs are dropped on Close.
func WithAsyncCleanup(cfg inmemory.Config) Option {
	return func(o *options) {
		o.asyncCleanup = true
		o.queue = cfg
	}
}

// Open connects the configured store, locker and attachment bucket and
// builds the ledger service on top of them. On error, anything already
// opened is closed again.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Attachments: attachments.Nop{}}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	policy, err := ledger.ParseRemainderPolicy(cfg.Ledger.InstallmentRemainder)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	store, err := a.openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("Open: ping redis %s: %w", cfg.Redis.Addr, err)
		}
		locker = lock.NewRedis(client, lock.DefaultRedisOptions(), log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis locks")
	}

	if cfg.Attachments.Bucket != "" {
		gcs, err := attachments.NewGCS(ctx, cfg.Attachments.Bucket)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		a.Attachments = gcs
		log.Info().Str("bucket", cfg.Attachments.Bucket).Msg("Attachments enabled")
	}

	var remover ledger.AttachmentRemover = a.Attachments
	if o.asyncCleanup && cfg.Attachments.Bucket != "" {
		queue := inmemory.NewQueue(o.queue, log)
		workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		err := queue.Start(workerCtx, func(ctx context.Context, job *jobs.RemoveAttachmentsJob) error {
			return a.Attachments.RemoveAttachments(ctx, job.TransactionID)
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("Open: start cleanup workers: %w", err)
		}
		a.closers = append(a.closers, func() error {
			defer cancel()
			stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return queue.Stop(stopCtx)
		})
		remover = jobs.NewRemover(queue)
	}

	a.Ledger = ledger.New(store,
		ledger.WithLocker(locker),
		ledger.WithAttachments(remover),
		ledger.WithRemainderPolicy(policy),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (ledger.Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		return memory.NewStore(), nil

	case "sqlite":
		db, err := sqlstore.Open(sqlstore.Config{Path: cfg.SQLitePath, LogMode: cfg.LogMode})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		if err := sqlstore.Migrate(db); err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite store")
		return sqlstore.New(db), nil

	case "bigquery":
		s, err := bqstore.NewStore(ctx, cfg.ProjectID, cfg.Dataset)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		log.Info().Str("project", cfg.ProjectID).Str("dataset", cfg.Dataset).Msg("Using BigQuery store")
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Close releases everything Open acquired, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
