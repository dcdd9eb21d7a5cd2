// Package bigquery stores the ledger in BigQuery. Every unit of work is a
// multi-statement transaction inside a BigQuery session, so the DML issued by
// one ledger operation commits or rolls back as a whole.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"google.golang.org/api/iterator"
)

// Store is the BigQuery implementation of ledger.Store. It holds a shared
// client to avoid creating a connection for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with its own BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, projectID, datasetID), nil
}

// NewStoreWithClient creates a Store on top of an existing client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// RunInTx implements ledger.Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	t, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("RunInTx: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.finish(context.WithoutCancel(ctx), "ROLLBACK TRANSACTION")
			panic(r)
		}
	}()

	if err := fn(ctx, t); err != nil {
		t.finish(context.WithoutCancel(ctx), "ROLLBACK TRANSACTION")
		return err
	}
	if _, err := t.exec(ctx, "COMMIT TRANSACTION"); err != nil {
		t.finish(context.WithoutCancel(ctx), "ROLLBACK TRANSACTION")
		return fmt.Errorf("RunInTx: commit: %w", err)
	}
	t.finish(ctx, "")
	return nil
}

// View implements ledger.Store. Reads run outside any session; mutations are
// rejected.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return fn(ctx, &tx{store: s, readOnly: true})
}

// begin opens a session and starts a transaction in it.
func (s *Store) begin(ctx context.Context) (*tx, error) {
	q := s.client.Query("BEGIN TRANSACTION")
	q.CreateSession = true

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("begin: job failed: %w", err)
	}
	if status.Statistics == nil || status.Statistics.SessionInfo == nil || status.Statistics.SessionInfo.SessionID == "" {
		return nil, fmt.Errorf("begin: no session id returned")
	}
	return &tx{store: s, sessionID: status.Statistics.SessionInfo.SessionID}, nil
}

// tx issues statements inside one session. A read-only tx has no session.
type tx struct {
	store     *Store
	sessionID string
	readOnly  bool
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*tx)(nil)
)

// table returns the fully qualified, quoted name of a ledger table.
func (t *tx) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.store.projectID, t.store.datasetID, name)
}

func (t *tx) query(sql string, params ...bigquery.QueryParameter) *bigquery.Query {
	q := t.store.client.Query(sql)
	q.Parameters = params
	if t.sessionID != "" {
		q.ConnectionProperties = []*bigquery.ConnectionProperty{
			{Key: "session_id", Value: t.sessionID},
		}
	}
	return q
}

// exec runs a statement and returns the number of rows DML touched.
func (t *tx) exec(ctx context.Context, sql string, params ...bigquery.QueryParameter) (int64, error) {
	if t.readOnly {
		return 0, fmt.Errorf("exec: read-only unit of work")
	}
	job, err := t.query(sql, params...).Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job failed: %w", err)
	}
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// finish ends the transaction with stmt (when set) and closes the session.
// Failures are logged: the outcome of the unit of work is already decided.
func (t *tx) finish(ctx context.Context, stmt string) {
	log := logger.FromContext(ctx)
	if stmt != "" {
		if _, err := t.exec(ctx, stmt); err != nil {
			log.Warn().Err(err).Str("session_id", t.sessionID).Msg("Failed to end BigQuery transaction")
		}
	}
	if _, err := t.exec(ctx, "CALL BQ.ABORT_SESSION()"); err != nil {
		log.Debug().Err(err).Str("session_id", t.sessionID).Msg("Failed to close BigQuery session")
	}
}

// readRows runs a query and decodes every row into a T.
func readRows[T any](ctx context.Context, t *tx, sql string, params ...bigquery.QueryParameter) ([]T, error) {
	job, err := t.query(sql, params...).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []T
	for {
		var r T
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// readOne returns the single row of a query or an error wrapping
// ledger.ErrNotFound.
func readOne[T any](ctx context.Context, t *tx, what string, sql string, params ...bigquery.QueryParameter) (*T, error) {
	rows, err := readRows[T](ctx, t, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return &rows[0], nil
}

// mustAffect turns a DML that touched nothing into ledger.ErrNotFound.
func mustAffect(n int64, err error, what string) error {
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return nil
}
