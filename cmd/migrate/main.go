// Command migrate applies migrations/bigquery/NNNN_name.sql to the ledger
// dataset and records each one in schema_migrations.
package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to config file; supplies store.project_id and store.dataset")
		projectID     = flag.String("project", "", "GCP project ID (overrides store.project_id)")
		datasetID     = flag.String("dataset", "", "BigQuery dataset ID (overrides store.dataset)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *projectID == "" {
		*projectID = cfg.Store.ProjectID
	}
	if *datasetID == "" {
		*datasetID = cfg.Store.Dataset
	}
	if *projectID == "" {
		log.Fatal().Msg("-project or store.project_id is required")
	}

	ctx := context.Background()

	dir, err := findDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}
	migrations, err := readMigrations(dir, *projectID, *datasetID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Str("dir", dir).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	r := &runner{client: client, projectID: *projectID, datasetID: *datasetID, appliedBy: *appliedBy}
	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := r.ensureSchemaMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending, drifted := plan(migrations, applied)
	for _, m := range drifted {
		log.Warn().Str("migration", m.Filename).Msg("Applied migration changed on disk since it ran")
	}

	if *dryRun {
		for _, m := range pending {
			log.Info().Str("migration", m.Filename).Msg("Pending")
		}
		return
	}

	for _, m := range pending {
		log.Info().Str("migration", m.Filename).Msg("Applying")
		if err := r.run(ctx, m.SQL); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Failed to execute migration")
		}
		if err := r.record(ctx, m); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Failed to record migration")
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("count", len(pending)).Msg("Migrations applied")
	}
}

// findDir resolves dir relative to the working directory, falling back to the
// repository root when run from cmd/migrate.
func findDir(dir string) (string, error) {
	for _, candidate := range []string{dir, filepath.Join("..", "..", dir)} {
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// parseFilename splits 0001_name.sql into its version and name.
func parseFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// readMigrations loads every migration in dir ordered by version, with the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders substituted.
func readMigrations(dir, projectID, datasetID string, log zerolog.Logger) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		// checksum of the template, so it is the same for every dataset
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// plan returns the migrations not applied yet, and the applied ones whose file
// no longer matches the recorded checksum.
func plan(migrations []Migration, applied []AppliedMigration) (pending, drifted []Migration) {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}
	for _, m := range migrations {
		am, ok := byVersion[m.Version]
		switch {
		case !ok:
			pending = append(pending, m)
		case am.Checksum != "" && am.Checksum != m.Checksum:
			drifted = append(drifted, m)
		}
	}
	return pending, drifted
}

type runner struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func (r *runner) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", r.projectID, r.datasetID)
}

// run executes sql and waits for the job to finish.
func (r *runner) run(ctx context.Context, sql string, params ...bigquery.QueryParameter) error {
	query := r.client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func (r *runner) ensureSchemaMigrationsTable(ctx context.Context) error {
	return r.run(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, r.table()))
}

// appliedMigrations retrieves the list of already applied migrations
func (r *runner) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	it, err := r.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, r.table())).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// record stores a successfully applied migration in schema_migrations
func (r *runner) record(ctx context.Context, m Migration) error {
	return r.run(ctx, fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.table()),
		bigquery.QueryParameter{Name: "version", Value: m.Version},
		bigquery.QueryParameter{Name: "name", Value: m.Name},
		bigquery.QueryParameter{Name: "checksum", Value: m.Checksum},
		bigquery.QueryParameter{Name: "applied_by", Value: r.appliedBy},
	)
}
