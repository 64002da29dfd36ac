package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shriharshan/incident-commander/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses, so tests can
// substitute a mock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	incident_id TEXT PRIMARY KEY,
	service     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	report      JSONB NOT NULL,
	markdown    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_service ON reports(service);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// SaveReport upserts the report for the result's incident.
func (s *PostgresStore) SaveReport(ctx context.Context, result *model.InvestigationResult) (string, error) {
	if result == nil || result.Report == nil {
		return "", eris.New("postgres: nil report")
	}
	raw, err := json.Marshal(result.Report)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (incident_id, service, outcome, report, markdown, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (incident_id) DO UPDATE SET
		   service = EXCLUDED.service,
		   outcome = EXCLUDED.outcome,
		   report = EXCLUDED.report,
		   markdown = EXCLUDED.markdown`,
		result.IncidentID,
		result.Report.Alert.Service,
		string(result.Outcome),
		raw,
		result.Report.Markdown(),
		time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: upsert report")
	}
	return fmt.Sprintf("postgres://reports/%s", result.IncidentID), nil
}

// GetReport fetches one report by incident ID.
func (s *PostgresStore) GetReport(ctx context.Context, incidentID string) (*ReportRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT incident_id, service, outcome, report, markdown, created_at FROM reports WHERE incident_id = $1`,
		incidentID,
	)
	rec, err := scanPostgresReport(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get report")
	}
	return rec, nil
}

// ListReports returns reports newest first, optionally filtered by service.
func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error) {
	query := `SELECT incident_id, service, outcome, report, markdown, created_at FROM reports`
	var args []any
	if filter.Service != "" {
		args = append(args, filter.Service)
		query += fmt.Sprintf(` WHERE service = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		rec, err := scanPostgresReport(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate reports")
	}
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresReport(scan func(dest ...any) error) (*ReportRecord, error) {
	var rec ReportRecord
	var outcome string
	var raw []byte
	if err := scan(&rec.IncidentID, &rec.Service, &outcome, &raw, &rec.Markdown, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Outcome = model.Outcome(outcome)
	var report model.RCAReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	rec.Report = &report
	return &rec, nil
}
