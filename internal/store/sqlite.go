package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shriharshan/incident-commander/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	incident_id TEXT PRIMARY KEY,
	service     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	report      TEXT NOT NULL,
	markdown    TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_service ON reports(service);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// SaveReport inserts or replaces the report for the result's incident.
func (s *SQLiteStore) SaveReport(ctx context.Context, result *model.InvestigationResult) (string, error) {
	if result == nil || result.Report == nil {
		return "", eris.New("sqlite: nil report")
	}
	raw, err := json.Marshal(result.Report)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (incident_id, service, outcome, report, markdown, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.IncidentID,
		result.Report.Alert.Service,
		string(result.Outcome),
		string(raw),
		result.Report.Markdown(),
		time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert report")
	}
	return fmt.Sprintf("sqlite://reports/%s", result.IncidentID), nil
}

// GetReport fetches one report by incident ID.
func (s *SQLiteStore) GetReport(ctx context.Context, incidentID string) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT incident_id, service, outcome, report, markdown, created_at FROM reports WHERE incident_id = ?`,
		incidentID,
	)
	rec, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get report")
	}
	return rec, nil
}

// ListReports returns reports newest first, optionally filtered by service.
func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error) {
	query := `SELECT incident_id, service, outcome, report, markdown, created_at FROM reports`
	var args []any
	if filter.Service != "" {
		query += ` WHERE service = ?`
		args = append(args, filter.Service)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate reports")
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanReport decodes one row regardless of whether it came from QueryRow or
// Rows.
func scanReport(scan func(dest ...any) error) (*ReportRecord, error) {
	var rec ReportRecord
	var outcome, raw string
	if err := scan(&rec.IncidentID, &rec.Service, &outcome, &raw, &rec.Markdown, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Outcome = model.Outcome(outcome)
	var report model.RCAReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, err
	}
	rec.Report = &report
	return &rec, nil
}
