// Package store persists finished RCA reports. Persistence is advisory: a
// store failure is logged and surfaced as a missing stored location, never as
// a failed investigation.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
)

// ErrNotFound is returned when no report exists for an incident ID.
var ErrNotFound = eris.New("store: report not found")

// ReportRecord is one persisted report row.
type ReportRecord struct {
	IncidentID string           `json:"incident_id"`
	Service    string           `json:"service"`
	Outcome    model.Outcome    `json:"outcome"`
	Report     *model.RCAReport `json:"report"`
	Markdown   string           `json:"markdown"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Service string `json:"service,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for RCA reports.
type Store interface {
	// SaveReport persists the result's report and returns a location
	// reference suitable for the investigation result.
	SaveReport(ctx context.Context, result *model.InvestigationResult) (string, error)
	GetReport(ctx context.Context, incidentID string) (*ReportRecord, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New builds the store selected by configuration.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
