package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriharshan/incident-commander/internal/model"
)

func newTestPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func pgReportColumns() []string {
	return []string{"incident_id", "service", "outcome", "report", "markdown", "created_at"}
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newTestPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveReport(t *testing.T) {
	st, mock := newTestPostgres(t)
	result := testResult("INC-1", "checkout")

	mock.ExpectExec("INSERT INTO reports").
		WithArgs(
			"INC-1",
			"checkout",
			string(model.OutcomeSuccess),
			pgxmock.AnyArg(),
			result.Report.Markdown(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	loc, err := st.SaveReport(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "postgres://reports/INC-1", loc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveNilReport(t *testing.T) {
	st, _ := newTestPostgres(t)
	_, err := st.SaveReport(context.Background(), &model.InvestigationResult{IncidentID: "INC-1"})
	assert.Error(t, err)
}

func TestPostgresGetReport(t *testing.T) {
	st, mock := newTestPostgres(t)
	result := testResult("INC-1", "checkout")
	raw, err := json.Marshal(result.Report)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE incident_id").
		WithArgs("INC-1").
		WillReturnRows(pgxmock.NewRows(pgReportColumns()).AddRow(
			"INC-1", "checkout", string(model.OutcomeSuccess), raw,
			result.Report.Markdown(), time.Date(2026, 3, 14, 12, 2, 0, 0, time.UTC),
		))

	rec, err := st.GetReport(context.Background(), "INC-1")
	require.NoError(t, err)
	assert.Equal(t, "checkout", rec.Service)
	assert.Equal(t, model.OutcomeSuccess, rec.Outcome)
	require.NotNil(t, rec.Report)
	assert.Equal(t, "connection pool exhausted", rec.Report.Hypothesis.PrimaryCause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetReportNotFound(t *testing.T) {
	st, mock := newTestPostgres(t)
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE incident_id").
		WithArgs("INC-MISSING").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetReport(context.Background(), "INC-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReports(t *testing.T) {
	st, mock := newTestPostgres(t)
	result := testResult("INC-1", "checkout")
	raw, err := json.Marshal(result.Report)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE service = ").
		WithArgs("checkout", 2).
		WillReturnRows(pgxmock.NewRows(pgReportColumns()).
			AddRow("INC-2", "checkout", string(model.OutcomeDegraded), raw,
				"md", time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)).
			AddRow("INC-1", "checkout", string(model.OutcomeSuccess), raw,
				"md", time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)))

	recs, err := st.ListReports(context.Background(), ReportFilter{Service: "checkout", Limit: 2})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "INC-2", recs[0].IncidentID)
	assert.Equal(t, model.OutcomeDegraded, recs[0].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReportsDefaultLimit(t *testing.T) {
	st, mock := newTestPostgres(t)
	mock.ExpectQuery("SELECT (.+) FROM reports ORDER BY created_at DESC LIMIT ").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(pgReportColumns()))

	recs, err := st.ListReports(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
