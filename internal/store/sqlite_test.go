package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
)

func testResult(incidentID string, service string) *model.InvestigationResult {
	return &model.InvestigationResult{
		IncidentID: incidentID,
		Outcome:    model.OutcomeSuccess,
		Report: &model.RCAReport{
			IncidentID: incidentID,
			Alert: model.Alert{
				Service:      service,
				Metric:       "error_rate",
				CurrentValue: 0.35,
				Threshold:    0.05,
				Severity:     "critical",
				Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
			},
			Evidence: model.Evidence{
				Items: []model.MergedItem{{
					Signature:   "db_pool_exhausted",
					Description: "connection pool exhausted",
					SourceRefs:  []string{"checkout-logs"},
					Weight:      0.9,
					Timestamp:   time.Date(2026, 3, 14, 11, 50, 0, 0, time.UTC),
					Roles:       []model.AgentRole{model.RoleLogs},
				}},
				Coverage: 1,
			},
			Hypothesis: model.RootCauseHypothesis{
				PrimaryCause: "connection pool exhausted",
				Confidence:   0.8,
				Verdict:      model.VerdictConclusive,
			},
			GeneratedAt: time.Date(2026, 3, 14, 12, 2, 0, 0, time.UTC),
		},
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteSaveAndGetReport(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	result := testResult("INC-1", "checkout")

	loc, err := st.SaveReport(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://reports/INC-1", loc)

	rec, err := st.GetReport(ctx, "INC-1")
	require.NoError(t, err)
	assert.Equal(t, "INC-1", rec.IncidentID)
	assert.Equal(t, "checkout", rec.Service)
	assert.Equal(t, model.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, result.Report.Markdown(), rec.Markdown)
	require.NotNil(t, rec.Report)
	assert.Equal(t, "connection pool exhausted", rec.Report.Hypothesis.PrimaryCause)
	require.Len(t, rec.Report.Evidence.Items, 1)
	assert.Equal(t, "db_pool_exhausted", rec.Report.Evidence.Items[0].Signature)
}

func TestSQLiteSaveReplacesExisting(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	_, err := st.SaveReport(ctx, testResult("INC-1", "checkout"))
	require.NoError(t, err)

	updated := testResult("INC-1", "checkout")
	updated.Outcome = model.OutcomeDegraded
	_, err = st.SaveReport(ctx, updated)
	require.NoError(t, err)

	rec, err := st.GetReport(ctx, "INC-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDegraded, rec.Outcome)

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteGetReportNotFound(t *testing.T) {
	st := newTestSQLite(t)
	_, err := st.GetReport(context.Background(), "INC-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSaveNilReport(t *testing.T) {
	st := newTestSQLite(t)
	_, err := st.SaveReport(context.Background(), &model.InvestigationResult{IncidentID: "INC-1"})
	assert.Error(t, err)
}

func TestSQLiteListReportsFiltersByService(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	for i, service := range []string{"checkout", "inventory", "checkout"} {
		_, err := st.SaveReport(ctx, testResult(fmt.Sprintf("INC-%d", i), service))
		require.NoError(t, err)
	}

	checkout, err := st.ListReports(ctx, ReportFilter{Service: "checkout"})
	require.NoError(t, err)
	require.Len(t, checkout, 2)
	for _, rec := range checkout {
		assert.Equal(t, "checkout", rec.Service)
	}

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteListReportsLimitAndOffset(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.SaveReport(ctx, testResult(fmt.Sprintf("INC-%d", i), "checkout"))
		require.NoError(t, err)
	}

	page, err := st.ListReports(ctx, ReportFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.ListReports(ctx, ReportFilter{Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestNewStoreDriverSelection(t *testing.T) {
	st, err := New(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer st.Close()
	_, ok := st.(*SQLiteStore)
	assert.True(t, ok)

	_, err = New(context.Background(), config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}
