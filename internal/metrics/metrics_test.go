package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriharshan/incident-commander/internal/model"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	// Registering twice must tolerate duplicates.
	require.NoError(t, Register(reg))
}

func TestObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	before := testutil.ToFloat64(investigationsTotal.WithLabelValues(string(model.OutcomeSuccess)))
	ObserveInvestigation(3*time.Second, model.OutcomeSuccess)
	after := testutil.ToFloat64(investigationsTotal.WithLabelValues(string(model.OutcomeSuccess)))
	assert.Equal(t, before+1, after)

	findingsBefore := testutil.ToFloat64(agentFindingsTotal.WithLabelValues("logs", "completed"))
	ObserveFinding(model.RoleLogs, model.FindingCompleted)
	findingsAfter := testutil.ToFloat64(agentFindingsTotal.WithLabelValues("logs", "completed"))
	assert.Equal(t, findingsBefore+1, findingsAfter)
}

func TestNegativeDurationsClampToZero(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveInvestigation(-time.Second, model.OutcomeFailure)
		ObserveStage("plan", -time.Second)
	})
}
