package investigation

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/store"
	"github.com/shriharshan/incident-commander/pkg/anthropic"
	"github.com/shriharshan/incident-commander/pkg/deployfeed"
	"github.com/shriharshan/incident-commander/pkg/logsearch"
	"github.com/shriharshan/incident-commander/pkg/metricfeed"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse builds a single-block response carrying the given text.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// --- Log Search Mock ---

type mockLogSearchClient struct {
	mock.Mock
}

func (m *mockLogSearchClient) Search(ctx context.Context, q logsearch.Query) (*logsearch.Result, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logsearch.Result), args.Error(1)
}

// --- Metric Feed Mock ---

type mockMetricFeedClient struct {
	mock.Mock
}

func (m *mockMetricFeedClient) QuerySeries(ctx context.Context, q metricfeed.Query) (*metricfeed.Series, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metricfeed.Series), args.Error(1)
}

// --- Deploy Feed Mock ---

type mockDeployFeedClient struct {
	mock.Mock
}

func (m *mockDeployFeedClient) Recent(ctx context.Context, q deployfeed.Query) ([]deployfeed.Deployment, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]deployfeed.Deployment), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveReport(ctx context.Context, result *model.InvestigationResult) (string, error) {
	args := m.Called(ctx, result)
	return args.String(0), args.Error(1)
}

func (m *mockStore) GetReport(ctx context.Context, incidentID string) (*store.ReportRecord, error) {
	args := m.Called(ctx, incidentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ReportRecord), args.Error(1)
}

func (m *mockStore) ListReports(ctx context.Context, filter store.ReportFilter) ([]store.ReportRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.ReportRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Investigator Mock ---

type mockInvestigator struct {
	mock.Mock
	role model.AgentRole
}

func (m *mockInvestigator) Role() model.AgentRole { return m.role }

func (m *mockInvestigator) Investigate(ctx context.Context, as model.Assignment) model.Finding {
	args := m.Called(ctx, as)
	return args.Get(0).(model.Finding)
}
