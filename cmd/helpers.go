package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/investigation"
	"github.com/shriharshan/incident-commander/internal/metrics"
	"github.com/shriharshan/incident-commander/internal/store"
	"github.com/shriharshan/incident-commander/pkg/anthropic"
	"github.com/shriharshan/incident-commander/pkg/deployfeed"
	"github.com/shriharshan/incident-commander/pkg/logsearch"
	"github.com/shriharshan/incident-commander/pkg/metricfeed"
)

// commanderEnv bundles the wired pipeline and its closable dependencies.
type commanderEnv struct {
	Store    store.Store
	Pipeline *investigation.Pipeline
}

func (e *commanderEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func sourceOptions[T any](src config.SourceConfig, withBase func(string) T, withHTTP func(*http.Client) T, withRate func(float64) T) []T {
	var opts []T
	if src.BaseURL != "" {
		opts = append(opts, withBase(src.BaseURL))
	}
	if src.TimeoutSecs > 0 {
		opts = append(opts, withHTTP(&http.Client{Timeout: time.Duration(src.TimeoutSecs) * time.Second}))
	}
	if src.RatePerSec > 0 {
		opts = append(opts, withRate(src.RatePerSec))
	}
	return opts
}

func initPipeline(ctx context.Context) (*commanderEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "register metrics")
	}

	aiClient := anthropic.NewClient(cfg.Anthropic.Key)
	logsClient := logsearch.NewClient(cfg.LogSearch.Key,
		sourceOptions(cfg.LogSearch, logsearch.WithBaseURL, logsearch.WithHTTPClient, logsearch.WithRateLimit)...)
	metricsClient := metricfeed.NewClient(cfg.MetricFeed.Key,
		sourceOptions(cfg.MetricFeed, metricfeed.WithBaseURL, metricfeed.WithHTTPClient, metricfeed.WithRateLimit)...)
	deploysClient := deployfeed.NewClient(cfg.DeployFeed.Key,
		sourceOptions(cfg.DeployFeed, deployfeed.WithBaseURL, deployfeed.WithHTTPClient, deployfeed.WithRateLimit)...)

	actionPlanner, err := investigation.NewActionPlanner(cfg.Actions.RulesPath)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "load action rules")
	}

	return &commanderEnv{
		Store:    st,
		Pipeline: investigation.New(cfg, st, aiClient, logsClient, metricsClient, deploysClient, actionPlanner),
	}, nil
}
