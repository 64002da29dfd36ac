package metricfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(min int, value float64) Point {
	return Point{Timestamp: time.Date(2026, 3, 14, 11, min, 0, 0, time.UTC), Value: value}
}

func TestQuerySeries(t *testing.T) {
	var gotParams map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/metrics/query", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		gotParams = map[string]string{
			"service": r.URL.Query().Get("service"),
			"metric":  r.URL.Query().Get("metric"),
			"start":   r.URL.Query().Get("start"),
		}

		json.NewEncoder(w).Encode(Series{
			Metric: "error_rate",
			Points: []Point{pt(50, 0.02), pt(55, 0.35)},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	series, err := client.QuerySeries(context.Background(), Query{
		Service: "checkout",
		Metric:  "error_rate",
		Start:   time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "checkout", gotParams["service"])
	assert.Equal(t, "error_rate", gotParams["metric"])
	assert.Equal(t, "2026-03-14T11:30:00Z", gotParams["start"])
	assert.Equal(t, "error_rate", series.Metric)
	assert.Len(t, series.Points, 2)
}

func TestQuerySeriesFillsMetricName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"points": []}`))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	series, err := client.QuerySeries(context.Background(), Query{Service: "checkout", Metric: "latency_p99"})
	require.NoError(t, err)
	assert.Equal(t, "latency_p99", series.Metric)
}

func TestQuerySeriesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.QuerySeries(context.Background(), Query{Service: "checkout", Metric: "error_rate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestSummarizeDetectsSpike(t *testing.T) {
	// Flat baseline of 0.02 followed by a trailing surge. The trailing ten
	// points are excluded from the baseline so the surge cannot mask itself.
	var points []Point
	for i := 0; i < 20; i++ {
		points = append(points, pt(i, 0.02))
	}
	for i := 20; i < 30; i++ {
		points = append(points, pt(i, 0.35))
	}

	s := Summarize(points)
	assert.InDelta(t, 0.02, s.Baseline, 0.001)
	assert.InDelta(t, 0.35, s.Current, 0.001)
	assert.InDelta(t, 0.35, s.Peak, 0.001)
	assert.True(t, s.SpikeDetected)
	require.NotNil(t, s.SpikeStart)
	assert.Equal(t, points[20].Timestamp, *s.SpikeStart)
}

func TestSummarizeNoSpike(t *testing.T) {
	var points []Point
	for i := 0; i < 30; i++ {
		points = append(points, pt(i, 0.02))
	}

	s := Summarize(points)
	assert.False(t, s.SpikeDetected)
	assert.Nil(t, s.SpikeStart)
	assert.InDelta(t, 0.02, s.Baseline, 0.001)
}

func TestSummarizeShortSeries(t *testing.T) {
	s := Summarize([]Point{pt(0, 0.1), pt(1, 0.3)})
	// Too few points to exclude a trailing window; baseline covers everything.
	assert.InDelta(t, 0.2, s.Baseline, 0.001)
	assert.InDelta(t, 0.3, s.Current, 0.001)
	assert.False(t, s.SpikeDetected)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Baseline)
	assert.False(t, s.SpikeDetected)
}
