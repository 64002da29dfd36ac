// Package metricfeed provides a client for the metric query backend used by
// the metrics investigator, plus spike detection over returned series.
package metricfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the metric feed operations.
type Client interface {
	// QuerySeries fetches a metric series for a service inside a window.
	QuerySeries(ctx context.Context, q Query) (*Series, error)
}

// Query bounds one metric fetch.
type Query struct {
	Service string    `json:"service"`
	Metric  string    `json:"metric"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Point is one datapoint of a series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is the fetched metric data.
type Series struct {
	Metric string  `json:"metric"`
	Points []Point `json:"points"`
}

// Stats summarizes a series for anomaly reasoning.
type Stats struct {
	Current       float64
	Baseline      float64
	Peak          float64
	SpikeDetected bool
	SpikeStart    *time.Time
}

// Summarize computes baseline and spike statistics for a series. The
// baseline is the mean of all points except the trailing ten; a spike is any
// point above twice the baseline.
func Summarize(points []Point) Stats {
	var s Stats
	if len(points) == 0 {
		return s
	}

	s.Current = points[len(points)-1].Value

	baselinePoints := points
	if len(points) > 10 {
		baselinePoints = points[:len(points)-10]
	}
	var sum float64
	for _, p := range baselinePoints {
		sum += p.Value
		if p.Value > s.Peak {
			s.Peak = p.Value
		}
	}
	for _, p := range points[len(baselinePoints):] {
		if p.Value > s.Peak {
			s.Peak = p.Value
		}
	}
	s.Baseline = sum / float64(len(baselinePoints))

	if s.Baseline > 0 {
		for _, p := range points {
			if p.Value > s.Baseline*2 {
				t := p.Timestamp
				s.SpikeDetected = true
				s.SpikeStart = &t
				break
			}
		}
	}
	return s
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(perSec), 1) }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new metric feed client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey: apiKey,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) QuerySeries(ctx context.Context, q Query) (*Series, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "metricfeed: rate limit wait")
		}
	}

	params := url.Values{}
	params.Set("service", q.Service)
	params.Set("metric", q.Metric)
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/api/v1/metrics/query?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "metricfeed: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "metricfeed: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "metricfeed: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("metricfeed: status %d: %s", resp.StatusCode, string(body))
	}

	var series Series
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, eris.Wrap(err, "metricfeed: parse response")
	}
	if series.Metric == "" {
		series.Metric = q.Metric
	}
	return &series, nil
}
