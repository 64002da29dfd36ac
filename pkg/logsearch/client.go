// Package logsearch provides a client for the log search backend used by the
// logs investigator.
package logsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the log search operations.
type Client interface {
	// Search returns error-level log entries for a service inside a window.
	Search(ctx context.Context, q Query) (*Result, error)
}

// Query bounds one log search.
type Query struct {
	Service  string    `json:"service"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Keywords []string  `json:"keywords,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// Entry is a single matched log record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	ErrorType string    `json:"error_type,omitempty"`
	SourceID  string    `json:"source_id,omitempty"`
}

// Result is the parsed search response plus derived error statistics.
type Result struct {
	Entries     []Entry        `json:"entries"`
	TotalErrors int            `json:"total_errors"`
	Breakdown   map[string]int `json:"breakdown"`
	TopError    string         `json:"top_error,omitempty"`
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

// NewClient creates a new log search client.
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

func (c *httpClient) Search(ctx context.Context, q Query) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "logsearch: rate limit wait")
		}
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "logsearch: marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/logs/search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "logsearch: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "logsearch: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "logsearch: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("logsearch: status %d: %s", resp.StatusCode, string(body))
	}

	var wire struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, eris.Wrap(err, "logsearch: parse response")
	}

	return summarize(wire.Entries), nil
}

// summarize derives per-error-type counts from raw entries.
func summarize(entries []Entry) *Result {
	res := &Result{
		Entries:   entries,
		Breakdown: make(map[string]int),
	}
	topCount := 0
	for _, e := range entries {
		errType := e.ErrorType
		if errType == "" {
			errType = "Unknown"
		}
		res.Breakdown[errType]++
		res.TotalErrors++
		if res.Breakdown[errType] > topCount {
			topCount = res.Breakdown[errType]
			res.TopError = errType
		}
	}
	return res
}
