// Package deployfeed provides a client for the deployment history backend
// used by the deploy investigator.
package deployfeed

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

// Client defines the deployment history operations.
type Client interface {
	// Recent returns deployment and config-change events for a service
	// inside a window, most recent first.
	Recent(ctx context.Context, q Query) ([]Deployment, error)
}

// Query bounds one deployment lookup.
type Query struct {
	Service string    `json:"service"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// ConfigChange is one configuration difference shipped by a deployment.
type ConfigChange struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	NewValue    string `json:"new_value"`
	Criticality string `json:"criticality"`
}

// Deployment is a single deployment or configuration-update event.
type Deployment struct {
	ID         string         `json:"id"`
	Service    string         `json:"service"`
	Timestamp  time.Time      `json:"timestamp"`
	DeployedBy string         `json:"deployed_by,omitempty"`
	Changes    []ConfigChange `json:"changes,omitempty"`
}

// MinutesBefore returns how many minutes before t the deployment landed,
// or a negative value if it landed after t.
func (d Deployment) MinutesBefore(t time.Time) float64 {
	return t.Sub(d.Timestamp).Minutes()
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

// NewClient creates a new deployment history client.
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

func (c *httpClient) Recent(ctx context.Context, q Query) ([]Deployment, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "deployfeed: rate limit wait")
		}
	}

	params := url.Values{}
	params.Set("service", q.Service)
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/api/v1/deployments?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "deployfeed: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "deployfeed: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "deployfeed: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("deployfeed: status %d: %s", resp.StatusCode, string(body))
	}

	var wire struct {
		Deployments []Deployment `json:"deployments"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, eris.Wrap(err, "deployfeed: parse response")
	}
	return wire.Deployments, nil
}
