package logsearch

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

func TestSearch(t *testing.T) {
	var gotAuth string
	var gotQuery Query
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/logs/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))

		json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{
				{"timestamp": "2026-03-14T11:50:00Z", "level": "ERROR", "message": "pool exhausted", "error_type": "ConnectionTimeout"},
				{"timestamp": "2026-03-14T11:51:00Z", "level": "ERROR", "message": "pool exhausted", "error_type": "ConnectionTimeout"},
				{"timestamp": "2026-03-14T11:52:00Z", "level": "ERROR", "message": "odd failure"},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	res, err := client.Search(context.Background(), Query{
		Service:  "checkout",
		Start:    time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC),
		End:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Keywords: []string{"error", "timeout"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "checkout", gotQuery.Service)
	assert.Equal(t, []string{"error", "timeout"}, gotQuery.Keywords)

	assert.Len(t, res.Entries, 3)
	assert.Equal(t, 3, res.TotalErrors)
	assert.Equal(t, "ConnectionTimeout", res.TopError)
	assert.Equal(t, map[string]int{"ConnectionTimeout": 2, "Unknown": 1}, res.Breakdown)
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), Query{Service: "checkout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSearchEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries": []}`))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	res, err := client.Search(context.Background(), Query{Service: "checkout"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.TotalErrors)
	assert.Empty(t, res.TopError)
}

func TestSearchRateLimitCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(0.001))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First request consumes the burst token, the second blocks on the limiter.
	_, err := client.Search(ctx, Query{Service: "checkout"})
	require.NoError(t, err)
	_, err = client.Search(ctx, Query{Service: "checkout"})
	assert.Error(t, err)
}
