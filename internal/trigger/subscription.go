// Package trigger turns log-subscription batches into investigation alerts.
// Batches arrive base64-encoded and gzip-compressed; the package decodes
// them, pulls out structured error events, and decides whether the error
// volume warrants an automated investigation.
package trigger

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shriharshan/incident-commander/internal/config"
	"github.com/shriharshan/incident-commander/internal/model"
)

// Error categories assigned to structured error events.
const (
	CategoryDatabase        = "database"
	CategoryAPI             = "api"
	CategoryValidation      = "validation"
	CategoryMemory          = "memory"
	CategoryExternalService = "external_service"
	CategoryUnknown         = "unknown"
)

// maxSamplesPerCategory bounds how many raw events each category keeps for
// downstream context.
const maxSamplesPerCategory = 3

// subscriptionEnvelope is the wire shape of a subscription delivery.
type subscriptionEnvelope struct {
	AWSLogs struct {
		Data string `json:"data"`
	} `json:"awslogs"`
}

// rawBatch is the decompressed payload inside the envelope.
type rawBatch struct {
	MessageType         string     `json:"messageType"`
	LogGroup            string     `json:"logGroup"`
	LogStream           string     `json:"logStream"`
	SubscriptionFilters []string   `json:"subscriptionFilters"`
	LogEvents           []LogEvent `json:"logEvents"`
}

// LogEvent is one raw log record in a batch. Timestamp is epoch millis.
type LogEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// ErrorEvent is a structured error-level record parsed from a log message.
type ErrorEvent struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
	Service   string `json:"service"`
	Timestamp int64  `json:"-"`
	LogID     string `json:"-"`
}

// Batch is a parsed subscription delivery.
type Batch struct {
	LogGroup    string
	LogStream   string
	Filters     []string
	Events      []LogEvent
	ErrorEvents []ErrorEvent
}

// IsSubscription reports whether the payload looks like a subscription
// envelope rather than a plain alert.
func IsSubscription(payload []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	_, ok := probe["awslogs"]
	return ok
}

// ParseSubscription decodes a subscription envelope into a batch. Log
// messages that are not structured JSON, or not error level, are kept in
// Events but excluded from ErrorEvents.
func ParseSubscription(payload []byte) (*Batch, error) {
	var env subscriptionEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, eris.Wrap(err, "trigger: parse envelope")
	}
	if env.AWSLogs.Data == "" {
		return nil, eris.New("trigger: empty subscription data")
	}

	compressed, err := base64.StdEncoding.DecodeString(env.AWSLogs.Data)
	if err != nil {
		return nil, eris.Wrap(err, "trigger: decode base64")
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, eris.Wrap(err, "trigger: open gzip")
	}
	defer zr.Close()
	decompressed, err := io.ReadAll(zr)
	if err != nil {
		return nil, eris.Wrap(err, "trigger: decompress")
	}

	var raw rawBatch
	if err := json.Unmarshal(decompressed, &raw); err != nil {
		return nil, eris.Wrap(err, "trigger: parse batch")
	}

	batch := &Batch{
		LogGroup:  raw.LogGroup,
		LogStream: raw.LogStream,
		Filters:   raw.SubscriptionFilters,
		Events:    raw.LogEvents,
	}
	if batch.LogGroup == "" {
		batch.LogGroup = "unknown"
	}
	if batch.LogStream == "" {
		batch.LogStream = "unknown"
	}

	for _, ev := range raw.LogEvents {
		var parsed ErrorEvent
		if err := json.Unmarshal([]byte(ev.Message), &parsed); err != nil {
			continue
		}
		if parsed.Level != "ERROR" && parsed.Level != "CRITICAL" {
			continue
		}
		parsed.Timestamp = ev.Timestamp
		parsed.LogID = ev.ID
		batch.ErrorEvents = append(batch.ErrorEvents, parsed)
	}
	return batch, nil
}

// Analysis summarizes a batch's error events for the trigger decision.
type Analysis struct {
	TotalErrors     int
	Categories      map[string]int
	Dominant        string
	ErrorsPerMinute float64
	Samples         map[string][]ErrorEvent
}

// Categorize buckets error events by failure class and computes the error
// rate across the batch's time span.
func Categorize(events []ErrorEvent) Analysis {
	buckets := map[string][]ErrorEvent{}
	for _, ev := range events {
		cat := categoryOf(ev)
		buckets[cat] = append(buckets[cat], ev)
	}

	a := Analysis{
		TotalErrors: len(events),
		Categories:  make(map[string]int, len(buckets)),
		Dominant:    "none",
		Samples:     make(map[string][]ErrorEvent, len(buckets)),
	}
	for cat, evs := range buckets {
		a.Categories[cat] = len(evs)
		samples := evs
		if len(samples) > maxSamplesPerCategory {
			samples = samples[:maxSamplesPerCategory]
		}
		a.Samples[cat] = samples
	}

	// Dominant = largest bucket; name order breaks ties deterministically.
	names := make([]string, 0, len(buckets))
	for cat := range buckets {
		names = append(names, cat)
	}
	sort.Strings(names)
	best := 0
	for _, cat := range names {
		if a.Categories[cat] > best {
			best = a.Categories[cat]
			a.Dominant = cat
		}
	}

	if len(events) > 0 {
		minTS, maxTS := events[0].Timestamp, events[0].Timestamp
		for _, ev := range events[1:] {
			if ev.Timestamp < minTS {
				minTS = ev.Timestamp
			}
			if ev.Timestamp > maxTS {
				maxTS = ev.Timestamp
			}
		}
		spanMS := maxTS - minTS
		if len(events) < 2 || spanMS <= 0 {
			spanMS = 60_000
		}
		spanMinutes := float64(spanMS) / 60_000
		if spanMinutes < 1 {
			spanMinutes = 1
		}
		a.ErrorsPerMinute = float64(len(events)) / spanMinutes
	}
	return a
}

func categoryOf(ev ErrorEvent) string {
	errType := strings.ToLower(ev.ErrorType)
	message := strings.ToLower(ev.Message)
	switch {
	case strings.Contains(errType, "timeout") || strings.Contains(message, "database"):
		return CategoryDatabase
	case strings.Contains(errType, "api") || strings.Contains(message, "payment"):
		return CategoryAPI
	case strings.Contains(errType, "validation"):
		return CategoryValidation
	case strings.Contains(errType, "memory"):
		return CategoryMemory
	case strings.Contains(errType, "external") ||
		strings.Contains(message, "inventory") ||
		strings.Contains(message, "shipping"):
		return CategoryExternalService
	default:
		return CategoryUnknown
	}
}

// ShouldInvestigate decides whether the analysis clears any trigger
// threshold: enough total errors, a high enough error rate, or any error in
// a critical category.
func ShouldInvestigate(cfg config.TriggerConfig, a Analysis) bool {
	if a.TotalErrors >= cfg.MinErrors {
		return true
	}
	if a.ErrorsPerMinute > cfg.MinErrorsPerMin {
		return true
	}
	for _, critical := range []string{CategoryDatabase, CategoryMemory} {
		if a.Categories[critical] > 0 {
			return true
		}
	}
	return false
}

// DeriveAlert builds the investigation alert for a triggering batch. The
// service name comes from the last segment of the log group; the observed
// value is the measured error rate.
func DeriveAlert(batch *Batch, a Analysis, cfg config.TriggerConfig, now time.Time) model.Alert {
	service := batch.LogGroup
	if idx := strings.LastIndex(service, "/"); idx >= 0 {
		service = service[idx+1:]
	}
	for _, ev := range batch.ErrorEvents {
		if ev.Service != "" {
			service = ev.Service
			break
		}
	}

	severity := "high"
	if a.Categories[CategoryDatabase] > 0 || a.Categories[CategoryMemory] > 0 {
		severity = "critical"
	}

	ts := now
	var maxTS int64
	for _, ev := range batch.ErrorEvents {
		if ev.Timestamp > maxTS {
			maxTS = ev.Timestamp
		}
	}
	if maxTS > 0 {
		ts = time.UnixMilli(maxTS).UTC()
	}

	return model.Alert{
		Service:       service,
		Metric:        "error_rate",
		CurrentValue:  a.ErrorsPerMinute,
		Threshold:     cfg.MinErrorsPerMin,
		Severity:      severity,
		Timestamp:     ts,
		TriggerSource: "log_subscription",
	}
}
