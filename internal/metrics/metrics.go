// Package metrics records in-process counters and durations for candle retrievals and
// renders them as a JSON snapshot.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Names of the metrics recorded by the retrieval engine.
const (
	ChunksRequested   = "chunks_requested"
	ChunksEmpty       = "chunks_empty"
	CandlesReceived   = "candles_received"
	CandlesReturned   = "candles_returned"
	RetrievalDuration = "retrieval_duration"
	RetrievalErrors   = "retrieval_errors"
	SeriesLength      = "series_length"
	RateLimit         = "rate_limit_rps"
)

// maxHistory bounds the per-metric data point history.
const maxHistory = 100

// Recorder is a concurrency-safe metric store. The zero value is not usable; use
// NewRecorder.
type Recorder struct {
	mu        sync.RWMutex
	metrics   map[string]Metric
	startTime time.Time
	now       func() time.Time

	eventCount int64
	errorCount int64
}

// Metric represents a single metric with metadata
type Metric struct {
	Name        string            `json:"name"`
	Type        MetricType        `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description"`
	UpdatedAt   time.Time         `json:"updated_at"`
	History     []MetricDataPoint `json:"history,omitempty"`
}

// MetricType represents different types of metrics
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDataPoint represents a time-series data point
type MetricDataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Snapshot represents all metrics at a point in time
type Snapshot struct {
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     time.Duration     `json:"uptime"`
	Metrics    map[string]Metric `json:"metrics"`
	EventCount int64             `json:"event_count"`
	ErrorCount int64             `json:"error_count"`
	ErrorRate  float64           `json:"error_rate"`
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		metrics:   make(map[string]Metric),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RecordCounter adds delta to a counter metric.
func (r *Recorder) RecordCounter(name string, delta float64, description string, labels map[string]string) {
	r.recordMetric(name, MetricTypeCounter, delta, description, labels)
	atomic.AddInt64(&r.eventCount, 1)
}

// RecordGauge sets a gauge metric value
func (r *Recorder) RecordGauge(name string, value float64, description string, labels map[string]string) {
	r.recordMetric(name, MetricTypeGauge, value, description, labels)
}

// RecordError records an error metric
func (r *Recorder) RecordError(name, description string, labels map[string]string) {
	r.recordMetric(name, MetricTypeCounter, 1, description, labels)
	atomic.AddInt64(&r.errorCount, 1)
}

// RecordDuration records a duration metric in milliseconds
func (r *Recorder) RecordDuration(name string, duration time.Duration, description string, labels map[string]string) {
	ms := float64(duration.Nanoseconds()) / float64(time.Millisecond)
	r.recordMetric(name, MetricTypeHistogram, ms, description, labels)
}

// Value returns the current value of a metric, or 0 if it was never recorded.
func (r *Recorder) Value(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name].Value
}

func (r *Recorder) recordMetric(name string, metricType MetricType, value float64, description string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	existing, exists := r.metrics[name]
	if !exists {
		r.metrics[name] = Metric{
			Name:        name,
			Type:        metricType,
			Value:       value,
			Labels:      labels,
			Description: description,
			UpdatedAt:   now,
			History:     []MetricDataPoint{{Timestamp: now, Value: value}},
		}
		return
	}

	if metricType == MetricTypeCounter {
		existing.Value += value
	} else {
		existing.Value = value
	}
	existing.UpdatedAt = now

	existing.History = append(existing.History, MetricDataPoint{Timestamp: now, Value: existing.Value})
	if len(existing.History) > maxHistory {
		existing.History = existing.History[1:]
	}

	r.metrics[name] = existing
}

// GetSnapshot returns a copy of all current metrics
func (r *Recorder) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metricsCopy := make(map[string]Metric, len(r.metrics))
	for k, v := range r.metrics {
		v.History = append([]MetricDataPoint(nil), v.History...)
		metricsCopy[k] = v
	}

	eventCount := atomic.LoadInt64(&r.eventCount)
	errorCount := atomic.LoadInt64(&r.errorCount)
	var errorRate float64
	if eventCount > 0 {
		errorRate = float64(errorCount) / float64(eventCount) * 100
	}

	now := r.now()
	return Snapshot{
		Timestamp:  now,
		Uptime:     now.Sub(r.startTime),
		Metrics:    metricsCopy,
		EventCount: eventCount,
		ErrorCount: errorCount,
		ErrorRate:  errorRate,
	}
}

// JSON renders the snapshot as indented JSON without per-metric history.
func (s Snapshot) JSON() ([]byte, error) {
	trimmed := make(map[string]Metric, len(s.Metrics))
	for k, v := range s.Metrics {
		v.History = nil
		trimmed[k] = v
	}
	s.Metrics = trimmed
	return json.MarshalIndent(s, "", "  ")
}
