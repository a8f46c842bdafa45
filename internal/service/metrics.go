package service

import (
	"sync"
	"time"
)

// metricsWindow is how far back the rolling statistics look.
const metricsWindow = 24 * time.Hour

type processingSample struct {
	at      time.Time
	seconds float64
	success bool
}

// Metrics is an in-memory processing counter. It is process-local by design;
// counters reset on restart.
type Metrics struct {
	mu            sync.Mutex
	samples       []processingSample
	allTimeTotal  int
	modelsUsed    map[string]int
	documentTypes map[string]int
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		modelsUsed:    map[string]int{},
		documentTypes: map[string]int{},
	}
}

// Record adds one processing outcome.
func (m *Metrics) Record(success bool, seconds float64, model, docType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allTimeTotal++
	m.samples = append(m.samples, processingSample{at: time.Now(), seconds: seconds, success: success})
	m.prune(time.Now())
	if model != "" {
		m.modelsUsed[model]++
	}
	if docType != "" {
		m.documentTypes[docType]++
	}
}

// prune drops samples older than the window. Callers hold the lock.
func (m *Metrics) prune(now time.Time) {
	cutoff := now.Add(-metricsWindow)
	keep := m.samples[:0]
	for _, s := range m.samples {
		if s.at.After(cutoff) {
			keep = append(keep, s)
		}
	}
	m.samples = keep
}

// WindowStats describes the rolling window.
type WindowStats struct {
	TotalProcessed int            `json:"total_processed"`
	AverageSeconds float64        `json:"average_processing_seconds"`
	SuccessRatePct float64        `json:"success_rate_pct"`
	ModelsUsed     map[string]int `json:"models_used"`
}

// AllTimeStats describes the totals since process start.
type AllTimeStats struct {
	TotalProcessed int            `json:"total_processed"`
	DocumentTypes  map[string]int `json:"document_types"`
}

// MetricsSnapshot is the /metrics response body.
type MetricsSnapshot struct {
	Last24Hours WindowStats  `json:"last_24_hours"`
	AllTime     AllTimeStats `json:"all_time"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(time.Now())

	window := WindowStats{
		TotalProcessed: len(m.samples),
		ModelsUsed:     map[string]int{},
	}
	if len(m.samples) > 0 {
		var sum float64
		succeeded := 0
		for _, s := range m.samples {
			sum += s.seconds
			if s.success {
				succeeded++
			}
		}
		window.AverageSeconds = sum / float64(len(m.samples))
		window.SuccessRatePct = float64(succeeded) / float64(len(m.samples)) * 100
	}
	for k, v := range m.modelsUsed {
		window.ModelsUsed[k] = v
	}

	allTime := AllTimeStats{
		TotalProcessed: m.allTimeTotal,
		DocumentTypes:  map[string]int{},
	}
	for k, v := range m.documentTypes {
		allTime.DocumentTypes[k] = v
	}

	return MetricsSnapshot{Last24Hours: window, AllTime: allTime}
}
