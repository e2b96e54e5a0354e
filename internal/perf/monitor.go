// Package perf tracks operational metrics of the agent: response time,
// throughput, error rate, satisfaction, quality and host resource usage. It
// raises tiered alerts on threshold breaches and serves cached statistical
// summaries.
package perf

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/stats"
	"github.com/driftwatch/driftwatch/internal/textscore"
)

// ResourceSample is one host resource usage reading, in percent.
type ResourceSample struct {
	CPU       float64   `json:"cpu_percent"`
	Memory    float64   `json:"memory_percent"`
	Timestamp time.Time `json:"timestamp"`
}

// Monitor records performance metrics and raises alerts. All methods are safe
// for concurrent use.
type Monitor struct {
	cfg    config.PerfConfig
	logger *slog.Logger

	mu        sync.Mutex
	metrics   map[domain.MetricKind][]domain.PerformanceMetric
	alerts    []domain.Alert
	resources []ResourceSample

	totalInteractions int
	failedInteractions int
	lastInteraction   time.Time

	cachedSummary map[string]any
	cachedAt      time.Time
}

// NewMonitor creates a Monitor with the given configuration.
func NewMonitor(cfg config.PerfConfig, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:     cfg,
		logger:  logger.With("component", "performance_monitor"),
		metrics: make(map[domain.MetricKind][]domain.PerformanceMetric),
	}
}

// RecordMetric appends one metric sample and checks it against the alert
// thresholds.
func (m *Monitor) RecordMetric(kind domain.MetricKind, value float64, ctx map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(kind, value, ctx)
}

// record appends and threshold-checks one sample. Caller holds the lock.
func (m *Monitor) record(kind domain.MetricKind, value float64, ctx map[string]any) {
	s := append(m.metrics[kind], domain.PerformanceMetric{
		Kind:      kind,
		Value:     value,
		Timestamp: time.Now(),
		Context:   ctx,
	})
	if len(s) > m.cfg.MetricWindow {
		s = s[len(s)-m.cfg.MetricWindow:]
	}
	m.metrics[kind] = s
	m.cachedSummary = nil
	m.checkThresholds(kind, value, ctx)
}

// LogInteraction derives and records the per-turn metrics: response time,
// instantaneous throughput from the inter-arrival gap, cumulative error
// rate, explicit satisfaction when present, and a heuristic quality score.
func (m *Monitor) LogInteraction(in domain.Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalInteractions++
	if in.Failed() {
		m.failedInteractions++
	}

	m.record(domain.MetricResponseTime, in.ResponseTime, nil)

	if !m.lastInteraction.IsZero() {
		if gap := in.Timestamp.Sub(m.lastInteraction).Seconds(); gap > 0 {
			m.record(domain.MetricThroughput, 1/gap, nil)
		}
	}
	m.lastInteraction = in.Timestamp

	m.record(domain.MetricErrorRate, float64(m.failedInteractions)/float64(m.totalInteractions), nil)

	if in.Satisfaction != nil {
		m.record(domain.MetricSatisfaction, *in.Satisfaction, nil)
	}
	m.record(domain.MetricQuality, estimateQuality(&in), nil)
}

// RecordResourceSample stores one host resource reading and records the
// larger of CPU and memory pressure as the resource usage metric.
func (m *Monitor) RecordResourceSample(s ResourceSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resources = append(m.resources, s)
	if len(m.resources) > m.cfg.ResourceWindow {
		m.resources = m.resources[len(m.resources)-m.cfg.ResourceWindow:]
	}
	usage := s.CPU
	if s.Memory > usage {
		usage = s.Memory
	}
	m.record(domain.MetricResourceUsage, usage, map[string]any{"cpu": s.CPU, "memory": s.Memory})
}

// checkThresholds raises the most severe alert the value crosses. Caller
// holds the lock.
func (m *Monitor) checkThresholds(kind domain.MetricKind, value float64, ctx map[string]any) {
	warn, crit, emerg, below, ok := m.thresholds(kind)
	if !ok {
		return
	}

	var level domain.AlertLevel
	var threshold float64
	crossed := func(t float64) bool {
		if below {
			return value < t
		}
		return value > t
	}
	switch {
	case crossed(emerg):
		level, threshold = domain.AlertEmergency, emerg
	case crossed(crit):
		level, threshold = domain.AlertCritical, crit
	case crossed(warn):
		level, threshold = domain.AlertWarning, warn
	default:
		return
	}

	relation := "above"
	if below {
		relation = "below"
	}
	alert := domain.Alert{
		Level:     level,
		Kind:      kind,
		Message:   fmt.Sprintf("%s %.3f is %s %s threshold %.3f", kind, value, relation, level, threshold),
		Value:     value,
		Threshold: threshold,
		Timestamp: time.Now(),
		Context:   ctx,
	}
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > m.cfg.AlertWindow {
		m.alerts = m.alerts[len(m.alerts)-m.cfg.AlertWindow:]
	}
	m.logger.Warn("performance alert", "level", level, "metric", kind, "value", value, "threshold", threshold)
}

// thresholds returns the tier values for a metric kind; below reports whether
// the metric alerts when it drops under the threshold.
func (m *Monitor) thresholds(kind domain.MetricKind) (warn, crit, emerg float64, below, ok bool) {
	c := m.cfg
	switch kind {
	case domain.MetricResponseTime:
		return c.ResponseTimeWarning, c.ResponseTimeCritical, c.ResponseTimeEmergency, false, true
	case domain.MetricErrorRate:
		return c.ErrorRateWarning, c.ErrorRateCritical, c.ErrorRateEmergency, false, true
	case domain.MetricResourceUsage:
		return c.ResourceWarning, c.ResourceCritical, c.ResourceEmergency, false, true
	case domain.MetricSatisfaction:
		return c.SatisfactionWarning, c.SatisfactionCritical, c.SatisfactionEmergency, true, true
	case domain.MetricThroughput:
		return c.ThroughputWarning, c.ThroughputCritical, c.ThroughputEmergency, true, true
	}
	return 0, 0, 0, false, false
}

// Summary returns per-metric statistics, alert counts by level and the
// resource picture. The result is cached for the configured TTL; recording a
// metric invalidates the cache.
func (m *Monitor) Summary() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	ttl := time.Duration(m.cfg.SummaryCacheTTLSeconds) * time.Second
	if m.cachedSummary != nil && time.Since(m.cachedAt) < ttl {
		return m.cachedSummary
	}

	perMetric := make(map[string]any, len(m.metrics))
	for _, kind := range domain.MetricKinds {
		samples, ok := m.metrics[kind]
		if !ok || len(samples) == 0 {
			continue
		}
		values := make([]float64, len(samples))
		for i := range samples {
			values[i] = samples[i].Value
		}
		entry := map[string]any{
			"count":  len(values),
			"mean":   stats.Mean(values),
			"min":    stats.Min(values),
			"max":    stats.Max(values),
			"std":    stats.StdDev(values),
			"median": stats.Median(values),
		}
		if len(values) >= 20 {
			entry["p95"] = stats.Percentile(values, 95)
		}
		if len(values) >= 100 {
			entry["p99"] = stats.Percentile(values, 99)
		}
		perMetric[string(kind)] = entry
	}

	alertCounts := make(map[string]int)
	for i := range m.alerts {
		alertCounts[string(m.alerts[i].Level)]++
	}

	summary := map[string]any{
		"metrics":            perMetric,
		"alerts":             alertCounts,
		"total_interactions": m.totalInteractions,
		"failed_interactions": m.failedInteractions,
	}
	if len(m.resources) > 0 {
		cpus := make([]float64, len(m.resources))
		mems := make([]float64, len(m.resources))
		for i, r := range m.resources {
			cpus[i] = r.CPU
			mems[i] = r.Memory
		}
		summary["resources"] = map[string]any{
			"latest":      m.resources[len(m.resources)-1],
			"mean_cpu":    stats.Mean(cpus),
			"mean_memory": stats.Mean(mems),
			"samples":     len(m.resources),
		}
	}

	m.cachedSummary = summary
	m.cachedAt = time.Now()
	return summary
}

// Trends reports per-metric trend strength and a health direction derived
// from whether lower values are better for the metric.
func (m *Monitor) Trends() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]any, len(m.metrics))
	for _, kind := range domain.MetricKinds {
		samples := m.metrics[kind]
		if len(samples) < 3 {
			continue
		}
		values := make([]float64, len(samples))
		for i := range samples {
			values[i] = samples[i].Value
		}
		trend := stats.TrendStrength(values)

		direction := "stable"
		switch {
		case trend > 0.1:
			direction = "improving"
			if kind.LowerIsBetter() {
				direction = "degrading"
			}
		case trend < -0.1:
			direction = "degrading"
			if kind.LowerIsBetter() {
				direction = "improving"
			}
		}
		out[string(kind)] = map[string]any{"trend": trend, "direction": direction}
	}
	return out
}

// Alerts returns the alerts at or above level, newest first.
func (m *Monitor) Alerts(level domain.AlertLevel) []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	rank := map[domain.AlertLevel]int{
		domain.AlertInfo: 0, domain.AlertWarning: 1, domain.AlertCritical: 2, domain.AlertEmergency: 3,
	}
	floor := rank[level]
	var out []domain.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if rank[m.alerts[i].Level] >= floor {
			out = append(out, m.alerts[i])
		}
	}
	return out
}

// MetricValues returns a copy of the values recorded for kind, oldest first.
func (m *Monitor) MetricValues(kind domain.MetricKind) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := m.metrics[kind]
	values := make([]float64, len(samples))
	for i := range samples {
		values[i] = samples[i].Value
	}
	return values
}

// Snapshot is the monitor's exportable state.
type Snapshot struct {
	Metrics            map[domain.MetricKind][]domain.PerformanceMetric `json:"metrics"`
	Alerts             []domain.Alert                                   `json:"alerts"`
	Resources          []ResourceSample                                 `json:"resources"`
	TotalInteractions  int                                              `json:"total_interactions"`
	FailedInteractions int                                              `json:"failed_interactions"`
}

// Export returns a copy of the monitor state for persistence.
func (m *Monitor) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Metrics:            make(map[domain.MetricKind][]domain.PerformanceMetric, len(m.metrics)),
		Alerts:             append([]domain.Alert(nil), m.alerts...),
		Resources:          append([]ResourceSample(nil), m.resources...),
		TotalInteractions:  m.totalInteractions,
		FailedInteractions: m.failedInteractions,
	}
	for kind, samples := range m.metrics {
		s.Metrics[kind] = append([]domain.PerformanceMetric(nil), samples...)
	}
	return s
}

// Import replaces the monitor state with a previously exported snapshot.
func (m *Monitor) Import(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[domain.MetricKind][]domain.PerformanceMetric, len(s.Metrics))
	for kind, samples := range s.Metrics {
		if len(samples) > m.cfg.MetricWindow {
			samples = samples[len(samples)-m.cfg.MetricWindow:]
		}
		m.metrics[kind] = append([]domain.PerformanceMetric(nil), samples...)
	}
	m.alerts = append([]domain.Alert(nil), s.Alerts...)
	if len(m.alerts) > m.cfg.AlertWindow {
		m.alerts = m.alerts[len(m.alerts)-m.cfg.AlertWindow:]
	}
	m.resources = append([]ResourceSample(nil), s.Resources...)
	if len(m.resources) > m.cfg.ResourceWindow {
		m.resources = m.resources[len(m.resources)-m.cfg.ResourceWindow:]
	}
	m.totalInteractions = s.TotalInteractions
	m.failedInteractions = s.FailedInteractions
	m.cachedSummary = nil
}

// Reset clears all recorded metrics, alerts and counters.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[domain.MetricKind][]domain.PerformanceMetric)
	m.alerts = nil
	m.resources = nil
	m.totalInteractions = 0
	m.failedInteractions = 0
	m.lastInteraction = time.Time{}
	m.cachedSummary = nil
	m.logger.Info("performance monitor reset")
}

// estimateQuality is the fallback quality heuristic recorded per interaction:
// a 0.5 baseline adjusted by response length banding, helpful content words
// and hedging words, clamped to [0,1].
func estimateQuality(in *domain.Interaction) float64 {
	if in.Failed() {
		return 0
	}
	score := 0.5
	switch n := len(in.Output); {
	case n >= 50 && n <= 1000:
		score += 0.2
	case n > 1000:
		score += 0.1
	}

	lower := strings.ToLower(in.Output)
	for _, w := range textscore.HelpfulContentWords {
		if strings.Contains(lower, w) {
			score += 0.05
		}
	}
	for _, w := range textscore.UnhelpfulHedges {
		if strings.Contains(lower, w) {
			score -= 0.1
		}
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
