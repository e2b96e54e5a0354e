package perf

import (
	"reflect"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
)

func testConfig() config.PerfConfig {
	return config.Default().Perf
}

func timedInteraction(ts time.Time, responseTime float64) domain.Interaction {
	return domain.Interaction{
		Timestamp:    ts,
		Input:        "status question",
		Output:       "Here is the answer you asked for with some detail included.",
		ResponseTime: responseTime,
	}
}

func TestSlowingResponsesRaiseWarning(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	base := time.Now()
	for i := 0; i < 60; i++ {
		// Response time climbs from 0.5s past the 3s warning threshold.
		rt := 0.5 + float64(i)*0.08
		m.LogInteraction(timedInteraction(base.Add(time.Duration(i)*time.Second), rt))
	}

	alerts := m.Alerts(domain.AlertWarning)
	if len(alerts) == 0 {
		t.Fatal("expected warning alerts once response time crossed the threshold")
	}
	var sawResponseTime bool
	for _, a := range alerts {
		if a.Kind == domain.MetricResponseTime {
			sawResponseTime = true
			if a.Value <= a.Threshold {
				t.Errorf("alert value %v should exceed threshold %v", a.Value, a.Threshold)
			}
		}
	}
	if !sawResponseTime {
		t.Error("expected a response_time alert")
	}
}

func TestLowSatisfactionAlertsBelowThreshold(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	m.RecordMetric(domain.MetricSatisfaction, 0.2, nil)

	alerts := m.Alerts(domain.AlertWarning)
	if len(alerts) == 0 {
		t.Fatal("expected an alert for satisfaction below threshold")
	}
	if alerts[0].Level != domain.AlertEmergency {
		t.Errorf("satisfaction 0.2 should be an emergency, got %s", alerts[0].Level)
	}
}

func TestTieredThresholds(t *testing.T) {
	tests := []struct {
		value float64
		level domain.AlertLevel
	}{
		{4, domain.AlertWarning},
		{9, domain.AlertCritical},
		{16, domain.AlertEmergency},
	}
	for _, tt := range tests {
		m := NewMonitor(testConfig(), nil)
		m.RecordMetric(domain.MetricResponseTime, tt.value, nil)
		alerts := m.Alerts(domain.AlertInfo)
		if len(alerts) != 1 {
			t.Fatalf("value %v produced %d alerts, want 1", tt.value, len(alerts))
		}
		if alerts[0].Level != tt.level {
			t.Errorf("value %v produced level %s, want %s", tt.value, alerts[0].Level, tt.level)
		}
	}
}

func TestSummaryStatistics(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	for i := 0; i < 25; i++ {
		m.RecordMetric(domain.MetricQuality, 0.5+float64(i)*0.01, nil)
	}

	summary := m.Summary()
	metrics := summary["metrics"].(map[string]any)
	quality := metrics["quality"].(map[string]any)
	if quality["count"].(int) != 25 {
		t.Errorf("count = %v, want 25", quality["count"])
	}
	if _, ok := quality["p95"]; !ok {
		t.Error("expected p95 with 25 samples")
	}
	if _, ok := quality["p99"]; ok {
		t.Error("p99 should require 100 samples")
	}
}

func TestSummaryCached(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	m.RecordMetric(domain.MetricQuality, 0.5, nil)

	s1 := m.Summary()
	s2 := m.Summary()
	if reflect.ValueOf(s1).Pointer() != reflect.ValueOf(s2).Pointer() {
		t.Error("second Summary call within the TTL should return the cached result")
	}

	m.RecordMetric(domain.MetricQuality, 0.6, nil)
	s3 := m.Summary()
	if reflect.ValueOf(s1).Pointer() == reflect.ValueOf(s3).Pointer() {
		t.Error("recording a metric should invalidate the summary cache")
	}
}

func TestTrendsDirection(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	for i := 0; i < 30; i++ {
		m.RecordMetric(domain.MetricResponseTime, 0.5+float64(i)*0.01, nil)
		m.RecordMetric(domain.MetricQuality, 0.5+float64(i)*0.01, nil)
	}

	trends := m.Trends()
	rt := trends[string(domain.MetricResponseTime)].(map[string]any)
	if rt["direction"] != "degrading" {
		t.Errorf("rising response time direction = %v, want degrading", rt["direction"])
	}
	quality := trends[string(domain.MetricQuality)].(map[string]any)
	if quality["direction"] != "improving" {
		t.Errorf("rising quality direction = %v, want improving", quality["direction"])
	}
}

func TestMetricBuffersBounded(t *testing.T) {
	cfg := testConfig()
	cfg.MetricWindow = 50
	m := NewMonitor(cfg, nil)
	for i := 0; i < 200; i++ {
		m.RecordMetric(domain.MetricQuality, 0.5, nil)
	}
	if got := len(m.MetricValues(domain.MetricQuality)); got != 50 {
		t.Errorf("buffer holds %d samples, want 50", got)
	}
}

func TestFailedInteractionScoresZeroQuality(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	m.LogInteraction(domain.Interaction{
		Timestamp:    time.Now(),
		Input:        "anything",
		ResponseTime: 1.0,
		Error:        "upstream timeout",
	})

	quality := m.MetricValues(domain.MetricQuality)
	if len(quality) != 1 || quality[0] != 0 {
		t.Errorf("failed interaction quality = %v, want [0]", quality)
	}
	errRate := m.MetricValues(domain.MetricErrorRate)
	if len(errRate) != 1 || errRate[0] != 1 {
		t.Errorf("error rate = %v, want [1]", errRate)
	}
}

func TestResourceSampleRecorded(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	m.RecordResourceSample(ResourceSample{CPU: 20, Memory: 90, Timestamp: time.Now()})

	usage := m.MetricValues(domain.MetricResourceUsage)
	if len(usage) != 1 || usage[0] != 90 {
		t.Errorf("resource usage = %v, want the larger of CPU and memory", usage)
	}
	alerts := m.Alerts(domain.AlertInfo)
	if len(alerts) != 1 || alerts[0].Level != domain.AlertCritical {
		t.Errorf("memory at 90%% should raise a critical alert, got %v", alerts)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	base := time.Now()
	for i := 0; i < 30; i++ {
		m.LogInteraction(timedInteraction(base.Add(time.Duration(i)*time.Second), 5.0))
	}

	s := m.Export()
	restored := NewMonitor(testConfig(), nil)
	restored.Import(s)

	r := restored.Export()
	if r.TotalInteractions != s.TotalInteractions {
		t.Errorf("restored total = %d, want %d", r.TotalInteractions, s.TotalInteractions)
	}
	if len(r.Alerts) != len(s.Alerts) {
		t.Errorf("restored %d alerts, want %d", len(r.Alerts), len(s.Alerts))
	}
	if got, want := len(restored.MetricValues(domain.MetricResponseTime)), len(m.MetricValues(domain.MetricResponseTime)); got != want {
		t.Errorf("restored %d response time samples, want %d", got, want)
	}
}
