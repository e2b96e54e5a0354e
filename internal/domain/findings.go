package domain

import "time"

// BiasMetric is one fairness measurement produced by the bias detector.
type BiasMetric struct {
	Kind       BiasKind       `json:"kind"`
	Score      float64        `json:"score"`
	Threshold  float64        `json:"threshold"`
	Biased     bool           `json:"is_biased"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details,omitempty"`
}

// PatternSignature is a recorded, named behavioral pattern with strength and
// lifespan. Signatures persist until superseded or pruned by age.
type PatternSignature struct {
	ID            string         `json:"id"`
	Kind          PatternKind    `json:"kind"`
	Strength      float64        `json:"strength"`
	Frequency     float64        `json:"frequency"`
	Duration      time.Duration  `json:"duration_ns"`
	FirstDetected time.Time      `json:"first_detected"`
	LastSeen      time.Time      `json:"last_seen"`
	Occurrences   int            `json:"occurrences"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// QualityMetrics scores one response along five dimensions, each in [0,1].
// Overall is the fixed weighted sum used everywhere quality is compared.
type QualityMetrics struct {
	Readability  float64   `json:"readability"`
	Coherence    float64   `json:"coherence"`
	Relevance    float64   `json:"relevance"`
	Completeness float64   `json:"completeness"`
	Helpfulness  float64   `json:"helpfulness"`
	Overall      float64   `json:"overall"`
	Timestamp    time.Time `json:"timestamp"`
}

// PerformanceMetric is a single sample of an operational metric.
type PerformanceMetric struct {
	Kind      MetricKind     `json:"kind"`
	Value     float64        `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
}

// Alert is a threshold breach raised by the performance monitor.
type Alert struct {
	Level     AlertLevel     `json:"level"`
	Kind      MetricKind     `json:"kind"`
	Message   string         `json:"message"`
	Value     float64        `json:"value"`
	Threshold float64        `json:"threshold"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// LagCorrelation is one autocorrelation measurement of a metric series
// against its lag-k shift.
type LagCorrelation struct {
	Metric         string    `json:"metric"`
	Lag            int       `json:"lag"`
	Correlation    float64   `json:"correlation"`
	Significance   float64   `json:"significance"`
	Strength       string    `json:"strength"`
	Interpretation string    `json:"interpretation"`
	Timestamp      time.Time `json:"timestamp"`
}

// Recommendation is a concrete, prioritized suggestion derived from a
// detected pattern.
type Recommendation struct {
	Text              string      `json:"recommendation"`
	Priority          float64     `json:"priority"`
	Category          PatternKind `json:"category"`
	SupportingPattern string      `json:"supporting_pattern"`
	Confidence        float64     `json:"confidence"`
	Rank              int         `json:"rank"`
}
