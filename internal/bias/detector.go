// Package bias measures fairness of responses across demographic groups. It
// keeps a sliding window of interactions and scores demographic parity,
// calibration and (as a stub pending verifiable outcome labels) equalized
// odds over it.
package bias

import (
	"log/slog"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/stats"
	"github.com/driftwatch/driftwatch/internal/textscore"
)

// Parity outcome measures. OutcomeResponseLength compares raw response
// lengths across groups; OutcomeHelpfulness compares the helpfulness
// heuristic. Any other value scores every interaction 1, which always reads
// as parity.
const (
	OutcomeResponseLength = "response_length"
	OutcomeHelpfulness    = "response_helpfulness"
)

// Detector scores interactions for group-level bias. All methods are safe for
// concurrent use.
type Detector struct {
	cfg    config.BiasConfig
	logger *slog.Logger

	mu           sync.Mutex
	interactions []domain.Interaction
	history      []domain.BiasMetric
}

// historyLimit caps the retained bias measurement history.
const historyLimit = 1000

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg config.BiasConfig, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger.With("component", "bias_detector")}
}

// LogInteraction appends one interaction to the sliding window, evicting the
// oldest when the window is full.
func (d *Detector) LogInteraction(in domain.Interaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interactions = append(d.interactions, in)
	if len(d.interactions) > d.cfg.Window {
		d.interactions = d.interactions[len(d.interactions)-d.cfg.Window:]
	}
}

// DetectDemographicParity measures the outcome gap across the groups of one
// metadata attribute. Interactions without the attribute form an "unknown"
// group. The gap is (max − min) / mean of per-group mean outcome scores;
// groups below MinGroupSize are excluded.
func (d *Detector) DetectDemographicParity(attribute, outcomeMetric string) domain.BiasMetric {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if len(d.interactions) < d.cfg.MinInteractions {
		return d.insufficient(domain.BiasDemographicParity, d.cfg.ParityThreshold, now, map[string]any{
			"attribute": attribute,
			"reason":    "insufficient_interactions",
			"have":      len(d.interactions),
			"need":      d.cfg.MinInteractions,
		})
	}

	groups := make(map[string][]float64)
	for i := range d.interactions {
		in := &d.interactions[i]
		group := in.MetadataString(attribute, "unknown")
		groups[group] = append(groups[group], outcomeScore(in, outcomeMetric))
	}

	groupMeans := make(map[string]any, len(groups))
	groupSizes := make(map[string]any, len(groups))
	var means []float64
	minGroup := 0
	for name, scores := range groups {
		if len(scores) < d.cfg.MinGroupSize {
			continue
		}
		m := stats.Mean(scores)
		means = append(means, m)
		groupMeans[name] = m
		groupSizes[name] = len(scores)
		if minGroup == 0 || len(scores) < minGroup {
			minGroup = len(scores)
		}
	}

	details := map[string]any{
		"attribute":      attribute,
		"outcome_metric": outcomeMetric,
		"group_means":    groupMeans,
		"group_sizes":    groupSizes,
	}
	if len(means) < 2 {
		details["reason"] = "insufficient_groups"
		return d.insufficient(domain.BiasDemographicParity, d.cfg.ParityThreshold, now, details)
	}

	mean := stats.Mean(means)
	var score float64
	if mean > 0 {
		score = (stats.Max(means) - stats.Min(means)) / mean
	}
	confidence := float64(minGroup) / 100
	if confidence > 1 {
		confidence = 1
	}

	metric := domain.BiasMetric{
		Kind:       domain.BiasDemographicParity,
		Score:      score,
		Threshold:  d.cfg.ParityThreshold,
		Biased:     score > d.cfg.ParityThreshold,
		Confidence: confidence,
		Timestamp:  now,
		Details:    details,
	}
	d.record(metric)
	if metric.Biased {
		d.logger.Warn("demographic parity gap detected",
			"attribute", attribute, "score", score, "threshold", d.cfg.ParityThreshold)
	}
	return metric
}

// DetectCalibrationBias checks how consistent response lengths are across the
// window. Without ground-truth confidence labels the score is a dispersion
// proxy: the squared coefficient of variation of response lengths, scaled so
// that a CV² of 0.5 saturates at 1.
func (d *Detector) DetectCalibrationBias() domain.BiasMetric {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if len(d.interactions) < d.cfg.MinInteractions {
		return d.insufficient(domain.BiasCalibration, d.cfg.CalibrationThreshold, now, map[string]any{
			"reason": "insufficient_interactions",
			"have":   len(d.interactions),
			"need":   d.cfg.MinInteractions,
		})
	}

	lengths := make([]float64, len(d.interactions))
	for i := range d.interactions {
		lengths[i] = float64(len(d.interactions[i].Output))
	}
	mean := stats.Mean(lengths)

	var score float64
	if mean > 0 {
		score = stats.Variance(lengths) / (mean * mean) / 0.5
		if score > 1 {
			score = 1
		}
	}

	metric := domain.BiasMetric{
		Kind:       domain.BiasCalibration,
		Score:      score,
		Threshold:  d.cfg.CalibrationThreshold,
		Biased:     score > d.cfg.CalibrationThreshold,
		Confidence: 0.7,
		Timestamp:  now,
		Details: map[string]any{
			"mean_response_length": mean,
			"samples":              len(lengths),
			"proxy":                "length_cv_squared",
		},
	}
	d.record(metric)
	return metric
}

// DetectEqualizedOdds is a placeholder until verifiable per-turn outcome
// labels exist; it reports a fixed nominal score at half confidence so
// downstream consumers see the dimension without acting on it.
func (d *Detector) DetectEqualizedOdds() domain.BiasMetric {
	d.mu.Lock()
	defer d.mu.Unlock()

	metric := domain.BiasMetric{
		Kind:       domain.BiasEqualizedOdds,
		Score:      0.05,
		Threshold:  d.cfg.EqualizedOddsThreshold,
		Biased:     false,
		Confidence: 0.5,
		Timestamp:  time.Now(),
		Details:    map[string]any{"reason": "no_outcome_labels"},
	}
	d.record(metric)
	return metric
}

// DetectAllBiasTypes runs demographic parity over every configured attribute
// with the configured outcome metric, plus the calibration and equalized-odds
// checks, returning every metric produced.
func (d *Detector) DetectAllBiasTypes() []domain.BiasMetric {
	var out []domain.BiasMetric
	for _, attr := range d.cfg.Attributes {
		out = append(out, d.DetectDemographicParity(attr, d.cfg.OutcomeMetric))
	}
	out = append(out, d.DetectCalibrationBias(), d.DetectEqualizedOdds())
	return out
}

// RecentFlagged reports whether any of the last n recorded measurements
// flagged bias.
func (d *Detector) RecentFlagged(n int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := len(d.history) - n
	if start < 0 {
		start = 0
	}
	for i := start; i < len(d.history); i++ {
		if d.history[i].Biased {
			return true
		}
	}
	return false
}

// Summary aggregates the bias measurements recorded within the window.
func (d *Detector) Summary(window time.Duration) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-window)
	byKind := make(map[string]int)
	var total, biased int
	var scoreSum float64
	for i := range d.history {
		m := &d.history[i]
		if m.Timestamp.Before(cutoff) {
			continue
		}
		total++
		scoreSum += m.Score
		byKind[string(m.Kind)]++
		if m.Biased {
			biased++
		}
	}

	summary := map[string]any{
		"window_seconds":     window.Seconds(),
		"measurements":       total,
		"biased_count":       biased,
		"counts_by_kind":     byKind,
		"interaction_window": len(d.interactions),
	}
	if total > 0 {
		summary["biased_rate"] = float64(biased) / float64(total)
		summary["mean_score"] = scoreSum / float64(total)
	}
	return summary
}

// History returns a copy of the recorded bias metrics.
func (d *Detector) History() []domain.BiasMetric {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.BiasMetric, len(d.history))
	copy(out, d.history)
	return out
}

// Snapshot is the detector's exportable state.
type Snapshot struct {
	Interactions []domain.Interaction `json:"interactions"`
	History      []domain.BiasMetric  `json:"history"`
}

// Export returns a copy of the detector state for persistence.
func (d *Detector) Export() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		Interactions: make([]domain.Interaction, len(d.interactions)),
		History:      make([]domain.BiasMetric, len(d.history)),
	}
	copy(s.Interactions, d.interactions)
	copy(s.History, d.history)
	return s
}

// Import replaces the detector state with a previously exported snapshot,
// re-applying the window caps.
func (d *Detector) Import(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interactions = append(d.interactions[:0], s.Interactions...)
	if len(d.interactions) > d.cfg.Window {
		d.interactions = d.interactions[len(d.interactions)-d.cfg.Window:]
	}
	d.history = append(d.history[:0], s.History...)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
}

// Reset clears the interaction window and measurement history.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interactions = nil
	d.history = nil
	d.logger.Info("bias detector reset")
}

// outcomeScore is the per-interaction outcome used for group comparison
// under the selected measure.
func outcomeScore(in *domain.Interaction, outcomeMetric string) float64 {
	switch outcomeMetric {
	case OutcomeResponseLength:
		return float64(len(in.Output))
	case OutcomeHelpfulness:
		return textscore.GroupHelpfulness(in.Output)
	}
	return 1.0
}

// record appends to history under the cap. Caller holds the lock.
func (d *Detector) record(m domain.BiasMetric) {
	d.history = append(d.history, m)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
}

// insufficient builds and records the zero-confidence metric returned when a
// check lacks data. Caller holds the lock.
func (d *Detector) insufficient(kind domain.BiasKind, threshold float64, ts time.Time, details map[string]any) domain.BiasMetric {
	metric := domain.BiasMetric{
		Kind:      kind,
		Threshold: threshold,
		Timestamp: ts,
		Details:   details,
	}
	d.record(metric)
	return metric
}
