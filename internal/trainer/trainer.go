// Package trainer coordinates the analyzers and closes the loop: it tracks
// training objectives against live metrics, generates parameter adaptations
// when objectives drift, validates them against safety bounds and conflict
// rules, and applies them with rollback support.
package trainer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftwatch/driftwatch/internal/autocorr"
	"github.com/driftwatch/driftwatch/internal/bias"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/pattern"
	"github.com/driftwatch/driftwatch/internal/perf"
	"github.com/driftwatch/driftwatch/internal/stats"
)

// Parameter safety bounds. Validation rejects any action that would push a
// parameter past these.
const (
	maxBiasPenaltyWeight = 1.5
	minMaxTokens         = 50.0
	minTemperature       = 0.05
	maxTemperature       = 1.2
	maxQualityWeight     = 3.0
	maxActionImpact      = 0.8
)

// objectiveHistoryLimit caps each objective's value history.
const objectiveHistoryLimit = 100

// minObjectiveHistory is the sample count an objective needs before its
// deviation can trigger a continuous-mode cycle.
const minObjectiveHistory = 5

// recentBiasChecks is how far back the triggered-mode bias check looks in the
// measurement history.
const recentBiasChecks = 10

// Trainer owns the adaptation loop. All methods are safe for concurrent use;
// at most one training cycle runs at a time.
type Trainer struct {
	cfg    config.TrainerConfig
	logger *slog.Logger
	tracer trace.Tracer

	Bias     *bias.Detector
	Autocorr *autocorr.Mapper
	Pattern  *pattern.Analyzer
	Perf     *perf.Monitor

	cycleMu sync.Mutex

	mu               sync.Mutex
	mode             domain.TrainingMode
	strategy         domain.Strategy
	objectives       map[string]*domain.TrainingObjective
	parameters       map[string]any
	history          []domain.AdaptationAction
	rollbacks        []domain.RollbackPoint
	interactionCount int
	lastCycle        time.Time
}

// New creates a Trainer wired to the four analyzers.
func New(cfg config.TrainerConfig, b *bias.Detector, m *autocorr.Mapper, p *pattern.Analyzer, pm *perf.Monitor, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Trainer{
		cfg:        cfg,
		logger:     logger.With("component", "self_trainer"),
		tracer:     otel.Tracer("driftwatch/trainer"),
		Bias:       b,
		Autocorr:   m,
		Pattern:    p,
		Perf:       pm,
		mode:       domain.TrainingMode(cfg.Mode),
		strategy:   domain.Strategy(cfg.Strategy),
		objectives: defaultObjectives(),
		parameters: defaultParameters(),
	}
	return t
}

// defaultObjectives seeds the tracked objectives with their operating targets.
func defaultObjectives() map[string]*domain.TrainingObjective {
	objectives := []*domain.TrainingObjective{
		{Name: "bias_minimization", MetricName: "bias_score", TargetValue: 0.05, Weight: 1.5, Tolerance: 0.05},
		{Name: "response_quality", MetricName: "quality", TargetValue: 0.85, Weight: 1.0, Tolerance: 0.05},
		{Name: "response_consistency", MetricName: "response_variance", TargetValue: 0.15, Weight: 0.8, Tolerance: 0.05},
		{Name: "user_satisfaction", MetricName: "satisfaction", TargetValue: 0.90, Weight: 1.2, Tolerance: 0.05},
		{Name: "response_time", MetricName: "response_time", TargetValue: 2.0, Weight: 0.6, Tolerance: 0.5},
	}
	out := make(map[string]*domain.TrainingObjective, len(objectives))
	for _, o := range objectives {
		// Start on target so a cold start never triggers a cycle.
		o.Current = o.TargetValue
		out[o.Name] = o
	}
	return out
}

// defaultParameters are the generation-time parameters the trainer adapts.
func defaultParameters() map[string]any {
	return map[string]any{
		"temperature":         0.7,
		"max_tokens":          1000.0,
		"bias_penalty_weight": 0.5,
		"quality_weight":      1.0,
		"diversity_weight":    0.5,
	}
}

// Parameters returns a copy of the current generation parameters.
func (t *Trainer) Parameters() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]any, len(t.parameters))
	for k, v := range t.parameters {
		out[k] = v
	}
	return out
}

// Objectives returns a copy of the tracked objectives.
func (t *Trainer) Objectives() []domain.TrainingObjective {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.TrainingObjective, 0, len(t.objectives))
	for _, o := range t.objectives {
		cp := *o
		cp.History = append([]float64(nil), o.History...)
		out = append(out, cp)
	}
	return out
}

// AdaptationHistory returns a copy of the applied adaptation actions, oldest
// first.
func (t *Trainer) AdaptationHistory() []domain.AdaptationAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.AdaptationAction(nil), t.history...)
}

// refreshObjectives pulls current metric values from the analyzers into the
// objectives and appends to their histories.
func (t *Trainer) refreshObjectives() {
	values := t.currentMetrics()

	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for _, o := range t.objectives {
		v, ok := values[o.MetricName]
		if !ok {
			continue
		}
		o.Current = v
		o.History = append(o.History, v)
		if len(o.History) > objectiveHistoryLimit {
			o.History = o.History[len(o.History)-objectiveHistoryLimit:]
		}
		o.LastUpdated = now
	}
}

// currentMetrics assembles the live metric values the objectives track.
func (t *Trainer) currentMetrics() map[string]float64 {
	out := make(map[string]float64)

	if quality := t.Perf.MetricValues(domain.MetricQuality); len(quality) > 0 {
		out["quality"] = stats.Mean(recent(quality, 20))
	}
	if rts := t.Perf.MetricValues(domain.MetricResponseTime); len(rts) > 0 {
		window := recent(rts, 20)
		mean := stats.Mean(window)
		out["response_time"] = mean
		// Consistency tracks the response-time variance ratio; smaller is
		// steadier.
		if mean > 0 {
			out["response_variance"] = stats.Variance(window) / mean
		}
	}
	if sats := t.Perf.MetricValues(domain.MetricSatisfaction); len(sats) > 0 {
		out["satisfaction"] = stats.Mean(recent(sats, 20))
	}

	var biasSum float64
	var biasCount int
	for _, m := range t.Bias.History() {
		if m.Confidence > 0 {
			biasSum += m.Score
			biasCount++
		}
	}
	if biasCount > 0 {
		out["bias_score"] = biasSum / float64(biasCount)
	}
	return out
}

// Status reports the trainer's mode, objective health and parameter state.
func (t *Trainer) Status() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	objectiveStatus := make(map[string]any, len(t.objectives))
	for name, o := range t.objectives {
		objectiveStatus[name] = map[string]any{
			"current":          o.Current,
			"target":           o.TargetValue,
			"deviation":        o.Deviation(),
			"within_tolerance": o.WithinTolerance(),
			"priority":         o.Priority(),
		}
	}

	params := make(map[string]any, len(t.parameters))
	for k, v := range t.parameters {
		params[k] = v
	}

	status := map[string]any{
		"mode":              string(t.mode),
		"strategy":          string(t.strategy),
		"interactions":      t.interactionCount,
		"adaptations":       len(t.history),
		"rollback_points":   len(t.rollbacks),
		"objectives":        objectiveStatus,
		"parameters":        params,
	}
	if !t.lastCycle.IsZero() {
		status["last_cycle"] = t.lastCycle
	}
	return status
}

// Reset clears the trainer and every analyzer back to cold-start state.
func (t *Trainer) Reset() {
	t.mu.Lock()
	t.objectives = defaultObjectives()
	t.parameters = defaultParameters()
	t.history = nil
	t.rollbacks = nil
	t.interactionCount = 0
	t.lastCycle = time.Time{}
	t.mu.Unlock()

	t.Bias.Reset()
	t.Autocorr.Reset()
	t.Pattern.Reset()
	t.Perf.Reset()
	t.logger.Info("trainer reset")
}

// recent returns the last n values of a series.
func recent(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

// errValidation marks an action rejected by validation.
type validationError struct{ reason string }

func (e *validationError) Error() string { return fmt.Sprintf("action rejected: %s", e.reason) }
