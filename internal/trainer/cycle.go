package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/stats"
)

// ProcessInteraction fans one interaction out to every analyzer, refreshes
// the objective metrics, and runs a training cycle when the configured mode
// calls for one. It returns the quality metrics scored for the interaction.
func (t *Trainer) ProcessInteraction(ctx context.Context, in domain.Interaction) domain.QualityMetrics {
	ctx, span := t.tracer.Start(ctx, "trainer.process_interaction")
	defer span.End()

	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	t.Bias.LogInteraction(in)
	t.Autocorr.LogInteraction(in)
	t.Perf.LogInteraction(in)
	quality := t.Pattern.LogInteraction(in)

	t.mu.Lock()
	t.interactionCount++
	count := t.interactionCount
	t.mu.Unlock()

	// Periodic full bias scan; its measurements feed the bias_score metric
	// and the triggered-mode check.
	if t.cfg.BiasScanInterval > 0 && count%t.cfg.BiasScanInterval == 0 {
		t.Bias.DetectAllBiasTypes()
	}

	t.refreshObjectives()

	if t.shouldTrain(count) {
		if _, err := t.RunTrainingCycle(ctx); err != nil {
			t.logger.Warn("training cycle failed", "error", err)
		}
	}
	return quality
}

// shouldTrain evaluates the mode-specific trigger condition.
func (t *Trainer) shouldTrain(count int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.mode {
	case domain.ModeContinuous:
		for _, o := range t.objectives {
			if len(o.History) >= minObjectiveHistory && !o.WithinTolerance() {
				return true
			}
		}
	case domain.ModeBatch:
		return t.cfg.BatchInterval > 0 && count%t.cfg.BatchInterval == 0
	case domain.ModeTriggered:
		if t.Bias.RecentFlagged(recentBiasChecks) {
			return true
		}
		// Degradation means the windowed mean is low, not one bad turn.
		if o := t.objectives["response_quality"]; o != nil && len(o.History) > 0 && o.Current < t.cfg.QualityFloor {
			return true
		}
	}
	return false
}

// CycleResult summarizes one training cycle.
type CycleResult struct {
	StartedAt  time.Time                `json:"started_at"`
	Duration   time.Duration            `json:"duration_ns"`
	Analysis   map[string]any           `json:"analysis"`
	Generated  int                      `json:"generated_actions"`
	Applied    []domain.AdaptationAction `json:"applied_actions"`
	Rejected   []string                 `json:"rejected_actions"`
	RolledBack bool                     `json:"rolled_back"`
	Outcome    map[string]float64       `json:"outcome_metrics"`
}

// RunTrainingCycle runs one full adapt cycle: analyze, generate, validate,
// execute, monitor. Only one cycle runs at a time; a second caller gets an
// error instead of queueing.
func (t *Trainer) RunTrainingCycle(ctx context.Context) (*CycleResult, error) {
	if !t.cycleMu.TryLock() {
		return nil, fmt.Errorf("training cycle already in progress")
	}
	defer t.cycleMu.Unlock()

	ctx, span := t.tracer.Start(ctx, "trainer.cycle")
	defer span.End()

	result := &CycleResult{StartedAt: time.Now()}

	analysis := t.analyze(ctx)
	result.Analysis = analysis

	actions := t.generateActions(ctx, analysis)
	result.Generated = len(actions)
	span.SetAttributes(attribute.Int("actions.generated", len(actions)))

	var valid []domain.AdaptationAction
	for _, a := range actions {
		if err := t.validateAction(a); err != nil {
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s: %v", a.Kind, err))
			t.logger.Info("adaptation rejected", "kind", a.Kind, "reason", err)
			continue
		}
		valid = append(valid, a)
	}

	if len(valid) > 0 {
		t.pushRollbackPoint()
		rolledBack, applied := t.execute(valid)
		result.Applied = applied
		result.RolledBack = rolledBack
	}

	result.Outcome = t.monitor(ctx)
	result.Duration = time.Since(result.StartedAt)

	t.mu.Lock()
	t.lastCycle = result.StartedAt
	t.mu.Unlock()

	t.logger.Info("training cycle complete",
		"generated", result.Generated, "applied", len(result.Applied),
		"rejected", len(result.Rejected), "rolled_back", result.RolledBack)
	return result, nil
}

// analyze collects the objective picture and component summaries the action
// generator works from.
func (t *Trainer) analyze(ctx context.Context) map[string]any {
	_, span := t.tracer.Start(ctx, "trainer.analyze")
	defer span.End()

	// Refresh the behavioral and fairness picture before reading the
	// summaries.
	t.Bias.DetectAllBiasTypes()
	t.Autocorr.AnalyzePatterns()
	t.Autocorr.MapAutocorrelations()
	t.Pattern.Analyze()

	t.mu.Lock()
	objectives := make(map[string]any, len(t.objectives))
	for name, o := range t.objectives {
		entry := map[string]any{
			"current":          o.Current,
			"target":           o.TargetValue,
			"within_tolerance": o.WithinTolerance(),
			"priority":         o.Priority(),
		}
		// Short-horizon direction: mean of the last 3 samples against the 3
		// before them.
		if n := len(o.History); n >= 6 {
			entry["trend"] = stats.Mean(o.History[n-3:]) - stats.Mean(o.History[n-6:n-3])
		}
		objectives[name] = entry
	}
	t.mu.Unlock()

	return map[string]any{
		"objectives":  objectives,
		"bias":        t.Bias.Summary(time.Hour),
		"patterns":    t.Pattern.Summary(),
		"behavior":    t.Autocorr.PatternSummary(),
		"performance": t.Perf.Summary(),
	}
}

// generateActions proposes adaptations for every objective outside tolerance
// and for detected diversity problems.
func (t *Trainer) generateActions(ctx context.Context, analysis map[string]any) []domain.AdaptationAction {
	_, span := t.tracer.Start(ctx, "trainer.generate")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var actions []domain.AdaptationAction

	if o := t.objectives["bias_minimization"]; o != nil && !o.WithinTolerance() {
		current := t.paramFloat("bias_penalty_weight")
		proposed := current * 1.2
		if proposed > maxBiasPenaltyWeight {
			proposed = maxBiasPenaltyWeight
		}
		impact := math.Min(maxActionImpact, o.Deviation()*2)
		actions = append(actions, domain.AdaptationAction{
			ID:              uuid.NewString(),
			Kind:            domain.ActionBiasMitigation,
			TargetComponent: "generation",
			Parameters:      map[string]any{"bias_penalty_weight": proposed},
			Priority:        0.9,
			ExpectedImpact:  impact,
			Rationale:       fmt.Sprintf("bias score %.3f exceeds target %.3f", o.Current, o.TargetValue),
			Timestamp:       now,
		})
	}

	if o := t.objectives["response_quality"]; o != nil && !o.WithinTolerance() && o.Current < o.TargetValue {
		proposed := t.paramFloat("quality_weight") + t.cfg.LearningRate*10
		if proposed > maxQualityWeight {
			proposed = maxQualityWeight
		}
		actions = append(actions, domain.AdaptationAction{
			ID:              uuid.NewString(),
			Kind:            domain.ActionQualityEnhancement,
			TargetComponent: "generation",
			Parameters:      map[string]any{"quality_weight": proposed},
			Priority:        math.Min(1, o.Priority()),
			ExpectedImpact:  math.Min(maxActionImpact, o.Deviation()),
			Rationale:       fmt.Sprintf("quality %.3f below target %.3f", o.Current, o.TargetValue),
			Timestamp:       now,
		})
	}

	if o := t.objectives["response_time"]; o != nil && !o.WithinTolerance() && o.Current > o.TargetValue {
		tokens := math.Max(minMaxTokens, t.paramFloat("max_tokens")*0.8)
		temp := math.Max(minTemperature, t.paramFloat("temperature")*0.9)
		actions = append(actions, domain.AdaptationAction{
			ID:              uuid.NewString(),
			Kind:            domain.ActionSpeedOptimization,
			TargetComponent: "generation",
			Parameters:      map[string]any{"max_tokens": tokens, "temperature": temp},
			Priority:        0.7,
			ExpectedImpact:  0.4,
			Rationale:       fmt.Sprintf("response time %.2fs over target %.2fs", o.Current, o.TargetValue),
			Timestamp:       now,
		})
	}

	if behavior, ok := analysis["behavior"].(map[string]any); ok {
		if counts, ok := behavior["counts_by_kind"].(map[string]int); ok && counts[string(domain.PatternSemanticRepetition)] > 0 {
			temp := math.Min(maxTemperature, t.paramFloat("temperature")+0.1)
			actions = append(actions, domain.AdaptationAction{
				ID:              uuid.NewString(),
				Kind:            domain.ActionDiversityEnhancement,
				TargetComponent: "generation",
				Parameters:      map[string]any{"temperature": temp, "diversity_weight": t.paramFloat("diversity_weight") + 0.1},
				Priority:        0.6,
				ExpectedImpact:  0.3,
				Rationale:       "responses repeat themselves semantically",
				Timestamp:       now,
			})
		}
	}
	return actions
}

// validateAction enforces safety bounds, the strategy impact ceiling, and the
// conflict window against recently applied actions.
func (t *Trainer) validateAction(a domain.AdaptationAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateLocked(a)
}

func (t *Trainer) validateLocked(a domain.AdaptationAction) error {
	if a.ExpectedImpact > maxActionImpact {
		return &validationError{fmt.Sprintf("expected impact %.2f exceeds cap %.2f", a.ExpectedImpact, maxActionImpact)}
	}
	if ceiling := t.strategy.MaxImpact(); a.ExpectedImpact > ceiling {
		return &validationError{fmt.Sprintf("expected impact %.2f exceeds %s strategy ceiling %.2f", a.ExpectedImpact, t.strategy, ceiling)}
	}

	for name, raw := range a.Parameters {
		v, ok := toFloat(raw)
		if !ok {
			return &validationError{fmt.Sprintf("parameter %s is not numeric", name)}
		}
		switch name {
		case "bias_penalty_weight":
			if v > maxBiasPenaltyWeight {
				return &validationError{fmt.Sprintf("bias_penalty_weight %.2f above %.2f", v, maxBiasPenaltyWeight)}
			}
		case "max_tokens":
			if v < minMaxTokens {
				return &validationError{fmt.Sprintf("max_tokens %.0f below %.0f", v, minMaxTokens)}
			}
		case "temperature":
			if v < minTemperature || v > maxTemperature {
				return &validationError{fmt.Sprintf("temperature %.2f outside [%.2f, %.2f]", v, minTemperature, maxTemperature)}
			}
		case "quality_weight":
			if v > maxQualityWeight {
				return &validationError{fmt.Sprintf("quality_weight %.2f above %.2f", v, maxQualityWeight)}
			}
		}
	}

	window := time.Duration(t.cfg.ConflictWindowMinutes) * time.Minute
	cutoff := time.Now().Add(-window)
	for i := len(t.history) - 1; i >= 0; i-- {
		prev := &t.history[i]
		if prev.Timestamp.Before(cutoff) {
			break
		}
		for _, conflict := range a.Kind.ConflictsWith() {
			if prev.Kind == conflict {
				return &validationError{fmt.Sprintf("conflicts with %s applied at %s", prev.Kind, prev.Timestamp.Format(time.RFC3339))}
			}
		}
	}
	return nil
}

// pushRollbackPoint snapshots parameters and objective values before a batch.
func (t *Trainer) pushRollbackPoint() {
	t.mu.Lock()
	defer t.mu.Unlock()

	params := make(map[string]any, len(t.parameters))
	for k, v := range t.parameters {
		params[k] = v
	}
	metrics := make(map[string]float64, len(t.objectives))
	for name, o := range t.objectives {
		metrics[name] = o.Current
	}
	t.rollbacks = append(t.rollbacks, domain.RollbackPoint{
		Timestamp:   time.Now(),
		Adaptations: params,
		Metrics:     metrics,
	})
	if len(t.rollbacks) > t.cfg.RollbackDepth {
		t.rollbacks = t.rollbacks[len(t.rollbacks)-t.cfg.RollbackDepth:]
	}
}

// execute applies actions highest priority first. A failure on a
// high-priority action rolls the whole batch back and aborts.
func (t *Trainer) execute(actions []domain.AdaptationAction) (rolledBack bool, applied []domain.AdaptationAction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < len(actions); i++ {
		for j := i + 1; j < len(actions); j++ {
			if actions[j].Priority > actions[i].Priority {
				actions[i], actions[j] = actions[j], actions[i]
			}
		}
	}

	for _, a := range actions {
		if err := t.applyLocked(a); err != nil {
			t.logger.Error("adaptation failed", "kind", a.Kind, "error", err)
			if a.Priority > 0.8 {
				t.rollbackLocked()
				return true, applied
			}
			continue
		}
		applied = append(applied, a)
	}
	return false, applied
}

// applyLocked merges an action's parameters into the live set and records it.
// Caller holds the lock.
func (t *Trainer) applyLocked(a domain.AdaptationAction) error {
	for name, raw := range a.Parameters {
		v, ok := toFloat(raw)
		if !ok {
			return fmt.Errorf("parameter %s is not numeric", name)
		}
		t.parameters[name] = v
	}
	t.history = append(t.history, a)
	if len(t.history) > t.cfg.HistoryLimit {
		t.history = t.history[len(t.history)-t.cfg.HistoryLimit:]
	}
	return nil
}

// monitor re-reads the live metrics after a batch so the cycle result shows
// the post-adaptation picture.
func (t *Trainer) monitor(ctx context.Context) map[string]float64 {
	_, span := t.tracer.Start(ctx, "trainer.monitor")
	defer span.End()
	return t.currentMetrics()
}

// ManualAdapt validates and applies a caller-supplied action outside the
// automatic cycle. A rollback point is pushed first.
func (t *Trainer) ManualAdapt(a domain.AdaptationAction) (domain.AdaptationAction, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if a.TargetComponent == "" {
		a.TargetComponent = "generation"
	}

	if err := t.validateAction(a); err != nil {
		return domain.AdaptationAction{}, err
	}
	t.pushRollbackPoint()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.applyLocked(a); err != nil {
		return domain.AdaptationAction{}, err
	}
	t.logger.Info("manual adaptation applied", "kind", a.Kind, "id", a.ID)
	return a, nil
}

// Rollback restores the most recent rollback point, undoing the parameter
// changes applied since it was pushed.
func (t *Trainer) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked()
}

func (t *Trainer) rollbackLocked() error {
	if len(t.rollbacks) == 0 {
		return fmt.Errorf("no rollback points")
	}
	point := t.rollbacks[len(t.rollbacks)-1]
	t.rollbacks = t.rollbacks[:len(t.rollbacks)-1]
	t.parameters = make(map[string]any, len(point.Adaptations))
	for k, v := range point.Adaptations {
		t.parameters[k] = v
	}
	t.logger.Warn("rolled back to earlier parameters", "snapshot_time", point.Timestamp)
	return nil
}

// paramFloat reads a numeric parameter; missing or non-numeric reads as 0.
// Caller holds the lock.
func (t *Trainer) paramFloat(name string) float64 {
	v, _ := toFloat(t.parameters[name])
	return v
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
