package domain

import "time"

// TrainingObjective is a named target metric with tolerance, tracked over
// time. Objectives are long-lived and mutated on every metric refresh.
type TrainingObjective struct {
	Name        string    `json:"name"`
	MetricName  string    `json:"metric_name"`
	TargetValue float64   `json:"target_value"`
	Current     float64   `json:"current_value"`
	Weight      float64   `json:"weight"`
	Tolerance   float64   `json:"tolerance"`
	History     []float64 `json:"history"`
	LastUpdated time.Time `json:"last_updated"`
}

// Deviation is the absolute gap between current and target value.
func (o *TrainingObjective) Deviation() float64 {
	d := o.Current - o.TargetValue
	if d < 0 {
		return -d
	}
	return d
}

// WithinTolerance reports whether the objective is currently on target.
func (o *TrainingObjective) WithinTolerance() bool {
	return o.Deviation() <= o.Tolerance
}

// Priority weighs the deviation by the objective's importance.
func (o *TrainingObjective) Priority() float64 {
	return o.Weight * o.Deviation()
}

// AdaptationAction is a proposed, validated change to generation-time
// parameters. Immutable once recorded.
type AdaptationAction struct {
	ID              string         `json:"id"`
	Kind            ActionKind     `json:"kind"`
	TargetComponent string         `json:"target_component"`
	Parameters      map[string]any `json:"parameters"`
	Priority        float64        `json:"priority"`
	ExpectedImpact  float64        `json:"expected_impact"`
	Rationale       string         `json:"rationale"`
	Timestamp       time.Time      `json:"timestamp"`
}

// RollbackPoint snapshots the adaptation parameters and metrics immediately
// before an action batch, so a failed batch can be undone.
type RollbackPoint struct {
	Timestamp   time.Time          `json:"timestamp"`
	Adaptations map[string]any     `json:"adaptations"`
	Metrics     map[string]float64 `json:"metrics"`
}
