package domain

// BiasKind identifies the fairness dimension a BiasMetric measures.
type BiasKind string

const (
	BiasDemographicParity  BiasKind = "demographic_parity"
	BiasEqualizedOdds      BiasKind = "equalized_odds"
	BiasCalibration        BiasKind = "calibration"
	BiasIndividualFairness BiasKind = "individual_fairness"
	BiasIntersectional     BiasKind = "intersectional"
)

// PatternKind identifies the category of a detected behavioral pattern.
type PatternKind string

const (
	PatternMetricBehavioral   PatternKind = "metric_behavioral"
	PatternSemanticRepetition PatternKind = "semantic_repetition"
	PatternTemporalClustering PatternKind = "temporal_clustering"
	PatternQualityTrend       PatternKind = "quality_trend"
	PatternResponseStyle      PatternKind = "response_style"
	PatternTopicClustering    PatternKind = "topic_clustering"
	PatternTemporalBehavior   PatternKind = "temporal_behavior"
	PatternComplexity         PatternKind = "complexity_pattern"
)

// MetricKind identifies the operational metric a PerformanceMetric records.
type MetricKind string

const (
	MetricResponseTime  MetricKind = "response_time"
	MetricThroughput    MetricKind = "throughput"
	MetricResourceUsage MetricKind = "resource_usage"
	MetricErrorRate     MetricKind = "error_rate"
	MetricSatisfaction  MetricKind = "satisfaction"
	MetricQuality       MetricKind = "quality"
	MetricLatency       MetricKind = "latency"
	MetricAvailability  MetricKind = "availability"
)

// MetricKinds lists every MetricKind, in reporting order.
var MetricKinds = []MetricKind{
	MetricResponseTime,
	MetricThroughput,
	MetricResourceUsage,
	MetricErrorRate,
	MetricSatisfaction,
	MetricQuality,
	MetricLatency,
	MetricAvailability,
}

// LowerIsBetter reports whether smaller values of the metric indicate
// healthier behavior. Trend direction classification depends on it.
func (k MetricKind) LowerIsBetter() bool {
	switch k {
	case MetricResponseTime, MetricErrorRate, MetricLatency, MetricResourceUsage:
		return true
	}
	return false
}

// AlertLevel is the severity tier of an Alert.
type AlertLevel string

const (
	AlertInfo      AlertLevel = "info"
	AlertWarning   AlertLevel = "warning"
	AlertCritical  AlertLevel = "critical"
	AlertEmergency AlertLevel = "emergency"
)

// AlertLevels lists every AlertLevel from least to most severe.
var AlertLevels = []AlertLevel{AlertInfo, AlertWarning, AlertCritical, AlertEmergency}

// TrainingMode controls how adaptation cycles are triggered.
type TrainingMode string

const (
	// ModeContinuous fires whenever any objective with enough history is
	// outside its tolerance band.
	ModeContinuous TrainingMode = "continuous"
	// ModeBatch fires every fixed number of interactions.
	ModeBatch TrainingMode = "batch"
	// ModeTriggered fires on flagged bias or degraded quality.
	ModeTriggered TrainingMode = "triggered"
	// ModeManual never auto-fires; ManualAdapt is the only entry point.
	ModeManual TrainingMode = "manual"
)

// Strategy caps how large an adaptation's expected impact may be.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyModerate     Strategy = "moderate"
	StrategyAggressive   Strategy = "aggressive"
	StrategyCustom       Strategy = "custom"
)

// MaxImpact returns the expected-impact ceiling actions must stay under for
// this strategy. Custom imposes no ceiling.
func (s Strategy) MaxImpact() float64 {
	switch s {
	case StrategyConservative:
		return 0.2
	case StrategyModerate:
		return 0.5
	case StrategyAggressive:
		return 0.8
	}
	return 1.0
}

// ActionKind identifies what an AdaptationAction changes.
type ActionKind string

const (
	ActionBiasMitigation       ActionKind = "bias_mitigation"
	ActionQualityEnhancement   ActionKind = "quality_enhancement"
	ActionSpeedOptimization    ActionKind = "speed_optimization"
	ActionDiversityEnhancement ActionKind = "diversity_enhancement"
)

// ConflictsWith lists the action kinds that pull generation parameters in the
// opposite direction; executing both inside one conflict window is rejected.
func (k ActionKind) ConflictsWith() []ActionKind {
	switch k {
	case ActionBiasMitigation:
		return []ActionKind{ActionSpeedOptimization}
	case ActionSpeedOptimization:
		return []ActionKind{ActionQualityEnhancement, ActionBiasMitigation}
	case ActionQualityEnhancement:
		return []ActionKind{ActionSpeedOptimization}
	}
	return nil
}
