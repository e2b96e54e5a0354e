// Package config loads driftwatch configuration from an optional YAML file
// and DRIFTWATCH_-prefixed environment variables. Every heuristic threshold
// the analyzers use is a named field here with the historical default; the
// defaults are preserved operating values, not empirically derived ones.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Bias    BiasConfig    `koanf:"bias"`
	Autocorr AutocorrConfig `koanf:"autocorr"`
	Pattern PatternConfig `koanf:"pattern"`
	Perf    PerfConfig    `koanf:"perf"`
	Trainer TrainerConfig `koanf:"trainer"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	// Type selects the snapshot backend: sqlite, file or none.
	Type   string       `koanf:"type"`
	SQLite SQLiteConfig `koanf:"sqlite"`
	File   FileConfig   `koanf:"file"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type FileConfig struct {
	Path string `koanf:"path"`
}

type BiasConfig struct {
	// Window is the sliding window of interactions kept for fairness scoring.
	Window int `koanf:"window"`
	// MinInteractions gates parity detection; below it the detector reports
	// insufficient data instead of a score.
	MinInteractions int `koanf:"min_interactions"`
	// MinGroupSize excludes groups with fewer samples from parity scoring.
	MinGroupSize int `koanf:"min_group_size"`
	// Thresholds are the per-kind bias score cutoffs.
	ParityThreshold        float64 `koanf:"parity_threshold"`
	EqualizedOddsThreshold float64 `koanf:"equalized_odds_threshold"`
	CalibrationThreshold   float64 `koanf:"calibration_threshold"`
	// OutcomeMetric selects the parity outcome measure: response_length or
	// response_helpfulness.
	OutcomeMetric string `koanf:"outcome_metric"`
	// Attributes are the metadata keys checked for demographic parity.
	Attributes []string `koanf:"attributes"`
}

type AutocorrConfig struct {
	// WindowSize is the analysis window; histories hold twice this.
	WindowSize int `koanf:"window_size"`
	// MaxLag bounds the autocorrelation lag sweep.
	MaxLag int `koanf:"max_lag"`
	// TrendThreshold flags a metric pattern when |trend| exceeds it.
	TrendThreshold float64 `koanf:"trend_threshold"`
	// CycleThreshold flags a metric pattern when cycle strength exceeds it.
	CycleThreshold float64 `koanf:"cycle_threshold"`
	// AnomalyThreshold flags a metric pattern when the anomaly rate exceeds it.
	AnomalyThreshold float64 `koanf:"anomaly_threshold"`
	// RepetitionThreshold flags semantic repetition when mean consecutive
	// cosine similarity exceeds it.
	RepetitionThreshold float64 `koanf:"repetition_threshold"`
	// ClusterThreshold flags temporal clustering when one hour bucket holds
	// more than this share of traffic.
	ClusterThreshold float64 `koanf:"cluster_threshold"`
	// VocabLimit caps the semantic vocabulary size.
	VocabLimit int `koanf:"vocab_limit"`
}

type PatternConfig struct {
	// Window is the analysis window; histories hold twice this.
	Window int `koanf:"window"`
	// MinInteractions gates the periodic analysis pass.
	MinInteractions int `koanf:"min_interactions"`
	// AnalysisIntervalSeconds throttles analysis passes.
	AnalysisIntervalSeconds int `koanf:"analysis_interval_seconds"`
	// QualityTrendThreshold flags a quality trend when |trend| exceeds it.
	QualityTrendThreshold float64 `koanf:"quality_trend_threshold"`
	// LengthVariationThreshold flags style drift on length coefficient of
	// variation.
	LengthVariationThreshold float64 `koanf:"length_variation_threshold"`
	// FormalityThreshold flags a consistent style on |net formality|.
	FormalityThreshold float64 `koanf:"formality_threshold"`
	// ClusterConcentration flags topic clustering when the dominant cluster
	// holds more than this share of inputs.
	ClusterConcentration float64 `koanf:"cluster_concentration"`
	// MaxClusters bounds the topic clusterer.
	MaxClusters int `koanf:"max_clusters"`
	// LowReadability / LowCoherence flag complexity patterns below them.
	LowReadability float64 `koanf:"low_readability"`
	LowCoherence   float64 `koanf:"low_coherence"`
}

type PerfConfig struct {
	// MetricWindow caps each per-kind metric ring buffer.
	MetricWindow int `koanf:"metric_window"`
	// AlertWindow caps the alert ring buffer.
	AlertWindow int `koanf:"alert_window"`
	// ResourceWindow caps the resource sample history.
	ResourceWindow int `koanf:"resource_window"`
	// SampleIntervalSeconds is the resource sampler period.
	SampleIntervalSeconds int `koanf:"sample_interval_seconds"`
	// SummaryCacheTTLSeconds bounds summary recomputation.
	SummaryCacheTTLSeconds int `koanf:"summary_cache_ttl_seconds"`

	// Tiered alert thresholds. Response time and resource usage alert above
	// the threshold, satisfaction and throughput below it.
	ResponseTimeWarning    float64 `koanf:"response_time_warning"`
	ResponseTimeCritical   float64 `koanf:"response_time_critical"`
	ResponseTimeEmergency  float64 `koanf:"response_time_emergency"`
	ErrorRateWarning       float64 `koanf:"error_rate_warning"`
	ErrorRateCritical      float64 `koanf:"error_rate_critical"`
	ErrorRateEmergency     float64 `koanf:"error_rate_emergency"`
	ResourceWarning        float64 `koanf:"resource_warning"`
	ResourceCritical       float64 `koanf:"resource_critical"`
	ResourceEmergency      float64 `koanf:"resource_emergency"`
	SatisfactionWarning    float64 `koanf:"satisfaction_warning"`
	SatisfactionCritical   float64 `koanf:"satisfaction_critical"`
	SatisfactionEmergency  float64 `koanf:"satisfaction_emergency"`
	ThroughputWarning      float64 `koanf:"throughput_warning"`
	ThroughputCritical     float64 `koanf:"throughput_critical"`
	ThroughputEmergency    float64 `koanf:"throughput_emergency"`
}

type TrainerConfig struct {
	// Mode is one of continuous, batch, triggered, manual.
	Mode string `koanf:"mode"`
	// Strategy is one of conservative, moderate, aggressive, custom.
	Strategy string `koanf:"strategy"`
	// LearningRate scales quality-enhancement parameter adjustments.
	LearningRate float64 `koanf:"learning_rate"`
	// BatchInterval is the interaction count between batch-mode cycles.
	BatchInterval int `koanf:"batch_interval"`
	// QualityFloor triggers a cycle in triggered mode when windowed mean
	// quality drops below it.
	QualityFloor float64 `koanf:"quality_floor"`
	// BiasScanInterval is the interaction count between full bias scans.
	BiasScanInterval int `koanf:"bias_scan_interval"`
	// ConflictWindowMinutes rejects actions conflicting with one applied
	// within this window.
	ConflictWindowMinutes int `koanf:"conflict_window_minutes"`
	// RollbackDepth bounds the rollback stack.
	RollbackDepth int `koanf:"rollback_depth"`
	// HistoryLimit bounds the adaptation history.
	HistoryLimit int `koanf:"history_limit"`
}

// Load reads configuration from path (skipped when empty or missing) and the
// environment, applying defaults first.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	// Double underscore separates nesting levels, so multi-word keys keep
	// their single underscores: DRIFTWATCH_BIAS__PARITY_THRESHOLD maps to
	// bias.parity_threshold.
	if err := k.Load(env.Provider("DRIFTWATCH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "DRIFTWATCH_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every field at its historical
// default.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(err)
	}
	return cfg
}

func defaults() map[string]any {
	return map[string]any{
		"server.port": 8090,

		"storage.type":        "file",
		"storage.sqlite.path": "./data/driftwatch.db",
		"storage.file.path":   "./data/driftwatch_state.json",

		"bias.window":                   1000,
		"bias.min_interactions":         50,
		"bias.min_group_size":           10,
		"bias.parity_threshold":         0.1,
		"bias.equalized_odds_threshold": 0.1,
		"bias.calibration_threshold":    0.05,
		"bias.outcome_metric":           "response_helpfulness",
		"bias.attributes":               []string{"gender", "age_group", "ethnicity", "language"},

		"autocorr.window_size":          100,
		"autocorr.max_lag":              20,
		"autocorr.trend_threshold":      0.3,
		"autocorr.cycle_threshold":      0.5,
		"autocorr.anomaly_threshold":    0.1,
		"autocorr.repetition_threshold": 0.8,
		"autocorr.cluster_threshold":    0.4,
		"autocorr.vocab_limit":          1000,

		"pattern.window":                     200,
		"pattern.min_interactions":           20,
		"pattern.analysis_interval_seconds":  300,
		"pattern.quality_trend_threshold":    0.1,
		"pattern.length_variation_threshold": 0.5,
		"pattern.formality_threshold":        0.5,
		"pattern.cluster_concentration":      0.6,
		"pattern.max_clusters":               5,
		"pattern.low_readability":            0.4,
		"pattern.low_coherence":              0.5,

		"perf.metric_window":             1000,
		"perf.alert_window":              500,
		"perf.resource_window":           200,
		"perf.sample_interval_seconds":   5,
		"perf.summary_cache_ttl_seconds": 30,
		"perf.response_time_warning":     3.0,
		"perf.response_time_critical":    8.0,
		"perf.response_time_emergency":   15.0,
		"perf.error_rate_warning":        0.05,
		"perf.error_rate_critical":       0.15,
		"perf.error_rate_emergency":      0.30,
		"perf.resource_warning":          70.0,
		"perf.resource_critical":         85.0,
		"perf.resource_emergency":        95.0,
		"perf.satisfaction_warning":      0.7,
		"perf.satisfaction_critical":     0.5,
		"perf.satisfaction_emergency":    0.3,
		"perf.throughput_warning":        0.5,
		"perf.throughput_critical":       0.2,
		"perf.throughput_emergency":      0.1,

		"trainer.mode":                    "continuous",
		"trainer.strategy":                "moderate",
		"trainer.learning_rate":           0.01,
		"trainer.batch_interval":          100,
		"trainer.quality_floor":           0.6,
		"trainer.bias_scan_interval":      100,
		"trainer.conflict_window_minutes": 30,
		"trainer.rollback_depth":          10,
		"trainer.history_limit":           1000,
	}
}
