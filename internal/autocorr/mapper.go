// Package autocorr tracks recurring behavioral patterns in response metrics:
// sustained trends, cyclic behavior, anomaly bursts, semantic repetition,
// temporal clustering and lag autocorrelation of every tracked series.
package autocorr

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/stats"
	"github.com/driftwatch/driftwatch/internal/vocab"
)

// Mapper accumulates response metric series and detects patterns over them.
// All methods are safe for concurrent use.
type Mapper struct {
	cfg    config.AutocorrConfig
	logger *slog.Logger

	mu         sync.Mutex
	series     map[string][]float64
	timestamps []time.Time
	vectors    []vocab.Vector
	vocabulary *vocab.Table
	patterns   map[string]domain.PatternSignature
	lagCorrs   []domain.LagCorrelation
}

// minAnalysisSamples gates pattern analysis; shorter series are all noise.
const minAnalysisSamples = 10

// NewMapper creates a Mapper with the given configuration.
func NewMapper(cfg config.AutocorrConfig, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		cfg:        cfg,
		logger:     logger.With("component", "autocorr_mapper"),
		series:     make(map[string][]float64),
		vocabulary: vocab.New(cfg.VocabLimit),
		patterns:   make(map[string]domain.PatternSignature),
	}
}

// LogInteraction extracts the interaction's metric values and semantic vector
// and appends them to the tracked histories. Histories hold twice the
// analysis window; the oldest entries are evicted beyond that.
func (m *Mapper) LogInteraction(in domain.Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := m.cfg.WindowSize * 2
	for name, v := range responseMetrics(&in) {
		s := append(m.series[name], v)
		if len(s) > limit {
			s = s[len(s)-limit:]
		}
		m.series[name] = s
	}

	m.timestamps = append(m.timestamps, in.Timestamp)
	if len(m.timestamps) > limit {
		m.timestamps = m.timestamps[len(m.timestamps)-limit:]
	}

	m.vectors = append(m.vectors, m.vocabulary.Vectorize(in.Output))
	if len(m.vectors) > limit {
		m.vectors = m.vectors[len(m.vectors)-limit:]
	}
}

// AnalyzePatterns runs every detection pass over the current histories and
// returns the patterns found in this pass. Found patterns are also merged
// into the persistent signature set, updating occurrence counts and lifespan
// for recurring ones.
func (m *Mapper) AnalyzePatterns() []domain.PatternSignature {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.timestamps) < minAnalysisSamples {
		return nil
	}

	var found []domain.PatternSignature
	found = append(found, m.metricPatterns()...)
	if p, ok := m.semanticRepetition(); ok {
		found = append(found, p)
	}
	if p, ok := m.temporalClustering(); ok {
		found = append(found, p)
	}

	now := time.Now()
	for _, p := range found {
		key := string(p.Kind) + ":" + p.Metadata["series"].(string)
		if existing, ok := m.patterns[key]; ok {
			existing.Strength = p.Strength
			existing.LastSeen = now
			existing.Occurrences++
			existing.Duration = now.Sub(existing.FirstDetected)
			existing.Metadata = p.Metadata
			m.patterns[key] = existing
		} else {
			p.ID = uuid.NewString()
			p.FirstDetected = now
			p.LastSeen = now
			p.Occurrences = 1
			m.patterns[key] = p
		}
	}
	if len(found) > 0 {
		m.logger.Debug("pattern analysis complete", "found", len(found), "tracked", len(m.patterns))
	}
	return found
}

// metricPatterns scans each metric series inside the analysis window for
// trends, cycles and anomaly bursts. Caller holds the lock.
func (m *Mapper) metricPatterns() []domain.PatternSignature {
	var out []domain.PatternSignature
	for _, name := range m.seriesNames() {
		values := m.window(m.series[name])
		if len(values) < minAnalysisSamples {
			continue
		}

		trend := stats.TrendStrength(values)
		if math.Abs(trend) > m.cfg.TrendThreshold {
			out = append(out, signature(domain.PatternMetricBehavioral, math.Abs(trend), map[string]any{
				"series":  name,
				"feature": "trend",
				"trend":   trend,
			}))
		}

		cycle := stats.DetectCycles(values)
		if cycle.Strength > m.cfg.CycleThreshold {
			out = append(out, signature(domain.PatternMetricBehavioral, cycle.Strength, map[string]any{
				"series":  name,
				"feature": "cycle",
				"period":  cycle.Period,
			}))
		}

		anomalyRate := stats.AnomalyRate(values)
		if anomalyRate > m.cfg.AnomalyThreshold {
			out = append(out, signature(domain.PatternMetricBehavioral, anomalyRate, map[string]any{
				"series":       name,
				"feature":      "anomaly",
				"anomaly_rate": anomalyRate,
			}))
		}
	}
	return out
}

// semanticRepetition flags the window when consecutive responses stay too
// similar. Caller holds the lock.
func (m *Mapper) semanticRepetition() (domain.PatternSignature, bool) {
	vectors := m.vectors
	if len(vectors) > m.cfg.WindowSize {
		vectors = vectors[len(vectors)-m.cfg.WindowSize:]
	}
	if len(vectors) < minAnalysisSamples {
		return domain.PatternSignature{}, false
	}

	var sum float64
	for i := 1; i < len(vectors); i++ {
		sum += vocab.Cosine(vectors[i-1], vectors[i])
	}
	mean := sum / float64(len(vectors)-1)
	if mean <= m.cfg.RepetitionThreshold {
		return domain.PatternSignature{}, false
	}
	return signature(domain.PatternSemanticRepetition, mean, map[string]any{
		"series":          "semantic",
		"mean_similarity": mean,
	}), true
}

// temporalClustering flags the window when one hour of day carries an outsize
// share of traffic. Caller holds the lock.
func (m *Mapper) temporalClustering() (domain.PatternSignature, bool) {
	ts := m.timestamps
	if len(ts) > m.cfg.WindowSize {
		ts = ts[len(ts)-m.cfg.WindowSize:]
	}
	if len(ts) < minAnalysisSamples {
		return domain.PatternSignature{}, false
	}

	var hours [24]int
	for _, t := range ts {
		hours[t.Hour()]++
	}
	peakHour, peak := 0, 0
	for h, n := range hours {
		if n > peak {
			peakHour, peak = h, n
		}
	}
	share := float64(peak) / float64(len(ts))
	if share <= m.cfg.ClusterThreshold {
		return domain.PatternSignature{}, false
	}
	return signature(domain.PatternTemporalClustering, share, map[string]any{
		"series":    "temporal",
		"peak_hour": peakHour,
		"share":     share,
	}), true
}

// MapAutocorrelations computes lag autocorrelations for every tracked series
// up to the configured lag, keeping only correlations that clear the
// large-sample significance bound 1.96/sqrt(n−k). Results replace the stored
// set and are returned sorted by series then lag.
func (m *Mapper) MapAutocorrelations() []domain.LagCorrelation {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var out []domain.LagCorrelation
	for _, name := range m.seriesNames() {
		values := m.window(m.series[name])
		n := len(values)
		if n < minAnalysisSamples {
			continue
		}
		for lag := 1; lag <= m.cfg.MaxLag && lag < n; lag++ {
			corr, ok := stats.Autocorrelation(values, lag)
			if !ok {
				continue
			}
			bound := 1.96 / math.Sqrt(float64(n-lag))
			if math.Abs(corr) <= bound {
				continue
			}
			out = append(out, domain.LagCorrelation{
				Metric:         name,
				Lag:            lag,
				Correlation:    corr,
				Significance:   bound,
				Strength:       correlationStrength(corr),
				Interpretation: interpretCorrelation(name, lag, corr),
				Timestamp:      now,
			})
		}
	}
	m.lagCorrs = out
	return out
}

func correlationStrength(corr float64) string {
	switch abs := math.Abs(corr); {
	case abs < 0.2:
		return "negligible"
	case abs < 0.4:
		return "weak"
	case abs < 0.7:
		return "moderate"
	default:
		return "strong"
	}
}

func interpretCorrelation(metric string, lag int, corr float64) string {
	direction := "echoes"
	if corr < 0 {
		direction = "inverts"
	}
	return fmt.Sprintf("%s %s its value from %d interactions earlier (r=%.2f)", metric, direction, lag, corr)
}

// PatternSummary reports the tracked pattern set grouped by kind, plus the
// strongest current signature.
func (m *Mapper) PatternSummary() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[string]int)
	var strongest *domain.PatternSignature
	for key := range m.patterns {
		p := m.patterns[key]
		byKind[string(p.Kind)]++
		if strongest == nil || p.Strength > strongest.Strength {
			strongest = &p
		}
	}

	summary := map[string]any{
		"tracked_patterns":    len(m.patterns),
		"counts_by_kind":      byKind,
		"tracked_series":      len(m.series),
		"samples":             len(m.timestamps),
		"lag_correlations":    len(m.lagCorrs),
		"vocabulary_size":     m.vocabulary.Len(),
	}
	if strongest != nil {
		summary["strongest_pattern"] = *strongest
	}
	return summary
}

// Patterns returns a copy of the tracked pattern signatures, strongest first.
func (m *Mapper) Patterns() []domain.PatternSignature {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PatternSignature, 0, len(m.patterns))
	for key := range m.patterns {
		out = append(out, m.patterns[key])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Strength > out[b].Strength })
	return out
}

// Snapshot is the mapper's exportable state. Vectors are rebuilt from scratch
// after import, so only scalar series and patterns persist.
type Snapshot struct {
	Series     map[string][]float64               `json:"series"`
	Timestamps []time.Time                        `json:"timestamps"`
	Patterns   map[string]domain.PatternSignature `json:"patterns"`
	LagCorrs   []domain.LagCorrelation            `json:"lag_correlations"`
}

// Export returns a copy of the mapper state for persistence.
func (m *Mapper) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Series:     make(map[string][]float64, len(m.series)),
		Timestamps: make([]time.Time, len(m.timestamps)),
		Patterns:   make(map[string]domain.PatternSignature, len(m.patterns)),
		LagCorrs:   make([]domain.LagCorrelation, len(m.lagCorrs)),
	}
	for name, values := range m.series {
		cp := make([]float64, len(values))
		copy(cp, values)
		s.Series[name] = cp
	}
	copy(s.Timestamps, m.timestamps)
	for k, v := range m.patterns {
		s.Patterns[k] = v
	}
	copy(s.LagCorrs, m.lagCorrs)
	return s
}

// Import replaces the mapper state with a previously exported snapshot. The
// semantic vector history restarts empty.
func (m *Mapper) Import(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := m.cfg.WindowSize * 2
	m.series = make(map[string][]float64, len(s.Series))
	for name, values := range s.Series {
		if len(values) > limit {
			values = values[len(values)-limit:]
		}
		cp := make([]float64, len(values))
		copy(cp, values)
		m.series[name] = cp
	}
	m.timestamps = append([]time.Time(nil), s.Timestamps...)
	if len(m.timestamps) > limit {
		m.timestamps = m.timestamps[len(m.timestamps)-limit:]
	}
	m.patterns = make(map[string]domain.PatternSignature, len(s.Patterns))
	for k, v := range s.Patterns {
		m.patterns[k] = v
	}
	m.lagCorrs = append([]domain.LagCorrelation(nil), s.LagCorrs...)
	m.vectors = nil
	m.vocabulary = vocab.New(m.cfg.VocabLimit)
}

// Reset clears all tracked state including the vocabulary.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = make(map[string][]float64)
	m.timestamps = nil
	m.vectors = nil
	m.vocabulary = vocab.New(m.cfg.VocabLimit)
	m.patterns = make(map[string]domain.PatternSignature)
	m.lagCorrs = nil
	m.logger.Info("autocorrelation mapper reset")
}

// window trims a series to the analysis window. Caller holds the lock.
func (m *Mapper) window(values []float64) []float64 {
	if len(values) > m.cfg.WindowSize {
		return values[len(values)-m.cfg.WindowSize:]
	}
	return values
}

// seriesNames returns tracked series names sorted for deterministic output.
// Caller holds the lock.
func (m *Mapper) seriesNames() []string {
	names := make([]string, 0, len(m.series))
	for name := range m.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func signature(kind domain.PatternKind, strength float64, meta map[string]any) domain.PatternSignature {
	return domain.PatternSignature{Kind: kind, Strength: strength, Frequency: 1, Metadata: meta}
}
