// Package pattern analyzes interaction history for higher-level behavioral
// patterns: quality trends, response style drift, topic clustering, temporal
// behavior and complexity problems. Analysis passes are throttled; the
// analyzer scores quality on every interaction but only re-clusters and
// re-trends on the configured interval.
package pattern

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/stats"
	"github.com/driftwatch/driftwatch/internal/textscore"
	"github.com/driftwatch/driftwatch/internal/vocab"
)

// Overall quality weights. They sum to 1 and are fixed; changing them would
// silently rescale every stored quality history.
const (
	weightReadability  = 0.15
	weightCoherence    = 0.25
	weightRelevance    = 0.25
	weightCompleteness = 0.20
	weightHelpfulness  = 0.15
)

// patternTTL prunes signatures not reconfirmed within a day.
const patternTTL = 24 * time.Hour

// Per-analysis sample counts. Retention holds twice the configured window;
// each detection pass reads only its own recent slice so old traffic cannot
// mask a fresh shift.
const (
	qualityTrendSamples = 50
	styleSamples        = 30
	clusterSamples      = 50
	temporalSamples     = 100
	complexitySamples   = 30
)

// Analyzer detects behavioral patterns over the interaction history. All
// methods are safe for concurrent use.
type Analyzer struct {
	cfg    config.PatternConfig
	logger *slog.Logger
	limit  *rate.Limiter

	mu           sync.Mutex
	interactions []domain.Interaction
	quality      []domain.QualityMetrics
	patterns     map[string]domain.PatternSignature
	vocabulary   *vocab.Table
}

// NewAnalyzer creates an Analyzer with the given configuration.
func NewAnalyzer(cfg config.PatternConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	interval := time.Duration(cfg.AnalysisIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return &Analyzer{
		cfg:        cfg,
		logger:     logger.With("component", "pattern_analyzer"),
		limit:      rate.NewLimiter(rate.Every(interval), 1),
		patterns:   make(map[string]domain.PatternSignature),
		vocabulary: vocab.New(0),
	}
}

// ScoreQuality computes the five quality dimensions and their weighted
// overall score for one exchange.
func ScoreQuality(input, output string, ts time.Time) domain.QualityMetrics {
	q := domain.QualityMetrics{
		Readability:  textscore.ReadingEase(output),
		Coherence:    textscore.Coherence(output),
		Relevance:    textscore.Relevance(input, output),
		Completeness: textscore.Completeness(input, output),
		Helpfulness:  textscore.Helpfulness(output),
		Timestamp:    ts,
	}
	q.Overall = q.Readability*weightReadability +
		q.Coherence*weightCoherence +
		q.Relevance*weightRelevance +
		q.Completeness*weightCompleteness +
		q.Helpfulness*weightHelpfulness
	return q
}

// LogInteraction scores the interaction's quality, appends both to the
// bounded histories, and runs a full analysis pass when enough data exists
// and the throttle allows. It returns the quality metrics for the
// interaction.
func (a *Analyzer) LogInteraction(in domain.Interaction) domain.QualityMetrics {
	q := ScoreQuality(in.Input, in.Output, in.Timestamp)

	a.mu.Lock()
	limit := a.cfg.Window * 2
	a.interactions = append(a.interactions, in)
	if len(a.interactions) > limit {
		a.interactions = a.interactions[len(a.interactions)-limit:]
	}
	a.quality = append(a.quality, q)
	if len(a.quality) > limit {
		a.quality = a.quality[len(a.quality)-limit:]
	}
	ready := len(a.interactions) >= a.cfg.MinInteractions
	a.mu.Unlock()

	if ready && a.limit.Allow() {
		a.Analyze()
	}
	return q
}

// Analyze runs every detection pass over the current histories, merges the
// findings into the tracked pattern set, prunes stale signatures, and returns
// the patterns found in this pass.
func (a *Analyzer) Analyze() []domain.PatternSignature {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.interactions) < a.cfg.MinInteractions {
		return nil
	}

	var found []domain.PatternSignature
	if p, ok := a.qualityTrend(); ok {
		found = append(found, p)
	}
	found = append(found, a.responseStyle()...)
	if p, ok := a.topicClustering(); ok {
		found = append(found, p)
	}
	found = append(found, a.temporalBehavior()...)
	found = append(found, a.complexityPatterns()...)

	now := time.Now()
	for _, p := range found {
		key := string(p.Kind) + ":" + p.Metadata["feature"].(string)
		if existing, ok := a.patterns[key]; ok {
			existing.Strength = p.Strength
			existing.LastSeen = now
			existing.Occurrences++
			existing.Duration = now.Sub(existing.FirstDetected)
			existing.Metadata = p.Metadata
			a.patterns[key] = existing
		} else {
			p.ID = uuid.NewString()
			p.FirstDetected = now
			p.LastSeen = now
			p.Occurrences = 1
			a.patterns[key] = p
		}
	}

	for key, p := range a.patterns {
		if now.Sub(p.LastSeen) > patternTTL {
			delete(a.patterns, key)
		}
	}

	a.logger.Debug("pattern analysis pass", "found", len(found), "tracked", len(a.patterns))
	return found
}

// qualityTrend flags a sustained rise or fall in overall quality. Caller
// holds the lock.
func (a *Analyzer) qualityTrend() (domain.PatternSignature, bool) {
	quality := a.recentQuality(qualityTrendSamples)
	overall := make([]float64, len(quality))
	for i := range quality {
		overall[i] = quality[i].Overall
	}
	trend := stats.WeightedTrend(overall)
	if math.Abs(trend) <= a.cfg.QualityTrendThreshold {
		return domain.PatternSignature{}, false
	}
	direction := "improving"
	if trend < 0 {
		direction = "declining"
	}
	return sig(domain.PatternQualityTrend, math.Abs(trend), map[string]any{
		"feature":   "overall_quality",
		"trend":     trend,
		"direction": direction,
	}), true
}

// responseStyle flags unstable response lengths and strongly formal or
// informal phrasing. Caller holds the lock.
func (a *Analyzer) responseStyle() []domain.PatternSignature {
	ins := a.recentInteractions(styleSamples)
	lengths := make([]float64, len(ins))
	formality := make([]float64, len(ins))
	for i := range ins {
		lengths[i] = float64(len(ins[i].Output))
		formality[i] = textscore.Formality(ins[i].Output)
	}

	var out []domain.PatternSignature
	if mean := stats.Mean(lengths); mean > 0 {
		cov := stats.StdDev(lengths) / mean
		if cov > a.cfg.LengthVariationThreshold {
			out = append(out, sig(domain.PatternResponseStyle, min1(cov), map[string]any{
				"feature":              "length_variation",
				"coefficient_of_variation": cov,
			}))
		}
	}
	if meanFormality := stats.Mean(formality); math.Abs(meanFormality) > a.cfg.FormalityThreshold {
		style := "formal"
		if meanFormality < 0 {
			style = "informal"
		}
		out = append(out, sig(domain.PatternResponseStyle, min1(math.Abs(meanFormality)), map[string]any{
			"feature":   "formality",
			"style":     style,
			"formality": meanFormality,
		}))
	}
	return out
}

// topicClustering flags the window when one input topic cluster dominates.
// Caller holds the lock.
func (a *Analyzer) topicClustering() (domain.PatternSignature, bool) {
	ins := a.recentInteractions(clusterSamples)
	if len(ins) < a.cfg.MinInteractions {
		return domain.PatternSignature{}, false
	}

	a.vocabulary = vocab.New(0)
	vectors := make([]vocab.Vector, len(ins))
	for i := range ins {
		vectors[i] = a.vocabulary.Vectorize(ins[i].Input)
	}

	k := a.cfg.MaxClusters
	if k > len(vectors)/4 && len(vectors)/4 > 0 {
		k = len(vectors) / 4
	}
	if k < 2 {
		return domain.PatternSignature{}, false
	}
	clustering := vocab.KMeans(vectors, k)
	idx, size := clustering.Dominant()
	share := float64(size) / float64(len(vectors))
	if share <= a.cfg.ClusterConcentration {
		return domain.PatternSignature{}, false
	}
	return sig(domain.PatternTopicClustering, share, map[string]any{
		"feature":   "dominant_topic",
		"share":     share,
		"top_terms": strings.Join(clustering.TopTerms(a.vocabulary, idx, 5), ", "),
		"clusters":  k,
	}), true
}

// temporalBehavior flags response-time drift and hour-of-day correlation with
// quality. Caller holds the lock.
func (a *Analyzer) temporalBehavior() []domain.PatternSignature {
	ins := a.recentInteractions(temporalSamples)
	quality := a.recentQuality(temporalSamples)

	times := make([]float64, len(ins))
	hours := make([]float64, len(ins))
	for i := range ins {
		times[i] = ins[i].ResponseTime
		hours[i] = float64(ins[i].Timestamp.Hour())
	}

	var out []domain.PatternSignature
	if trend := stats.TrendStrength(times); math.Abs(trend) > a.cfg.QualityTrendThreshold {
		direction := "slowing"
		if trend < 0 {
			direction = "speeding_up"
		}
		out = append(out, sig(domain.PatternTemporalBehavior, math.Abs(trend), map[string]any{
			"feature":   "response_time_trend",
			"trend":     trend,
			"direction": direction,
		}))
	}

	if len(quality) == len(hours) {
		overall := make([]float64, len(quality))
		for i := range quality {
			overall[i] = quality[i].Overall
		}
		if r := stats.CorrCoef(hours, overall); math.Abs(r) > 0.5 {
			out = append(out, sig(domain.PatternTemporalBehavior, math.Abs(r), map[string]any{
				"feature":     "time_quality_correlation",
				"correlation": r,
			}))
		}
	}
	return out
}

// complexityPatterns flags windows whose responses read poorly or hang
// together badly. Caller holds the lock.
func (a *Analyzer) complexityPatterns() []domain.PatternSignature {
	quality := a.recentQuality(complexitySamples)
	readability := make([]float64, len(quality))
	coherence := make([]float64, len(quality))
	for i := range quality {
		readability[i] = quality[i].Readability
		coherence[i] = quality[i].Coherence
	}

	var out []domain.PatternSignature
	if mean := stats.Mean(readability); mean < a.cfg.LowReadability && len(readability) > 0 {
		out = append(out, sig(domain.PatternComplexity, 1-mean, map[string]any{
			"feature":          "low_readability",
			"mean_readability": mean,
		}))
	}
	if mean := stats.Mean(coherence); mean < a.cfg.LowCoherence && len(coherence) > 0 {
		out = append(out, sig(domain.PatternComplexity, 1-mean, map[string]any{
			"feature":        "low_coherence",
			"mean_coherence": mean,
		}))
	}
	return out
}

// GetRecommendations renders the tracked patterns into prioritized,
// deduplicated suggestions, strongest first, capped at ten.
func (a *Analyzer) GetRecommendations() []domain.Recommendation {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.Recommendation, 0, len(a.patterns))
	for _, p := range a.patterns {
		text := recommendationText(p)
		if text == "" {
			continue
		}
		confidence := min1(0.5 + float64(p.Occurrences)*0.1)
		out = append(out, domain.Recommendation{
			Text:              text,
			Priority:          p.Strength * confidence,
			Category:          p.Kind,
			SupportingPattern: p.ID,
			Confidence:        confidence,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > 10 {
		out = out[:10]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func recommendationText(p domain.PatternSignature) string {
	feature, _ := p.Metadata["feature"].(string)
	switch p.Kind {
	case domain.PatternQualityTrend:
		if dir, _ := p.Metadata["direction"].(string); dir == "declining" {
			return "Response quality is trending down; review recent generation parameter changes"
		}
		return "Response quality is trending up; current parameters are working"
	case domain.PatternResponseStyle:
		if feature == "length_variation" {
			return "Response lengths vary widely; consider normalizing target length"
		}
		if style, _ := p.Metadata["style"].(string); style == "informal" {
			return "Responses skew informal; adjust tone if the deployment expects formal output"
		}
		return "Responses skew formal; adjust tone if the deployment expects conversational output"
	case domain.PatternTopicClustering:
		terms, _ := p.Metadata["top_terms"].(string)
		return fmt.Sprintf("Traffic concentrates on one topic (%s); consider specialized handling for it", terms)
	case domain.PatternTemporalBehavior:
		if feature == "response_time_trend" {
			if dir, _ := p.Metadata["direction"].(string); dir == "slowing" {
				return "Response times are trending up; investigate generation latency"
			}
			return ""
		}
		return "Quality correlates with time of day; check load-dependent degradation"
	case domain.PatternComplexity:
		if feature == "low_readability" {
			return "Responses are hard to read; simplify sentence structure and vocabulary"
		}
		return "Responses lack coherent structure; add transitions and explicit structure"
	}
	return ""
}

// Summary reports the tracked pattern set and recent quality aggregates.
func (a *Analyzer) Summary() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	byKind := make(map[string]int)
	for _, p := range a.patterns {
		byKind[string(p.Kind)]++
	}

	summary := map[string]any{
		"tracked_patterns": len(a.patterns),
		"counts_by_kind":   byKind,
		"interactions":     len(a.interactions),
	}
	if quality := a.recentQuality(qualityTrendSamples); len(quality) > 0 {
		overall := make([]float64, len(quality))
		for i := range quality {
			overall[i] = quality[i].Overall
		}
		summary["mean_quality"] = stats.Mean(overall)
		summary["quality_trend"] = stats.WeightedTrend(overall)
		summary["latest_quality"] = quality[len(quality)-1]
	}
	return summary
}

// Patterns returns a copy of the tracked pattern signatures, strongest first.
func (a *Analyzer) Patterns() []domain.PatternSignature {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.PatternSignature, 0, len(a.patterns))
	for _, p := range a.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

// Snapshot is the analyzer's exportable state.
type Snapshot struct {
	Interactions []domain.Interaction               `json:"interactions"`
	Quality      []domain.QualityMetrics            `json:"quality"`
	Patterns     map[string]domain.PatternSignature `json:"patterns"`
}

// Export returns a copy of the analyzer state for persistence.
func (a *Analyzer) Export() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{
		Interactions: append([]domain.Interaction(nil), a.interactions...),
		Quality:      append([]domain.QualityMetrics(nil), a.quality...),
		Patterns:     make(map[string]domain.PatternSignature, len(a.patterns)),
	}
	for k, v := range a.patterns {
		s.Patterns[k] = v
	}
	return s
}

// Import replaces the analyzer state with a previously exported snapshot.
func (a *Analyzer) Import(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	limit := a.cfg.Window * 2
	a.interactions = append([]domain.Interaction(nil), s.Interactions...)
	if len(a.interactions) > limit {
		a.interactions = a.interactions[len(a.interactions)-limit:]
	}
	a.quality = append([]domain.QualityMetrics(nil), s.Quality...)
	if len(a.quality) > limit {
		a.quality = a.quality[len(a.quality)-limit:]
	}
	a.patterns = make(map[string]domain.PatternSignature, len(s.Patterns))
	for k, v := range s.Patterns {
		a.patterns[k] = v
	}
}

// Reset clears all tracked state.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interactions = nil
	a.quality = nil
	a.patterns = make(map[string]domain.PatternSignature)
	a.vocabulary = vocab.New(0)
	a.logger.Info("pattern analyzer reset")
}

// recentInteractions trims the interaction history to the last n entries.
// Caller holds the lock.
func (a *Analyzer) recentInteractions(n int) []domain.Interaction {
	if len(a.interactions) > n {
		return a.interactions[len(a.interactions)-n:]
	}
	return a.interactions
}

// recentQuality trims the quality history to the last n entries. Caller
// holds the lock.
func (a *Analyzer) recentQuality(n int) []domain.QualityMetrics {
	if len(a.quality) > n {
		return a.quality[len(a.quality)-n:]
	}
	return a.quality
}

func sig(kind domain.PatternKind, strength float64, meta map[string]any) domain.PatternSignature {
	return domain.PatternSignature{Kind: kind, Strength: strength, Frequency: 1, Metadata: meta}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
