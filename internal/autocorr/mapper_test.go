package autocorr

import (
	"strings"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
)

func testConfig() config.AutocorrConfig {
	return config.Default().Autocorr
}

func interactionAt(ts time.Time, output string) domain.Interaction {
	return domain.Interaction{
		Timestamp:    ts,
		Input:        "tell me something",
		Output:       output,
		ResponseTime: 1.0,
	}
}

func TestSemanticRepetitionDetected(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Minute),
			"The quick brown fox jumps over the lazy dog every single time."))
	}

	found := m.AnalyzePatterns()
	var repetition *domain.PatternSignature
	for i := range found {
		if found[i].Kind == domain.PatternSemanticRepetition {
			repetition = &found[i]
		}
	}
	if repetition == nil {
		t.Fatal("expected a semantic repetition pattern for identical outputs")
	}
	if repetition.Strength <= 0.8 {
		t.Errorf("repetition strength = %v, want > 0.8", repetition.Strength)
	}
}

func TestVariedOutputsNoRepetition(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Now()
	outputs := []string{
		"Databases store structured records for retrieval.",
		"Mountains form through tectonic plate collisions.",
		"Sourdough needs a live starter culture to rise.",
		"Compilers translate source code into machine instructions.",
		"Coral reefs host a quarter of marine species.",
	}
	for i := 0; i < 30; i++ {
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Hour), outputs[i%len(outputs)]+" "+strings.Repeat("variant ", i%7)))
	}

	for _, p := range m.AnalyzePatterns() {
		if p.Kind == domain.PatternSemanticRepetition && p.Strength > 0.95 {
			t.Errorf("varied outputs produced a near-total repetition signal: %v", p.Strength)
		}
	}
}

func TestTemporalClusteringDetected(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		// All traffic inside one hour of day.
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Second), "some response text here."))
	}

	var found bool
	for _, p := range m.AnalyzePatterns() {
		if p.Kind == domain.PatternTemporalClustering {
			found = true
			if hour, ok := p.Metadata["peak_hour"].(int); !ok || hour != 14 {
				t.Errorf("peak_hour = %v, want 14", p.Metadata["peak_hour"])
			}
		}
	}
	if !found {
		t.Error("expected a temporal clustering pattern when all traffic shares one hour")
	}
}

func TestMapAutocorrelationsAlternatingSeries(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Now()
	short := "Brief."
	long := "This is a considerably longer response with many additional words inside it."
	for i := 0; i < 40; i++ {
		out := short
		if i%2 == 1 {
			out = long
		}
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Minute), out))
	}

	corrs := m.MapAutocorrelations()
	var lag1 *domain.LagCorrelation
	for i := range corrs {
		if corrs[i].Metric == "char_count" && corrs[i].Lag == 1 {
			lag1 = &corrs[i]
		}
	}
	if lag1 == nil {
		t.Fatal("expected a significant lag-1 correlation for alternating lengths")
	}
	if lag1.Correlation >= 0 {
		t.Errorf("lag-1 correlation = %v, want negative", lag1.Correlation)
	}
	if lag1.Strength != "strong" {
		t.Errorf("strength = %q, want strong", lag1.Strength)
	}
}

func TestHistoriesBounded(t *testing.T) {
	cfg := testConfig()
	cfg.WindowSize = 10
	m := NewMapper(cfg, nil)
	base := time.Now()
	for i := 0; i < 100; i++ {
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Second), "bounded history check."))
	}

	s := m.Export()
	if got := len(s.Timestamps); got != 20 {
		t.Errorf("timestamp history = %d, want 20 (twice the window)", got)
	}
	for name, values := range s.Series {
		if len(values) > 20 {
			t.Errorf("series %s holds %d values, want <= 20", name, len(values))
		}
	}
}

func TestRecurringPatternUpdatesOccurrences(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Now()
	for i := 0; i < 30; i++ {
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Minute),
			"Exactly the same output again and again and again."))
	}
	m.AnalyzePatterns()
	m.AnalyzePatterns()

	for _, p := range m.Patterns() {
		if p.Kind == domain.PatternSemanticRepetition {
			if p.Occurrences < 2 {
				t.Errorf("occurrences = %d, want >= 2 after two passes", p.Occurrences)
			}
			if p.ID == "" {
				t.Error("recurring pattern should keep its assigned ID")
			}
			return
		}
	}
	t.Fatal("semantic repetition pattern not tracked")
}

func TestExportImportRoundTrip(t *testing.T) {
	m := NewMapper(testConfig(), nil)
	base := time.Now()
	for i := 0; i < 30; i++ {
		m.LogInteraction(interactionAt(base.Add(time.Duration(i)*time.Minute), "same response every time here."))
	}
	m.AnalyzePatterns()

	s := m.Export()
	restored := NewMapper(testConfig(), nil)
	restored.Import(s)

	if got, want := len(restored.Export().Timestamps), len(s.Timestamps); got != want {
		t.Errorf("restored %d timestamps, want %d", got, want)
	}
	if got, want := len(restored.Patterns()), len(m.Patterns()); got != want {
		t.Errorf("restored %d patterns, want %d", got, want)
	}
}
