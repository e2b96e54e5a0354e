package pattern

import (
	"strings"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
)

func testConfig() config.PatternConfig {
	cfg := config.Default().Pattern
	// No throttling in tests.
	cfg.AnalysisIntervalSeconds = 0
	return cfg
}

func interaction(input, output string) domain.Interaction {
	return domain.Interaction{
		Timestamp:    time.Now(),
		Input:        input,
		Output:       output,
		ResponseTime: 1.0,
	}
}

func TestScoreQualityOrdersResponses(t *testing.T) {
	input := "how do I configure the database connection for my application"
	good := "You can configure the database connection by editing the settings file. " +
		"For example, set the host and port first. Then run the migration. " +
		"Here is the solution: follow each step and the connection will work."
	bad := "Sorry, cannot help. Don't know."

	qGood := ScoreQuality(input, good, time.Now())
	qBad := ScoreQuality(input, bad, time.Now())
	if qGood.Overall <= qBad.Overall {
		t.Errorf("good response overall %v should exceed bad response %v", qGood.Overall, qBad.Overall)
	}
	for name, v := range map[string]float64{
		"readability":  qGood.Readability,
		"coherence":    qGood.Coherence,
		"relevance":    qGood.Relevance,
		"completeness": qGood.Completeness,
		"helpfulness":  qGood.Helpfulness,
		"overall":      qGood.Overall,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}
}

func TestLengthVariationStyleDetected(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	long := strings.Repeat("This sentence pads the response to a substantial length. ", 10)
	for i := 0; i < 30; i++ {
		out := "Ok."
		if i%2 == 1 {
			out = long
		}
		a.LogInteraction(interaction("anything to report", out))
	}

	var found bool
	for _, p := range a.Analyze() {
		if p.Kind == domain.PatternResponseStyle && p.Metadata["feature"] == "length_variation" {
			found = true
		}
	}
	if !found {
		t.Error("expected a length variation pattern for alternating short and long outputs")
	}
}

func TestTopicClusteringDetected(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	for i := 0; i < 30; i++ {
		a.LogInteraction(interaction(
			"database connection pooling configuration tuning question",
			"Adjust the pool size and idle timeout in the configuration."))
	}

	var found bool
	for _, p := range a.Analyze() {
		if p.Kind == domain.PatternTopicClustering {
			found = true
			if share, _ := p.Metadata["share"].(float64); share <= 0.6 {
				t.Errorf("dominant share = %v, want > 0.6", share)
			}
		}
	}
	if !found {
		t.Error("expected a topic clustering pattern when every input shares a topic")
	}
}

func TestLowReadabilityDetected(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	dense := strings.Repeat("Organizational interdepartmental prioritization methodologies necessitate comprehensive multidimensional reevaluation procedures ", 3)
	for i := 0; i < 30; i++ {
		a.LogInteraction(interaction("summarize the quarterly plan", dense))
	}

	var found bool
	for _, p := range a.Analyze() {
		if p.Kind == domain.PatternComplexity && p.Metadata["feature"] == "low_readability" {
			found = true
		}
	}
	if !found {
		t.Error("expected a low readability pattern for dense polysyllabic outputs")
	}
}

func TestComplexityAnalysisUsesRecentSlice(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	dense := strings.Repeat("Organizational interdepartmental prioritization methodologies necessitate comprehensive multidimensional reevaluation procedures ", 3)
	for i := 0; i < 150; i++ {
		a.LogInteraction(interaction("summarize the quarterly plan", dense))
	}

	var flagged bool
	for _, p := range a.Analyze() {
		if p.Kind == domain.PatternComplexity && p.Metadata["feature"] == "low_readability" {
			flagged = true
		}
	}
	if !flagged {
		t.Fatal("expected a low readability pattern while the recent slice is dense")
	}

	simple := "The cat sat on the mat. It was a good day. We all had fun there."
	for i := 0; i < complexitySamples; i++ {
		a.LogInteraction(interaction("summarize the quarterly plan", simple))
	}
	for _, p := range a.Analyze() {
		if p.Kind == domain.PatternComplexity && p.Metadata["feature"] == "low_readability" {
			t.Error("older dense traffic should not mask a readable recent slice")
		}
	}
}

func TestRecommendationsRankedAndCapped(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	long := strings.Repeat("Padding sentence for length variation purposes right here. ", 12)
	dense := strings.Repeat("Interdepartmental organizational prioritization methodologies necessitate reevaluation ", 4)
	for i := 0; i < 40; i++ {
		out := dense
		if i%2 == 1 {
			out = long
		}
		a.LogInteraction(interaction("operational status question", out))
	}
	a.Analyze()

	recs := a.GetRecommendations()
	if len(recs) == 0 {
		t.Fatal("expected recommendations from detected patterns")
	}
	if len(recs) > 10 {
		t.Errorf("recommendations = %d, want <= 10", len(recs))
	}
	for i, r := range recs {
		if r.Rank != i+1 {
			t.Errorf("rank at index %d = %d, want %d", i, r.Rank, i+1)
		}
		if i > 0 && recs[i-1].Priority < r.Priority {
			t.Errorf("recommendations not sorted by priority at index %d", i)
		}
		if r.Text == "" {
			t.Error("recommendation text should not be empty")
		}
	}
}

func TestHistoriesBounded(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 10
	a := NewAnalyzer(cfg, nil)
	for i := 0; i < 100; i++ {
		a.LogInteraction(interaction("input", "a reasonable output sentence."))
	}

	s := a.Export()
	if len(s.Interactions) != 20 {
		t.Errorf("interaction history = %d, want 20 (twice the window)", len(s.Interactions))
	}
	if len(s.Quality) != 20 {
		t.Errorf("quality history = %d, want 20 (twice the window)", len(s.Quality))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	for i := 0; i < 30; i++ {
		a.LogInteraction(interaction("same topic each time", "the same answer each time."))
	}
	a.Analyze()

	s := a.Export()
	restored := NewAnalyzer(testConfig(), nil)
	restored.Import(s)

	if got, want := len(restored.Patterns()), len(a.Patterns()); got != want {
		t.Errorf("restored %d patterns, want %d", got, want)
	}
	if got, want := len(restored.Export().Quality), len(s.Quality); got != want {
		t.Errorf("restored %d quality records, want %d", got, want)
	}
}
