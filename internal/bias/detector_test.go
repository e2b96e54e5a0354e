package bias

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
)

const (
	helpfulOutput = "Here is the full walkthrough, for example you can open the settings page and follow the export steps. Does that cover your case?"
	curtOutput    = "No."
)

func testConfig() config.BiasConfig {
	return config.Default().Bias
}

func groupInteraction(group, output string) domain.Interaction {
	in := domain.Interaction{
		Timestamp:    time.Now(),
		Input:        gofakeit.Question(),
		Output:       output,
		ResponseTime: 1.0,
	}
	if group != "" {
		in.Metadata = map[string]any{"gender": group}
	}
	return in
}

func TestDemographicParityDetectsGap(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("b", curtOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if !m.Biased {
		t.Fatalf("expected a parity gap, got score %v", m.Score)
	}
	if m.Score <= m.Threshold {
		t.Errorf("score %v should exceed threshold %v", m.Score, m.Threshold)
	}
	if m.Confidence <= 0 {
		t.Errorf("confidence = %v, want positive", m.Confidence)
	}
	if m.Details["outcome_metric"] != OutcomeHelpfulness {
		t.Errorf("outcome_metric = %v, want %s", m.Details["outcome_metric"], OutcomeHelpfulness)
	}
}

func TestDemographicParityResponseLengthOutcome(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	long := gofakeit.Paragraph(2, 5, 12, " ")
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", long))
		d.LogInteraction(groupInteraction("b", curtOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeResponseLength)
	if !m.Biased {
		t.Fatalf("length gap not flagged, score %v", m.Score)
	}
	if m.Details["outcome_metric"] != OutcomeResponseLength {
		t.Errorf("outcome_metric = %v, want %s", m.Details["outcome_metric"], OutcomeResponseLength)
	}
}

func TestDemographicParityBalancedGroups(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("b", helpfulOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if m.Biased {
		t.Errorf("balanced groups flagged as biased, score %v", m.Score)
	}
	if m.Score != 0 {
		t.Errorf("score = %v, want 0 for identical outcomes", m.Score)
	}
}

func TestDemographicParityMissingAttributeGroupsAsUnknown(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("", curtOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if !m.Biased {
		t.Fatalf("gap against the unknown group not flagged, score %v", m.Score)
	}
	means, ok := m.Details["group_means"].(map[string]any)
	if !ok {
		t.Fatalf("group_means missing from details: %v", m.Details)
	}
	if _, ok := means["unknown"]; !ok {
		t.Errorf("interactions without the attribute should form an unknown group, got %v", means)
	}
}

func TestDemographicParityInsufficientData(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 10; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if m.Biased {
		t.Error("insufficient data should never flag bias")
	}
	if m.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 with insufficient data", m.Confidence)
	}
	if m.Details["reason"] != "insufficient_interactions" {
		t.Errorf("reason = %v, want insufficient_interactions", m.Details["reason"])
	}
}

func TestSmallGroupsExcluded(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 60; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
	}
	// Five outliers, below the minimum group size.
	for i := 0; i < 5; i++ {
		d.LogInteraction(groupInteraction("b", curtOutput))
	}

	m := d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if m.Biased {
		t.Error("a group under the minimum size should not drive a bias flag")
	}
	if m.Details["reason"] != "insufficient_groups" {
		t.Errorf("reason = %v, want insufficient_groups", m.Details["reason"])
	}
}

func TestSlidingWindowBounded(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 25
	d := NewDetector(cfg, nil)
	for i := 0; i < 100; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
	}
	if got := len(d.Export().Interactions); got != 25 {
		t.Errorf("window holds %d interactions, want 25", got)
	}
}

func TestCalibrationFlagsUnstableLengths(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	long := gofakeit.Paragraph(3, 6, 12, " ")
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", long))
		d.LogInteraction(groupInteraction("a", curtOutput))
	}

	m := d.DetectCalibrationBias()
	if !m.Biased {
		t.Errorf("wildly varying lengths not flagged, score %v", m.Score)
	}

	steady := NewDetector(testConfig(), nil)
	for i := 0; i < 60; i++ {
		steady.LogInteraction(groupInteraction("a", helpfulOutput))
	}
	if m := steady.DetectCalibrationBias(); m.Biased {
		t.Errorf("identical lengths flagged as calibration bias, score %v", m.Score)
	}
}

func TestDetectAllBiasTypes(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 60; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
	}

	metrics := d.DetectAllBiasTypes()
	// One per configured attribute plus calibration and equalized odds.
	want := len(testConfig().Attributes) + 2
	if len(metrics) != want {
		t.Fatalf("got %d metrics, want %d", len(metrics), want)
	}
	kinds := make(map[domain.BiasKind]bool)
	for _, m := range metrics {
		kinds[m.Kind] = true
	}
	for _, k := range []domain.BiasKind{domain.BiasDemographicParity, domain.BiasCalibration, domain.BiasEqualizedOdds} {
		if !kinds[k] {
			t.Errorf("missing bias kind %s", k)
		}
	}
}

func TestRecentFlagged(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	if d.RecentFlagged(10) {
		t.Error("fresh detector should report nothing flagged")
	}
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("b", curtOutput))
	}
	d.DetectDemographicParity("gender", OutcomeHelpfulness)
	if !d.RecentFlagged(10) {
		t.Error("flagged parity gap should be visible to RecentFlagged")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 60; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("b", curtOutput))
	}
	d.DetectDemographicParity("gender", OutcomeHelpfulness)

	snapshot := d.Export()
	restored := NewDetector(testConfig(), nil)
	restored.Import(snapshot)

	if got, want := len(restored.Export().Interactions), len(snapshot.Interactions); got != want {
		t.Errorf("restored %d interactions, want %d", got, want)
	}
	m := restored.DetectDemographicParity("gender", OutcomeHelpfulness)
	if !m.Biased {
		t.Error("restored detector should reproduce the parity gap")
	}
}

func TestSummaryCountsBiasedMeasurements(t *testing.T) {
	d := NewDetector(testConfig(), nil)
	for i := 0; i < 30; i++ {
		d.LogInteraction(groupInteraction("a", helpfulOutput))
		d.LogInteraction(groupInteraction("b", curtOutput))
	}
	d.DetectDemographicParity("gender", OutcomeHelpfulness)

	s := d.Summary(time.Hour)
	if s["measurements"].(int) != 1 {
		t.Errorf("measurements = %v, want 1", s["measurements"])
	}
	if s["biased_count"].(int) != 1 {
		t.Errorf("biased_count = %v, want 1", s["biased_count"])
	}
}
