package autocorr

import (
	"strings"

	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/textscore"
)

// responseMetrics extracts the per-response numeric series the mapper tracks.
// Keys are stable; they name the series in pattern signatures and lag
// correlations.
func responseMetrics(in *domain.Interaction) map[string]float64 {
	out := in.Output
	words := strings.Fields(out)
	sentences := textscore.SentenceCount(out)

	m := map[string]float64{
		"response_time":    in.ResponseTime,
		"char_count":       float64(len(out)),
		"word_count":       float64(len(words)),
		"sentence_count":   float64(sentences),
		"question_marks":   float64(strings.Count(out, "?")),
		"exclamations":     float64(strings.Count(out, "!")),
		"code_blocks":      float64(strings.Count(out, "```") / 2),
		"bullet_points":    float64(strings.Count(out, "\n-") + strings.Count(out, "\n•") + strings.Count(out, "\n*")),
		"complexity":       textscore.Complexity(out),
		"sentiment":        textscore.Sentiment(out),
		"input_length":     float64(len(in.Input)),
	}

	if len(words) > 0 {
		var totalLen float64
		for _, w := range words {
			totalLen += float64(len(w))
		}
		m["avg_word_length"] = totalLen / float64(len(words))
	} else {
		m["avg_word_length"] = 0
	}
	if sentences > 0 {
		m["avg_sentence_length"] = float64(len(words)) / float64(sentences)
	} else {
		m["avg_sentence_length"] = 0
	}
	if len(in.Input) > 0 {
		m["length_ratio"] = float64(len(out)) / float64(len(in.Input))
	} else {
		m["length_ratio"] = 0
	}
	if in.Satisfaction != nil {
		m["satisfaction"] = *in.Satisfaction
	}
	return m
}
