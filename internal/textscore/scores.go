package textscore

import (
	"strings"

	"github.com/driftwatch/driftwatch/internal/stats"
)

// Complexity scores text in [0,1] from average word length, average sentence
// length and vocabulary diversity.
func Complexity(text string) float64 {
	if text == "" {
		return 0
	}
	words := strings.Fields(text)
	sentences := SentenceCount(text)
	if len(words) == 0 || sentences == 0 {
		return 0
	}

	var totalLen float64
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		totalLen += float64(len(w))
		unique[w] = struct{}{}
	}
	avgWordLen := totalLen / float64(len(words))
	avgSentenceLen := float64(len(words)) / float64(sentences)
	diversity := float64(len(unique)) / float64(len(words))

	return clamp01(avgWordLen/10)*0.3 + clamp01(avgSentenceLen/20)*0.4 + diversity*0.3
}

// Sentiment returns a lexicon-based polarity score in [-1,1]; 0 when the
// text carries no sentiment-bearing words.
func Sentiment(text string) float64 {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for _, p := range PositiveWords {
			if w == p {
				pos++
			}
		}
		for _, n := range NegativeWords {
			if w == n {
				neg++
			}
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// ReadingEase computes a Flesch-style reading-ease score normalized to
// [0,1]. Texts under 10 characters score the neutral 0.5.
func ReadingEase(text string) float64 {
	if len(strings.TrimSpace(text)) < 10 {
		return 0.5
	}
	words := strings.Fields(text)
	sentences := SentenceCount(text)
	if sentences == 0 {
		sentences = 1
	}
	if len(words) == 0 {
		return 0.5
	}

	var syllables float64
	for _, w := range words {
		syllables += float64(countSyllables(w))
	}

	flesch := 206.835 - 1.015*(float64(len(words))/float64(sentences)) - 84.6*(syllables/float64(len(words)))
	return clamp01(flesch / 100)
}

// countSyllables estimates syllables as runs of vowels, with a minimum of 1.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// GroupHelpfulness is the outcome heuristic used for fairness-gap scoring:
// length banding plus clarifying questions, detail words, hedging words and
// politeness words, each with its fixed weight, clamped to [0,1].
func GroupHelpfulness(response string) float64 {
	score := 0.0
	switch n := len(response); {
	case n >= 50 && n <= 500:
		score += 0.3
	case n > 500 && n <= 1000:
		score += 0.2
	case n > 1000:
		score += 0.1
	}

	lower := strings.ToLower(response)
	if strings.Contains(response, "?") {
		score += 0.2
	}
	if containsAny(lower, ExampleWords) {
		score += 0.2
	}
	if containsAny(lower, HedgeWords) {
		score -= 0.1
	}
	if containsAny(lower, PolitenessWords) {
		score += 0.1
	}
	return clamp01(score)
}

// Helpfulness estimates how helpful a response is when no explicit
// satisfaction rating exists: a neutral 0.5 baseline adjusted by helpful,
// unhelpful and actionable markers.
func Helpfulness(response string) float64 {
	lower := strings.ToLower(response)
	score := 0.5
	score += float64(countContained(lower, HelpfulMarkers)) * 0.1
	score -= float64(countContained(lower, UnhelpfulMarkers)) * 0.15

	actionBonus := float64(countContained(lower, ActionWords)) * 0.05
	if actionBonus > 0.2 {
		actionBonus = 0.2
	}
	return clamp01(score + actionBonus)
}

// Coherence scores structural flow: transition-word density (0.3), sentence
// length variety (0.2), structural markers (0.2) and a 0.3 base, capped at 1.
func Coherence(text string) float64 {
	if len(strings.TrimSpace(text)) < 10 {
		return 0.5
	}
	sentences := Sentences(text)
	if len(sentences) < 2 {
		// Single-sentence responses can still be coherent.
		return 0.7
	}

	lower := strings.ToLower(text)
	score := 0.0

	transitions := countContained(lower, TransitionWords)
	score += min1(float64(transitions)/float64(len(sentences)-1)) * 0.3

	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
	}
	meanLen := stats.Mean(lengths)
	if meanLen < 1 {
		meanLen = 1
	}
	score += min1(stats.Variance(lengths)/meanLen/2) * 0.2

	markers := countContained(lower, StructureMarkers)
	score += min1(float64(markers)/float64(len(sentences))) * 0.2

	return min1(score + 0.3)
}

// Relevance measures stop-word-filtered keyword overlap between input and
// output (0.8 weight) plus a question/answer structure bonus (0.2).
func Relevance(input, output string) float64 {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return 0.5
	}
	inputKeys := Keywords(input)
	if len(inputKeys) == 0 {
		// Very short inputs give nothing to overlap against.
		return 0.7
	}
	outputKeys := Keywords(output)

	var overlap int
	for k := range inputKeys {
		if _, ok := outputKeys[k]; ok {
			overlap++
		}
	}
	keywordScore := float64(overlap) / float64(len(inputKeys))

	bonus := 0.0
	if containsAny(strings.ToLower(input), QuestionWords) && containsAny(strings.ToLower(output), AnswerMarkers) {
		bonus = 0.2
	}
	return min1(keywordScore*0.8 + bonus + 0.2)
}

// Completeness scales expected response length by input complexity (0.5
// weight) and adds detail-word (0.3) and section-marker (0.2) bonuses.
func Completeness(input, output string) float64 {
	if strings.TrimSpace(output) == "" {
		return 0
	}
	outLen := float64(len(strings.TrimSpace(output)))
	inLen := len(strings.TrimSpace(input))

	var lengthScore float64
	switch {
	case inLen > 100:
		lengthScore = min1(outLen / 500)
	case inLen > 50:
		lengthScore = min1(outLen / 300)
	default:
		lengthScore = min1(outLen / 150)
	}

	lower := strings.ToLower(output)
	detailScore := min1(float64(countContained(lower, DetailWords)) * 0.2)
	sectionScore := min1(float64(countContained(lower, SectionMarkers)) * 0.3)

	return min1(lengthScore*0.5 + detailScore*0.3 + sectionScore*0.2)
}

// Formality is the net formal/informal marker balance normalized by response
// length in 50-word units. Positive means formal.
func Formality(response string) float64 {
	lower := strings.ToLower(response)
	formal := countContained(lower, FormalMarkers)
	informal := countContained(lower, InformalMarkers)
	units := float64(len(strings.Fields(response))) / 50
	if units < 1 {
		units = 1
	}
	return float64(formal-informal) / units
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
