// Package textscore holds the lexical heuristics the analyzers score
// responses with. The keyword lists and weights are deliberately the ad-hoc
// ones the system has always used; they are exposed as package variables so
// deployments can override them, but no attempt is made to re-derive them.
package textscore

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// StopWords are excluded from keyword-overlap relevance scoring.
var StopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {},
}

// Lexicons used across the scoring heuristics.
var (
	PositiveWords   = []string{"good", "great", "excellent", "wonderful", "amazing", "helpful", "useful"}
	NegativeWords   = []string{"bad", "terrible", "awful", "horrible", "useless", "unhelpful", "wrong"}
	TransitionWords = []string{
		"however", "therefore", "furthermore", "moreover", "additionally",
		"consequently", "meanwhile", "also", "next", "then", "finally",
		"in addition", "for example", "in contrast", "similarly",
	}
	StructureMarkers    = []string{"first", "second", "third", "1.", "2.", "3.", "•", "-"}
	DetailWords         = []string{"example", "for instance", "such as", "specifically", "detail", "explain"}
	SectionMarkers      = []string{"steps:", "process:", "method:", "approach:", "solution:"}
	QuestionWords       = []string{"what", "how", "why", "when", "where", "who", "which"}
	AnswerMarkers       = []string{"because", "due to", "the answer", "the reason", "you can", "here is", "this is"}
	HelpfulMarkers      = []string{"here is", "here are", "you can", "try this", "consider", "suggest", "recommend", "help you", "solution", "answer", "explain", "guide"}
	UnhelpfulMarkers    = []string{"sorry", "cannot", "unable", "don't know", "not sure", "unclear", "impossible", "can't help", "no information"}
	ActionWords         = []string{"click", "download", "install", "run", "execute", "follow", "use"}
	FormalMarkers       = []string{"furthermore", "however", "therefore", "consequently", "nevertheless"}
	InformalMarkers     = []string{"yeah", "okay", "sure", "cool", "awesome", "great"}
	ExampleWords        = []string{"example", "specifically", "detailed", "step"}
	HedgeWords          = []string{"sorry", "cannot", "unable", "unsure"}
	PolitenessWords     = []string{"please", "thank", "welcome"}
	HelpfulContentWords = []string{"help", "assist", "explain", "example", "solution"}
	UnhelpfulHedges     = []string{"sorry", "cannot", "unable", "don't know"}
)

// Words splits text into lowercase word tokens.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Keywords returns the stop-word-filtered word set of text.
func Keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range Words(text) {
		if _, stop := StopWords[w]; !stop {
			out[w] = struct{}{}
		}
	}
	return out
}

// SentenceCount counts terminal punctuation marks, treating each as one
// sentence boundary.
func SentenceCount(text string) int {
	return strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
}

// Sentences splits text on terminal punctuation, dropping empty fragments.
func Sentences(text string) []string {
	parts := regexp.MustCompile(`[.!?]+`).Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func countContained(lower string, markers []string) int {
	var n int
	for _, m := range markers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}
