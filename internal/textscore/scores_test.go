package textscore

import "testing"

func TestSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		sign int
	}{
		{"positive", "this is a great and helpful answer", 1},
		{"negative", "that was a terrible and useless response", -1},
		{"neutral", "the sky has clouds today", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sentiment(tt.text)
			switch {
			case tt.sign > 0 && got <= 0:
				t.Errorf("Sentiment = %v, want positive", got)
			case tt.sign < 0 && got >= 0:
				t.Errorf("Sentiment = %v, want negative", got)
			case tt.sign == 0 && got != 0:
				t.Errorf("Sentiment = %v, want 0", got)
			}
		})
	}
}

func TestReadingEaseBounds(t *testing.T) {
	if got := ReadingEase("hi"); got != 0.5 {
		t.Errorf("short text ReadingEase = %v, want 0.5", got)
	}
	simple := "The cat sat. The dog ran. We all had fun."
	dense := "Notwithstanding multifaceted organizational considerations, interdepartmental prioritization methodologies necessitate comprehensive reevaluation."
	if ReadingEase(simple) <= ReadingEase(dense) {
		t.Errorf("simple text should read easier than dense text: %v vs %v",
			ReadingEase(simple), ReadingEase(dense))
	}
}

func TestGroupHelpfulness(t *testing.T) {
	helpful := "Here is a detailed example: follow each step carefully. Please let me know if anything is unclear?"
	hedged := "xx"
	if GroupHelpfulness(helpful) <= GroupHelpfulness(hedged) {
		t.Errorf("helpful response should outscore an empty one")
	}
	if got := GroupHelpfulness(helpful); got < 0 || got > 1 {
		t.Errorf("GroupHelpfulness out of range: %v", got)
	}
}

func TestHelpfulness(t *testing.T) {
	helpful := "Here is a solution you can try: run the installer and follow the guide."
	unhelpful := "Sorry, I cannot help, I don't know and I'm not sure."
	if Helpfulness(helpful) <= Helpfulness(unhelpful) {
		t.Errorf("helpful = %v should outscore unhelpful = %v",
			Helpfulness(helpful), Helpfulness(unhelpful))
	}
}

func TestRelevance(t *testing.T) {
	input := "how do I configure the database connection"
	onTopic := "You can configure the database connection by editing the settings file."
	offTopic := "Bananas ripen faster in warm climates."
	if Relevance(input, onTopic) <= Relevance(input, offTopic) {
		t.Errorf("on-topic = %v should outscore off-topic = %v",
			Relevance(input, onTopic), Relevance(input, offTopic))
	}
	if got := Relevance("", "anything"); got != 0.5 {
		t.Errorf("empty input Relevance = %v, want 0.5", got)
	}
}

func TestCoherenceSingleSentence(t *testing.T) {
	if got := Coherence("This is one complete sentence about nothing in particular."); got != 0.7 {
		t.Errorf("single sentence Coherence = %v, want 0.7", got)
	}
}

func TestFormality(t *testing.T) {
	formal := "Furthermore, the results are conclusive. Therefore, we proceed. Nevertheless, caution applies."
	informal := "yeah okay cool, sure, that's awesome"
	if Formality(formal) <= 0 {
		t.Errorf("formal text Formality = %v, want positive", Formality(formal))
	}
	if Formality(informal) >= 0 {
		t.Errorf("informal text Formality = %v, want negative", Formality(informal))
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"hello", 2},
		{"beautiful", 3},
		{"a", 1},
	}
	for _, tt := range tests {
		if got := countSyllables(tt.word); got != tt.want {
			t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}
