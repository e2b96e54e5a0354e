// Package vocab implements an arena-style growable vocabulary and the term
// vectors built over it. The vocabulary starts from the first text it sees
// and extends as new terms appear; a vector never shrinks, and terms unknown
// at vectorization time simply weigh zero.
package vocab

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\b\w+\b`)

// Vector is a term-weight vector addressed by vocabulary index. Vectors
// created at different vocabulary sizes compare correctly: indexes past a
// vector's length weigh zero.
type Vector []float64

// Table maps tokens to stable indexes. The zero value is not usable; call
// New.
type Table struct {
	index  map[string]int
	tokens []string
	limit  int
}

// New creates a vocabulary table capped at limit distinct tokens; tokens
// beyond the cap are ignored rather than evicting existing entries, keeping
// indexes stable for the life of the table. limit <= 0 means unbounded.
func New(limit int) *Table {
	return &Table{index: make(map[string]int), limit: limit}
}

// Len returns the number of distinct tokens in the table.
func (t *Table) Len() int { return len(t.tokens) }

// Token returns the token at index i.
func (t *Table) Token(i int) string { return t.tokens[i] }

// Vectorize tokenizes text, extends the vocabulary with any new terms, and
// returns the normalized term-frequency vector over the current vocabulary.
func (t *Table) Vectorize(text string) Vector {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[int]float64, len(tokens))
	var total float64
	for _, tok := range tokens {
		idx, ok := t.index[tok]
		if !ok {
			if t.limit > 0 && len(t.tokens) >= t.limit {
				continue
			}
			idx = len(t.tokens)
			t.index[tok] = idx
			t.tokens = append(t.tokens, tok)
		}
		counts[idx]++
		total++
	}

	vec := make(Vector, len(t.tokens))
	if total == 0 {
		return vec
	}
	for idx, c := range counts {
		vec[idx] = c / total
	}
	return vec
}

// Cosine returns the cosine similarity of two vectors, treating indexes past
// either vector's length as zero. Returns 0 when either vector is empty.
func Cosine(a, b Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
