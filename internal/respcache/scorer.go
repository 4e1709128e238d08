package respcache

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"

	"github.com/ekamanam/studysync/internal/models"
)

const (
	questionWeight = 0.7
	contextWeight  = 0.3

	// Runs shorter than this are dropped when they are stopwords. Longer ones
	// are always kept so question words like "what" still anchor a match.
	minTokenRunes = 4
)

var english = stopwords.MustGet("en")

// SimilarityScorer rates how well a cached query answers a new question.
// Scores are in [0, 1].
type SimilarityScorer interface {
	Score(question, context string, cached models.CachedQuery) float64
}

// JaccardScorer is a bag-of-words scorer: token-set Jaccard similarity of the
// questions weighted 0.7, plus that of the contexts weighted 0.3. When either
// side has no context the context part counts as a full match.
type JaccardScorer struct{}

func (JaccardScorer) Score(question, context string, cached models.CachedQuery) float64 {
	q := Jaccard(Tokens(question), Tokens(cached.Question))

	c := 1.0
	if strings.TrimSpace(context) != "" && strings.TrimSpace(cached.Context) != "" {
		c = Jaccard(Tokens(context), Tokens(cached.Context))
	}
	return questionWeight*q + contextWeight*c
}

// Tokens returns the lower-cased letter and digit runs of s minus short
// stopwords such as "is" and "the". Short terms like "dna" or "ph" stay. A
// text made only of short stopwords keeps all of its runs.
func Tokens(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minTokenRunes || !english.Contains(w) {
			set[w] = struct{}{}
		}
	}
	if len(set) == 0 {
		for _, w := range words {
			set[w] = struct{}{}
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
