package pageindex

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// Terms returns the lower-cased words of text that carry meaning: letter and
// digit runs of at least three runes that are not English stopwords.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 || english.Contains(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Keywords returns up to n of the most frequent terms of text, ties broken
// by first appearance.
func Keywords(text string, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, t := range Terms(text) {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}
