// Package search turns free-text questions into FAQ filters and ranks the matches.
package search

import (
	"regexp"
	"unicode/utf8"
)

// MinTokenLength is the shortest keyword, in runes, kept by Tokenize.
const MinTokenLength = 2

var (
	// Sentence punctuation and whitespace, including the ideographic space.
	punctuation = regexp.MustCompile(`[、。！？?!\s　]+`)

	// Particles の を に は が で と から まで, as the set of their characters.
	// A run of any of these characters separates keywords.
	particles = regexp.MustCompile(`[のをにはがでとからま]+`)
)

// Tokenize splits a question into keywords. Fragments are cut at punctuation
// and at particle characters; anything shorter than MinTokenLength is dropped.
func Tokenize(query string) []string {
	var tokens []string
	for _, fragment := range punctuation.Split(query, -1) {
		if fragment == "" {
			continue
		}
		for _, word := range particles.Split(fragment, -1) {
			if utf8.RuneCountInString(word) >= MinTokenLength {
				tokens = append(tokens, word)
			}
		}
	}
	return tokens
}
