// Package tokenizer splits node text into lowercase index terms.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

type Tokenizer struct {
	StopWords map[string]bool
	minLength int
	maxLength int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		StopWords: defaultStopWords(),
		minLength: 2,
		maxLength: 50,
	}
}

// Tokenize expects text with markup entities already decoded, which both
// ingestion parsers guarantee. Any non letter/digit rune separates words, so
// "data-id" yields "data" and "id".
func (t *Tokenizer) Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if t.StopWords[word] {
			continue
		}

		n := len([]rune(word))
		if n < t.minLength || n > t.maxLength {
			continue
		}

		if !IsValidToken(word) {
			continue
		}

		tokens = append(tokens, word)
	}
	return tokens
}

// IsValidToken rejects purely numeric tokens and tokens dominated by digits.
func IsValidToken(word string) bool {
	alphaCount := 0
	digitCount := 0

	for _, r := range word {
		if unicode.IsLetter(r) {
			alphaCount++
		} else if unicode.IsDigit(r) {
			digitCount++
		}
	}
	if alphaCount == 0 {
		return false
	}
	return digitCount <= alphaCount
}

func defaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "the",
		"i", "me", "my", "we", "our", "you", "your", "he", "him", "his",
		"she", "her", "it", "its", "they", "them", "their",
		"of", "at", "by", "for", "with", "about", "into", "through",
		"to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
		"and", "or", "but", "if", "as", "than", "so", "nor",
		"is", "am", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did",
		"this", "that", "these", "those",
		"no", "not", "only", "then", "there", "too", "very",
	}

	stopWords := make(map[string]bool, len(words))
	for _, word := range words {
		stopWords[word] = true
	}
	return stopWords
}
