// Package textprocessor turns node text and search queries into stemmed
// index terms.
package textprocessor

import (
	"github.com/deidaraiorek/xmlsql/internal/tokenizer"
)

type TextProcessor struct {
	tokenizer *tokenizer.Tokenizer
	stemmer   *Stemmer
}

func NewTextProcessor() *TextProcessor {
	return &TextProcessor{
		tokenizer: tokenizer.NewTokenizer(),
		stemmer:   NewStemmer(),
	}
}

func (tp *TextProcessor) Process(text string) []string {
	tokens := tp.tokenizer.Tokenize(text)

	stemmed := make([]string, len(tokens))
	for i, token := range tokens {
		stemmed[i] = tp.stemmer.Stem(token)
	}
	return stemmed
}

func (tp *TextProcessor) ProcessToFrequency(text string) map[string]int {
	freq := make(map[string]int)
	for _, token := range tp.Process(text) {
		freq[token]++
	}
	return freq
}

// ProcessQuery returns the distinct stemmed terms of a search query in the
// order they first appear.
func (tp *TextProcessor) ProcessQuery(query string) []string {
	seen := make(map[string]bool)
	terms := make([]string, 0)
	for _, term := range tp.Process(query) {
		if seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}
