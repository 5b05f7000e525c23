package textprocessor

import (
	"github.com/kljensen/snowball"
)

type Stemmer struct {
	language string
}

func NewStemmer() *Stemmer {
	return &Stemmer{language: "english"}
}

// Stem falls back to the word itself when snowball rejects it.
func (s *Stemmer) Stem(word string) string {
	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
