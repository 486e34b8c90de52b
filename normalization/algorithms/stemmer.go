package algorithms

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kljensen/snowball"
)

// Stemmer interface defines methods for stemming words
type Stemmer interface {
	// Stem returns the stemmed version of a word
	Stem(word string) string

	// StemTokens returns stemmed versions of multiple words
	StemTokens(tokens []string) []string
}

// SupportedStemLanguages языки, которые понимает snowball
var SupportedStemLanguages = []string{
	"english", "spanish", "french", "russian", "swedish", "norwegian", "hungarian",
}

// IsStemLanguageSupported проверяет, поддерживается ли язык стемминга
func IsStemLanguageSupported(language string) bool {
	language = strings.ToLower(strings.TrimSpace(language))
	for _, supported := range SupportedStemLanguages {
		if language == supported {
			return true
		}
	}
	return false
}

// SnowballStemmer implements stemming using the Snowball algorithm with a word cache
type SnowballStemmer struct {
	language string
	cache    map[string]string
	mu       sync.RWMutex
}

// NewSnowballStemmer creates a stemmer for the given language
func NewSnowballStemmer(language string) (*SnowballStemmer, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if !IsStemLanguageSupported(language) {
		return nil, fmt.Errorf("unsupported stem language %q (supported: %s)",
			language, strings.Join(SupportedStemLanguages, ", "))
	}
	return &SnowballStemmer{
		language: language,
		cache:    make(map[string]string),
	}, nil
}

// Language returns the stemmer language
func (s *SnowballStemmer) Language() string {
	return s.language
}

// Stem returns the stemmed version of a word.
// Токены уже нормализованы, поэтому повторная нормализация не нужна.
func (s *SnowballStemmer) Stem(word string) string {
	if word == "" {
		return ""
	}

	s.mu.RLock()
	if cached, found := s.cache[word]; found {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil || stemmed == "" {
		// If stemming fails, return the word itself
		stemmed = word
	}

	s.mu.Lock()
	s.cache[word] = stemmed
	s.mu.Unlock()

	return stemmed
}

// StemTokens returns stemmed versions of multiple words
func (s *SnowballStemmer) StemTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return []string{}
	}

	stemmed := make([]string, len(tokens))
	for i, token := range tokens {
		stemmed[i] = s.Stem(token)
	}
	return stemmed
}

// CacheSize returns the number of cached items
func (s *SnowballStemmer) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
