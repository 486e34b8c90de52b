package algorithms

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength токены длиной не больше этого значения отбрасываются как неинформативные
const MinTokenLength = 2

// Normalize приводит текст к канонической форме для сравнения:
// убирает диакритику, переводит в нижний регистр, заменяет всё, что не является
// символом слова ([a-z0-9_]), на пробел, схлопывает пробелы и обрезает края.
// Функция чистая и идемпотентная: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	stripped := removeDiacritics(text)

	var builder strings.Builder
	builder.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		r = unicode.ToLower(r)
		if !isWordRune(r) {
			pendingSpace = builder.Len() > 0
			continue
		}
		if pendingSpace {
			builder.WriteByte(' ')
			pendingSpace = false
		}
		builder.WriteRune(r)
	}

	return builder.String()
}

// removeDiacritics раскладывает текст в NFD и удаляет комбинируемые знаки (Mn)
func removeDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	result, _, err := transform.String(t, text)
	if err != nil {
		// transform.String падает только на невалидном UTF-8, отдаем исходник
		return text
	}
	return result
}

// isWordRune соответствует классу \w регулярных выражений (только ASCII)
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Tokenize нормализует текст и возвращает токены длиннее MinTokenLength в исходном порядке.
// Повторяющиеся токены сохраняются.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	words := strings.Split(normalized, " ")
	tokens := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) > MinTokenLength {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// TokenSet возвращает множество токенов текста
func TokenSet(text string) map[string]bool {
	tokens := Tokenize(text)
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[token] = true
	}
	return set
}

// TextNormalizer токенизатор с опциональным стеммингом.
// Без стеммера поведение совпадает с Tokenize.
type TextNormalizer struct {
	stemmer Stemmer
}

// NewTextNormalizer создает токенизатор; stemmer может быть nil
func NewTextNormalizer(stemmer Stemmer) *TextNormalizer {
	return &TextNormalizer{stemmer: stemmer}
}

// Normalize выполняет полную нормализацию текста
func (tn *TextNormalizer) Normalize(text string) string {
	return Normalize(text)
}

// Tokens возвращает токены текста (после стемминга, если он включен)
func (tn *TextNormalizer) Tokens(text string) []string {
	tokens := Tokenize(text)
	if tn == nil || tn.stemmer == nil || len(tokens) == 0 {
		return tokens
	}
	return tn.stemmer.StemTokens(tokens)
}

// TokenSet возвращает множество токенов текста
func (tn *TextNormalizer) TokenSet(text string) map[string]bool {
	tokens := tn.Tokens(text)
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[token] = true
	}
	return set
}
