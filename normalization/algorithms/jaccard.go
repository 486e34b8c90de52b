package algorithms

// JaccardIndex вычисляет индекс Жаккара для сравнения множеств токенов
// Индекс Жаккара = |A ∩ B| / |A ∪ B|
// Значение от 0.0 (нет общих элементов) до 1.0 (полное совпадение).
// Пустое объединение дает 0.
type JaccardIndex struct {
	tokenizer *TextNormalizer
}

// NewJaccardIndex создает новый вычислитель индекса Жаккара; tokenizer может быть nil
func NewJaccardIndex(tokenizer *TextNormalizer) *JaccardIndex {
	if tokenizer == nil {
		tokenizer = NewTextNormalizer(nil)
	}
	return &JaccardIndex{tokenizer: tokenizer}
}

// Similarity вычисляет индекс Жаккара для двух строк.
// Симметричен: Similarity(a, b) == Similarity(b, a).
func (j *JaccardIndex) Similarity(text1, text2 string) float64 {
	return j.SimilaritySets(j.tokenizer.TokenSet(text1), j.tokenizer.TokenSet(text2))
}

// SimilaritySets вычисляет индекс Жаккара для двух множеств напрямую
func (j *JaccardIndex) SimilaritySets(set1, set2 map[string]bool) float64 {
	return computeJaccard(set1, set2)
}

// computeJaccard вычисляет индекс Жаккара для двух множеств
func computeJaccard(set1, set2 map[string]bool) float64 {
	// Итерируем по меньшему множеству
	if len(set1) > len(set2) {
		set1, set2 = set2, set1
	}

	intersection := 0
	for elem := range set1 {
		if set2[elem] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
