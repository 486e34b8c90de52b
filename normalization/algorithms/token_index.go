package algorithms

// TokenIndex инвертированный индекс: токен -> позиции строк, в описании которых он встречается.
// Строится один раз и дальше только читается, поэтому безопасен для конкурентного чтения.
type TokenIndex struct {
	// Индекс: токен -> возрастающий список позиций без повторов
	postings map[string][]int

	// Количество проиндексированных строк
	rows int
}

// BuildTokenIndex строит индекс по описаниям; позиция строки = индекс в срезе texts.
// tokenizer может быть nil (тогда используется Tokenize без стемминга).
// Детерминирован и линеен по суммарному числу токенов.
func BuildTokenIndex(texts []string, tokenizer *TextNormalizer) *TokenIndex {
	ti := &TokenIndex{
		postings: make(map[string][]int),
		rows:     len(texts),
	}

	for position, text := range texts {
		for _, token := range tokenizer.Tokens(text) {
			list := ti.postings[token]
			// Позиции добавляются по возрастанию, повтор токена в строке виден по хвосту
			if n := len(list); n > 0 && list[n-1] == position {
				continue
			}
			ti.postings[token] = append(list, position)
		}
	}

	return ti
}

// Lookup возвращает позиции строк, содержащих токен. Срез нельзя изменять.
func (ti *TokenIndex) Lookup(token string) []int {
	return ti.postings[token]
}

// Rows возвращает количество проиндексированных строк
func (ti *TokenIndex) Rows() int {
	return ti.rows
}

// GetStats возвращает статистику индекса
func (ti *TokenIndex) GetStats() TokenIndexStats {
	totalPostings := 0
	for _, positions := range ti.postings {
		totalPostings += len(positions)
	}

	avgRowsPerToken := 0.0
	if len(ti.postings) > 0 {
		avgRowsPerToken = float64(totalPostings) / float64(len(ti.postings))
	}

	return TokenIndexStats{
		TotalRows:       ti.rows,
		TotalTokens:     len(ti.postings),
		TotalPostings:   totalPostings,
		AvgRowsPerToken: avgRowsPerToken,
	}
}

// TokenIndexStats статистика инвертированного индекса
type TokenIndexStats struct {
	TotalRows       int     `json:"total_rows"`
	TotalTokens     int     `json:"total_tokens"`
	TotalPostings   int     `json:"total_postings"`
	AvgRowsPerToken float64 `json:"avg_rows_per_token"`
}
