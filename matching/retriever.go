package matching

import (
	"sort"

	"cotejo/normalization/algorithms"
)

// Candidate строка источника, найденная по пересечению токенов
type Candidate struct {
	Position int     // позиция строки в наборе источника
	Record   *Record // сама строка источника
	Hits     int     // количество совпавших токенов запроса
	Score    float64 // Hits / число токенов запроса
}

// Retriever ищет кандидатов в наборе источника через инвертированный индекс
type Retriever struct {
	index     *algorithms.TokenIndex
	source    []*Record
	sourceIDs []string
	tokenizer *algorithms.TextNormalizer
}

// NewRetriever строит индекс по колонке описания источника
func NewRetriever(source []*Record, schema Schema, tokenizer *algorithms.TextNormalizer) *Retriever {
	descriptions := make([]string, len(source))
	ids := make([]string, len(source))
	for i, record := range source {
		descriptions[i] = record.String(schema.SourceDescription)
		ids[i] = record.String(schema.SourceID)
	}

	return &Retriever{
		index:     algorithms.BuildTokenIndex(descriptions, tokenizer),
		source:    source,
		sourceIDs: ids,
		tokenizer: tokenizer,
	}
}

// Index возвращает построенный индекс
func (r *Retriever) Index() *algorithms.TokenIndex {
	return r.index
}

// SourceID возвращает идентификатор строки источника по позиции
func (r *Retriever) SourceID(position int) string {
	return r.sourceIDs[position]
}

// Retrieve возвращает до maxCandidates строк источника с наибольшим числом общих токенов.
// Строки, чей идентификатор в черном списке, пропускаются.
// Порядок: больше совпадений выше, при равенстве выше меньшая позиция строки.
// Пустой запрос или отсутствие совпадений дает пустой результат.
func (r *Retriever) Retrieve(query string, blacklist *Blacklist, maxCandidates int) []Candidate {
	tokens := r.tokenizer.Tokens(query)
	if len(tokens) == 0 || maxCandidates <= 0 {
		return nil
	}

	hits := make(map[int]int)
	for _, token := range tokens {
		for _, position := range r.index.Lookup(token) {
			if blacklist != nil && !blacklist.IsAvailable(r.sourceIDs[position]) {
				continue
			}
			hits[position]++
		}
	}
	if len(hits) == 0 {
		return nil
	}

	ranked := make([]Candidate, 0, len(hits))
	for position, count := range hits {
		ranked = append(ranked, Candidate{
			Position: position,
			Record:   r.source[position],
			Hits:     count,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Hits != ranked[j].Hits {
			return ranked[i].Hits > ranked[j].Hits
		}
		return ranked[i].Position < ranked[j].Position
	})

	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	for i := range ranked {
		ranked[i].Score = float64(ranked[i].Hits) / float64(len(tokens))
	}
	return ranked
}
