package matching

import "cotejo/normalization/algorithms"

// ScoredCandidate кандидат с уточненным коэффициентом Жаккара
type ScoredCandidate struct {
	Candidate
	Similarity float64
}

// Scorer уточняет кандидатов симметричным коэффициентом Жаккара по множествам токенов
type Scorer struct {
	tokenizer         *algorithms.TextNormalizer
	jaccard           *algorithms.JaccardIndex
	descriptionColumn string
	threshold         float64
}

// NewScorer создает оценщик; кандидаты ниже threshold отбрасываются
func NewScorer(descriptionColumn string, threshold float64, tokenizer *algorithms.TextNormalizer) *Scorer {
	return &Scorer{
		tokenizer:         tokenizer,
		jaccard:           algorithms.NewJaccardIndex(tokenizer),
		descriptionColumn: descriptionColumn,
		threshold:         threshold,
	}
}

// Refine выбирает лучшего кандидата не ниже порога.
// При равенстве коэффициентов побеждает первый по входному порядку.
func (s *Scorer) Refine(candidates []Candidate, query string) (ScoredCandidate, bool) {
	if len(candidates) == 0 {
		return ScoredCandidate{}, false
	}

	querySet := s.tokenizer.TokenSet(query)

	var best ScoredCandidate
	found := false
	for _, candidate := range candidates {
		description := candidate.Record.String(s.descriptionColumn)
		similarity := s.jaccard.SimilaritySets(querySet, s.tokenizer.TokenSet(description))
		if similarity < s.threshold {
			continue
		}
		if !found || similarity > best.Similarity {
			best = ScoredCandidate{Candidate: candidate, Similarity: similarity}
			found = true
		}
	}

	return best, found
}
