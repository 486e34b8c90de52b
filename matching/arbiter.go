package matching

import "context"

// PairRequest одна пара для внешней семантической проверки
type PairRequest struct {
	PairID     string `json:"id"`
	SourceText string `json:"source"`
	TargetText string `json:"target"`
}

// Verdict решение арбитра по паре
type Verdict struct {
	IsMatch    bool    `json:"match"`
	Confidence float64 `json:"confidence"` // 0..1
	Rationale  string  `json:"reason"`
}

// Arbiter внешний валидатор пар (как правило, языковая модель).
// Должен выдерживать пакеты заданного размера. Ошибка означает «нет решений» для всего пакета;
// пары, отсутствующие в ответе, считаются без решения.
type Arbiter interface {
	ValidateBatch(ctx context.Context, pairs []PairRequest) (map[string]Verdict, error)
}

// ArbiterFunc адаптер функции к интерфейсу Arbiter
type ArbiterFunc func(ctx context.Context, pairs []PairRequest) (map[string]Verdict, error)

// ValidateBatch вызывает f(ctx, pairs)
func (f ArbiterFunc) ValidateBatch(ctx context.Context, pairs []PairRequest) (map[string]Verdict, error) {
	return f(ctx, pairs)
}

// PairID синтетический идентификатор пары для сопоставления запроса и ответа
func PairID(targetID, sourceID string) string {
	return targetID + "_" + sourceID
}
