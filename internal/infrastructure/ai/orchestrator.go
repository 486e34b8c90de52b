package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"cotejo/matching"
)

// AggregationStrategy стратегия объединения ответов нескольких арбитров
type AggregationStrategy string

const (
	FirstSuccess      AggregationStrategy = "first_success"      // Первый успешный ответ по приоритету
	MajorityVote      AggregationStrategy = "majority_vote"      // Голосование большинством
	HighestConfidence AggregationStrategy = "highest_confidence" // Наивысшая уверенность
)

// Strategies возвращает известные стратегии
func Strategies() []AggregationStrategy {
	return []AggregationStrategy{FirstSuccess, MajorityVote, HighestConfidence}
}

// ParseStrategy разбирает имя стратегии; пустая строка означает FirstSuccess
func ParseStrategy(name string) (AggregationStrategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FirstSuccess, nil
	}
	for _, s := range Strategies() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown aggregation strategy %q", name)
}

// ProviderWrapper арбитр с приоритетом (меньше = раньше)
type ProviderWrapper struct {
	Client   ProviderClient
	Priority int
}

// ProviderResult ответ одного арбитра на пакет
type ProviderResult struct {
	Provider string
	Verdicts map[string]matching.Verdict
	Err      error
	Duration time.Duration
}

// ProviderOrchestrator объединяет несколько арбитров в одного.
//
// FirstSuccess опрашивает арбитров по очереди и возвращает первый успешный ответ.
// MajorityVote и HighestConfidence опрашивают всех параллельно и сводят решения
// по каждой паре. Пакет считается проваленным, только если не ответил никто.
type ProviderOrchestrator struct {
	providers []ProviderWrapper
	strategy  AggregationStrategy
	logger    *slog.Logger
}

// NewProviderOrchestrator создает оркестратор; порядок опроса задается приоритетами
func NewProviderOrchestrator(strategy AggregationStrategy, logger *slog.Logger, providers ...ProviderWrapper) (*ProviderOrchestrator, error) {
	if len(providers) == 0 {
		return nil, errors.New("no arbiter providers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sorted := make([]ProviderWrapper, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &ProviderOrchestrator{
		providers: sorted,
		strategy:  strategy,
		logger:    logger.With("component", "arbiter_orchestrator"),
	}, nil
}

// Strategy возвращает стратегию
func (po *ProviderOrchestrator) Strategy() AggregationStrategy {
	return po.strategy
}

// Provider возвращает имена провайдеров через "+"
func (po *ProviderOrchestrator) Provider() string {
	names := make([]string, len(po.providers))
	for i, p := range po.providers {
		names[i] = p.Client.Provider()
	}
	return strings.Join(names, "+")
}

// Model возвращает имена моделей через "+". Значение входит в ключ кэша решений,
// поэтому смена состава арбитров не смешивает старые решения с новыми.
func (po *ProviderOrchestrator) Model() string {
	names := make([]string, len(po.providers))
	for i, p := range po.providers {
		names[i] = p.Client.Model()
	}
	model := strings.Join(names, "+")
	if po.strategy != FirstSuccess && len(po.providers) > 1 {
		model += "@" + string(po.strategy)
	}
	return model
}

// ValidateBatch проверяет пакет выбранной стратегией
func (po *ProviderOrchestrator) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	if po.strategy == FirstSuccess || len(po.providers) == 1 {
		return po.firstSuccess(ctx, pairs)
	}

	results := po.queryAll(ctx, pairs)
	var errs []error
	successful := results[:0]
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Provider, r.Err))
			continue
		}
		successful = append(successful, r)
	}
	if len(successful) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("all arbiter providers failed: %w", errors.Join(errs...))
	}
	if len(errs) > 0 {
		po.logger.Warn("some arbiter providers failed",
			"failed", len(errs), "answered", len(successful), "error", errors.Join(errs...))
	}

	switch po.strategy {
	case MajorityVote:
		return majorityVote(pairs, successful), nil
	default:
		return highestConfidence(pairs, successful), nil
	}
}

func (po *ProviderOrchestrator) firstSuccess(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	var errs []error
	for i, p := range po.providers {
		verdicts, err := p.Client.ValidateBatch(ctx, pairs)
		if err == nil {
			return verdicts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Client.Provider(), err))
		if i < len(po.providers)-1 {
			po.logger.Warn("arbiter provider failed, trying next",
				"provider", p.Client.Provider(), "model", p.Client.Model(), "error", err)
		}
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, fmt.Errorf("all arbiter providers failed: %w", errors.Join(errs...))
}

func (po *ProviderOrchestrator) queryAll(ctx context.Context, pairs []matching.PairRequest) []ProviderResult {
	results := make([]ProviderResult, len(po.providers))
	var wg sync.WaitGroup
	for i, p := range po.providers {
		wg.Add(1)
		go func(i int, client ProviderClient) {
			defer wg.Done()
			start := time.Now()
			verdicts, err := client.ValidateBatch(ctx, pairs)
			results[i] = ProviderResult{
				Provider: client.Provider() + "/" + client.Model(),
				Verdicts: verdicts,
				Err:      err,
				Duration: time.Since(start),
			}
		}(i, p.Client)
	}
	wg.Wait()
	return results
}

// majorityVote принимает пару, если за совпадение голосует строгое большинство ответивших.
// Уверенность равна средней уверенности победившей стороны, ничья отклоняет пару.
func majorityVote(pairs []matching.PairRequest, results []ProviderResult) map[string]matching.Verdict {
	verdicts := make(map[string]matching.Verdict, len(pairs))
	for _, pair := range pairs {
		var yes, no []matching.Verdict
		for _, r := range results {
			v, ok := r.Verdicts[pair.PairID]
			if !ok {
				continue
			}
			if v.IsMatch {
				yes = append(yes, v)
			} else {
				no = append(no, v)
			}
		}
		if len(yes)+len(no) == 0 {
			continue
		}
		winners := no
		if len(yes) > len(no) {
			winners = yes
		}
		best := winners[0]
		var sum float64
		for _, v := range winners {
			sum += v.Confidence
			if v.Confidence > best.Confidence {
				best = v
			}
		}
		verdicts[pair.PairID] = matching.Verdict{
			IsMatch:    len(yes) > len(no),
			Confidence: sum / float64(len(winners)),
			Rationale:  fmt.Sprintf("%d of %d arbiters agree: %s", len(winners), len(yes)+len(no), best.Rationale),
		}
	}
	return verdicts
}

// highestConfidence берет по каждой паре решение самого уверенного арбитра
func highestConfidence(pairs []matching.PairRequest, results []ProviderResult) map[string]matching.Verdict {
	verdicts := make(map[string]matching.Verdict, len(pairs))
	for _, pair := range pairs {
		var (
			best  matching.Verdict
			found bool
		)
		for _, r := range results {
			v, ok := r.Verdicts[pair.PairID]
			if !ok {
				continue
			}
			if !found || v.Confidence > best.Confidence {
				best, found = v, true
			}
		}
		if found {
			verdicts[pair.PairID] = best
		}
	}
	return verdicts
}
