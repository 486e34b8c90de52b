package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cotejo/matching"
)

// SystemPrompt роль модели при проверке пар
const SystemPrompt = "Você é um especialista em comparação de produtos. Responda somente com JSON válido."

// BuildBatchPrompt формирует один запрос на весь пакет пар.
// Каждая пара пронумерована и несет свой идентификатор, по которому разбирается ответ.
func BuildBatchPrompt(pairs []matching.PairRequest) string {
	var sb strings.Builder
	sb.WriteString("Analise se cada par se refere ao MESMO produto.\n\n")

	for i, pair := range pairs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "PAR %d (ID: %s):\nCliente: %q\nGalileu: %q", i+1, pair.PairID, pair.SourceText, pair.TargetText)
	}

	sb.WriteString("\n\nResponda APENAS com um JSON array:\n")
	sb.WriteString("[\n  {\"id\": \"par_id\", \"match\": true/false, \"confidence\": 0.0-1.0, \"reason\": \"breve explicação\"},\n  ...\n]\n\n")
	sb.WriteString("Considere sinônimos, abreviações, mesma categoria. Ignore formatação.")
	return sb.String()
}

// ParseVerdicts разбирает ответ модели в решения по идентификаторам пар.
// Принимает JSON-массив, объект-обертку с массивом внутри или одиночный объект,
// в том числе внутри блока ```json```. Понимает ключи confianca/razao.
// Элементы без id пропускаются; уверенность в процентах (1..100) приводится к доле.
func ParseVerdicts(content string) (map[string]matching.Verdict, error) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON in response", ErrResponseInvalid)
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	items, ok := verdictItems(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected JSON shape", ErrResponseInvalid)
	}

	verdicts := make(map[string]matching.Verdict, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(obj, "id", "pair_id", "par_id")
		if id == "" {
			continue
		}
		verdicts[id] = matching.Verdict{
			IsMatch:    boolField(obj, "match", "is_match"),
			Confidence: confidenceField(obj, "confidence", "confianca", "confiança"),
			Rationale:  stringField(obj, "reason", "razao", "razão", "rationale"),
		}
	}
	return verdicts, nil
}

// extractJSON вырезает JSON из ответа: снимает markdown-ограждение и текст вокруг
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	// массив ищется первым: вступление модели может содержать фигурные скобки
	if span := validSpan(s, '[', ']'); span != "" {
		return span
	}
	if span := validSpan(s, '{', '}'); span != "" {
		return span
	}

	first := strings.IndexAny(s, "[{")
	if first < 0 {
		return ""
	}
	closing := byte(']')
	if s[first] == '{' {
		closing = '}'
	}
	last := strings.LastIndexByte(s, closing)
	if last < first {
		return ""
	}
	return s[first : last+1]
}

// validSpan возвращает первый корректный JSON от открывающей скобки до последней закрывающей
func validSpan(s string, opening, closing byte) string {
	last := strings.LastIndexByte(s, closing)
	for i := 0; i < last; i++ {
		if s[i] != opening {
			continue
		}
		if span := s[i : last+1]; json.Valid([]byte(span)) {
			return span
		}
	}
	return ""
}

func verdictItems(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case map[string]any:
		if _, hasID := v["id"]; hasID {
			return []any{v}, true
		}
		for _, key := range []string{"results", "resultados", "pairs", "pares", "verdicts"} {
			if arr, ok := v[key].([]any); ok {
				return arr, true
			}
		}
		for _, value := range v {
			if arr, ok := value.([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func boolField(obj map[string]any, keys ...string) bool {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case bool:
			return v
		case string:
			b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
			if err == nil {
				return b
			}
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "sim", "yes":
				return true
			}
			return false
		}
	}
	return false
}

func confidenceField(obj map[string]any, keys ...string) float64 {
	for _, key := range keys {
		var value float64
		switch v := obj[key].(type) {
		case float64:
			value = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
			if err != nil {
				continue
			}
			value = parsed
		default:
			continue
		}
		// проценты: 85 или "85%"; 1.5 считается выходом за шкалу 0..1
		if value > 1 && value <= 100 && (value >= 2 || value == math.Trunc(value)) {
			value /= 100
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		return value
	}
	return 0
}
