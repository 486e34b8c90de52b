package matching

import "math"

// MatchResult принятая пара источник/цель. После выдачи не изменяется.
type MatchResult struct {
	SourceID          string `json:"source_id"`
	TargetID          string `json:"target_id"`
	SourceDescription string `json:"source_description"`
	TargetDescription string `json:"target_description"`
	TargetStatus      string `json:"target_status"`
	Similarity        int    `json:"similarity_pct"`
	ArbiterConfidence *int   `json:"arbiter_confidence_pct,omitempty"`
	ArbiterRationale  string `json:"arbiter_rationale,omitempty"`
}

// HasVerdict показывает, прошла ли пара через арбитра
func (m MatchResult) HasVerdict() bool {
	return m.ArbiterConfidence != nil
}

// Percent переводит долю [0,1] в целые проценты с округлением
func Percent(fraction float64) int {
	return int(math.Round(fraction * 100))
}

func newMatchResult(schema Schema, source, target *Record, similarity float64) MatchResult {
	return MatchResult{
		SourceID:          source.String(schema.SourceID),
		TargetID:          target.String(schema.TargetID),
		SourceDescription: source.String(schema.SourceDescription),
		TargetDescription: target.String(schema.TargetDescription),
		TargetStatus:      target.String(schema.TargetStatus),
		Similarity:        Percent(similarity),
	}
}

func newVerifiedResult(schema Schema, source, target *Record, similarity float64, verdict Verdict) MatchResult {
	result := newMatchResult(schema, source, target, similarity)
	confidence := Percent(verdict.Confidence)
	result.ArbiterConfidence = &confidence
	result.ArbiterRationale = verdict.Rationale
	return result
}
