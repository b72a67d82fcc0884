// internal/matching/aggregate.go
package matching

import "match-workers/internal/models"

const (
	StrongMatchThreshold = 80
	NearMatchThreshold   = 60
)

// FactorResult is one factor's score and the weight it was combined with.
type FactorResult struct {
	Factor  models.Factor
	Score   int
	Weight  int
	Neutral bool
}

// Contribution is the factor's share of the overall score, in raw score×weight units.
func (r FactorResult) Contribution() int {
	return r.Score * r.Weight
}

// Breakdown is everything the explanation is derived from. It never needs the inputs again.
type Breakdown struct {
	Factors      []FactorResult
	Skills       []SkillAssessment
	Logistics    LogisticsDetail
	MissingTools []string
}

// Scores flattens the breakdown into the persisted per-factor scores.
func (b *Breakdown) Scores() models.FactorValues {
	var v models.FactorValues
	for _, r := range b.Factors {
		v.Set(r.Factor, r.Score)
	}
	return v
}

// Weights returns the weight snapshot used for this breakdown.
func (b *Breakdown) Weights() models.FactorValues {
	var v models.FactorValues
	for _, r := range b.Factors {
		v.Set(r.Factor, r.Weight)
	}
	return v
}

// Result returns the factor's entry; ok is false for an unknown factor.
func (b *Breakdown) Result(f models.Factor) (FactorResult, bool) {
	for _, r := range b.Factors {
		if r.Factor == f {
			return r, true
		}
	}
	return FactorResult{}, false
}

// OverallScore rounds Σ(score×weight)/100 half-up. Weights must already be validated.
func OverallScore(scores, weights models.FactorValues) int {
	sum := 0
	for _, f := range models.Factors {
		sum += scores.Get(f) * weights.Get(f)
	}
	return clamp((sum + TotalWeight/2) / TotalWeight)
}
