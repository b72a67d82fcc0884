// internal/matching/explain.go
package matching

import (
	"sort"

	"match-workers/internal/models"
)

const (
	StrengthThreshold = 80
	GapThreshold      = 60
	MaxStrengths      = 3
	MaxSuggestions    = 5
)

// Explanation is the human-readable side of a score.
type Explanation struct {
	Strengths   []models.Strength
	Gaps        []models.Gap
	Suggestions []models.ImprovementSuggestion
}

// Explain derives strengths, gaps and improvement suggestions from a breakdown.
// It is deterministic: equal breakdowns yield equal explanations.
func Explain(b *Breakdown, verifiedBonus int) Explanation {
	return Explanation{
		Strengths:   strengths(b),
		Gaps:        gaps(b),
		Suggestions: suggestions(b, verifiedBonus),
	}
}

func strengths(b *Breakdown) []models.Strength {
	out := []models.Strength{}
	for _, r := range b.Factors {
		if r.Score < StrengthThreshold {
			continue
		}
		out = append(out, models.Strength{
			Factor:       r.Factor,
			Score:        r.Score,
			Weight:       r.Weight,
			Contribution: (r.Contribution() + TotalWeight/2) / TotalWeight,
		})
	}
	// factors are in canonical order, so a stable sort keeps it as the tie-break
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score*out[i].Weight > out[j].Score*out[j].Weight
	})
	if len(out) > MaxStrengths {
		out = out[:MaxStrengths]
	}
	return out
}

func gaps(b *Breakdown) []models.Gap {
	out := []models.Gap{}
	for _, r := range b.Factors {
		if r.Score >= GapThreshold || r.Neutral {
			continue
		}
		g := models.Gap{
			Factor: r.Factor,
			Score:  r.Score,
			Weight: r.Weight,
			Impact: ImpactForWeight(r.Weight),
		}
		switch r.Factor {
		case models.FactorExpertise:
			for _, s := range b.Skills {
				if s.BelowLevel() {
					g.SkillIDs = append(g.SkillIDs, s.SkillID)
				}
			}
		case models.FactorTools:
			g.SkillIDs = append(g.SkillIDs, b.MissingTools...)
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// suggestions bounds the overall gain of lifting one must-have skill to its required
// level, holding every other input constant. The upper bound also counts the skill
// as verified.
func suggestions(b *Breakdown, verifiedBonus int) []models.ImprovementSuggestion {
	expertise, ok := b.Result(models.FactorExpertise)
	if !ok {
		return []models.ImprovementSuggestion{}
	}
	scores := b.Scores()
	weights := b.Weights()
	current := OverallScore(scores, weights)
	priority := ImpactForWeight(expertise.Weight)

	out := []models.ImprovementSuggestion{}
	for i, s := range b.Skills {
		if !s.MustHave || !s.BelowLevel() {
			continue
		}
		minGain := gainWith(b.Skills, i, s.MinLevel, s.Verified, verifiedBonus, scores, weights, current)
		maxGain := gainWith(b.Skills, i, s.MinLevel, true, verifiedBonus, scores, weights, current)
		if maxGain <= 0 {
			continue
		}
		out = append(out, models.ImprovementSuggestion{
			SkillID:      s.SkillID,
			CurrentLevel: s.Proficiency,
			TargetLevel:  s.MinLevel,
			MinIncrease:  minGain,
			MaxIncrease:  maxGain,
			Priority:     priority,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MaxIncrease != out[j].MaxIncrease {
			return out[i].MaxIncrease > out[j].MaxIncrease
		}
		return out[i].SkillID < out[j].SkillID
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

func gainWith(skills []SkillAssessment, idx, level int, verified bool, verifiedBonus int, scores, weights models.FactorValues, current int) int {
	weighted, total := 0, 0
	for i, s := range skills {
		sub := s.SubScore
		if i == idx {
			sub = skillSubScore(level, s.MinLevel, verified, verifiedBonus)
		}
		w := 1
		if s.MustHave {
			w = 2
		}
		weighted += w * sub
		total += w
	}
	if total == 0 {
		return 0
	}
	scores.Expertise = clamp(ratioPercentScaled(weighted, total))
	return OverallScore(scores, weights) - current
}
