// internal/matching/classify.go
package matching

import "match-workers/internal/models"

type Tier string

const (
	TierStrong   Tier = "strong"
	TierNear     Tier = "near"
	TierStandard Tier = "standard"
)

// Classification is computed once per scoring run and flattened to the match flags
// only when the match is built.
type Classification struct {
	Tier      Tier
	ColdStart bool
	OptedIn   bool
}

// Classify derives the tier from the overall score and whether any gap can be closed,
// and marks under-complete profiles as cold start.
func Classify(overall int, suggestions []models.ImprovementSuggestion, p *models.CandidateProfile) Classification {
	c := Classification{
		Tier:      TierStandard,
		ColdStart: !p.ProfileReadyForMatch,
		OptedIn:   p.ExperimentalColdStartOptIn,
	}
	switch {
	case overall >= StrongMatchThreshold:
		c.Tier = TierStrong
	case overall >= NearMatchThreshold && closeable(suggestions):
		c.Tier = TierNear
	}
	return c
}

func closeable(suggestions []models.ImprovementSuggestion) bool {
	for _, s := range suggestions {
		if s.MaxIncrease > 0 {
			return true
		}
	}
	return false
}

// DiscoveryEligible reports whether the match may appear on default discovery surfaces.
func (c Classification) DiscoveryEligible() bool {
	return !c.ColdStart || c.OptedIn
}

// FairnessEligible reports whether the match counts toward fairness-cohort aggregation.
func (c Classification) FairnessEligible() bool {
	return !c.ColdStart || c.OptedIn
}

// Apply writes the classification onto the persisted match flags.
func (c Classification) Apply(m *models.Match) {
	m.IsStrongMatch = c.Tier == TierStrong
	m.IsNearMatch = c.Tier == TierNear
	m.IsColdStart = c.ColdStart
	m.ColdStartOptIn = c.OptedIn
}

// ClassificationOf rebuilds the classification from persisted flags.
func ClassificationOf(m *models.Match) Classification {
	c := Classification{Tier: TierStandard, ColdStart: m.IsColdStart, OptedIn: m.ColdStartOptIn}
	switch {
	case m.IsStrongMatch:
		c.Tier = TierStrong
	case m.IsNearMatch:
		c.Tier = TierNear
	}
	return c
}
