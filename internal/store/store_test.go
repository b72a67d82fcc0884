package store

import (
	"time"

	"match-workers/internal/models"
)

// ==========================
// Shared Fixtures
// ==========================

var (
	_ Repository     = (*PostgresRepository)(nil)
	_ Repository     = (*CachedRepository)(nil)
	_ DocumentWriter = (*PostgresRepository)(nil)
	_ DocumentWriter = (*MemoryRepository)(nil)
	_ DocumentWriter = (*CachedRepository)(nil)
)

var (
	generatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt   = generatedAt.Add(14 * 24 * time.Hour)
)

func newTestMatch(assignmentID, profileID string, score int) *models.Match {
	return &models.Match{
		ID:                 "0b8f3c1e-6d55-5d7a-9a8e-000000000001",
		AssignmentID:       assignmentID,
		ProfileID:          profileID,
		OverallScore:       score,
		FactorScores:       models.FactorValues{Mission: 100, Expertise: 50, Tools: 0, Logistics: 100, Recency: 50},
		FactorWeights:      models.FactorValues{Mission: 20, Expertise: 40, Tools: 15, Logistics: 15, Recency: 10},
		Strengths:          []models.Strength{{Factor: models.FactorMission, Score: 100, Weight: 20, Contribution: 20}},
		Gaps:               []models.Gap{{Factor: models.FactorTools, Score: 0, Weight: 15, Impact: models.ImpactMedium, SkillIDs: []string{"terraform"}}},
		Status:             models.StatusSuggested,
		CommunicationStage: models.StageNone,
		GeneratedAt:        generatedAt,
		LastScoredAt:       generatedAt,
		ExpiresAt:          expiresAt,
	}
}
