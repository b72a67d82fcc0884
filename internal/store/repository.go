// Package store persists assignment requirements, candidate profiles and matches.
package store

import (
	"context"
	"time"

	"match-workers/internal/models"
)

// Repository is everything the match service reads and writes.
type Repository interface {
	GetAssignmentRequirements(ctx context.Context, id string) (*models.AssignmentRequirements, error)
	GetCandidateProfile(ctx context.Context, id string) (*models.CandidateProfile, error)
	// ListCandidatePool returns the profile ids to score for an assignment, in stable order.
	ListCandidatePool(ctx context.Context, assignmentID string) ([]string, error)

	// UpsertMatch inserts or re-scores the pair's match. Lifecycle and disclosure
	// fields of an existing row are preserved; version is incremented.
	UpsertMatch(ctx context.Context, m *models.Match) (*models.Match, error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	GetMatchByPair(ctx context.Context, assignmentID, profileID string) (*models.Match, error)
	// UpdateMatchState writes lifecycle and disclosure fields when the stored version
	// still equals expectedVersion, and fails with CONCURRENT_UPDATE_CONFLICT otherwise.
	UpdateMatchState(ctx context.Context, m *models.Match, expectedVersion int64) (*models.Match, error)
	// ListExpirable returns non-terminal matches with expires_at <= now, oldest first.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]*models.Match, error)
}

// DocumentWriter stores the documents that matches are scored from.
type DocumentWriter interface {
	SaveRequirements(ctx context.Context, req *models.AssignmentRequirements) error
	SaveProfile(ctx context.Context, p *models.CandidateProfile) error
	// AddToPool adds profiles to the assignment's candidate pool and reports how many
	// were new.
	AddToPool(ctx context.Context, assignmentID string, profileIDs ...string) (int64, error)
}

// Schema creates the tables used by PostgresRepository. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS assignment_requirements (
    id              TEXT PRIMARY KEY,
    organization_id TEXT NOT NULL DEFAULT '',
    document        JSONB NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS candidate_profiles (
    id         TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS candidate_pools (
    assignment_id TEXT NOT NULL REFERENCES assignment_requirements (id),
    profile_id    TEXT NOT NULL REFERENCES candidate_profiles (id),
    added_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (assignment_id, profile_id)
);

CREATE TABLE IF NOT EXISTS matches (
    id                      UUID PRIMARY KEY,
    assignment_id           TEXT NOT NULL,
    profile_id              TEXT NOT NULL,
    overall_score           SMALLINT NOT NULL CHECK (overall_score BETWEEN 0 AND 100),
    factor_scores           JSONB NOT NULL,
    factor_weights          JSONB NOT NULL,
    strengths               JSONB NOT NULL DEFAULT '[]',
    gaps                    JSONB NOT NULL DEFAULT '[]',
    improvement_suggestions JSONB NOT NULL DEFAULT '[]',
    status                  TEXT NOT NULL,
    communication_stage     TEXT NOT NULL DEFAULT 'none',
    organization_consented  BOOLEAN NOT NULL DEFAULT FALSE,
    candidate_consented     BOOLEAN NOT NULL DEFAULT FALSE,
    budget_masked           BOOLEAN NOT NULL DEFAULT FALSE,
    is_cold_start           BOOLEAN NOT NULL DEFAULT FALSE,
    cold_start_opt_in       BOOLEAN NOT NULL DEFAULT FALSE,
    is_near_match           BOOLEAN NOT NULL DEFAULT FALSE,
    is_strong_match         BOOLEAN NOT NULL DEFAULT FALSE,
    generated_at            TIMESTAMPTZ NOT NULL,
    last_scored_at          TIMESTAMPTZ NOT NULL,
    viewed_at               TIMESTAMPTZ,
    responded_at            TIMESTAMPTZ,
    revealed_at             TIMESTAMPTZ,
    expires_at              TIMESTAMPTZ NOT NULL,
    decline_reason          TEXT NOT NULL DEFAULT '',
    version                 BIGINT NOT NULL DEFAULT 1,
    CONSTRAINT matches_pair_unique UNIQUE (assignment_id, profile_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_expirable
    ON matches (expires_at) WHERE status IN ('suggested', 'viewed');

CREATE INDEX IF NOT EXISTS idx_matches_assignment_score
    ON matches (assignment_id, overall_score DESC);
`

// applyRescore copies the score-derived fields of incoming onto existing, leaving
// lifecycle, disclosure, generation and expiry untouched. It mirrors the ON CONFLICT
// clause of the postgres upsert.
func applyRescore(existing, incoming *models.Match) *models.Match {
	out := existing.Clone()
	out.OverallScore = incoming.OverallScore
	out.FactorScores = incoming.FactorScores
	out.FactorWeights = incoming.FactorWeights

	fresh := incoming.Clone()
	out.Strengths = fresh.Strengths
	out.Gaps = fresh.Gaps
	out.ImprovementSuggestions = fresh.ImprovementSuggestions

	out.IsColdStart = incoming.IsColdStart
	out.ColdStartOptIn = incoming.ColdStartOptIn
	out.IsNearMatch = incoming.IsNearMatch
	out.IsStrongMatch = incoming.IsStrongMatch
	out.LastScoredAt = incoming.LastScoredAt
	out.Version = existing.Version + 1
	return out
}

// applyState copies lifecycle and disclosure fields, the columns UpdateMatchState owns.
func applyState(existing, incoming *models.Match) *models.Match {
	out := existing.Clone()
	out.Status = incoming.Status
	out.CommunicationStage = incoming.CommunicationStage
	out.OrganizationConsented = incoming.OrganizationConsented
	out.CandidateConsented = incoming.CandidateConsented
	out.ViewedAt = cloneTime(incoming.ViewedAt)
	out.RespondedAt = cloneTime(incoming.RespondedAt)
	out.RevealedAt = cloneTime(incoming.RevealedAt)
	out.DeclineReason = incoming.DeclineReason
	out.Version = existing.Version + 1
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*CachedRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
