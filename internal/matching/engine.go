// internal/matching/engine.go
package matching

import (
	"time"

	"match-workers/internal/common/config"
	"match-workers/internal/common/errors"
	"match-workers/internal/models"

	"github.com/google/uuid"
)

// Clock is injected so expiry and recency are deterministic under test.
type Clock func() time.Time

type Config struct {
	VerifiedBonus  int
	StartGraceDays int
	DefaultTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		VerifiedBonus:  10,
		StartGraceDays: 30,
		DefaultTTL:     14 * 24 * time.Hour,
	}
}

// ConfigFrom takes the engine settings from the matching config section.
func ConfigFrom(cfg config.MatchingConfig) Config {
	return Config{
		VerifiedBonus:  cfg.VerifiedBonus,
		StartGraceDays: cfg.StartGraceDays,
		DefaultTTL:     cfg.DefaultTTL(),
	}
}

// Result is a full scoring run before it is turned into a Match.
type Result struct {
	Breakdown      *Breakdown
	Overall        int
	Explanation    Explanation
	Classification Classification
}

// Engine scores (assignment, profile) pairs. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
	now Clock
}

func NewEngine(cfg Config, now Clock) *Engine {
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &Engine{cfg: cfg, now: now}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// Evaluate validates the weights and runs every scorer. Nothing is scored when the
// weights are invalid.
func (e *Engine) Evaluate(req *models.AssignmentRequirements, p *models.CandidateProfile) (*Result, error) {
	if req == nil {
		return nil, errors.NewMissingRequiredDataError("requirements")
	}
	if p == nil {
		return nil, errors.NewMissingRequiredDataError("profile")
	}
	if err := ValidateWeights(req.Weights); err != nil {
		return nil, err
	}

	asOf := e.Now()
	expertise, skills := ScoreExpertise(req, p, e.cfg.VerifiedBonus)
	logistics, logisticsDetail := ScoreLogistics(req, p, asOf, e.cfg.StartGraceDays)
	recency, neutral := ScoreRecency(req, p, asOf)

	b := &Breakdown{
		Factors: []FactorResult{
			{Factor: models.FactorMission, Score: ScoreMission(req, p), Weight: req.Weights.Mission},
			{Factor: models.FactorExpertise, Score: expertise, Weight: req.Weights.Expertise},
			{Factor: models.FactorTools, Score: ScoreTools(req, p), Weight: req.Weights.Tools},
			{Factor: models.FactorLogistics, Score: logistics, Weight: req.Weights.Logistics},
			{Factor: models.FactorRecency, Score: recency, Weight: req.Weights.Recency, Neutral: neutral},
		},
		Skills:       skills,
		Logistics:    logisticsDetail,
		MissingTools: MissingTools(req, p),
	}

	overall := OverallScore(b.Scores(), b.Weights())
	explanation := Explain(b, e.cfg.VerifiedBonus)

	return &Result{
		Breakdown:      b,
		Overall:        overall,
		Explanation:    explanation,
		Classification: Classify(overall, explanation.Suggestions, p),
	}, nil
}

// ScoreMatch scores one pair and returns a fresh suggested Match. Persisting it is the
// caller's job; an existing match for the pair keeps its lifecycle state on upsert.
func (e *Engine) ScoreMatch(req *models.AssignmentRequirements, p *models.CandidateProfile) (*models.Match, error) {
	if req == nil || p == nil {
		return nil, errors.NewMissingRequiredDataError("requirements or profile")
	}
	if err := ValidateWeights(req.Weights); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, errors.NewMissingRequiredDataError("requirements.id")
	}
	if p.ID == "" {
		return nil, errors.NewMissingRequiredDataError("profile.id")
	}

	res, err := e.Evaluate(req, p)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	m := &models.Match{
		ID:                     MatchID(req.ID, p.ID),
		AssignmentID:           req.ID,
		ProfileID:              p.ID,
		OverallScore:           res.Overall,
		FactorScores:           res.Breakdown.Scores(),
		FactorWeights:          req.Weights,
		Strengths:              res.Explanation.Strengths,
		Gaps:                   res.Explanation.Gaps,
		ImprovementSuggestions: res.Explanation.Suggestions,
		Status:                 models.StatusSuggested,
		CommunicationStage:     models.StageNone,
		BudgetMasked:           req.BudgetMasked,
		GeneratedAt:            now,
		LastScoredAt:           now,
		ExpiresAt:              now.Add(e.ttl(req)),
	}
	res.Classification.Apply(m)
	return m, nil
}

func (e *Engine) ttl(req *models.AssignmentRequirements) time.Duration {
	if req.MatchTTLDays > 0 {
		return time.Duration(req.MatchTTLDays) * 24 * time.Hour
	}
	return e.cfg.DefaultTTL
}

var matchNamespace = uuid.MustParse("6f1c3f64-4b52-4f0e-9a55-2a8c9c1d7e10")

// MatchID is stable per (assignment, profile) pair, so re-scoring never mints a new identity.
func MatchID(assignmentID, profileID string) string {
	return uuid.NewSHA1(matchNamespace, []byte(assignmentID+"\x00"+profileID)).String()
}
