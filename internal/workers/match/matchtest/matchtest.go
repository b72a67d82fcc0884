// Package matchtest builds match services over in-memory storage for worker tests.
package matchtest

import (
	"testing"
	"time"

	"match-workers/internal/common/logger"
	"match-workers/internal/matching"
	"match-workers/internal/models"
	"match-workers/internal/service"
	"match-workers/internal/store"
)

// Now is the fixed clock every fixture scores against.
var Now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const AssignmentID = "asg-001"

// Clock is a settable clock for driving expiry.
type Clock struct {
	now time.Time
}

func NewClock(at time.Time) *Clock { return &Clock{now: at} }

func (c *Clock) Now() time.Time          { return c.now }
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func Requirements() *models.AssignmentRequirements {
	return &models.AssignmentRequirements{
		ID:             AssignmentID,
		OrganizationID: "org-001",
		Weights:        models.FactorValues{Mission: 20, Expertise: 40, Tools: 10, Logistics: 20, Recency: 10},
		RequiredExpertise: []models.RequiredSkill{
			{SkillID: "go", MinLevel: 3, MustHave: true},
			{SkillID: "kubernetes", MinLevel: 4, MustHave: true},
		},
		RequiredTools:     []string{"terraform"},
		RequiredLanguages: []string{"en"},
		LocationMode:      models.LocationRemote,
		Causes:            []string{"climate"},
		Values:            []string{"transparency"},
		StartWindow: models.StartWindow{
			Earliest: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Latest:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// NearProfile scores 65 against Requirements.
func NearProfile(id string) *models.CandidateProfile {
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	return &models.CandidateProfile{
		ID:                   id,
		Expertise:            []models.SkillRecord{{SkillID: "Go", ProficiencyLevel: 4}},
		Causes:               []string{"Climate"},
		Values:               []string{"transparency"},
		Region:               "DE",
		Languages:            []string{"en", "de"},
		WorkModes:            []models.LocationMode{models.LocationRemote},
		AvailableStartDate:   &start,
		ProfileReadyForMatch: true,
	}
}

// StrongProfile scores 100 against Requirements.
func StrongProfile(id string) *models.CandidateProfile {
	p := NearProfile(id)
	recent := Now.AddDate(0, -1, 0)
	p.Expertise = []models.SkillRecord{
		{SkillID: "go", ProficiencyLevel: 5, Verified: true, LastUsedDate: &recent},
		{SkillID: "kubernetes", ProficiencyLevel: 4, LastUsedDate: &recent},
	}
	p.Tools = []models.ToolRecord{{ToolID: "terraform"}}
	return p
}

// Fixture is a service over a MemoryRepository seeded with Requirements.
type Fixture struct {
	Repo    *store.MemoryRepository
	Clock   *Clock
	Service *service.MatchService
}

func NewFixture(t testing.TB, opts ...service.Option) *Fixture {
	repo := store.NewMemoryRepository()
	repo.PutRequirements(Requirements())
	clock := NewClock(Now)
	engine := matching.NewEngine(matching.DefaultConfig(), clock.Now)
	return &Fixture{
		Repo:    repo,
		Clock:   clock,
		Service: service.New(repo, engine, service.DefaultOptions(), logger.NewTestLogger(t), opts...),
	}
}
