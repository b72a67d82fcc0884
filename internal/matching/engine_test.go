package matching

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), fixedClock)
}

func ptrTime(t time.Time) *time.Time { return &t }

// createExampleRequirements is the documented near-match scenario: two must-have skills,
// one tool, a remote role with a March start window.
func createExampleRequirements() *models.AssignmentRequirements {
	return &models.AssignmentRequirements{
		ID:             "asg-001",
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

func createExampleProfile() *models.CandidateProfile {
	return &models.CandidateProfile{
		ID: "prof-001",
		Expertise: []models.SkillRecord{
			{SkillID: "Go", ProficiencyLevel: 4},
		},
		Causes:               []string{"Climate"},
		Values:               []string{"transparency"},
		Region:               "DE",
		Languages:            []string{"en", "de"},
		WorkModes:            []models.LocationMode{models.LocationRemote},
		AvailableStartDate:   ptrTime(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)),
		ProfileReadyForMatch: true,
	}
}

func createPerfectProfile() *models.CandidateProfile {
	p := createExampleProfile()
	recent := testNow.AddDate(0, -1, 0)
	p.Expertise = []models.SkillRecord{
		{SkillID: "go", ProficiencyLevel: 5, Verified: true, LastUsedDate: &recent},
		{SkillID: "kubernetes", ProficiencyLevel: 4, LastUsedDate: &recent},
	}
	p.Tools = []models.ToolRecord{{ToolID: "terraform"}}
	return p
}

// ==========================
// Weight Validation Tests
// ==========================

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights models.FactorValues
		wantErr bool
	}{
		{"valid", models.FactorValues{Mission: 20, Expertise: 40, Tools: 10, Logistics: 20, Recency: 10}, false},
		{"all on one factor", models.FactorValues{Expertise: 100}, false},
		{"sum 99", models.FactorValues{Mission: 20, Expertise: 40, Tools: 10, Logistics: 20, Recency: 9}, true},
		{"sum 101", models.FactorValues{Mission: 21, Expertise: 40, Tools: 10, Logistics: 20, Recency: 10}, true},
		{"negative weight", models.FactorValues{Mission: -10, Expertise: 60, Tools: 10, Logistics: 20, Recency: 20}, true},
		{"weight over 100", models.FactorValues{Mission: 110, Expertise: -10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, errors.ErrInvalidWeightSpec))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestImpactForWeight(t *testing.T) {
	assert.Equal(t, models.ImpactHigh, ImpactForWeight(40))
	assert.Equal(t, models.ImpactHigh, ImpactForWeight(25))
	assert.Equal(t, models.ImpactMedium, ImpactForWeight(24))
	assert.Equal(t, models.ImpactMedium, ImpactForWeight(10))
	assert.Equal(t, models.ImpactLow, ImpactForWeight(9))
	assert.Equal(t, models.ImpactLow, ImpactForWeight(0))
}

// ==========================
// Engine Scenario Tests
// ==========================

func TestScoreMatch_NearMatchExample(t *testing.T) {
	engine := newTestEngine()

	m, err := engine.ScoreMatch(createExampleRequirements(), createExampleProfile())
	require.NoError(t, err)

	assert.Equal(t, models.FactorValues{Mission: 100, Expertise: 50, Tools: 0, Logistics: 100, Recency: 50}, m.FactorScores)
	assert.Equal(t, 65, m.OverallScore)
	assert.True(t, m.IsNearMatch)
	assert.False(t, m.IsStrongMatch)
	assert.False(t, m.IsColdStart)

	require.Len(t, m.Gaps, 2)
	assert.Equal(t, models.FactorExpertise, m.Gaps[0].Factor)
	assert.Equal(t, models.ImpactHigh, m.Gaps[0].Impact)
	assert.Equal(t, []string{"kubernetes"}, m.Gaps[0].SkillIDs)
	assert.Equal(t, models.FactorTools, m.Gaps[1].Factor)
	assert.Equal(t, models.ImpactMedium, m.Gaps[1].Impact)
	assert.Equal(t, []string{"terraform"}, m.Gaps[1].SkillIDs)

	require.Len(t, m.ImprovementSuggestions, 1)
	s := m.ImprovementSuggestions[0]
	assert.Equal(t, "kubernetes", s.SkillID)
	assert.Equal(t, 0, s.CurrentLevel)
	assert.Equal(t, 4, s.TargetLevel)
	assert.Equal(t, 20, s.MinIncrease)
	assert.Equal(t, 20, s.MaxIncrease)
	assert.Equal(t, models.ImpactHigh, s.Priority)

	require.Len(t, m.Strengths, 2)
	assert.Equal(t, models.FactorMission, m.Strengths[0].Factor)
	assert.Equal(t, models.FactorLogistics, m.Strengths[1].Factor)
	assert.Equal(t, 20, m.Strengths[0].Contribution)
}

func TestScoreMatch_StrongMatch(t *testing.T) {
	engine := newTestEngine()

	m, err := engine.ScoreMatch(createExampleRequirements(), createPerfectProfile())
	require.NoError(t, err)

	assert.Equal(t, 100, m.OverallScore)
	assert.True(t, m.IsStrongMatch)
	assert.False(t, m.IsNearMatch)
	assert.Empty(t, m.Gaps)
	assert.Empty(t, m.ImprovementSuggestions)

	require.Len(t, m.Strengths, MaxStrengths)
	assert.Equal(t, models.FactorExpertise, m.Strengths[0].Factor)
	assert.Equal(t, models.FactorMission, m.Strengths[1].Factor)
	assert.Equal(t, models.FactorLogistics, m.Strengths[2].Factor)
}

func TestScoreMatch_InvalidWeightsComputeNothing(t *testing.T) {
	engine := newTestEngine()
	req := createExampleRequirements()
	req.Weights.Recency = 9

	m, err := engine.ScoreMatch(req, createExampleProfile())

	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidWeightSpec))
	assert.Contains(t, err.Error(), "99")

	res, err := engine.Evaluate(req, createExampleProfile())
	assert.Nil(t, res)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidWeightSpec))
}

func TestScoreMatch_MissingIdentity(t *testing.T) {
	engine := newTestEngine()

	req := createExampleRequirements()
	req.ID = ""
	_, err := engine.ScoreMatch(req, createExampleProfile())
	assert.True(t, stderrors.Is(err, errors.ErrMissingRequiredData))

	_, err = engine.ScoreMatch(createExampleRequirements(), nil)
	assert.True(t, stderrors.Is(err, errors.ErrMissingRequiredData))
}

func TestScoreMatch_Idempotent(t *testing.T) {
	engine := newTestEngine()

	first, err := engine.ScoreMatch(createExampleRequirements(), createExampleProfile())
	require.NoError(t, err)
	second, err := engine.ScoreMatch(createExampleRequirements(), createExampleProfile())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, MatchID("asg-001", "prof-001"), first.ID)
}

func TestScoreMatch_LifecycleDefaults(t *testing.T) {
	engine := newTestEngine()
	req := createExampleRequirements()
	req.BudgetMasked = true

	m, err := engine.ScoreMatch(req, createExampleProfile())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuggested, m.Status)
	assert.Equal(t, models.StageNone, m.CommunicationStage)
	assert.True(t, m.BudgetMasked)
	assert.Equal(t, testNow, m.GeneratedAt)
	assert.Equal(t, testNow.Add(14*24*time.Hour), m.ExpiresAt)
	assert.Equal(t, req.Weights, m.FactorWeights)

	req.MatchTTLDays = 7
	m, err = engine.ScoreMatch(req, createExampleProfile())
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(7*24*time.Hour), m.ExpiresAt)
}

func TestScoreMatch_WeightSnapshotIsolated(t *testing.T) {
	engine := newTestEngine()
	req := createExampleRequirements()

	m, err := engine.ScoreMatch(req, createExampleProfile())
	require.NoError(t, err)

	req.Weights = models.FactorValues{Expertise: 100}
	assert.Equal(t, 40, m.FactorWeights.Expertise)
	assert.Equal(t, 20, m.FactorWeights.Mission)
}

func TestScoreMatch_ColdStart(t *testing.T) {
	engine := newTestEngine()

	t.Run("incomplete profile is flagged but fully scored", func(t *testing.T) {
		p := createExampleProfile()
		p.ProfileReadyForMatch = false

		m, err := engine.ScoreMatch(createExampleRequirements(), p)
		require.NoError(t, err)
		assert.True(t, m.IsColdStart)
		assert.Equal(t, 65, m.OverallScore)
		assert.False(t, ClassificationOf(m).DiscoveryEligible())
		assert.False(t, ClassificationOf(m).FairnessEligible())
	})

	t.Run("opted in cold start stays discoverable", func(t *testing.T) {
		p := createExampleProfile()
		p.ProfileReadyForMatch = false
		p.ExperimentalColdStartOptIn = true

		m, err := engine.ScoreMatch(createExampleRequirements(), p)
		require.NoError(t, err)
		assert.True(t, m.IsColdStart)
		assert.True(t, ClassificationOf(m).DiscoveryEligible())
	})
}

func TestScoreMatch_ScoresStayInRange(t *testing.T) {
	engine := newTestEngine()
	old := testNow.AddDate(-5, 0, 0)

	profiles := []*models.CandidateProfile{
		{ID: "empty"},
		createExampleProfile(),
		createPerfectProfile(),
		{
			ID: "overclaimed",
			Expertise: []models.SkillRecord{
				{SkillID: "go", ProficiencyLevel: 9, Verified: true, LastUsedDate: &old},
				{SkillID: "kubernetes", ProficiencyLevel: -3, Verified: true},
			},
			WorkModes:          []models.LocationMode{models.LocationOnsite},
			AvailableStartDate: ptrTime(testNow.AddDate(1, 0, 0)),
		},
	}

	for _, p := range profiles {
		t.Run(p.ID, func(t *testing.T) {
			m, err := engine.ScoreMatch(createExampleRequirements(), p)
			require.NoError(t, err)
			for _, f := range models.Factors {
				v := m.FactorScores.Get(f)
				assert.GreaterOrEqual(t, v, 0, string(f))
				assert.LessOrEqual(t, v, 100, string(f))
			}
			assert.GreaterOrEqual(t, m.OverallScore, 0)
			assert.LessOrEqual(t, m.OverallScore, 100)
		})
	}
}

func TestScoreMatch_SuggestionsCappedAndSorted(t *testing.T) {
	engine := newTestEngine()
	req := createExampleRequirements()
	req.RequiredExpertise = nil
	for i := 0; i < 7; i++ {
		req.RequiredExpertise = append(req.RequiredExpertise, models.RequiredSkill{
			SkillID:  fmt.Sprintf("skill-%d", i),
			MinLevel: 5,
			MustHave: true,
		})
	}
	p := createExampleProfile()
	p.Expertise = []models.SkillRecord{
		{SkillID: "skill-3", ProficiencyLevel: 4},
		{SkillID: "skill-5", ProficiencyLevel: 1},
	}

	m, err := engine.ScoreMatch(req, p)
	require.NoError(t, err)

	require.Len(t, m.ImprovementSuggestions, MaxSuggestions)
	for i := 1; i < len(m.ImprovementSuggestions); i++ {
		prev, cur := m.ImprovementSuggestions[i-1], m.ImprovementSuggestions[i]
		assert.GreaterOrEqual(t, prev.MaxIncrease, cur.MaxIncrease)
		if prev.MaxIncrease == cur.MaxIncrease {
			assert.Less(t, prev.SkillID, cur.SkillID)
		}
	}
	for _, s := range m.ImprovementSuggestions {
		assert.NotEqual(t, "skill-3", s.SkillID, "smallest gain should be cut")
		assert.LessOrEqual(t, s.MinIncrease, s.MaxIncrease)
	}
}

func TestMatchID_StablePerPair(t *testing.T) {
	assert.Equal(t, MatchID("a", "p"), MatchID("a", "p"))
	assert.NotEqual(t, MatchID("a", "p"), MatchID("p", "a"))
	assert.NotEqual(t, MatchID("ab", "c"), MatchID("a", "bc"))
}
