// internal/models/match.go
package models

import "time"

// Factor names one of the five scored dimensions.
type Factor string

const (
	FactorMission   Factor = "mission"
	FactorExpertise Factor = "expertise"
	FactorTools     Factor = "tools"
	FactorLogistics Factor = "logistics"
	FactorRecency   Factor = "recency"
)

// Factors lists every factor in canonical order. Ties in explanations are broken by this order.
var Factors = []Factor{FactorMission, FactorExpertise, FactorTools, FactorLogistics, FactorRecency}

// FactorValues holds one integer per factor. It carries both weights and scores.
type FactorValues struct {
	Mission   int `json:"mission"`
	Expertise int `json:"expertise"`
	Tools     int `json:"tools"`
	Logistics int `json:"logistics"`
	Recency   int `json:"recency"`
}

func (v FactorValues) Get(f Factor) int {
	switch f {
	case FactorMission:
		return v.Mission
	case FactorExpertise:
		return v.Expertise
	case FactorTools:
		return v.Tools
	case FactorLogistics:
		return v.Logistics
	case FactorRecency:
		return v.Recency
	}
	return 0
}

func (v *FactorValues) Set(f Factor, n int) {
	switch f {
	case FactorMission:
		v.Mission = n
	case FactorExpertise:
		v.Expertise = n
	case FactorTools:
		v.Tools = n
	case FactorLogistics:
		v.Logistics = n
	case FactorRecency:
		v.Recency = n
	}
}

func (v FactorValues) Sum() int {
	return v.Mission + v.Expertise + v.Tools + v.Logistics + v.Recency
}

type MatchStatus string

const (
	StatusSuggested MatchStatus = "suggested"
	StatusViewed    MatchStatus = "viewed"
	StatusAccepted  MatchStatus = "accepted"
	StatusDeclined  MatchStatus = "declined"
	StatusExpired   MatchStatus = "expired"
)

// IsTerminal reports whether no user event can move the match further.
func (s MatchStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusExpired
}

type CommunicationStage string

const (
	StageNone     CommunicationStage = "none"
	StageMasked   CommunicationStage = "masked"
	StageRevealed CommunicationStage = "revealed"
)

type Party string

const (
	PartyOrganization Party = "organization"
	PartyCandidate    Party = "candidate"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

type Strength struct {
	Factor       Factor `json:"factor"`
	Score        int    `json:"score"`
	Weight       int    `json:"weight"`
	Contribution int    `json:"contribution"`
}

type Gap struct {
	Factor   Factor   `json:"factor"`
	Score    int      `json:"score"`
	Weight   int      `json:"weight"`
	Impact   Impact   `json:"impact"`
	SkillIDs []string `json:"skillIds,omitempty"`
}

type ImprovementSuggestion struct {
	SkillID      string `json:"skillId"`
	CurrentLevel int    `json:"currentLevel"`
	TargetLevel  int    `json:"targetLevel"`
	MinIncrease  int    `json:"minIncrease"`
	MaxIncrease  int    `json:"maxIncrease"`
	Priority     Impact `json:"priority"`
}

// Match is created by a scoring run and mutated only by lifecycle and disclosure transitions.
type Match struct {
	ID                     string                  `json:"id"`
	AssignmentID           string                  `json:"assignmentId"`
	ProfileID              string                  `json:"profileId"`
	OverallScore           int                     `json:"overallScore"`
	FactorScores           FactorValues            `json:"factorScores"`
	FactorWeights          FactorValues            `json:"factorWeights"`
	Strengths              []Strength              `json:"strengths"`
	Gaps                   []Gap                   `json:"gaps"`
	ImprovementSuggestions []ImprovementSuggestion `json:"improvementSuggestions"`
	Status                 MatchStatus             `json:"status"`
	CommunicationStage     CommunicationStage      `json:"communicationStage"`
	OrganizationConsented  bool                    `json:"organizationConsented"`
	CandidateConsented     bool                    `json:"candidateConsented"`
	BudgetMasked           bool                    `json:"budgetMasked"`
	IsColdStart            bool                    `json:"isColdStart"`
	ColdStartOptIn         bool                    `json:"coldStartOptIn"`
	IsNearMatch            bool                    `json:"isNearMatch"`
	IsStrongMatch          bool                    `json:"isStrongMatch"`
	GeneratedAt            time.Time               `json:"generatedAt"`
	LastScoredAt           time.Time               `json:"lastScoredAt"`
	ViewedAt               *time.Time              `json:"viewedAt,omitempty"`
	RespondedAt            *time.Time              `json:"respondedAt,omitempty"`
	RevealedAt             *time.Time              `json:"revealedAt,omitempty"`
	ExpiresAt              time.Time               `json:"expiresAt"`
	DeclineReason          string                  `json:"declineReason,omitempty"`
	Version                int64                   `json:"version"`
}

// Clone returns a deep copy so pure transitions never alias the caller's slices.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Strengths = cloneSlice(m.Strengths)
	c.Gaps = cloneSlice(m.Gaps)
	for i := range c.Gaps {
		c.Gaps[i].SkillIDs = cloneSlice(c.Gaps[i].SkillIDs)
	}
	c.ImprovementSuggestions = cloneSlice(m.ImprovementSuggestions)
	c.ViewedAt = cloneTime(m.ViewedAt)
	c.RespondedAt = cloneTime(m.RespondedAt)
	c.RevealedAt = cloneTime(m.RevealedAt)
	return &c
}

// cloneSlice keeps nil and empty distinct so JSON output is unchanged.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
