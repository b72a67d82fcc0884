// internal/models/requirements.go
package models

import "time"

type LocationMode string

const (
	LocationOnsite LocationMode = "onsite"
	LocationHybrid LocationMode = "hybrid"
	LocationRemote LocationMode = "remote"
)

// AssignmentRequirements is the published, organization-owned side of a match.
type AssignmentRequirements struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organizationId"`
	Weights           FactorValues    `json:"weights"`
	RequiredExpertise []RequiredSkill `json:"requiredExpertise"`
	RequiredTools     []string        `json:"requiredTools"`
	RequiredLanguages []string        `json:"requiredLanguages"`
	LocationMode      LocationMode    `json:"locationMode"`
	City              string          `json:"city,omitempty"`
	Country           string          `json:"country,omitempty"`
	Causes            []string        `json:"causes"`
	Values            []string        `json:"values"`
	StartWindow       StartWindow     `json:"startWindow"`
	BudgetMasked      bool            `json:"budgetMasked"`
	MatchTTLDays      int             `json:"matchTtlDays,omitempty"`
	MaxMatchesToShow  int             `json:"maxMatchesToShow,omitempty"`
}

type RequiredSkill struct {
	SkillID  string `json:"skillId"`
	MinLevel int    `json:"minLevel"`
	MustHave bool   `json:"mustHave"`
}

// StartWindow bounds are inclusive; a zero bound is open.
type StartWindow struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

func (w StartWindow) IsZero() bool {
	return w.Earliest.IsZero() && w.Latest.IsZero()
}
