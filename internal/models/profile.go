// internal/models/profile.go
package models

import "time"

type CandidateProfile struct {
	ID                         string         `json:"id"`
	Expertise                  []SkillRecord  `json:"expertise"`
	Tools                      []ToolRecord   `json:"tools"`
	Causes                     []string       `json:"causes"`
	Values                     []string       `json:"values"`
	Region                     string         `json:"region"`
	Timezone                   string         `json:"timezone"`
	AvailabilityStatus         string         `json:"availabilityStatus"`
	AvailableStartDate         *time.Time     `json:"availableStartDate,omitempty"`
	Languages                  []string       `json:"languages"`
	WorkModes                  []LocationMode `json:"workModes,omitempty"`
	ProfileReadyForMatch       bool           `json:"profileReadyForMatch"`
	ExperimentalColdStartOptIn bool           `json:"experimentalColdStartOptIn"`
}

type SkillRecord struct {
	SkillID          string     `json:"skillId"`
	ProficiencyLevel int        `json:"proficiencyLevel"`
	Verified         bool       `json:"verified"`
	ProofCount       int        `json:"proofCount"`
	LastUsedDate     *time.Time `json:"lastUsedDate,omitempty"`
}

type ToolRecord struct {
	ToolID       string     `json:"toolId"`
	LastUsedDate *time.Time `json:"lastUsedDate,omitempty"`
}
