// internal/workers/match/score-match/models.go
package scorematch

import (
	"context"
	"encoding/json"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
	"match-workers/pkg/registry"
)

// Input either names both sides by id or carries them pre-fetched.
type Input struct {
	AssignmentID string          `json:"assignmentId,omitempty"`
	ProfileID    string          `json:"profileId,omitempty"`
	Requirements json.RawMessage `json:"requirements,omitempty"`
	Profile      json.RawMessage `json:"profile,omitempty"`
}

func (i *Input) Prefetched() bool {
	return len(i.Requirements) > 0 && len(i.Profile) > 0
}

// Output exposes routing flags at the top level for BPMN gateways.
type Output struct {
	MatchID           string        `json:"matchId"`
	OverallScore      int           `json:"overallScore"`
	IsStrongMatch     bool          `json:"isStrongMatch"`
	IsNearMatch       bool          `json:"isNearMatch"`
	IsColdStart       bool          `json:"isColdStart"`
	DiscoveryEligible bool          `json:"discoveryEligible"`
	Match             *models.Match `json:"match"`
}

// Scorer is implemented by *service.MatchService.
type Scorer interface {
	ScoreAndStore(ctx context.Context, assignmentID, profileID string) (*models.Match, error)
	ScorePair(ctx context.Context, req *models.AssignmentRequirements, p *models.CandidateProfile) (*models.Match, error)
}

const inputSchemaJSON = `{
  "type": "object",
  "properties": {
    "assignmentId": {"type": "string"},
    "profileId": {"type": "string"},
    "requirements": {"type": "object"},
    "profile": {"type": "object"}
  },
  "anyOf": [
    {"required": ["assignmentId", "profileId"]},
    {"required": ["requirements", "profile"]}
  ]
}`

// Activity describes this worker for the activity registry.
func Activity(cfg *Config) registry.Activity {
	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Score Match",
		Description:  "Scores a candidate profile against assignment requirements and stores the explained match.",
		Category:     "matching",
		TaskType:     TaskType,
		InputSchema:  registry.MustSchema(inputSchemaJSON),
		OutputFields: []string{"matchId", "overallScore", "isStrongMatch", "isNearMatch", "isColdStart", "discoveryEligible", "match"},
		ErrorCodes: []string{
			string(errors.ErrCodeInputValidationFailed),
			string(errors.ErrCodeMissingRequiredData),
			string(errors.ErrCodeMatchNotFound),
			string(errors.ErrCodeInvalidWeightSpec),
			string(errors.ErrCodeQueryExecutionFailed),
		},
		Timeout: cfg.Timeout.String(),
	}
}
