// internal/workers/match/request-disclosure/models.go
package requestdisclosure

import (
	"context"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
	"match-workers/pkg/registry"
)

type Input struct {
	MatchID string       `json:"matchId"`
	Party   models.Party `json:"party"`
}

// Output reports the gate after the consent. AlreadyRevealed is a normal completion,
// so a process can branch on it instead of catching an error.
type Output struct {
	MatchID               string                    `json:"matchId"`
	CommunicationStage    models.CommunicationStage `json:"communicationStage"`
	OrganizationConsented bool                      `json:"organizationConsented"`
	CandidateConsented    bool                      `json:"candidateConsented"`
	Revealed              bool                      `json:"revealed"`
	AlreadyRevealed       bool                      `json:"alreadyRevealed"`
	RevealedAt            *time.Time                `json:"revealedAt,omitempty"`
}

// Discloser is implemented by *service.MatchService.
type Discloser interface {
	RequestDisclosure(ctx context.Context, matchID string, party models.Party) (*models.Match, error)
}

const inputSchemaJSON = `{
  "type": "object",
  "required": ["matchId", "party"],
  "properties": {
    "matchId": {"type": "string", "minLength": 1},
    "party": {"enum": ["organization", "candidate"]}
  }
}`

// Activity describes this worker for the activity registry.
func Activity(cfg *Config) registry.Activity {
	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Request Match Disclosure",
		Description:  "Records one party's consent to reveal contact details on an accepted match.",
		Category:     "matching",
		TaskType:     TaskType,
		InputSchema:  registry.MustSchema(inputSchemaJSON),
		OutputFields: []string{"matchId", "communicationStage", "organizationConsented", "candidateConsented", "revealed", "alreadyRevealed", "revealedAt"},
		ErrorCodes: []string{
			string(errors.ErrCodeInputValidationFailed),
			string(errors.ErrCodeInvalidTransition),
			string(errors.ErrCodeMatchNotFound),
			string(errors.ErrCodeRetriesExhausted),
		},
		Timeout: cfg.Timeout.String(),
	}
}
