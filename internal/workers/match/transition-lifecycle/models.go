// internal/workers/match/transition-lifecycle/models.go
package transitionlifecycle

import (
	"context"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/lifecycle"
	"match-workers/internal/models"
	"match-workers/pkg/registry"
)

type Input struct {
	MatchID string `json:"matchId"`
	Event   string `json:"event"`
	Reason  string `json:"reason,omitempty"`
}

func (i *Input) LifecycleEvent() lifecycle.Event {
	return lifecycle.Event{Type: lifecycle.EventType(i.Event), Reason: i.Reason}
}

type Output struct {
	MatchID            string                    `json:"matchId"`
	Status             models.MatchStatus        `json:"status"`
	CommunicationStage models.CommunicationStage `json:"communicationStage"`
	Version            int64                     `json:"version"`
	RespondedAt        *time.Time                `json:"respondedAt,omitempty"`
}

// Transitioner is implemented by *service.MatchService.
type Transitioner interface {
	Transition(ctx context.Context, matchID string, ev lifecycle.Event) (*models.Match, error)
}

const inputSchemaJSON = `{
  "type": "object",
  "required": ["matchId", "event"],
  "properties": {
    "matchId": {"type": "string", "minLength": 1},
    "event": {"enum": ["view", "accept", "decline", "expire"]},
    "reason": {"type": "string", "maxLength": 500}
  }
}`

// Activity describes this worker for the activity registry.
func Activity(cfg *Config) registry.Activity {
	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Transition Match Lifecycle",
		Description:  "Applies a view, accept, decline or expire event to a match.",
		Category:     "matching",
		TaskType:     TaskType,
		InputSchema:  registry.MustSchema(inputSchemaJSON),
		OutputFields: []string{"matchId", "status", "communicationStage", "version", "respondedAt"},
		ErrorCodes: []string{
			string(errors.ErrCodeInputValidationFailed),
			string(errors.ErrCodeInvalidTransition),
			string(errors.ErrCodeMatchNotFound),
			string(errors.ErrCodeRetriesExhausted),
		},
		Timeout: cfg.Timeout.String(),
	}
}
