// internal/workers/match/rescore-assignment/models.go
package rescoreassignment

import (
	"context"

	"match-workers/internal/common/errors"
	"match-workers/internal/service"
	"match-workers/pkg/registry"
)

type Input struct {
	AssignmentID string `json:"assignmentId"`
}

type Output struct {
	*service.BatchResult
	Partial bool `json:"partial"`
}

// Rescorer is implemented by *service.MatchService.
type Rescorer interface {
	RescoreAssignment(ctx context.Context, assignmentID string) (*service.BatchResult, error)
}

const inputSchemaJSON = `{
  "type": "object",
  "required": ["assignmentId"],
  "properties": {
    "assignmentId": {"type": "string", "minLength": 1}
  }
}`

// Activity describes this worker for the activity registry.
func Activity(cfg *Config) registry.Activity {
	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Rescore Assignment",
		Description:  "Rescores every candidate in an assignment pool.",
		Category:     "matching",
		TaskType:     TaskType,
		InputSchema:  registry.MustSchema(inputSchemaJSON),
		OutputFields: []string{"assignmentId", "total", "scored", "failed", "skipped", "strongMatches", "topMatches", "failures", "durationMs", "partial"},
		ErrorCodes: []string{
			string(errors.ErrCodeInputValidationFailed),
			string(errors.ErrCodeMatchNotFound),
			string(errors.ErrCodeInvalidWeightSpec),
			string(errors.ErrCodeQueryExecutionFailed),
			string(errors.ErrCodeQueryTimeout),
		},
		Timeout: cfg.Timeout.String(),
	}
}
