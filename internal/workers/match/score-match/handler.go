// internal/workers/match/score-match/handler.go
package scorematch

import (
	"context"
	"encoding/json"
	"fmt"

	"match-workers/internal/common/camunda"
	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/metrics"
	"match-workers/internal/common/validation"
	"match-workers/internal/matching"
	"match-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "score-match"

var inputSchema = validation.MustCompile(TaskType, inputSchemaJSON)

type Handler struct {
	config *Config
	scorer Scorer
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, scorer Scorer, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		scorer: scorer,
		errors: errors.NewErrorHandler(l),
		logger: l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// ParseInput validates the job variables against the worker schema.
func ParseInput(variables string) (*Input, error) {
	if res := inputSchema.ValidateJSON(variables); !res.Valid {
		return nil, res.Err()
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var (
		m   *models.Match
		err error
	)
	if input.Prefetched() {
		req, p, decodeErr := decodePrefetched(input)
		if decodeErr != nil {
			return nil, decodeErr
		}
		m, err = h.scorer.ScorePair(ctx, req, p)
	} else {
		if input.AssignmentID == "" || input.ProfileID == "" {
			return nil, errors.NewMissingRequiredDataError("assignmentId and profileId")
		}
		m, err = h.scorer.ScoreAndStore(ctx, input.AssignmentID, input.ProfileID)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("match scored", map[string]interface{}{
		"matchId":      m.ID,
		"overallScore": m.OverallScore,
		"strong":       m.IsStrongMatch,
	})

	return &Output{
		MatchID:           m.ID,
		OverallScore:      m.OverallScore,
		IsStrongMatch:     m.IsStrongMatch,
		IsNearMatch:       m.IsNearMatch,
		IsColdStart:       m.IsColdStart,
		DiscoveryEligible: matching.ClassificationOf(m).DiscoveryEligible(),
		Match:             m,
	}, nil
}

// decodePrefetched checks both documents against their schemas before decoding, so
// a malformed payload never reaches the engine.
func decodePrefetched(input *Input) (*models.AssignmentRequirements, *models.CandidateProfile, error) {
	if res := validation.Requirements.ValidateJSON(string(input.Requirements)); !res.Valid {
		return nil, nil, res.Err()
	}
	if res := validation.Profile.ValidateJSON(string(input.Profile)); !res.Valid {
		return nil, nil, res.Err()
	}

	var req models.AssignmentRequirements
	if err := json.Unmarshal(input.Requirements, &req); err != nil {
		return nil, nil, errors.NewInputValidationFailedError("requirements: " + err.Error())
	}
	var p models.CandidateProfile
	if err := json.Unmarshal(input.Profile, &p); err != nil {
		return nil, nil, errors.NewInputValidationFailedError("profile: " + err.Error())
	}
	return &req, &p, nil
}
