// internal/workers/match/transition-lifecycle/handler.go
package transitionlifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"match-workers/internal/common/camunda"
	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/metrics"
	"match-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "transition-match-lifecycle"

var inputSchema = validation.MustCompile(TaskType, inputSchemaJSON)

type Handler struct {
	config       *Config
	transitioner Transitioner
	errors       *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, transitioner Transitioner, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		transitioner: transitioner,
		errors:       errors.NewErrorHandler(l),
		logger:       l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
				h.logger.Error("failed to complete job", map[string]interface{}{
					"jobKey": job.Key,
					"error":  err.Error(),
				})
				return
			}
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

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
	if input.MatchID == "" {
		return nil, errors.NewMissingRequiredDataError("matchId")
	}

	m, err := h.transitioner.Transition(ctx, input.MatchID, input.LifecycleEvent())
	if err != nil {
		return nil, err
	}

	h.logger.Debug("lifecycle event applied", map[string]interface{}{
		"matchId": m.ID,
		"event":   input.Event,
		"status":  m.Status,
	})

	return &Output{
		MatchID:            m.ID,
		Status:             m.Status,
		CommunicationStage: m.CommunicationStage,
		Version:            m.Version,
		RespondedAt:        m.RespondedAt,
	}, nil
}
