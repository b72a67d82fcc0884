// internal/workers/match/request-disclosure/handler.go
package requestdisclosure

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"match-workers/internal/common/camunda"
	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/metrics"
	"match-workers/internal/common/validation"
	"match-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "request-match-disclosure"

var inputSchema = validation.MustCompile(TaskType, inputSchemaJSON)

type Handler struct {
	config    *Config
	discloser Discloser
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, discloser Discloser, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		discloser: discloser,
		errors:    errors.NewErrorHandler(l),
		logger:    l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
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

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
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

	m, err := h.discloser.RequestDisclosure(ctx, input.MatchID, input.Party)
	already := stderrors.Is(err, errors.ErrAlreadyRevealed)
	if err != nil && !already {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewMissingRequiredDataError("match")
	}

	out := &Output{
		MatchID:               m.ID,
		CommunicationStage:    m.CommunicationStage,
		OrganizationConsented: m.OrganizationConsented,
		CandidateConsented:    m.CandidateConsented,
		Revealed:              m.CommunicationStage == models.StageRevealed,
		AlreadyRevealed:       already,
		RevealedAt:            m.RevealedAt,
	}

	h.logger.Info("disclosure requested", map[string]interface{}{
		"matchId":         m.ID,
		"party":           input.Party,
		"stage":           m.CommunicationStage,
		"alreadyRevealed": already,
	})
	return out, nil
}
