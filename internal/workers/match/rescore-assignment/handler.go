// internal/workers/match/rescore-assignment/handler.go
package rescoreassignment

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

const TaskType = "rescore-assignment"

var inputSchema = validation.MustCompile(TaskType, inputSchemaJSON)

type Handler struct {
	config   *Config
	rescorer Rescorer
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, rescorer Rescorer, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		rescorer: rescorer,
		errors:   errors.NewErrorHandler(l),
		logger:   l,
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

// Execute completes with per-candidate failures listed in the output. The job fails
// only when the assignment itself is unusable or too many candidates failed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.AssignmentID == "" {
		return nil, errors.NewMissingRequiredDataError("assignmentId")
	}

	result, err := h.rescorer.RescoreAssignment(ctx, input.AssignmentID)
	if err != nil {
		if result != nil && ctx.Err() != nil {
			h.logger.Warn("rescore interrupted", map[string]interface{}{
				"assignmentId": input.AssignmentID,
				"scored":       result.Scored,
				"skipped":      result.Skipped,
			})
			return nil, errors.NewQueryTimeoutError("rescore_assignment")
		}
		return nil, err
	}

	if result.Total > 0 {
		ratio := float64(result.Failed) / float64(result.Total)
		if ratio > h.config.MaxFailureRatio {
			return nil, errors.NewQueryExecutionFailedError("rescore_assignment",
				fmt.Errorf("%d of %d candidates failed", result.Failed, result.Total))
		}
	}

	h.logger.Info("assignment rescored", map[string]interface{}{
		"assignmentId":  result.AssignmentID,
		"total":         result.Total,
		"scored":        result.Scored,
		"failed":        result.Failed,
		"strongMatches": result.StrongMatches,
		"durationMs":    result.DurationMs,
	})

	return &Output{BatchResult: result, Partial: result.Failed > 0}, nil
}
