// internal/workers/match/expire-matches/handler.go
package expirematches

import (
	"context"
	"fmt"
	"time"

	"match-workers/internal/common/camunda"
	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/metrics"
	"match-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "expire-matches"

// Output is what the sweep hands back to the timer process.
type Output struct {
	ExpiredCount int       `json:"expiredCount"`
	SweptAt      time.Time `json:"sweptAt"`
}

// Expirer is implemented by *service.MatchService.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
	Now() time.Time
}

type Handler struct {
	config  *Config
	expirer Expirer
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, expirer Expirer, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		expirer: expirer,
		errors:  errors.NewErrorHandler(l),
		logger:  l,
	}, nil
}

// Handle ignores job variables; the sweep always works from the current time.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
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

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	sweptAt := h.expirer.Now()
	n, err := h.expirer.ExpireDue(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		h.logger.Info("expired matches", map[string]interface{}{"count": n})
	}
	return &Output{ExpiredCount: n, SweptAt: sweptAt}, nil
}

// Activity describes this worker for the activity registry. The sweep takes no input.
func Activity(cfg *Config) registry.Activity {
	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Expire Matches",
		Description:  "Moves suggested and viewed matches past their expiry time to expired.",
		Category:     "matching",
		TaskType:     TaskType,
		InputSchema:  registry.MustSchema(`{"type": "object"}`),
		OutputFields: []string{"expiredCount", "sweptAt"},
		ErrorCodes: []string{
			string(errors.ErrCodeQueryExecutionFailed),
			string(errors.ErrCodeQueryTimeout),
		},
		Timeout: cfg.Timeout.String(),
		Tags:    []string{"timer"},
	}
}
