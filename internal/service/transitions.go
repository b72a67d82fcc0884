package service

import (
	"context"
	stderrors "errors"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/metrics"
	"match-workers/internal/lifecycle"
	"match-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// mutation computes the next state from a freshly read match. changed=false means the
// write is skipped.
type mutation func(current *models.Match) (next *models.Match, changed bool, err error)

// Transition applies a lifecycle event with optimistic concurrency. Conflicts are
// retried against a fresh read; once retries run out the caller gets RETRIES_EXHAUSTED.
func (s *MatchService) Transition(ctx context.Context, matchID string, ev lifecycle.Event) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.Transition", trace.WithAttributes(
		attribute.String("match.id", matchID),
		attribute.String("match.event", string(ev.Type)),
	))
	defer span.End()

	m, err := s.mutate(ctx, "transition:"+string(ev.Type), matchID, func(current *models.Match) (*models.Match, bool, error) {
		return lifecycle.Transition(current, ev, s.Now())
	})
	metrics.LifecycleTransitions.WithLabelValues(string(ev.Type), resultLabel(err)).Inc()
	if err != nil {
		s.logRejected(matchID, string(ev.Type), err)
		return nil, spanError(span, err)
	}
	return m, nil
}

// RequestDisclosure records one party's consent. A match that is already revealed is
// returned unchanged together with ALREADY_REVEALED.
func (s *MatchService) RequestDisclosure(ctx context.Context, matchID string, party models.Party) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.RequestDisclosure", trace.WithAttributes(
		attribute.String("match.id", matchID),
		attribute.String("match.party", string(party)),
	))
	defer span.End()

	var revealedNow bool
	m, err := s.mutate(ctx, "disclosure", matchID, func(current *models.Match) (*models.Match, bool, error) {
		next, err := lifecycle.RequestDisclosure(current, party, s.Now())
		if err != nil {
			return next, false, err
		}
		revealedNow = current.CommunicationStage != models.StageRevealed &&
			next.CommunicationStage == models.StageRevealed
		return next, lifecycle.Changed(current, next), nil
	})

	if stderrors.Is(err, errors.ErrAlreadyRevealed) {
		span.SetAttributes(attribute.Bool("match.already_revealed", true))
		return m, err
	}
	if err != nil {
		s.logRejected(matchID, "disclosure:"+string(party), err)
		return nil, spanError(span, err)
	}
	if revealedNow {
		metrics.DisclosuresRevealed.Inc()
		s.logger.Info("match contact details revealed", map[string]interface{}{"matchId": matchID})
	}
	return m, nil
}

func (s *MatchService) mutate(ctx context.Context, op, matchID string, apply mutation) (*models.Match, error) {
	attempts := s.opts.TransitionRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := s.repo.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}

		next, changed, err := apply(current)
		if err != nil {
			return next, err
		}
		if !changed {
			return next, nil
		}

		stored, err := s.repo.UpdateMatchState(ctx, next, current.Version)
		if err == nil {
			s.syncIndex(ctx, stored)
			return stored, nil
		}
		if !stderrors.Is(err, errors.ErrConcurrentUpdateConflict) {
			return nil, err
		}

		metrics.OptimisticConflicts.WithLabelValues(op).Inc()
		s.logger.Debug("optimistic conflict, re-reading match", map[string]interface{}{
			"matchId":  matchID,
			"op":       op,
			"attempt":  attempt,
			"attempts": attempts,
		})
	}

	return nil, errors.NewRetriesExhaustedError(op, attempts)
}

// ExpireDue moves every due suggested or viewed match to expired and returns how many
// it changed. Failures on single matches are logged and skipped.
func (s *MatchService) ExpireDue(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.ExpireDue")
	defer span.End()

	expired := 0
	for {
		batch, err := s.repo.ListExpirable(ctx, s.Now(), s.opts.ExpireBatchSize)
		if err != nil {
			return expired, spanError(span, err)
		}

		progressed := 0
		for _, due := range batch {
			if err := ctx.Err(); err != nil {
				return expired, spanError(span, err)
			}

			var changed bool
			_, err := s.mutate(ctx, "expire", due.ID, func(current *models.Match) (*models.Match, bool, error) {
				next, ok, err := lifecycle.Transition(current, lifecycle.Expire(), s.Now())
				changed = ok
				return next, ok, err
			})
			switch {
			case err == nil:
				if changed {
					progressed++
				}
			case stderrors.Is(err, errors.ErrInvalidTransition):
				// accepted or declined between listing and writing
				s.logger.Debug("match no longer expirable", map[string]interface{}{"matchId": due.ID})
			default:
				s.logger.Warn("failed to expire match", map[string]interface{}{
					"matchId": due.ID,
					"error":   err.Error(),
				})
			}
		}

		expired += progressed
		if len(batch) < s.opts.ExpireBatchSize || progressed == 0 {
			break
		}
	}

	metrics.ExpiredMatches.Add(float64(expired))
	metrics.LifecycleTransitions.WithLabelValues(string(lifecycle.EventExpire), "ok").Add(float64(expired))
	span.SetAttributes(attribute.Int("match.expired", expired))
	if expired > 0 {
		s.logger.Info("expiry sweep finished", map[string]interface{}{"expired": expired})
	}
	return expired, nil
}

func (s *MatchService) logRejected(matchID, event string, err error) {
	fields := map[string]interface{}{
		"matchId":   matchID,
		"event":     event,
		"errorCode": string(errors.CodeOf(err)),
		"error":     err.Error(),
	}
	switch errors.CodeOf(err) {
	case errors.ErrCodeInvalidTransition, errors.ErrCodeMatchNotFound:
		s.logger.Warn("lifecycle event rejected", fields)
	case errors.ErrCodeRetriesExhausted:
		s.logger.Warn("lifecycle event gave up after conflicts", fields)
	default:
		s.logger.Error("lifecycle event failed", fields)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
