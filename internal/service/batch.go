package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/metrics"
	"match-workers/internal/matching"
	"match-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// PairFailure names a candidate whose rescore failed and why.
type PairFailure struct {
	ProfileID string `json:"profileId"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// MatchSummary is one surfaced result of a batch rescore.
type MatchSummary struct {
	MatchID       string `json:"matchId"`
	ProfileID     string `json:"profileId"`
	OverallScore  int    `json:"overallScore"`
	IsStrongMatch bool   `json:"isStrongMatch"`
	IsNearMatch   bool   `json:"isNearMatch"`
}

// BatchResult summarizes one RescoreAssignment run. TopMatches holds the discoverable
// matches by score, capped at the assignment's maxMatchesToShow when set.
type BatchResult struct {
	AssignmentID  string         `json:"assignmentId"`
	Total         int            `json:"total"`
	Scored        int            `json:"scored"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	StrongMatches int            `json:"strongMatches"`
	TopMatches    []MatchSummary `json:"topMatches"`
	Failures      []PairFailure  `json:"failures"`
	Duration      time.Duration  `json:"-"`
	DurationMs    int64          `json:"durationMs"`
}

// RescoreAssignment rescores every candidate in the assignment's pool in parallel.
// Single-pair failures are recorded and never abort the batch. Cancelling ctx stops
// the batch between pairs; the partial result is returned with the context error.
func (s *MatchService) RescoreAssignment(ctx context.Context, assignmentID string) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.RescoreAssignment", trace.WithAttributes(
		attribute.String("match.assignment_id", assignmentID),
	))
	defer span.End()

	start := time.Now()
	result := &BatchResult{AssignmentID: assignmentID, TopMatches: []MatchSummary{}, Failures: []PairFailure{}}

	req, err := s.repo.GetAssignmentRequirements(ctx, assignmentID)
	if err != nil {
		return nil, spanError(span, err)
	}
	// bad weights fail every pair the same way; reject before touching the pool
	if err := matching.ValidateWeights(req.Weights); err != nil {
		return nil, spanError(span, err)
	}

	profileIDs, err := s.repo.ListCandidatePool(ctx, assignmentID)
	if err != nil {
		return nil, spanError(span, err)
	}
	result.Total = len(profileIDs)

	var (
		scored, skipped, strong atomic.Int64
		mu                      sync.Mutex
	)

	g := new(errgroup.Group)
	g.SetLimit(s.opts.BatchConcurrency)

	for _, profileID := range profileIDs {
		profileID := profileID
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}

			m, err := s.rescorePair(ctx, req, profileID)
			if err != nil {
				if ctx.Err() != nil {
					skipped.Add(1)
					return nil
				}
				mu.Lock()
				result.Failures = append(result.Failures, PairFailure{
					ProfileID: profileID,
					ErrorCode: string(errors.AsStandardError(err).Code),
					Message:   err.Error(),
				})
				mu.Unlock()
				s.logger.Warn("rescore failed for candidate", map[string]interface{}{
					"assignmentId": assignmentID,
					"profileId":    profileID,
					"error":        err.Error(),
				})
				return nil
			}

			scored.Add(1)
			if m.IsStrongMatch {
				strong.Add(1)
			}
			if discoverable(m) {
				mu.Lock()
				result.TopMatches = append(result.TopMatches, MatchSummary{
					MatchID:       m.ID,
					ProfileID:     m.ProfileID,
					OverallScore:  m.OverallScore,
					IsStrongMatch: m.IsStrongMatch,
					IsNearMatch:   m.IsNearMatch,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ProfileID < result.Failures[j].ProfileID
	})
	sort.Slice(result.TopMatches, func(i, j int) bool {
		a, b := result.TopMatches[i], result.TopMatches[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		return a.ProfileID < b.ProfileID
	})
	if limit := req.MaxMatchesToShow; limit > 0 && len(result.TopMatches) > limit {
		result.TopMatches = result.TopMatches[:limit]
	}
	result.Scored = int(scored.Load())
	result.Skipped = int(skipped.Load())
	result.StrongMatches = int(strong.Load())
	result.Failed = len(result.Failures)
	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()

	metrics.BatchRescoreDuration.Observe(result.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("batch.total", result.Total),
		attribute.Int("batch.scored", result.Scored),
		attribute.Int("batch.failed", result.Failed),
	)
	s.logger.Info("assignment rescored", map[string]interface{}{
		"assignmentId": assignmentID,
		"total":        result.Total,
		"scored":       result.Scored,
		"failed":       result.Failed,
		"skipped":      result.Skipped,
		"durationMs":   result.DurationMs,
	})

	if err := ctx.Err(); err != nil {
		return result, spanError(span, err)
	}
	return result, nil
}

func (s *MatchService) rescorePair(ctx context.Context, req *models.AssignmentRequirements, profileID string) (*models.Match, error) {
	p, err := s.repo.GetCandidateProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.ScorePair(ctx, req, p)
}
