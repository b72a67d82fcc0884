// Package service orchestrates scoring, persistence and the lifecycle state machines
// on top of the pure matching and lifecycle packages.
package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/metrics"
	"match-workers/internal/matching"
	"match-workers/internal/models"
	"match-workers/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Indexer keeps the discovery index in step with stored matches.
type Indexer interface {
	Index(ctx context.Context, m *models.Match) error
	Remove(ctx context.Context, matchID string) error
}

// Notifier announces matches that newly became strong.
type Notifier interface {
	Notify(ctx context.Context, m *models.Match) error
}

type Options struct {
	// TransitionRetries is how many times a conflicting write is retried after the
	// first attempt.
	TransitionRetries int
	BatchConcurrency  int
	ExpireBatchSize   int
}

func DefaultOptions() Options {
	return Options{
		TransitionRetries: 3,
		BatchConcurrency:  8,
		ExpireBatchSize:   500,
	}
}

type Option func(*MatchService)

func WithIndexer(i Indexer) Option {
	return func(s *MatchService) { s.indexer = i }
}

func WithNotifier(n Notifier) Option {
	return func(s *MatchService) { s.notifier = n }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *MatchService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// MatchService is safe for concurrent use. Its clock is the engine's clock.
type MatchService struct {
	repo     store.Repository
	engine   *matching.Engine
	indexer  Indexer
	notifier Notifier
	opts     Options
	tracer   trace.Tracer
	logger   logger.Logger
}

func New(repo store.Repository, engine *matching.Engine, opts Options, log logger.Logger, options ...Option) *MatchService {
	defaults := DefaultOptions()
	if opts.TransitionRetries <= 0 {
		opts.TransitionRetries = defaults.TransitionRetries
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaults.BatchConcurrency
	}
	if opts.ExpireBatchSize <= 0 {
		opts.ExpireBatchSize = defaults.ExpireBatchSize
	}

	s := &MatchService{
		repo:   repo,
		engine: engine,
		opts:   opts,
		tracer: noop.NewTracerProvider().Tracer("match-service"),
		logger: log.WithFields(map[string]interface{}{"component": "match-service"}),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *MatchService) Now() time.Time {
	return s.engine.Now()
}

// ScoreAndStore loads both documents, scores the pair and upserts the result.
func (s *MatchService) ScoreAndStore(ctx context.Context, assignmentID, profileID string) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.ScoreAndStore", trace.WithAttributes(
		attribute.String("match.assignment_id", assignmentID),
		attribute.String("match.profile_id", profileID),
	))
	defer span.End()

	req, err := s.repo.GetAssignmentRequirements(ctx, assignmentID)
	if err != nil {
		return nil, spanError(span, err)
	}
	p, err := s.repo.GetCandidateProfile(ctx, profileID)
	if err != nil {
		return nil, spanError(span, err)
	}

	m, err := s.ScorePair(ctx, req, p)
	return m, spanError(span, err)
}

// ScorePair scores pre-fetched inputs and upserts the match. An existing match keeps
// its lifecycle and disclosure state; only score fields change.
func (s *MatchService) ScorePair(ctx context.Context, req *models.AssignmentRequirements, p *models.CandidateProfile) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.ScorePair")
	defer span.End()

	scored, err := s.engine.ScoreMatch(req, p)
	if err != nil {
		return nil, spanError(span, err)
	}

	previous, err := s.repo.GetMatchByPair(ctx, scored.AssignmentID, scored.ProfileID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrMatchNotFound) {
			return nil, spanError(span, err)
		}
		previous = nil
	}

	stored, err := s.repo.UpsertMatch(ctx, scored)
	if err != nil {
		return nil, spanError(span, err)
	}

	tier := matching.ClassificationOf(stored).Tier
	metrics.MatchesScored.WithLabelValues(string(tier), strconv.FormatBool(stored.IsColdStart)).Inc()
	metrics.MatchOverallScore.Observe(float64(stored.OverallScore))
	span.SetAttributes(
		attribute.String("match.id", stored.ID),
		attribute.Int("match.overall_score", stored.OverallScore),
		attribute.String("match.tier", string(tier)),
	)

	s.syncIndex(ctx, stored)
	if newlyStrong(previous, stored) {
		s.notifyStrong(ctx, stored)
	}

	s.logger.Debug("match scored", map[string]interface{}{
		"matchId":      stored.ID,
		"assignmentId": stored.AssignmentID,
		"profileId":    stored.ProfileID,
		"overallScore": stored.OverallScore,
		"tier":         string(tier),
		"version":      stored.Version,
	})
	return stored, nil
}

// syncIndex indexes discovery-eligible open matches and removes the rest. The match
// is already stored, so index failures are logged and left for the next rescore.
func (s *MatchService) syncIndex(ctx context.Context, m *models.Match) {
	if s.indexer == nil {
		return
	}

	var err error
	if discoverable(m) {
		err = s.indexer.Index(ctx, m)
	} else {
		err = s.indexer.Remove(ctx, m.ID)
	}
	if err != nil {
		s.logger.Warn("discovery index update failed", map[string]interface{}{
			"matchId": m.ID,
			"error":   err.Error(),
		})
	}
}

func (s *MatchService) notifyStrong(ctx context.Context, m *models.Match) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, m); err != nil {
		s.logger.Warn("strong match notification failed", map[string]interface{}{
			"matchId": m.ID,
			"error":   err.Error(),
		})
	}
}

// newlyStrong reports whether this upsert moved the pair across the strong threshold.
// The stored version must directly follow the row read before the upsert, so of two
// concurrent rescores only the one that wrote first notifies.
func newlyStrong(previous, stored *models.Match) bool {
	if !stored.IsStrongMatch {
		return false
	}
	if previous == nil {
		return stored.Version == 1
	}
	return !previous.IsStrongMatch && stored.Version == previous.Version+1
}

func discoverable(m *models.Match) bool {
	if m.Status == models.StatusDeclined || m.Status == models.StatusExpired {
		return false
	}
	return matching.ClassificationOf(m).DiscoveryEligible()
}

func spanError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(errors.CodeOf(err)))
	return err
}
