// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var matchColumns = []string{
	"id", "assignment_id", "profile_id", "overall_score",
	"factor_scores", "factor_weights", "strengths", "gaps", "improvement_suggestions",
	"status", "communication_stage", "organization_consented", "candidate_consented",
	"budget_masked", "is_cold_start", "cold_start_opt_in", "is_near_match", "is_strong_match",
	"generated_at", "last_scored_at", "viewed_at", "responded_at", "revealed_at",
	"expires_at", "decline_reason", "version",
}

var returningMatch = "RETURNING " + strings.Join(matchColumns, ", ")

// upsertMatchSQL re-scores an existing pair in place. Only score-derived columns and
// last_scored_at are overwritten.
var upsertMatchSQL = `
INSERT INTO matches (
    id, assignment_id, profile_id, overall_score,
    factor_scores, factor_weights, strengths, gaps, improvement_suggestions,
    status, communication_stage, budget_masked,
    is_cold_start, cold_start_opt_in, is_near_match, is_strong_match,
    generated_at, last_scored_at, expires_at, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)
ON CONFLICT (assignment_id, profile_id) DO UPDATE SET
    overall_score           = EXCLUDED.overall_score,
    factor_scores           = EXCLUDED.factor_scores,
    factor_weights          = EXCLUDED.factor_weights,
    strengths               = EXCLUDED.strengths,
    gaps                    = EXCLUDED.gaps,
    improvement_suggestions = EXCLUDED.improvement_suggestions,
    is_cold_start           = EXCLUDED.is_cold_start,
    cold_start_opt_in       = EXCLUDED.cold_start_opt_in,
    is_near_match           = EXCLUDED.is_near_match,
    is_strong_match         = EXCLUDED.is_strong_match,
    last_scored_at          = EXCLUDED.last_scored_at,
    version                 = matches.version + 1
` + returningMatch

// PostgresRepository stores documents as JSONB and matches as one row per pair.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAssignmentRequirements(ctx context.Context, id string) (*models.AssignmentRequirements, error) {
	var req models.AssignmentRequirements
	if err := r.getDocument(ctx, "assignment_requirements", "assignment", id, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = id
	}
	return &req, nil
}

func (r *PostgresRepository) GetCandidateProfile(ctx context.Context, id string) (*models.CandidateProfile, error) {
	var p models.CandidateProfile
	if err := r.getDocument(ctx, "candidate_profiles", "profile", id, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (r *PostgresRepository) getDocument(ctx context.Context, table, kind, id string, into interface{}) error {
	query, args, err := psql.Select("document").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.NewQueryExecutionFailedError("get_"+kind, err)
	}

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewMatchNotFoundError(kind, id)
		}
		return queryError("get_"+kind, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.NewQueryExecutionFailedError("decode_"+kind, err)
	}
	return nil
}

func (r *PostgresRepository) ListCandidatePool(ctx context.Context, assignmentID string) ([]string, error) {
	query, args, err := psql.Select("profile_id").
		From("candidate_pools").
		Where(sq.Eq{"assignment_id": assignmentID}).
		OrderBy("profile_id").
		ToSql()
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_candidate_pool", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError("list_candidate_pool", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, queryError("list_candidate_pool", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list_candidate_pool", err)
	}
	return ids, nil
}

// SaveRequirements inserts or replaces an assignment's requirements document.
func (r *PostgresRepository) SaveRequirements(ctx context.Context, req *models.AssignmentRequirements) error {
	if req == nil || req.ID == "" {
		return errors.NewMissingRequiredDataError("requirements.id")
	}
	doc, err := json.Marshal(req)
	if err != nil {
		return errors.NewQueryExecutionFailedError("save_assignment", err)
	}
	query, args, err := psql.Insert("assignment_requirements").
		Columns("id", "organization_id", "document").
		Values(req.ID, req.OrganizationID, string(doc)).
		Suffix("ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id, document = EXCLUDED.document, updated_at = now()").
		ToSql()
	if err != nil {
		return errors.NewQueryExecutionFailedError("save_assignment", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return queryError("save_assignment", err)
	}
	return nil
}

// SaveProfile inserts or replaces a candidate profile document.
func (r *PostgresRepository) SaveProfile(ctx context.Context, p *models.CandidateProfile) error {
	if p == nil || p.ID == "" {
		return errors.NewMissingRequiredDataError("profile.id")
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return errors.NewQueryExecutionFailedError("save_profile", err)
	}
	query, args, err := psql.Insert("candidate_profiles").
		Columns("id", "document").
		Values(p.ID, string(doc)).
		Suffix("ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()").
		ToSql()
	if err != nil {
		return errors.NewQueryExecutionFailedError("save_profile", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return queryError("save_profile", err)
	}
	return nil
}

const addToPoolSQL = `
INSERT INTO candidate_pools (assignment_id, profile_id)
SELECT $1, unnest($2::text[])
ON CONFLICT DO NOTHING`

// AddToPool adds profiles to an assignment's candidate pool in one statement and
// returns how many were new.
func (r *PostgresRepository) AddToPool(ctx context.Context, assignmentID string, profileIDs ...string) (int64, error) {
	if len(profileIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, addToPoolSQL, assignmentID, pq.Array(profileIDs))
	if err != nil {
		return 0, queryError("add_to_pool", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError("add_to_pool", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpsertMatch(ctx context.Context, m *models.Match) (*models.Match, error) {
	docs, err := encodeMatchDocuments(m)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("upsert_match", err)
	}

	row := r.db.QueryRowContext(ctx, upsertMatchSQL,
		m.ID, m.AssignmentID, m.ProfileID, m.OverallScore,
		docs.scores, docs.weights, docs.strengths, docs.gaps, docs.suggestions,
		string(m.Status), string(m.CommunicationStage), m.BudgetMasked,
		m.IsColdStart, m.ColdStartOptIn, m.IsNearMatch, m.IsStrongMatch,
		m.GeneratedAt, m.LastScoredAt, m.ExpiresAt,
	)
	stored, err := scanMatch(row)
	if err != nil {
		return nil, queryError("upsert_match", err)
	}
	return stored, nil
}

func (r *PostgresRepository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	return r.getMatchWhere(ctx, "get_match", sq.Eq{"id": id}, id)
}

func (r *PostgresRepository) GetMatchByPair(ctx context.Context, assignmentID, profileID string) (*models.Match, error) {
	return r.getMatchWhere(ctx, "get_match_by_pair",
		sq.Eq{"assignment_id": assignmentID, "profile_id": profileID},
		assignmentID+"/"+profileID)
}

func (r *PostgresRepository) getMatchWhere(ctx context.Context, queryType string, where sq.Eq, label string) (*models.Match, error) {
	query, args, err := psql.Select(matchColumns...).From("matches").Where(where).ToSql()
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewMatchNotFoundError("match", label)
		}
		return nil, queryError(queryType, err)
	}
	return m, nil
}

func (r *PostgresRepository) UpdateMatchState(ctx context.Context, m *models.Match, expectedVersion int64) (*models.Match, error) {
	query, args, err := psql.Update("matches").
		SetMap(map[string]interface{}{
			"status":                 string(m.Status),
			"communication_stage":    string(m.CommunicationStage),
			"organization_consented": m.OrganizationConsented,
			"candidate_consented":    m.CandidateConsented,
			"viewed_at":              m.ViewedAt,
			"responded_at":           m.RespondedAt,
			"revealed_at":            m.RevealedAt,
			"decline_reason":         m.DeclineReason,
			"version":                sq.Expr("version + 1"),
		}).
		Where(sq.Eq{"id": m.ID, "version": expectedVersion}).
		Suffix(returningMatch).
		ToSql()
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("update_match_state", err)
	}

	updated, err := scanMatch(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, queryError("update_match_state", err)
	}

	// zero rows: either the match is gone or someone else bumped the version
	if _, getErr := r.GetMatch(ctx, m.ID); getErr != nil {
		return nil, getErr
	}
	return nil, errors.NewConcurrentUpdateConflictError(m.ID, expectedVersion)
}

func (r *PostgresRepository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]*models.Match, error) {
	builder := psql.Select(matchColumns...).
		From("matches").
		Where(sq.Eq{"status": []string{string(models.StatusSuggested), string(models.StatusViewed)}}).
		Where(sq.LtOrEq{"expires_at": now}).
		OrderBy("expires_at", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_expirable", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError("list_expirable", err)
	}
	defer rows.Close()

	out := []*models.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, queryError("list_expirable", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list_expirable", err)
	}
	return out, nil
}

type matchDocuments struct {
	scores, weights, strengths, gaps, suggestions string
}

// encodeMatchDocuments renders the JSONB columns. lib/pq sends []byte as bytea, so
// the documents travel as strings.
func encodeMatchDocuments(m *models.Match) (matchDocuments, error) {
	var d matchDocuments
	fields := []struct {
		dst *string
		v   interface{}
	}{
		{&d.scores, m.FactorScores},
		{&d.weights, m.FactorWeights},
		{&d.strengths, nonNil(m.Strengths)},
		{&d.gaps, nonNil(m.Gaps)},
		{&d.suggestions, nonNil(m.ImprovementSuggestions)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return d, err
		}
		*f.dst = string(b)
	}
	return d, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                                             models.Match
		scores, weights, strengths, gaps, suggestions []byte
		status, stage                                 string
		viewed, responded, revealed                   sql.NullTime
	)

	err := row.Scan(
		&m.ID, &m.AssignmentID, &m.ProfileID, &m.OverallScore,
		&scores, &weights, &strengths, &gaps, &suggestions,
		&status, &stage, &m.OrganizationConsented, &m.CandidateConsented,
		&m.BudgetMasked, &m.IsColdStart, &m.ColdStartOptIn, &m.IsNearMatch, &m.IsStrongMatch,
		&m.GeneratedAt, &m.LastScoredAt, &viewed, &responded, &revealed,
		&m.ExpiresAt, &m.DeclineReason, &m.Version,
	)
	if err != nil {
		return nil, err
	}

	m.Status = models.MatchStatus(status)
	m.CommunicationStage = models.CommunicationStage(stage)
	m.ViewedAt = nullTime(viewed)
	m.RespondedAt = nullTime(responded)
	m.RevealedAt = nullTime(revealed)

	docs := []struct {
		raw []byte
		dst interface{}
	}{
		{scores, &m.FactorScores},
		{weights, &m.FactorWeights},
		{strengths, &m.Strengths},
		{gaps, &m.Gaps},
		{suggestions, &m.ImprovementSuggestions},
	}
	for _, d := range docs {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("decode match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func queryError(queryType string, err error) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(queryType)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
}
