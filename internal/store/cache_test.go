package store

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// ==========================
// Test Helper Functions
// ==========================

// countingRepository counts document reads that reach the backing store.
type countingRepository struct {
	*MemoryRepository
	requirementReads atomic.Int32
	profileReads     atomic.Int32
}

func (c *countingRepository) GetAssignmentRequirements(ctx context.Context, id string) (*models.AssignmentRequirements, error) {
	c.requirementReads.Add(1)
	return c.MemoryRepository.GetAssignmentRequirements(ctx, id)
}

func (c *countingRepository) GetCandidateProfile(ctx context.Context, id string) (*models.CandidateProfile, error) {
	c.profileReads.Add(1)
	return c.MemoryRepository.GetCandidateProfile(ctx, id)
}

// readOnlyRepository hides the document writer methods of the wrapped store.
type readOnlyRepository struct {
	Repository
}

func setupBacking() *countingRepository {
	mem := NewMemoryRepository()
	mem.PutRequirements(&models.AssignmentRequirements{
		ID:             "asg-1",
		OrganizationID: "org-1",
		Weights:        models.FactorValues{Mission: 20, Expertise: 40, Tools: 15, Logistics: 15, Recency: 10},
		RequiredTools:  []string{"terraform"},
		LocationMode:   models.LocationRemote,
	})
	mem.PutProfile(&models.CandidateProfile{
		ID:                   "prof-1",
		Tools:                []models.ToolRecord{{ToolID: "terraform"}},
		Languages:            []string{"en"},
		ProfileReadyForMatch: true,
	}, "asg-1")
	return &countingRepository{MemoryRepository: mem}
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// ==========================
// Read-Through Tests
// ==========================

func TestCachedRepository_RequirementsReadThrough(t *testing.T) {
	mr, client := setupMiniredis(t)
	backing := setupBacking()
	repo := NewCachedRepository(backing, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := repo.GetAssignmentRequirements(ctx, "asg-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(RequirementsKey("asg-1")))
	assert.Equal(t, time.Minute, mr.TTL(RequirementsKey("asg-1")))

	second, err := repo.GetAssignmentRequirements(ctx, "asg-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), backing.requirementReads.Load(), "second read is served from redis")
}

func TestCachedRepository_ProfileExpiresWithTTL(t *testing.T) {
	mr, client := setupMiniredis(t)
	backing := setupBacking()
	repo := NewCachedRepository(backing, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	p, err := repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)
	assert.Equal(t, "prof-1", p.ID)
	assert.Equal(t, int32(2), backing.profileReads.Load())
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	mr, client := setupMiniredis(t)
	repo := NewCachedRepository(setupBacking(), client, 0, logger.NewTestLogger(t))

	_, err := repo.GetCandidateProfile(context.Background(), "ghost")

	assert.True(t, stderrors.Is(err, errors.ErrMatchNotFound))
	assert.False(t, mr.Exists(ProfileKey("ghost")))
}

func TestCachedRepository_UndecodableEntryRefetches(t *testing.T) {
	mr, client := setupMiniredis(t)
	backing := setupBacking()
	repo := NewCachedRepository(backing, client, time.Minute, logger.NewTestLogger(t))

	require.NoError(t, mr.Set(RequirementsKey("asg-1"), "{not json"))

	req, err := repo.GetAssignmentRequirements(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", req.OrganizationID)
	assert.Equal(t, int32(1), backing.requirementReads.Load())
}

func TestCachedRepository_Invalidate(t *testing.T) {
	mr, client := setupMiniredis(t)
	backing := setupBacking()
	repo := NewCachedRepository(backing, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := repo.GetAssignmentRequirements(ctx, "asg-1")
	require.NoError(t, err)
	_, err = repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)

	require.NoError(t, repo.InvalidateRequirements(ctx, "asg-1"))
	require.NoError(t, repo.InvalidateProfile(ctx, "prof-1"))

	assert.False(t, mr.Exists(RequirementsKey("asg-1")))
	assert.False(t, mr.Exists(ProfileKey("prof-1")))
}

func TestCachedRepository_SaveInvalidatesCachedDocuments(t *testing.T) {
	mr, client := setupMiniredis(t)
	backing := setupBacking()
	repo := NewCachedRepository(backing, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	before, err := repo.GetAssignmentRequirements(ctx, "asg-1")
	require.NoError(t, err)
	require.Equal(t, 40, before.Weights.Expertise)
	_, err = repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)
	require.True(t, mr.Exists(RequirementsKey("asg-1")))

	republished := *before
	republished.Weights = models.FactorValues{Mission: 10, Expertise: 60, Tools: 10, Logistics: 10, Recency: 10}
	require.NoError(t, repo.SaveRequirements(ctx, &republished))
	assert.False(t, mr.Exists(RequirementsKey("asg-1")))

	after, err := repo.GetAssignmentRequirements(ctx, "asg-1")
	require.NoError(t, err)
	assert.Equal(t, 60, after.Weights.Expertise)
	assert.Equal(t, int32(2), backing.requirementReads.Load())

	profile, err := repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)
	profile.Languages = []string{"en", "de"}
	require.NoError(t, repo.SaveProfile(ctx, profile))

	reloaded, err := repo.GetCandidateProfile(ctx, "prof-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de"}, reloaded.Languages)

	added, err := repo.AddToPool(ctx, "asg-1", "prof-1", "prof-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)
}

func TestCachedRepository_SaveRejectsReadOnlyBacking(t *testing.T) {
	_, client := setupMiniredis(t)
	repo := NewCachedRepository(readOnlyRepository{setupBacking()}, client, time.Minute, logger.NewNoOpLogger())

	err := repo.SaveRequirements(context.Background(), &models.AssignmentRequirements{ID: "asg-1"})
	assert.Error(t, err)
}

func TestCachedRepository_MatchesBypassCache(t *testing.T) {
	mr, client := setupMiniredis(t)
	repo := NewCachedRepository(setupBacking(), client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	stored, err := repo.UpsertMatch(ctx, newTestMatch("asg-1", "prof-1", 65))
	require.NoError(t, err)

	got, err := repo.GetMatch(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, mr.Keys())
}

// ==========================
// Failure Fallback Tests
// ==========================

func TestCachedRepository_RedisErrorFallsBack(t *testing.T) {
	db, mock := redismock.NewClientMock()
	backing := setupBacking()
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	repo := NewCachedRepository(backing, db, time.Minute, log)

	mock.ExpectGet(RequirementsKey("asg-1")).SetErr(stderrors.New("connection refused"))
	mock.Regexp().ExpectSet(RequirementsKey("asg-1"), `.*`, time.Minute).SetErr(stderrors.New("connection refused"))

	req, err := repo.GetAssignmentRequirements(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, "asg-1", req.ID)
	assert.Equal(t, int32(1), backing.requirementReads.Load())

	assert.Equal(t, 1, logs.FilterMessage("cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache write failed").Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRepository_InvalidateError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewCachedRepository(setupBacking(), db, time.Minute, logger.NewNoOpLogger())

	mock.ExpectDel(ProfileKey("prof-1")).SetErr(stderrors.New("READONLY"))

	err := repo.InvalidateProfile(context.Background(), "prof-1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCacheFailed, errors.CodeOf(err))
}
