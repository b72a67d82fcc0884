//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-workers/internal/common/config"
	"match-workers/internal/common/database"
	"match-workers/internal/common/logger"
	"match-workers/internal/lifecycle"
	"match-workers/internal/matching"
	"match-workers/internal/models"
	"match-workers/internal/service"
	"match-workers/internal/store"
	"match-workers/internal/workers/match/matchtest"
)

// Runs against live postgres and redis, e.g. the docker-compose stack:
//
//	E2E_POSTGRES_HOST=localhost E2E_REDIS_ADDRESS=localhost:6379 go test -tags e2e ./test/e2e/
var (
	pg  *database.PostgresClient
	rdb *database.RedisClient
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestMain(m *testing.M) {
	host := os.Getenv("E2E_POSTGRES_HOST")
	if host == "" {
		fmt.Println("E2E_POSTGRES_HOST not set, skipping e2e tests")
		os.Exit(0)
	}

	var err error
	pg, err = database.NewPostgres(config.PostgresConfig{
		Host:           host,
		Port:           5432,
		Database:       getenv("E2E_POSTGRES_DB", "matches"),
		User:           getenv("E2E_POSTGRES_USER", "postgres"),
		Password:       getenv("E2E_POSTGRES_PASSWORD", "postgres"),
		MaxConnections: 10,
		MaxIdle:        2,
		SSLMode:        "disable",
	})
	if err != nil {
		panic(fmt.Sprintf("failed to open postgres: %v", err))
	}
	rdb, err = database.NewRedis(config.RedisConfig{Address: getenv("E2E_REDIS_ADDRESS", "localhost:6379")})
	if err != nil {
		panic(fmt.Sprintf("failed to open redis: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pg.Ping(ctx); err != nil {
		panic(fmt.Sprintf("postgres unreachable: %v", err))
	}
	if err := rdb.Ping(ctx); err != nil {
		panic(fmt.Sprintf("redis unreachable: %v", err))
	}
	if err := pg.ExecScript(ctx, store.Schema); err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	cancel()

	code := m.Run()

	pg.Close()
	rdb.Close()
	os.Exit(code)
}

// seed stores a fresh assignment with the given profiles under unique ids so runs
// never collide.
func seed(t *testing.T, repo *store.PostgresRepository, profiles ...*models.CandidateProfile) string {
	t.Helper()
	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	req := matchtest.Requirements()
	req.ID = "e2e-asg-" + suffix
	require.NoError(t, repo.SaveRequirements(ctx, req))

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		p.ID = p.ID + "-" + suffix
		require.NoError(t, repo.SaveProfile(ctx, p))
		ids = append(ids, p.ID)
	}
	added, err := repo.AddToPool(ctx, req.ID, ids...)
	require.NoError(t, err)
	require.Equal(t, int64(len(ids)), added)

	t.Cleanup(func() {
		_, _ = pg.DB.Exec(`DELETE FROM matches WHERE assignment_id = $1`, req.ID)
		_, _ = pg.DB.Exec(`DELETE FROM candidate_pools WHERE assignment_id = $1`, req.ID)
		_, _ = pg.DB.Exec(`DELETE FROM assignment_requirements WHERE id = $1`, req.ID)
		for _, id := range ids {
			_, _ = pg.DB.Exec(`DELETE FROM candidate_profiles WHERE id = $1`, id)
		}
	})
	return req.ID
}

func newService(t *testing.T, clock *matchtest.Clock) *service.MatchService {
	repo := store.NewCachedRepository(store.NewPostgresRepository(pg.DB), rdb.Client, time.Minute, logger.NewTestLogger(t))
	engine := matching.NewEngine(matching.DefaultConfig(), clock.Now)
	return service.New(repo, engine, service.DefaultOptions(), logger.NewTestLogger(t))
}

func TestFullMatchLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgRepo := store.NewPostgresRepository(pg.DB)
	assignmentID := seed(t, pgRepo,
		matchtest.StrongProfile("e2e-strong"),
		matchtest.NearProfile("e2e-near"),
	)
	clock := matchtest.NewClock(matchtest.Now)
	svc := newService(t, clock)

	t.Run("rescore the pool", func(t *testing.T) {
		result, err := svc.RescoreAssignment(ctx, assignmentID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 2, result.Scored)
		assert.Equal(t, 1, result.StrongMatches)
	})

	var strong *models.Match
	t.Run("read back the strong match", func(t *testing.T) {
		pool, err := pgRepo.ListCandidatePool(ctx, assignmentID)
		require.NoError(t, err)
		for _, profileID := range pool {
			m, err := pgRepo.GetMatchByPair(ctx, assignmentID, profileID)
			require.NoError(t, err)
			if m.IsStrongMatch {
				strong = m
			}
		}
		require.NotNil(t, strong)
		assert.Equal(t, 100, strong.OverallScore)
		assert.Equal(t, models.StatusSuggested, strong.Status)
	})

	t.Run("view, accept and reveal", func(t *testing.T) {
		_, err := svc.Transition(ctx, strong.ID, lifecycle.View())
		require.NoError(t, err)
		accepted, err := svc.Transition(ctx, strong.ID, lifecycle.Accept())
		require.NoError(t, err)
		assert.Equal(t, models.StageMasked, accepted.CommunicationStage)

		_, err = svc.RequestDisclosure(ctx, strong.ID, models.PartyOrganization)
		require.NoError(t, err)
		revealed, err := svc.RequestDisclosure(ctx, strong.ID, models.PartyCandidate)
		require.NoError(t, err)
		assert.Equal(t, models.StageRevealed, revealed.CommunicationStage)
	})

	t.Run("rescoring keeps lifecycle state", func(t *testing.T) {
		clock.Advance(24 * time.Hour)
		_, err := svc.ScoreAndStore(ctx, assignmentID, strong.ProfileID)
		require.NoError(t, err)

		m, err := pgRepo.GetMatch(ctx, strong.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, m.Status)
		assert.Equal(t, models.StageRevealed, m.CommunicationStage)
		assert.True(t, m.LastScoredAt.After(m.GeneratedAt))
	})

	t.Run("sweep expires the untouched match only", func(t *testing.T) {
		clock.Advance(15 * 24 * time.Hour)
		_, err := svc.ExpireDue(ctx)
		require.NoError(t, err)

		pool, err := pgRepo.ListCandidatePool(ctx, assignmentID)
		require.NoError(t, err)
		for _, profileID := range pool {
			m, err := pgRepo.GetMatchByPair(ctx, assignmentID, profileID)
			require.NoError(t, err)
			if m.ID == strong.ID {
				assert.Equal(t, models.StatusAccepted, m.Status)
			} else {
				assert.Equal(t, models.StatusExpired, m.Status)
			}
		}
	})
}
