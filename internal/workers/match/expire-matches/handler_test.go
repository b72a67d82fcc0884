package expirematches

import (
	"context"
	"testing"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/lifecycle"
	"match-workers/internal/models"
	"match-workers/internal/workers/match/matchtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireDue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockExpirer) Now() time.Time {
	return matchtest.Now
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_ExpiresOnlyDueOpenMatches(t *testing.T) {
	f := matchtest.NewFixture(t)
	ctx := context.Background()
	for _, id := range []string{"prof-001", "prof-002"} {
		f.Repo.PutProfile(matchtest.NearProfile(id), matchtest.AssignmentID)
		_, err := f.Service.ScoreAndStore(ctx, matchtest.AssignmentID, id)
		require.NoError(t, err)
	}

	f.Repo.PutProfile(matchtest.NearProfile("prof-003"), matchtest.AssignmentID)

	accepted, err := f.Service.ScoreAndStore(ctx, matchtest.AssignmentID, "prof-003")
	require.NoError(t, err)
	_, err = f.Service.Transition(ctx, accepted.ID, lifecycle.View())
	require.NoError(t, err)
	_, err = f.Service.Transition(ctx, accepted.ID, lifecycle.Accept())
	require.NoError(t, err)

	h, err := NewHandler(DefaultConfig(), f.Service, logger.NewTestLogger(t))
	require.NoError(t, err)

	early, err := h.Execute(ctx)
	require.NoError(t, err)
	assert.Zero(t, early.ExpiredCount)

	f.Clock.Advance(14 * 24 * time.Hour)
	out, err := h.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out.ExpiredCount)
	assert.Equal(t, f.Clock.Now(), out.SweptAt)

	statuses := map[models.MatchStatus]int{}
	for _, m := range f.Repo.Matches() {
		statuses[m.Status]++
	}
	assert.Equal(t, map[models.MatchStatus]int{models.StatusExpired: 2, models.StatusAccepted: 1}, statuses)

	again, err := h.Execute(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.ExpiredCount, "a second sweep finds nothing")
}

func TestExecute_StoreFailure(t *testing.T) {
	expirer := &mockExpirer{}
	expirer.On("ExpireDue", mock.Anything).Return(0, errors.NewQueryTimeoutError("list_expirable"))

	h, err := NewHandler(DefaultConfig(), expirer, logger.NewNoOpLogger())
	require.NoError(t, err)

	out, err := h.Execute(context.Background())

	assert.Nil(t, out)
	assert.Equal(t, errors.ErrCodeQueryTimeout, errors.CodeOf(err))
	expirer.AssertExpectations(t)
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(&Config{Enabled: true}, &mockExpirer{}, logger.NewNoOpLogger())
	assert.Error(t, err)
}
