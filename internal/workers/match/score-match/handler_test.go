package scorematch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/workers/match/matchtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) (*Handler, *matchtest.Fixture) {
	f := matchtest.NewFixture(t)
	h, err := NewHandler(DefaultConfig(), f.Service, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h, f
}

func mustRaw(t *testing.T, v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ==========================
// Configuration Tests
// ==========================

func TestNewHandler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{"zero timeout", &Config{Enabled: true, MaxJobsActive: 5}},
		{"zero jobs", &Config{Enabled: true, Timeout: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHandler(tt.config, nil, logger.NewNoOpLogger())
			assert.Error(t, err)
		})
	}
}

// ==========================
// Input Parsing Tests
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{"by id", `{"assignmentId":"asg-001","profileId":"prof-001"}`, false},
		{"prefetched", `{"requirements":{"id":"a"},"profile":{"id":"p"}}`, false},
		{"extra process variables", `{"assignmentId":"a","profileId":"p","orgName":"x"}`, false},
		{"profile id missing", `{"assignmentId":"asg-001"}`, true},
		{"half prefetched", `{"requirements":{"id":"a"}}`, true},
		{"wrong type", `{"assignmentId":7,"profileId":"p"}`, true},
		{"not json", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, input)
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_ByID(t *testing.T) {
	h, f := createTestHandler(t)
	f.Repo.PutProfile(matchtest.StrongProfile("prof-001"), matchtest.AssignmentID)

	out, err := h.Execute(context.Background(), &Input{AssignmentID: matchtest.AssignmentID, ProfileID: "prof-001"})

	require.NoError(t, err)
	assert.Equal(t, 100, out.OverallScore)
	assert.True(t, out.IsStrongMatch)
	assert.False(t, out.IsNearMatch)
	assert.True(t, out.DiscoveryEligible)
	assert.Equal(t, out.MatchID, out.Match.ID)

	stored, err := f.Repo.GetMatch(context.Background(), out.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestExecute_Prefetched(t *testing.T) {
	h, f := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		Requirements: mustRaw(t, matchtest.Requirements()),
		Profile:      mustRaw(t, matchtest.NearProfile("prof-002")),
	})

	require.NoError(t, err)
	assert.Equal(t, 65, out.OverallScore)
	assert.True(t, out.IsNearMatch)
	assert.NotEmpty(t, out.Match.Gaps)
	assert.Len(t, f.Repo.Matches(), 1)
}

func TestExecute_PrefetchedPayloadRejected(t *testing.T) {
	h, f := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{
		Requirements: json.RawMessage(`{"id":"asg-001","weights":{"mission":"high"}}`),
		Profile:      mustRaw(t, matchtest.NearProfile("prof-002")),
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
	assert.Empty(t, f.Repo.Matches())
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		sentinel error
	}{
		{"no identifiers", &Input{}, errors.ErrMissingRequiredData},
		{"unknown profile", &Input{AssignmentID: matchtest.AssignmentID, ProfileID: "ghost"}, errors.ErrMatchNotFound},
		{"unknown assignment", &Input{AssignmentID: "asg-404", ProfileID: "prof-001"}, errors.ErrMatchNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, f := createTestHandler(t)
			f.Repo.PutProfile(matchtest.NearProfile("prof-001"))

			out, err := h.Execute(context.Background(), tt.input)

			assert.Nil(t, out)
			assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}
