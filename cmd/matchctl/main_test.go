package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"match-workers/internal/discovery"
	"match-workers/internal/models"
	"match-workers/internal/workers/match/matchtest"
	"match-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const nearProfileYAML = `
id: prof-yaml
expertise:
  - skillId: Go
    proficiencyLevel: 4
causes: [Climate]
values: [transparency]
region: DE
languages: [en, de]
workModes: [remote]
availableStartDate: "2025-03-15T00:00:00Z"
profileReadyForMatch: true
`

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func writeJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return writeFile(t, name, b)
}

// writeConfig writes a loadable config file. extra is appended verbatim, so it may
// continue the database section.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	return writeFile(t, "config.yaml", []byte(`
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: matches
    user: matches
  redis:
    address: localhost:6379
`+extra))
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// ==========================
// Score Command Tests
// ==========================

func TestScore_JSONAndYAMLInputs(t *testing.T) {
	reqFile := writeJSON(t, "requirements.json", matchtest.Requirements())
	profileFile := writeFile(t, "profile.yaml", []byte(nearProfileYAML))

	out, err := runCmd(t, "score",
		"--requirements", reqFile,
		"--profile", profileFile,
		"--as-of", "2025-03-01T12:00:00Z")
	require.NoError(t, err)

	var m models.Match
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "prof-yaml", m.ProfileID)
	assert.Equal(t, 65, m.OverallScore)
	assert.True(t, m.IsNearMatch)
	assert.True(t, matchtest.Now.Equal(m.GeneratedAt))
}

func TestScore_UsesConfiguredMatchingSettings(t *testing.T) {
	reqFile := writeJSON(t, "requirements.json", matchtest.Requirements())
	profileFile := writeJSON(t, "profile.json", matchtest.NearProfile("prof-1"))

	out, err := runCmd(t, "score",
		"--config", writeConfig(t, "matching:\n  default_ttl_days: 30\n"),
		"--requirements", reqFile,
		"--profile", profileFile,
		"--as-of", "2025-03-01T12:00:00Z")
	require.NoError(t, err)

	var m models.Match
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.True(t, matchtest.Now.Add(30*24*time.Hour).Equal(m.ExpiresAt), "expiresAt %s", m.ExpiresAt)
}

func TestScore_UnreadableConfigFails(t *testing.T) {
	reqFile := writeJSON(t, "requirements.json", matchtest.Requirements())
	profileFile := writeJSON(t, "profile.json", matchtest.NearProfile("prof-1"))

	_, err := runCmd(t, "score",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--requirements", reqFile,
		"--profile", profileFile)
	assert.Error(t, err)
}

func TestScore_Rejections(t *testing.T) {
	reqFile := writeJSON(t, "requirements.json", matchtest.Requirements())
	profileFile := writeJSON(t, "profile.json", matchtest.NearProfile("prof-1"))

	tests := []struct {
		name string
		args []string
	}{
		{"bad as-of", []string{"score", "--requirements", reqFile, "--profile", profileFile, "--as-of", "yesterday"}},
		{"missing profile flag", []string{"score", "--requirements", reqFile}},
		{"missing file", []string{"score", "--requirements", reqFile, "--profile", "/nonexistent.json"}},
		{"schema violation", []string{"score", "--requirements", writeFile(t, "bad.yaml", []byte("id: asg\nweights: {mission: lots}\n")), "--profile", profileFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

// ==========================
// Validate Weights Tests
// ==========================

func TestValidateWeights(t *testing.T) {
	ok := writeJSON(t, "ok.json", matchtest.Requirements())
	out, err := runCmd(t, "validate-weights", "--requirements", ok)
	require.NoError(t, err)
	assert.Contains(t, out, "weights ok: 100 total")

	req := matchtest.Requirements()
	req.Weights.Mission = 45
	bad := writeJSON(t, "bad.json", req)
	_, err = runCmd(t, "validate-weights", "--requirements", bad)
	assert.ErrorContains(t, err, "sum")
}

// ==========================
// Discover Command Tests
// ==========================

func TestDiscover_PrintsDiscoverableMatches(t *testing.T) {
	var searchBody string
	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/discovery-test/_search" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		b, _ := io.ReadAll(r.Body)
		searchBody = string(b)
		_, _ = w.Write([]byte(`{"hits": {"hits": [
			{"_source": {"matchId": "m-1", "assignmentId": "asg-001", "overallScore": 91, "status": "viewed", "fairnessEligible": true}}
		]}}`))
	}))
	t.Cleanup(es.Close)

	cfg := writeConfig(t, "  elasticsearch:\n    addresses: [\""+es.URL+"\"]\ndiscovery:\n  index: discovery-test\n")
	out, err := runCmd(t, "discover", "--config", cfg, "--assignment", "asg-001", "--limit", "5")
	require.NoError(t, err)

	var docs []discovery.Document
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "m-1", docs[0].MatchID)
	assert.True(t, docs[0].FairnessEligible)

	assert.Contains(t, searchBody, `"assignmentId":"asg-001"`)
	assert.Contains(t, searchBody, `"size":5`)
}

func TestDiscover_RequiresAssignment(t *testing.T) {
	_, err := runCmd(t, "discover")
	assert.Error(t, err)
}

// ==========================
// Registry Command Tests
// ==========================

func TestRegistry_ListsEveryWorker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	_, err := runCmd(t, "registry", "--output", path)
	require.NoError(t, err)

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Activities, 5)

	for _, taskType := range []string{
		"score-match", "transition-match-lifecycle", "request-match-disclosure",
		"expire-matches", "rescore-assignment",
	} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.NotEmpty(t, a.InputSchema, taskType)
		assert.NotEmpty(t, a.ErrorCodes, taskType)
	}

	score, _ := reg.Find("score-match")
	assert.Equal(t, "30s", score.Timeout)
}
