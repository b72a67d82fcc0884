// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
)

// MemoryRepository is a mutex-guarded Repository for dry runs and tests. It applies
// the same upsert and optimistic-version rules as PostgresRepository.
type MemoryRepository struct {
	mu           sync.RWMutex
	requirements map[string]*models.AssignmentRequirements
	profiles     map[string]*models.CandidateProfile
	pools        map[string][]string
	matches      map[string]*models.Match
	byPair       map[pairKey]string
}

type pairKey struct {
	assignmentID string
	profileID    string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		requirements: map[string]*models.AssignmentRequirements{},
		profiles:     map[string]*models.CandidateProfile{},
		pools:        map[string][]string{},
		matches:      map[string]*models.Match{},
		byPair:       map[pairKey]string{},
	}
}

func (r *MemoryRepository) PutRequirements(req *models.AssignmentRequirements) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requirements[req.ID] = &cp
}

// PutProfile stores p and, when assignmentIDs are given, adds it to those pools.
func (r *MemoryRepository) PutProfile(p *models.CandidateProfile, assignmentIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.ID] = &cp
	for _, a := range assignmentIDs {
		if !contains(r.pools[a], p.ID) {
			r.pools[a] = append(r.pools[a], p.ID)
		}
	}
}

func (r *MemoryRepository) SaveRequirements(_ context.Context, req *models.AssignmentRequirements) error {
	if req == nil || req.ID == "" {
		return errors.NewMissingRequiredDataError("requirements.id")
	}
	r.PutRequirements(req)
	return nil
}

func (r *MemoryRepository) SaveProfile(_ context.Context, p *models.CandidateProfile) error {
	if p == nil || p.ID == "" {
		return errors.NewMissingRequiredDataError("profile.id")
	}
	r.PutProfile(p)
	return nil
}

func (r *MemoryRepository) AddToPool(_ context.Context, assignmentID string, profileIDs ...string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var added int64
	for _, id := range profileIDs {
		if !contains(r.pools[assignmentID], id) {
			r.pools[assignmentID] = append(r.pools[assignmentID], id)
			added++
		}
	}
	return added, nil
}

func (r *MemoryRepository) GetAssignmentRequirements(_ context.Context, id string) (*models.AssignmentRequirements, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requirements[id]
	if !ok {
		return nil, errors.NewMatchNotFoundError("assignment", id)
	}
	cp := *req
	return &cp, nil
}

func (r *MemoryRepository) GetCandidateProfile(_ context.Context, id string) (*models.CandidateProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, errors.NewMatchNotFoundError("profile", id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) ListCandidatePool(_ context.Context, assignmentID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := append([]string{}, r.pools[assignmentID]...)
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryRepository) UpsertMatch(ctx context.Context, m *models.Match) (*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{m.AssignmentID, m.ProfileID}
	if id, ok := r.byPair[key]; ok {
		next := applyRescore(r.matches[id], m)
		r.matches[id] = next
		return next.Clone(), nil
	}

	stored := m.Clone()
	stored.Version = 1
	r.matches[stored.ID] = stored
	r.byPair[key] = stored.ID
	return stored.Clone(), nil
}

func (r *MemoryRepository) GetMatch(_ context.Context, id string) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, errors.NewMatchNotFoundError("match", id)
	}
	return m.Clone(), nil
}

func (r *MemoryRepository) GetMatchByPair(_ context.Context, assignmentID, profileID string) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey{assignmentID, profileID}]
	if !ok {
		return nil, errors.NewMatchNotFoundError("match", assignmentID+"/"+profileID)
	}
	return r.matches[id].Clone(), nil
}

func (r *MemoryRepository) UpdateMatchState(_ context.Context, m *models.Match, expectedVersion int64) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.matches[m.ID]
	if !ok {
		return nil, errors.NewMatchNotFoundError("match", m.ID)
	}
	if existing.Version != expectedVersion {
		return nil, errors.NewConcurrentUpdateConflictError(m.ID, expectedVersion)
	}
	next := applyState(existing, m)
	r.matches[m.ID] = next
	return next.Clone(), nil
}

func (r *MemoryRepository) ListExpirable(_ context.Context, now time.Time, limit int) ([]*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.Match{}
	for _, m := range r.matches {
		if m.Status.IsTerminal() || m.ExpiresAt.After(now) {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Matches returns a snapshot of every stored match, ordered by id.
func (r *MemoryRepository) Matches() []*models.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
