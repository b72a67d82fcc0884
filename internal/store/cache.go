// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/common/logger"
	"match-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 10 * time.Minute

func RequirementsKey(id string) string {
	return fmt.Sprintf("match:requirements:%s", id)
}

func ProfileKey(id string) string {
	return fmt.Sprintf("match:profile:%s", id)
}

// CachedRepository reads requirements and profiles through redis. Match rows are
// never cached since they carry the optimistic version. Cache failures fall back to
// the wrapped repository.
type CachedRepository struct {
	Repository
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRepository(next Repository, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{
		Repository: next,
		redis:      rdb,
		ttl:        ttl,
		logger:     log.WithFields(map[string]interface{}{"component": "match-cache"}),
	}
}

func (c *CachedRepository) GetAssignmentRequirements(ctx context.Context, id string) (*models.AssignmentRequirements, error) {
	key := RequirementsKey(id)

	var cached models.AssignmentRequirements
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	req, err := c.Repository.GetAssignmentRequirements(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, req)
	return req, nil
}

func (c *CachedRepository) GetCandidateProfile(ctx context.Context, id string) (*models.CandidateProfile, error) {
	key := ProfileKey(id)

	var cached models.CandidateProfile
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := c.Repository.GetCandidateProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, p)
	return p, nil
}

// SaveRequirements writes through to the wrapped store and drops the cached copy so
// the next read sees the republished weights.
func (c *CachedRepository) SaveRequirements(ctx context.Context, req *models.AssignmentRequirements) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if err := w.SaveRequirements(ctx, req); err != nil {
		return err
	}
	return c.InvalidateRequirements(ctx, req.ID)
}

func (c *CachedRepository) SaveProfile(ctx context.Context, p *models.CandidateProfile) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if err := w.SaveProfile(ctx, p); err != nil {
		return err
	}
	return c.InvalidateProfile(ctx, p.ID)
}

// AddToPool is not cached; pools are always listed from the wrapped store.
func (c *CachedRepository) AddToPool(ctx context.Context, assignmentID string, profileIDs ...string) (int64, error) {
	w, err := c.writer()
	if err != nil {
		return 0, err
	}
	return w.AddToPool(ctx, assignmentID, profileIDs...)
}

func (c *CachedRepository) writer() (DocumentWriter, error) {
	w, ok := c.Repository.(DocumentWriter)
	if !ok {
		return nil, fmt.Errorf("%T does not store documents", c.Repository)
	}
	return w, nil
}

// InvalidateRequirements drops a cached assignment, e.g. after its weights were republished.
func (c *CachedRepository) InvalidateRequirements(ctx context.Context, id string) error {
	return c.del(ctx, RequirementsKey(id))
}

// InvalidateProfile drops a cached candidate profile.
func (c *CachedRepository) InvalidateProfile(ctx context.Context, id string) error {
	return c.del(ctx, ProfileKey(id))
}

func (c *CachedRepository) get(ctx context.Context, key string, dest interface{}) bool {
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn("cache entry undecodable, refetching", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (c *CachedRepository) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (c *CachedRepository) del(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return errors.NewCacheFailedError("delete", err)
	}
	return nil
}
