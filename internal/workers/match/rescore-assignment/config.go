// internal/workers/match/rescore-assignment/config.go
package rescoreassignment

import (
	"fmt"
	"time"

	"match-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	// MaxFailureRatio above which the job fails instead of completing with failures.
	MaxFailureRatio float64
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   2,
		Timeout:         5 * time.Minute,
		MaxFailureRatio: 0.5,
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	c := DefaultConfig()
	c.Enabled = wc.Enabled
	c.MaxJobsActive = wc.MaxJobsActive
	c.Timeout = config.GetDuration(wc.Timeout)
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxFailureRatio < 0 || c.MaxFailureRatio > 1 {
		return fmt.Errorf("max_failure_ratio must be within [0,1]")
	}
	return nil
}
