// internal/workers/match/expire-matches/config.go
package expirematches

import (
	"fmt"
	"time"

	"match-workers/internal/common/config"
)

// Config for the sweep. One job at a time; concurrent sweeps would only fight over
// the same rows.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Timeout: 2 * time.Minute,
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled: wc.Enabled,
		Timeout: config.GetDuration(wc.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
