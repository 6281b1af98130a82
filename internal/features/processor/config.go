package processor

import (
	"time"

	"crm-workflow/internal/config"
)

type Config struct {
	Workers       int
	LeaseDuration time.Duration
	PollInterval  time.Duration
	CallTimeout   time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	SweepSchedule string
}

func NewConfig(cfg *config.Config) Config {
	return Config{
		Workers:       cfg.WorkerCount,
		LeaseDuration: cfg.LeaseDuration,
		PollInterval:  cfg.PollInterval,
		CallTimeout:   cfg.CallTimeout,
		MaxAttempts:   cfg.MaxAttempts,
		BackoffBase:   cfg.BackoffBase,
		BackoffMax:    cfg.BackoffMax,
		SweepSchedule: cfg.SweepSchedule,
	}
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 2 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	// A call must end before its lease can expire, or the sweep could hand the
	// item to a second worker while the first is still applying it.
	if c.CallTimeout >= c.LeaseDuration {
		c.CallTimeout = c.LeaseDuration / 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 30s"
	}
	return c
}
