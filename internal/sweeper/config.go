package sweeper

import "time"

// Config controls the expiration sweep loop. Expirations carry day
// granularity, so the default interval runs the sweep once per day.
type Config struct {
	Interval   time.Duration
	RunTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:   24 * time.Hour,
		RunTimeout: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}

	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
