package notification

import (
	"time"

	"github.com/phrazzld/dozo/internal/config"
)

// Config holds the tunables of the notification engine.
type Config struct {
	// ReminderLookahead is how far ahead of a timed task's due instant a
	// reminder may be sent.
	ReminderLookahead time.Duration
	// DigestLookaheadDays bounds the upcoming bucket of the digest.
	DigestLookaheadDays int
	// DigestUpcomingLimit caps the number of upcoming tasks in a digest.
	DigestUpcomingLimit int
	// DeliveryConcurrency is the number of deliveries in flight per tick.
	DeliveryConcurrency int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		ReminderLookahead:   30 * time.Minute,
		DigestLookaheadDays: 7,
		DigestUpcomingLimit: 10,
		DeliveryConcurrency: 1,
	}
}

// ConfigFrom maps the scheduler section of the application config.
func ConfigFrom(cfg config.SchedulerConfig) Config {
	return Config{
		ReminderLookahead:   cfg.ReminderLookahead(),
		DigestLookaheadDays: cfg.DigestLookaheadDays,
		DigestUpcomingLimit: cfg.DigestUpcomingLimit,
		DeliveryConcurrency: cfg.DeliveryConcurrency,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReminderLookahead < 0 {
		c.ReminderLookahead = 0
	}
	if c.DigestLookaheadDays <= 0 {
		c.DigestLookaheadDays = def.DigestLookaheadDays
	}
	if c.DigestUpcomingLimit <= 0 {
		c.DigestUpcomingLimit = def.DigestUpcomingLimit
	}
	if c.DeliveryConcurrency <= 0 {
		c.DeliveryConcurrency = def.DeliveryConcurrency
	}
	return c
}
