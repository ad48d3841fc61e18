package assignment

import (
	"time"

	"github.com/okian/huddle/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithLogger sets a custom logger for the coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueueSize bounds the assignment task queue.
func WithQueueSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of commit workers.
func WithWorkerCount(count int) Option {
	return func(c *Coordinator) {
		if count > 0 {
			c.workerCount = count
		}
	}
}

// WithReplayCacheSize bounds the duplicate-response guard.
func WithReplayCacheSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.replayCacheSize = size
		}
	}
}

// WithHelpRequestTTL expires unanswered help requests. Zero keeps them
// pending forever.
func WithHelpRequestTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl >= 0 {
			c.helpRequestTTL = ttl
		}
	}
}

// WithSweepInterval tunes how often expired help requests are trimmed.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.sweepInterval = interval
		}
	}
}
