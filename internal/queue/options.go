package queue

import (
	"log/slog"
	"time"
)

const (
	defaultCapacity     = 64
	defaultStallTimeout = 10 * time.Second
	defaultStallRetries = 3
)

// Option configures a Queue.
type Option func(*Queue)

// WithParallelism bounds concurrent actions within one batch. Values below 1 mean 1.
func WithParallelism(n int) Option {
	return func(q *Queue) {
		if n < 1 {
			n = 1
		}
		q.parallelism = n
	}
}

// WithCapacity sets the inbox buffer size.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithSuccess routes successful records to downstream and registers this queue as its feeder.
func WithSuccess(downstream *Queue) Option {
	return func(q *Queue) { q.success = downstream }
}

// WithFail routes failed records to downstream and registers this queue as its feeder.
func WithFail(downstream *Queue) Option {
	return func(q *Queue) { q.fail = downstream }
}

// WithLogger injects the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithHandoff tunes stall reporting for blocked enqueues: every timeout counts
// one stall, and a warning is logged once retries stalls have accumulated.
func WithHandoff(timeout time.Duration, retries int) Option {
	return func(q *Queue) {
		if timeout > 0 {
			q.stallTimeout = timeout
		}
		if retries > 0 {
			q.stallRetries = retries
		}
	}
}

// WithClock overrides the time source used for update stamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}
