// Package poller waits for an asynchronous server-side state change by
// re-reading a resource at a fixed interval until a condition holds.
package poller

import (
	"context"
	"time"
	"transferly/pkg/logger"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Fetcher performs one idempotent read.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Condition reports whether the fetched value reflects the awaited state.
type Condition[T any] func(value T) bool

type Options[T any] struct {
	Interval    time.Duration
	MaxAttempts int
	// OnAttempt observes every successful fetch, before the condition is checked.
	OnAttempt func(attempt int, value T)
	Logger    *logger.Logger
}

type Result[T any] struct {
	Success bool
	// Data is the satisfying value on success, otherwise the last value
	// fetched without error (zero if every fetch failed).
	Data     T
	Attempts int
	TimedOut bool
}

// Until calls fetch up to MaxAttempts times, sleeping Interval between
// attempts, and returns as soon as cond holds. Fetch errors are logged and
// count as an attempt; they never end the wait early. Attempts are strictly
// sequential.
//
// Cancelling ctx stops the loop before the next fetch or during the sleep; the
// partial result is returned together with ctx.Err().
func Until[T any](ctx context.Context, fetch Fetcher[T], cond Condition[T], opts Options[T]) (Result[T], error) {
	opts = withDefaults(opts)

	var res Result[T]
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Attempts = attempt
		value, err := fetch(ctx)
		if err != nil {
			opts.Logger.Warn("poll fetch failed",
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"error", err,
			)
		} else {
			res.Data = value
			if opts.OnAttempt != nil {
				opts.OnAttempt(attempt, value)
			}
			if cond(value) {
				res.Success = true
				return res, nil
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		timer.Reset(opts.Interval)
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-timer.C:
		}
	}

	res.TimedOut = true
	opts.Logger.Info("poll exhausted without reaching condition",
		"attempts", res.Attempts,
		"interval", opts.Interval,
	)
	return res, nil
}

func withDefaults[T any](opts Options[T]) Options[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return opts
}
