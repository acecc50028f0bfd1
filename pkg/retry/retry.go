// Package retry implements the exponential-backoff-with-jitter policy shared
// by AgentDispatcher and Judge when an external HTTP call is rate limited
// (§4.2, §4.3, §7 D.1). Ordinary failures (connection errors, 4xx other than
// 429, malformed bodies) are surfaced to the caller on the first attempt —
// only HTTP 429 triggers a retry, matching the Open Question decision that
// status_history rate-limit entries should be a reliable signal rather than
// noise generated by routine upstream errors.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy bounds exponential backoff attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Outcome is returned by the attempt function on each call.
type Outcome struct {
	// RateLimited marks the attempt as a 429 worth retrying. Any other
	// non-nil error from the attempt function aborts the loop immediately.
	RateLimited bool
}

// AttemptFunc performs one call and reports whether it was rate limited.
// A non-nil error that is not accompanied by RateLimited=true is treated as
// terminal and returned to the caller without further attempts.
type AttemptFunc func(ctx context.Context, attempt int) (Outcome, error)

// OnRateLimit is invoked after each rate-limited attempt that will be
// retried, before the sleep, so callers can append a status_history entry
// (§5). It is not invoked when the final attempt is rate limited.
type OnRateLimit func(attempt int, wait time.Duration)

// Do runs fn up to p.MaxAttempts times, sleeping an exponentially growing,
// jittered delay between 429s. It returns the last error seen, or nil once
// an attempt completes without RateLimited set. Delay doubles each attempt
// starting at BaseDelay, capped at MaxDelay, with up to 20% jitter added so
// concurrent runs against the same upstream don't retry in lockstep.
func Do(ctx context.Context, p Policy, onRateLimit OnRateLimit, fn AttemptFunc) (attempts int, err error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome, callErr := fn(ctx, attempt)
		attempts = attempt

		if callErr != nil && !outcome.RateLimited {
			return attempts, callErr
		}
		if !outcome.RateLimited {
			return attempts, nil
		}
		if attempt == maxAttempts {
			return attempts, callErr
		}

		wait := backoff(p, attempt)
		if onRateLimit != nil {
			onRateLimit(attempt, wait)
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return attempts, ctx.Err()
		}
	}
	return attempts, err
}

func backoff(p Policy, attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 30 * time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if delay > max {
		delay = max
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	delay += jitter
	if delay > max {
		delay = max
	}
	return delay
}
