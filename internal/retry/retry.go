// Package retry implements a bounded retry executor: a fixed delay
// table (or the rate-limit delay) chosen by the error classifier's
// verdict. The retry loop is the package's own; from
// github.com/cenkalti/backoff/v4 it uses only the backoff.Stop sentinel.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spetr/codeindexer/internal/classify"
	"github.com/spetr/codeindexer/pkg/types"
)

const (
	MaxRetries      = 5
	RateLimitDelay  = 60 * time.Second
)

// RetryDelays is the fixed transient-backoff schedule indexed by
// attempt number (0-based).
var RetryDelays = []time.Duration{
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// fixedSchedule is a backoff.BackOff that replays RetryDelays (or
// RateLimitDelay for a step whose verdict was rate_limit)
// instead of computing an exponential curve: the retry table is a
// fixed, explicit delay schedule rather than a computed curve.
type fixedSchedule struct {
	attempt    int
	rateLimited bool
}

func (f *fixedSchedule) NextBackOff() time.Duration {
	if f.rateLimited {
		return RateLimitDelay
	}
	if f.attempt >= len(RetryDelays) {
		return backoff.Stop
	}
	d := RetryDelays[f.attempt]
	f.attempt++
	return d
}

func (f *fixedSchedule) Reset() { f.attempt = 0; f.rateLimited = false }

// sleepFunc is overridden in tests to avoid real waits.
var sleepFunc = time.After

// Cancelled is returned (wrapped) when ctx is done during a retry wait.
var Cancelled = types.NewKindError(types.KindCancelled, fmt.Errorf("retry aborted by cancellation"))

// Do runs op, retrying per the following algorithm: permanent errors
// raise immediately; rate_limit errors sleep RateLimitDelay;
// transient errors sleep RetryDelays[attempt]; after MaxRetries
// attempts a Fatal error carrying the last message is raised.
// Cancellation is checked at each decision point.
func Do(ctx context.Context, op func(ctx context.Context) error) error {
	sched := &fixedSchedule{}
	var lastErr error

	attempt := 0
	for {
		if ctx.Err() != nil {
			return Cancelled
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		verdict := classify.Classify(err.Error())
		switch verdict {
		case classify.Permanent:
			return types.NewKindError(types.KindPermanentProviderError, err)
		case classify.RateLimit:
			sched.rateLimited = true
		default:
			sched.rateLimited = false
		}

		attempt++
		if attempt >= MaxRetries {
			return types.NewKindError(types.KindFatal, fmt.Errorf("retry exhausted after %d attempts: %w", attempt, lastErr))
		}

		delay := sched.NextBackOff()
		if delay == backoff.Stop {
			return types.NewKindError(types.KindFatal, fmt.Errorf("retry exhausted after %d attempts: %w", attempt, lastErr))
		}

		slog.Warn("retrying after classified error", "verdict", string(verdict), "delay", delay, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return Cancelled
		case <-sleepFunc(delay):
		}
	}
}
