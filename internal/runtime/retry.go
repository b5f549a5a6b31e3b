package runtime

import (
	"context"
	"time"

	configpkg "github.com/drblury/hubflow/internal/runtime/config"
	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
)

// RetryPolicy governs how often and how fast a failed send attempt is
// repeated. All attempts share one absolute deadline derived from the send
// timeout.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// InitialInterval is the first backoff pause. It doubles on every
	// retry up to MaxInterval.
	InitialInterval time.Duration
	// MaxInterval caps the backoff pause.
	MaxInterval time.Duration
	// RetryIf overrides the default transient/fatal classification.
	RetryIf func(error) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 800 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 120 * time.Second
	}
	return p
}

func policyFromConfig(conf *configpkg.Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      conf.RetryMaxRetries,
		InitialInterval: conf.RetryInitialInterval,
		MaxInterval:     conf.RetryMaxInterval,
	}
}

// runWithRetry invokes op until it succeeds, fails fatally, exhausts the
// policy's attempts, or the absolute deadline passes. The deadline is fixed
// once from timeout; every attempt re-derives its remaining budget from it.
// A timeout of zero or less means no deadline and op receives a remaining
// budget of zero. op is handed the previous attempt's error so it can log or
// adjust; the deadline check runs before each attempt, and hitting it returns
// an OperationTimeoutError wrapping the last error without invoking op again.
func runWithRetry(ctx context.Context, policy RetryPolicy, timeout time.Duration, op func(ctx context.Context, remaining time.Duration, lastErr error) error) error {
	policy = policy.withDefaults()

	retryIf := policy.RetryIf
	if retryIf == nil {
		retryIf = errspkg.IsRetryable
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	backoff := policy.InitialInterval
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		var remaining time.Duration
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return errspkg.NewOperationTimeoutError(lastErr)
			}
		}

		err := op(ctx, remaining, lastErr)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if attempt == policy.MaxRetries {
			break
		}

		pause := backoff
		if pause > policy.MaxInterval {
			pause = policy.MaxInterval
		}
		if !deadline.IsZero() {
			if budget := time.Until(deadline); pause > budget {
				pause = budget
			}
		}
		if pause > 0 {
			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		backoff *= 2
	}

	return lastErr
}
