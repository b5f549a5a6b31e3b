package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
)

var errTransient = errors.New("transient failure")

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRunWithRetry_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), fastPolicy(3), 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRunWithRetry_RetryBound(t *testing.T) {
	// An always-failing retryable op runs exactly MaxRetries+1 times
	calls := 0
	err := runWithRetry(context.Background(), fastPolicy(2), 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRunWithRetry_FatalStopsImmediately(t *testing.T) {
	fatal := errspkg.NewEventDataError(errors.New("bad payload"))
	calls := 0
	err := runWithRetry(context.Background(), fastPolicy(3), 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRunWithRetry_DeadlineStopsBeforeNextAttempt(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), fastPolicy(5), time.Millisecond, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		time.Sleep(5 * time.Millisecond)
		return errTransient
	})

	var timeoutErr errspkg.OperationTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected operation timeout error, got %v", err)
	}
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected timeout to wrap the last error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no attempt after the deadline, got %d attempts", calls)
	}
}

func TestRunWithRetry_RemainingBudgetDecreases(t *testing.T) {
	var budgets []time.Duration
	err := runWithRetry(context.Background(), RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 2 * time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, time.Second, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		budgets = append(budgets, remaining)
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last error, got %v", err)
	}
	if len(budgets) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(budgets))
	}
	for i := 1; i < len(budgets); i++ {
		if budgets[i] >= budgets[i-1] {
			t.Fatalf("expected remaining budget to shrink, got %v then %v", budgets[i-1], budgets[i])
		}
		if budgets[i] <= 0 {
			t.Fatalf("expected positive budget on every attempt, got %v", budgets[i])
		}
	}
}

func TestRunWithRetry_NoDeadlinePassesZeroBudget(t *testing.T) {
	err := runWithRetry(context.Background(), fastPolicy(1), 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		if remaining != 0 {
			t.Fatalf("expected zero budget without a deadline, got %v", remaining)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunWithRetry_LastErrorHandedToNextAttempt(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), fastPolicy(1), 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		switch calls {
		case 1:
			if lastErr != nil {
				t.Fatalf("expected no last error on first attempt, got %v", lastErr)
			}
			return errTransient
		default:
			if !errors.Is(lastErr, errTransient) {
				t.Fatalf("expected previous error on retry, got %v", lastErr)
			}
			return nil
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRunWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := runWithRetry(ctx, RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     time.Second,
	}, 0, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		calls++
		return errTransient
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected backoff to be interrupted after 1 attempt, got %d", calls)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	if p.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", p.MaxRetries)
	}
	if p.InitialInterval != 800*time.Millisecond {
		t.Fatalf("expected default initial interval 800ms, got %v", p.InitialInterval)
	}
	if p.MaxInterval != 120*time.Second {
		t.Fatalf("expected default max interval 120s, got %v", p.MaxInterval)
	}

	custom := RetryPolicy{MaxRetries: 7, InitialInterval: time.Second, MaxInterval: time.Minute}.withDefaults()
	if custom.MaxRetries != 7 || custom.InitialInterval != time.Second || custom.MaxInterval != time.Minute {
		t.Fatalf("expected custom values preserved, got %+v", custom)
	}
}
