package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors have expected messages
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrConfigRequired", ErrConfigRequired, "hubflow: configuration is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "hubflow: logger is required"},
		{"ErrEventPayloadRequired", ErrEventPayloadRequired, "hubflow: event payload is required"},
		{"ErrProducerClosed", ErrProducerClosed, "hubflow: producer is closed"},
		{"ErrSendFailed", ErrSendFailed, "hubflow: batch send failed"},
		{"ErrReconnectDisabled", ErrReconnectDisabled, "hubflow: link lost and auto reconnect is disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("invalid send timeout")
	err := ConfigValidationError{Err: inner}

	// Test Error()
	want := "hubflow: invalid configuration: invalid send timeout"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// Test Unwrap()
	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		err := NewConfigValidationError(nil)
		if err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("wraps error correctly", func(t *testing.T) {
		inner := errors.New("bad config")
		err := NewConfigValidationError(inner)

		var cfgErr ConfigValidationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigValidationError, got %T", err)
		}
		if cfgErr.Err != inner {
			t.Errorf("wrapped error = %v, want %v", cfgErr.Err, inner)
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		inner := errors.New("specific error")
		err := NewConfigValidationError(inner)

		if !errors.Is(err, inner) {
			t.Error("errors.Is should match wrapped error")
		}
	})
}

func TestConstructorsReturnNilOnNil(t *testing.T) {
	constructors := []struct {
		name string
		fn   func(error) error
	}{
		{"NewAuthenticationError", NewAuthenticationError},
		{"NewConnectError", NewConnectError},
		{"NewConnectionLostError", NewConnectionLostError},
		{"NewEventDataError", NewEventDataError},
		{"NewEventDataSendError", NewEventDataSendError},
	}

	for _, tt := range constructors {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(nil); err != nil {
				t.Errorf("%s(nil) = %v, want nil", tt.name, err)
			}
		})
	}
}

func TestTypedErrorsWrap(t *testing.T) {
	inner := errors.New("boom")

	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"AuthenticationError", NewAuthenticationError(inner), "hubflow: authentication failed: boom"},
		{"ConnectError", NewConnectError(inner), "hubflow: link connect failed: boom"},
		{"ConnectionLostError", NewConnectionLostError(inner), "hubflow: link connection lost: boom"},
		{"EventDataError", NewEventDataError(inner), "hubflow: invalid event data: boom"},
		{"EventDataSendError", NewEventDataSendError(inner), "hubflow: event data send rejected: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantPrefix {
				t.Errorf("Error() = %q, want %q", got, tt.wantPrefix)
			}
			if !errors.Is(tt.err, inner) {
				t.Error("errors.Is should match wrapped error")
			}
		})
	}
}

func TestOperationTimeoutError(t *testing.T) {
	t.Run("without last error", func(t *testing.T) {
		err := NewOperationTimeoutError(nil)
		if got := err.Error(); got != "hubflow: operation timed out" {
			t.Errorf("Error() = %q", got)
		}
		var timeoutErr OperationTimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("expected OperationTimeoutError, got %T", err)
		}
	})

	t.Run("wrapping last error", func(t *testing.T) {
		last := errors.New("link dropped")
		err := NewOperationTimeoutError(last)
		want := "hubflow: operation timed out: link dropped"
		if got := err.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
		if !errors.Is(err, last) {
			t.Error("errors.Is should match last error")
		}
	})
}

func TestIsRetryable(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", boom, true},
		{"connect", NewConnectError(boom), true},
		{"connection lost", NewConnectionLostError(boom), true},
		{"operation timeout", NewOperationTimeoutError(boom), true},
		{"operation timeout over attempt deadline", NewOperationTimeoutError(context.DeadlineExceeded), true},
		{"wrapped connection lost", fmt.Errorf("attempt 2: %w", NewConnectionLostError(boom)), true},
		{"authentication", NewAuthenticationError(boom), false},
		{"event data", NewEventDataError(boom), false},
		{"event data send", NewEventDataSendError(boom), false},
		{"config validation", NewConfigValidationError(boom), false},
		{"context canceled", context.Canceled, false},
		{"context deadline", fmt.Errorf("waiting: %w", context.DeadlineExceeded), false},
		{"producer closed", ErrProducerClosed, false},
		{"reconnect disabled", fmt.Errorf("open: %w", ErrReconnectDisabled), false},
		{"aws throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient}, true},
		{"aws server fault", &smithy.GenericAPIError{Code: "ConcurrentAccess", Fault: smithy.FaultServer}, true},
		{"aws client fault", &smithy.GenericAPIError{Code: "AuthorizationError", Fault: smithy.FaultClient}, false},
		{"aws unknown fault", &smithy.GenericAPIError{Code: "Mystery", Fault: smithy.FaultUnknown}, true},
		{"wrapped aws client fault", fmt.Errorf("publish: %w", &smithy.GenericAPIError{Code: "InvalidParameter", Fault: smithy.FaultClient}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrorCategoryNone},
		{"event data", NewEventDataError(errors.New("bad key")), ErrorCategoryValidation},
		{"config validation", NewConfigValidationError(errors.New("bad timeout")), ErrorCategoryValidation},
		{"payload required", ErrEventPayloadRequired, ErrorCategoryValidation},
		{"connect", NewConnectError(errors.New("refused")), ErrorCategoryTransport},
		{"connection lost", NewConnectionLostError(errors.New("detached")), ErrorCategoryTransport},
		{"operation timeout", NewOperationTimeoutError(nil), ErrorCategoryTransport},
		{"reconnect disabled", ErrReconnectDisabled, ErrorCategoryTransport},
		{"authentication", NewAuthenticationError(errors.New("denied")), ErrorCategoryDownstream},
		{"send rejection", NewEventDataSendError(errors.New("too large")), ErrorCategoryDownstream},
		{"aws api", &smithy.GenericAPIError{Code: "InvalidParameter", Fault: smithy.FaultClient}, ErrorCategoryDownstream},
		{"context cancel", context.Canceled, ErrorCategoryDownstream},
		{"unknown", errors.New("mystery"), ErrorCategoryOther},
		{"wrapped timeout", fmt.Errorf("send: %w", NewOperationTimeoutError(errors.New("slow"))), ErrorCategoryTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
