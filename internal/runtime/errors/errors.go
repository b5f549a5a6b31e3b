package errors

import (
	"context"
	sterrors "errors"

	"github.com/aws/smithy-go"
)

var (
	ErrConfigRequired       = sterrors.New("hubflow: configuration is required")
	ErrLoggerRequired       = sterrors.New("hubflow: logger is required")
	ErrEventPayloadRequired = sterrors.New("hubflow: event payload is required")
	ErrProducerClosed       = sterrors.New("hubflow: producer is closed")
	ErrSendFailed           = sterrors.New("hubflow: batch send failed")
	ErrReconnectDisabled    = sterrors.New("hubflow: link lost and auto reconnect is disabled")
)

// ConfigValidationError wraps the combined field errors reported by
// configuration validation.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "hubflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err in a ConfigValidationError. Returns nil
// when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// AuthenticationError reports that the link rejected the producer's
// credentials. Never retried.
type AuthenticationError struct {
	Err error
}

func (e AuthenticationError) Error() string {
	return "hubflow: authentication failed: " + e.Err.Error()
}

func (e AuthenticationError) Unwrap() error { return e.Err }

// NewAuthenticationError wraps err in an AuthenticationError. Returns nil
// when err is nil.
func NewAuthenticationError(err error) error {
	if err == nil {
		return nil
	}
	return AuthenticationError{Err: err}
}

// ConnectError reports a failure to establish the link. Transient; the retry
// executor will attempt the connection again.
type ConnectError struct {
	Err error
}

func (e ConnectError) Error() string {
	return "hubflow: link connect failed: " + e.Err.Error()
}

func (e ConnectError) Unwrap() error { return e.Err }

// NewConnectError wraps err in a ConnectError. Returns nil when err is nil.
func NewConnectError(err error) error {
	if err == nil {
		return nil
	}
	return ConnectError{Err: err}
}

// ConnectionLostError reports that an established link dropped mid-send.
// Transient; pending batches are requeued and the send is retried.
type ConnectionLostError struct {
	Err error
}

func (e ConnectionLostError) Error() string {
	return "hubflow: link connection lost: " + e.Err.Error()
}

func (e ConnectionLostError) Unwrap() error { return e.Err }

// NewConnectionLostError wraps err in a ConnectionLostError. Returns nil when
// err is nil.
func NewConnectionLostError(err error) error {
	if err == nil {
		return nil
	}
	return ConnectionLostError{Err: err}
}

// EventDataError reports malformed caller input, for example a partition key
// that conflicts with the batch's bound key. Raised before any network
// attempt and never retried.
type EventDataError struct {
	Err error
}

func (e EventDataError) Error() string {
	return "hubflow: invalid event data: " + e.Err.Error()
}

func (e EventDataError) Unwrap() error { return e.Err }

// NewEventDataError wraps err in an EventDataError. Returns nil when err is
// nil.
func NewEventDataError(err error) error {
	if err == nil {
		return nil
	}
	return EventDataError{Err: err}
}

// EventDataSendError reports that the service rejected the submitted payload.
// Never retried; resending the same batch would fail the same way.
type EventDataSendError struct {
	Err error
}

func (e EventDataSendError) Error() string {
	return "hubflow: event data send rejected: " + e.Err.Error()
}

func (e EventDataSendError) Unwrap() error { return e.Err }

// NewEventDataSendError wraps err in an EventDataSendError. Returns nil when
// err is nil.
func NewEventDataSendError(err error) error {
	if err == nil {
		return nil
	}
	return EventDataSendError{Err: err}
}

// OperationTimeoutError reports that the send deadline passed or the link
// signalled a timeout outcome. Err holds the last error observed before the
// deadline, when there was one.
type OperationTimeoutError struct {
	Err error
}

func (e OperationTimeoutError) Error() string {
	if e.Err == nil {
		return "hubflow: operation timed out"
	}
	return "hubflow: operation timed out: " + e.Err.Error()
}

func (e OperationTimeoutError) Unwrap() error { return e.Err }

// NewOperationTimeoutError wraps the last observed error, which may be nil,
// in an OperationTimeoutError.
func NewOperationTimeoutError(last error) error {
	return OperationTimeoutError{Err: last}
}

// IsRetryable reports whether the retry executor may attempt the operation
// again. Authentication, validation, and payload-rejection errors are final,
// as are context cancellation and a producer that was closed or lost its link
// with reconnects disabled. Operation timeouts stay retryable until the
// absolute deadline. AWS API errors are classified by fault: client faults
// stop, throttling and server faults retry. Anything else, including errors
// the link did not classify, is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	// A typed operation timeout often wraps a context deadline from the
	// attempt budget; it stays retryable until the absolute deadline, so it
	// must be recognised before the bare context sentinels.
	var timeoutErr OperationTimeoutError
	if sterrors.As(err, &timeoutErr) {
		return true
	}
	if sterrors.Is(err, context.Canceled) || sterrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if sterrors.Is(err, ErrProducerClosed) || sterrors.Is(err, ErrReconnectDisabled) {
		return false
	}
	var (
		authErr AuthenticationError
		dataErr EventDataError
		sendErr EventDataSendError
		cfgErr  ConfigValidationError
	)
	if sterrors.As(err, &authErr) || sterrors.As(err, &dataErr) ||
		sterrors.As(err, &sendErr) || sterrors.As(err, &cfgErr) {
		return false
	}
	var apiErr smithy.APIError
	if sterrors.As(err, &apiErr) {
		return apiErrorRetryable(apiErr)
	}
	return true
}

func apiErrorRetryable(apiErr smithy.APIError) bool {
	switch apiErr.ErrorCode() {
	case "Throttling", "ThrottlingException", "RequestThrottled", "TooManyRequestsException":
		return true
	case "ServiceUnavailable", "InternalError", "InternalFailure", "RequestTimeout":
		return true
	}
	return apiErr.ErrorFault() != smithy.FaultClient
}

// ErrorCategory buckets errors for the producer stats breakdown.
type ErrorCategory string

const (
	ErrorCategoryNone       ErrorCategory = "none"
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryTransport  ErrorCategory = "transport"
	ErrorCategoryDownstream ErrorCategory = "downstream"
	ErrorCategoryOther      ErrorCategory = "other"
)

// Classify maps an error to its stats category. Validation covers local
// rejections that never reached the wire, transport covers connectivity and
// timeout failures, downstream covers rejections issued by the service.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		dataErr EventDataError
		cfgErr  ConfigValidationError
	)
	if sterrors.As(err, &dataErr) || sterrors.As(err, &cfgErr) || sterrors.Is(err, ErrEventPayloadRequired) {
		return ErrorCategoryValidation
	}

	var (
		connectErr ConnectError
		lostErr    ConnectionLostError
		timeoutErr OperationTimeoutError
	)
	if sterrors.As(err, &connectErr) || sterrors.As(err, &lostErr) || sterrors.As(err, &timeoutErr) ||
		sterrors.Is(err, ErrReconnectDisabled) {
		return ErrorCategoryTransport
	}

	var (
		authErr AuthenticationError
		sendErr EventDataSendError
		apiErr  smithy.APIError
	)
	if sterrors.As(err, &authErr) || sterrors.As(err, &sendErr) || sterrors.As(err, &apiErr) {
		return ErrorCategoryDownstream
	}
	if sterrors.Is(err, context.Canceled) || sterrors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryDownstream
	}

	return ErrorCategoryOther
}
