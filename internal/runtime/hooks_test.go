package runtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
)

func TestSendHooks_FireStart(t *testing.T) {
	var called bool
	var capturedCtx SendContext

	hooks := SendHooks{
		OnSendStart: func(ctx SendContext) {
			called = true
			capturedCtx = ctx
		},
	}

	hooks.fireStart(SendContext{BatchID: "batch-1", EventCount: 3, StartedAt: time.Now()})

	assert.True(t, called)
	assert.Equal(t, "batch-1", capturedCtx.BatchID)
	assert.Equal(t, 3, capturedCtx.EventCount)
	assert.False(t, capturedCtx.StartedAt.IsZero())
}

func TestSendHooks_FireError(t *testing.T) {
	var called bool
	var capturedErr error
	expectedErr := errors.New("send error")

	hooks := SendHooks{
		OnSendError: func(ctx SendContext, err error) {
			called = true
			capturedErr = err
		},
	}

	hooks.fireError(SendContext{BatchID: "batch-1"}, expectedErr)

	assert.True(t, called)
	assert.Equal(t, expectedErr, capturedErr)
}

func TestSendHooks_NilHooksAreSkipped(t *testing.T) {
	hooks := SendHooks{}

	// None of these may panic.
	hooks.fireStart(SendContext{})
	hooks.fireDone(SendContext{})
	hooks.fireError(SendContext{}, errors.New("boom"))
	hooks.fireRetry(SendContext{}, errors.New("boom"))
}

func TestSendHooks_Merge(t *testing.T) {
	var calls []string
	var mu sync.Mutex

	record := func(name string) func(SendContext) {
		return func(SendContext) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
		}
	}
	recordErr := func(name string) func(SendContext, error) {
		return func(SendContext, error) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
		}
	}

	hooks1 := SendHooks{
		OnSendStart: record("start1"),
		OnSendDone:  record("done1"),
		OnSendError: recordErr("error1"),
		OnRetry:     recordErr("retry1"),
	}
	hooks2 := SendHooks{
		OnSendStart: record("start2"),
		OnSendDone:  record("done2"),
		OnSendError: recordErr("error2"),
		OnRetry:     recordErr("retry2"),
	}

	merged := hooks1.Merge(hooks2)

	merged.fireStart(SendContext{})
	merged.fireDone(SendContext{})
	merged.fireError(SendContext{}, errors.New("boom"))
	merged.fireRetry(SendContext{}, errors.New("boom"))

	assert.Equal(t, []string{
		"start1", "start2",
		"done1", "done2",
		"error1", "error2",
		"retry1", "retry2",
	}, calls)
}

func TestSendHooks_MergePartial(t *testing.T) {
	var calls []string

	hooks1 := SendHooks{
		OnSendStart: func(SendContext) { calls = append(calls, "start1") },
	}
	hooks2 := SendHooks{
		OnSendDone: func(SendContext) { calls = append(calls, "done2") },
	}

	merged := hooks1.Merge(hooks2)
	merged.fireStart(SendContext{})
	merged.fireDone(SendContext{})

	assert.Contains(t, calls, "start1")
	assert.Contains(t, calls, "done2")
	assert.Nil(t, merged.OnSendError)
}

func TestLoggingHooks(t *testing.T) {
	var infoCalls []string
	var errorCalls []string

	logger := &hooksTestLogger{
		infoFunc: func(msg string, fields loggingpkg.LogFields) {
			infoCalls = append(infoCalls, msg)
		},
		errorFunc: func(msg string, err error, fields loggingpkg.LogFields) {
			errorCalls = append(errorCalls, msg)
		},
	}

	hooks := LoggingHooks(logger)

	hooks.OnSendStart(SendContext{ProducerName: "test"})
	hooks.OnSendDone(SendContext{ProducerName: "test"})
	hooks.OnRetry(SendContext{ProducerName: "test"}, errors.New("transient"))

	assert.Contains(t, infoCalls, "Send started")
	assert.Contains(t, infoCalls, "Send completed")
	assert.Contains(t, infoCalls, "Send retrying")

	hooks.OnSendError(SendContext{ProducerName: "test"}, errors.New("test error"))
	assert.Contains(t, errorCalls, "Send failed")
}

func TestMetricsHooks(t *testing.T) {
	var startCalls, doneCalls, errorCalls int

	hooks := MetricsHooks(
		func(producer, target string) { startCalls++ },
		func(producer, target string) { doneCalls++ },
		func(producer, target string) { errorCalls++ },
	)

	hooks.OnSendStart(SendContext{})
	hooks.OnSendDone(SendContext{})
	hooks.OnSendError(SendContext{}, errors.New("test"))

	assert.Equal(t, 1, startCalls)
	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, 1, errorCalls)
}

func TestAlertingHooks(t *testing.T) {
	var alertCalled bool
	var capturedErr error

	hooks := AlertingHooks(func(ctx SendContext, err error) {
		alertCalled = true
		capturedErr = err
	})

	expectedErr := errors.New("alert error")
	hooks.OnSendError(SendContext{}, expectedErr)

	assert.True(t, alertCalled)
	assert.Equal(t, expectedErr, capturedErr)
}

type hooksTestLogger struct {
	infoFunc  func(msg string, fields loggingpkg.LogFields)
	errorFunc func(msg string, err error, fields loggingpkg.LogFields)
}

func (m *hooksTestLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger { return m }

func (m *hooksTestLogger) Debug(msg string, fields loggingpkg.LogFields) {}

func (m *hooksTestLogger) Info(msg string, fields loggingpkg.LogFields) {
	if m.infoFunc != nil {
		m.infoFunc(msg, fields)
	}
}

func (m *hooksTestLogger) Warn(msg string, fields loggingpkg.LogFields) {}

func (m *hooksTestLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	if m.errorFunc != nil {
		m.errorFunc(msg, err, fields)
	}
}

func (m *hooksTestLogger) Trace(msg string, fields loggingpkg.LogFields) {}
