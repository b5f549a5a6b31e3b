package runtime

import (
	"context"
	"errors"
	"sync"

	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
	"github.com/drblury/hubflow/link"
)

// outcomeSignal correlates link outcome callbacks with one flush attempt. It
// is armed with the IDs of the batches enqueued for that attempt and resolves
// exactly once: on the first batch that fails, or once every expected batch
// has reported OK. Callbacks carrying other IDs are stale leftovers from an
// earlier attempt and are dropped.
type outcomeSignal struct {
	mu        sync.Mutex
	expected  map[string]bool
	pending   int
	done      chan struct{}
	result    link.Result
	condition error
	resolved  bool
	logger    loggingpkg.ServiceLogger
}

func newOutcomeSignal(logger loggingpkg.ServiceLogger, batchIDs ...string) *outcomeSignal {
	expected := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		expected[id] = false
	}

	s := &outcomeSignal{
		expected: expected,
		pending:  len(expected),
		done:     make(chan struct{}),
		logger:   logger,
	}
	if s.pending == 0 {
		s.result = link.ResultOK
		s.resolved = true
		close(s.done)
	}
	return s
}

// resolve records one batch outcome. Safe for concurrent use by link
// callbacks.
func (s *outcomeSignal) resolve(batchID string, result link.Result, condition error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		s.logger.Debug("Dropping stale batch outcome", loggingpkg.LogFields{
			"batch_id": batchID,
			"result":   result.String(),
		})
		return
	}
	reported, ok := s.expected[batchID]
	if !ok {
		s.logger.Debug("Dropping outcome for unknown batch", loggingpkg.LogFields{
			"batch_id": batchID,
			"result":   result.String(),
		})
		return
	}
	if reported {
		return
	}

	if result != link.ResultOK {
		s.result = result
		s.condition = condition
		s.resolved = true
		close(s.done)
		return
	}

	s.expected[batchID] = true
	s.pending--
	if s.pending == 0 {
		s.result = link.ResultOK
		s.resolved = true
		close(s.done)
	}
}

// wait blocks until the slot resolves or the context ends. An attempt
// deadline surfaces as a retryable operation timeout; caller cancellation
// propagates as-is. A failed batch surfaces its recorded condition when the
// link reported one, otherwise a generic send rejection.
func (s *outcomeSignal) wait(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return errspkg.NewOperationTimeoutError(ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorLocked()
}

// resolvedError reports the mapped error when the slot has already resolved,
// nil when it has not, without blocking.
func (s *outcomeSignal) resolvedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resolved {
		return nil
	}
	return s.errorLocked()
}

func (s *outcomeSignal) errorLocked() error {
	switch s.result {
	case link.ResultOK:
		return nil
	case link.ResultTimeout:
		return errspkg.NewOperationTimeoutError(s.condition)
	default:
		if s.condition != nil {
			return s.condition
		}
		return errspkg.NewEventDataSendError(errspkg.ErrSendFailed)
	}
}
