package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
)

// SendContext provides information about a send in progress to hooks.
type SendContext struct {
	// ProducerName is the name of the producer performing the send.
	ProducerName string
	// Target is the resolved address batches are published to.
	Target string
	// Partition is the pinned partition id, empty when unpinned.
	Partition string
	// BatchID is the unique identifier of the batch being sent.
	BatchID string
	// PartitionKey is the batch's bound partition key, if any.
	PartitionKey string
	// EventCount is the number of events in the batch.
	EventCount int
	// Context is the context the send was invoked with.
	Context context.Context
	// StartedAt is when the send started.
	StartedAt time.Time
	// Duration is how long the send took (only set in OnSendDone and OnSendError).
	Duration time.Duration
	// Attempts is the number of delivery attempts made so far.
	Attempts int
}

// SendHooks defines callbacks for send lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type SendHooks struct {
	// OnSendStart is called when a send begins, before the first delivery
	// attempt.
	OnSendStart func(ctx SendContext)

	// OnSendDone is called when every batch of the send was acknowledged.
	// Duration will be set to how long the send took.
	OnSendDone func(ctx SendContext)

	// OnSendError is called when the send gives up. The terminal error is
	// passed as the second argument. Duration will be set to how long the
	// send took before failing.
	OnSendError func(ctx SendContext, err error)

	// OnRetry is called before each delivery attempt after the first, with
	// the error that caused the retry.
	OnRetry func(ctx SendContext, err error)
}

// Merge combines two SendHooks, creating a new SendHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h SendHooks) Merge(other SendHooks) SendHooks {
	return SendHooks{
		OnSendStart: chainContextHooks(h.OnSendStart, other.OnSendStart),
		OnSendDone:  chainContextHooks(h.OnSendDone, other.OnSendDone),
		OnSendError: chainErrorHooks(h.OnSendError, other.OnSendError),
		OnRetry:     chainErrorHooks(h.OnRetry, other.OnRetry),
	}
}

func chainContextHooks(a, b func(SendContext)) func(SendContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx SendContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(SendContext, error)) func(SendContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx SendContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func (h SendHooks) fireStart(ctx SendContext) {
	if h.OnSendStart != nil {
		h.OnSendStart(ctx)
	}
}

func (h SendHooks) fireDone(ctx SendContext) {
	if h.OnSendDone != nil {
		h.OnSendDone(ctx)
	}
}

func (h SendHooks) fireError(ctx SendContext, err error) {
	if h.OnSendError != nil {
		h.OnSendError(ctx, err)
	}
}

func (h SendHooks) fireRetry(ctx SendContext, err error) {
	if h.OnRetry != nil {
		h.OnRetry(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log send lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) SendHooks {
	return SendHooks{
		OnSendStart: func(ctx SendContext) {
			logger.Info("Send started", loggingpkg.LogFields{
				"producer":      ctx.ProducerName,
				"target":        ctx.Target,
				"batch_id":      ctx.BatchID,
				"partition_key": ctx.PartitionKey,
				"event_count":   ctx.EventCount,
			})
		},
		OnSendDone: func(ctx SendContext) {
			logger.Info("Send completed", loggingpkg.LogFields{
				"producer":    ctx.ProducerName,
				"target":      ctx.Target,
				"batch_id":    ctx.BatchID,
				"event_count": ctx.EventCount,
				"attempts":    ctx.Attempts,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnSendError: func(ctx SendContext, err error) {
			logger.Error("Send failed", err, loggingpkg.LogFields{
				"producer":    ctx.ProducerName,
				"target":      ctx.Target,
				"batch_id":    ctx.BatchID,
				"event_count": ctx.EventCount,
				"attempts":    ctx.Attempts,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnRetry: func(ctx SendContext, err error) {
			logger.Info("Send retrying", loggingpkg.LogFields{
				"producer": ctx.ProducerName,
				"target":   ctx.Target,
				"batch_id": ctx.BatchID,
				"attempt":  ctx.Attempts,
				"error":    err.Error(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that record send metrics.
func MetricsHooks(onStart, onDone, onError func(producerName, target string)) SendHooks {
	return SendHooks{
		OnSendStart: func(ctx SendContext) {
			if onStart != nil {
				onStart(ctx.ProducerName, ctx.Target)
			}
		},
		OnSendDone: func(ctx SendContext) {
			if onDone != nil {
				onDone(ctx.ProducerName, ctx.Target)
			}
		},
		OnSendError: func(ctx SendContext, err error) {
			if onError != nil {
				onError(ctx.ProducerName, ctx.Target)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on send failures.
func AlertingHooks(alertFunc func(ctx SendContext, err error)) SendHooks {
	return SendHooks{
		OnSendError: alertFunc,
	}
}
