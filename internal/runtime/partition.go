package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/hubflow/checkpoint"
	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	"github.com/drblury/hubflow/internal/runtime/event"
	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
)

// LastEnqueuedEventProperties is a snapshot of the newest event observed on a
// partition.
type LastEnqueuedEventProperties struct {
	SequenceNumber int64     `json:"sequence_number"`
	Offset         string    `json:"offset"`
	EnqueuedTime   time.Time `json:"enqueued_time"`
	RetrievalTime  time.Time `json:"retrieval_time"`
}

// PartitionContext identifies one partition of an event hub during a receive
// session and tracks checkpoint progress for it. The identity is fixed at
// construction; only the last received event changes over time.
type PartitionContext struct {
	fullyQualifiedNamespace string
	eventHubName            string
	consumerGroup           string
	partitionID             string

	mu        sync.Mutex
	lastEvent *event.Event

	store  checkpoint.Store
	logger loggingpkg.ServiceLogger
}

// NewPartitionContext builds the context for one partition. An empty consumer
// group falls back to the service default. store may be nil, in which case
// checkpoint updates become logged no-ops.
func NewPartitionContext(namespace, eventHub, consumerGroup, partitionID string, store checkpoint.Store, logger loggingpkg.ServiceLogger) *PartitionContext {
	if consumerGroup == "" {
		consumerGroup = checkpoint.DefaultConsumerGroup
	}
	if logger == nil {
		logger = loggingpkg.NewWatermillServiceLogger(watermill.NopLogger{})
	}

	return &PartitionContext{
		fullyQualifiedNamespace: namespace,
		eventHubName:            eventHub,
		consumerGroup:           consumerGroup,
		partitionID:             partitionID,
		store:                   store,
		logger: logger.With(loggingpkg.LogFields{
			"eventhub":     eventHub,
			"partition_id": partitionID,
		}),
	}
}

func (p *PartitionContext) FullyQualifiedNamespace() string { return p.fullyQualifiedNamespace }
func (p *PartitionContext) EventHubName() string            { return p.eventHubName }
func (p *PartitionContext) ConsumerGroup() string           { return p.consumerGroup }
func (p *PartitionContext) PartitionID() string             { return p.partitionID }

// SetLastReceivedEvent records the newest event delivered on this partition.
// Nil events are ignored.
func (p *PartitionContext) SetLastReceivedEvent(ev *event.Event) {
	if ev == nil {
		return
	}
	p.mu.Lock()
	p.lastEvent = ev
	p.mu.Unlock()
}

// LastEnqueuedEventProperties projects the position of the last received
// event. ok is false until an event has been recorded.
func (p *PartitionContext) LastEnqueuedEventProperties() (LastEnqueuedEventProperties, bool) {
	p.mu.Lock()
	ev := p.lastEvent
	p.mu.Unlock()

	if ev == nil {
		return LastEnqueuedEventProperties{}, false
	}
	return LastEnqueuedEventProperties{
		SequenceNumber: ev.SequenceNumber(),
		Offset:         ev.Offset(),
		EnqueuedTime:   ev.EnqueuedTime(),
		RetrievalTime:  ev.RetrievedTime(),
	}, true
}

// UpdateCheckpoint persists the position of ev for this partition's consumer
// group. A nil ev checkpoints the last received event. Without a store the
// update is skipped with a warning so consumers without persistence keep
// working.
func (p *PartitionContext) UpdateCheckpoint(ctx context.Context, ev *event.Event) error {
	if ev == nil {
		p.mu.Lock()
		ev = p.lastEvent
		p.mu.Unlock()
	}
	if ev == nil {
		return errspkg.NewEventDataError(errors.New("no event available to checkpoint"))
	}
	if ev.Offset() == "" {
		return errspkg.NewEventDataError(errors.New("event carries no offset to checkpoint"))
	}

	if p.store == nil {
		p.logger.Warn("Skipping checkpoint update, no store configured", loggingpkg.LogFields{
			"consumer_group": p.consumerGroup,
			"offset":         ev.Offset(),
		})
		return nil
	}

	cp := checkpoint.Checkpoint{
		Namespace:      p.fullyQualifiedNamespace,
		EventHubName:   p.eventHubName,
		ConsumerGroup:  p.consumerGroup,
		PartitionID:    p.partitionID,
		Offset:         ev.Offset(),
		SequenceNumber: ev.SequenceNumber(),
	}
	if err := p.store.UpdateCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("update checkpoint for partition %s: %w", p.partitionID, err)
	}

	p.logger.Debug("Checkpoint updated", loggingpkg.LogFields{
		"consumer_group":  p.consumerGroup,
		"offset":          cp.Offset,
		"sequence_number": cp.SequenceNumber,
	})
	return nil
}
