package event

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	idspkg "github.com/drblury/hubflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/hubflow/internal/runtime/metadata"
	"github.com/drblury/hubflow/link"
)

// Batch is an ordered set of events sharing one resolved partition key. The
// event set is fixed at construction; transmission annotations may still be
// added before the batch is enqueued. Messages are built once so retries
// republish the same message IDs.
type Batch struct {
	id           string
	partitionKey string
	events       []*Event
	messages     []*message.Message
	annotations  metadatapkg.Metadata
}

// NewBatch groups events into one batch. The batch partition key is resolved
// from the events' own hints; events carrying different non-empty hints
// cannot share a batch.
func NewBatch(events ...*Event) (*Batch, error) {
	return newBatch("", events)
}

// NewKeyedBatch groups events into one batch bound to the provided partition
// key. An event hinting a different key fails construction.
func NewKeyedBatch(key string, events ...*Event) (*Batch, error) {
	return newBatch(key, events)
}

func newBatch(key string, events []*Event) (*Batch, error) {
	for i, ev := range events {
		if ev == nil {
			return nil, errspkg.NewEventDataError(fmt.Errorf("event %d is nil", i))
		}

		hint := ev.PartitionKey
		if hint == "" {
			continue
		}
		if key == "" {
			key = hint
			continue
		}
		if hint != key {
			return nil, errspkg.NewEventDataError(
				fmt.Errorf("event %d partition key %q conflicts with batch key %q", i, hint, key))
		}
	}

	b := &Batch{
		id:           idspkg.CreateULID(),
		partitionKey: key,
		events:       events,
		messages:     make([]*message.Message, 0, len(events)),
	}
	for _, ev := range events {
		msg := ev.ToMessage()
		if key != "" {
			msg.Metadata[link.AnnotationPartitionKey] = key
		}
		b.messages = append(b.messages, msg)
	}
	return b, nil
}

// ID returns the batch identifier used for outcome correlation.
func (b *Batch) ID() string { return b.id }

// PartitionKey returns the bound partition key, empty when the service may
// choose the partition.
func (b *Batch) PartitionKey() string { return b.partitionKey }

// Len returns the number of events in the batch.
func (b *Batch) Len() int { return len(b.events) }

// Events returns the batch's events in order.
func (b *Batch) Events() []*Event {
	out := make([]*Event, len(b.events))
	copy(out, b.events)
	return out
}

// Messages returns the batch's events as Watermill messages in transmission
// order. The messages are stable across calls.
func (b *Batch) Messages() []*message.Message {
	out := make([]*message.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Bind stamps a partition key onto a batch built without one. Binding the key
// the batch already carries is a no-op; binding a different key fails
// validation. An empty key leaves the batch unchanged.
func (b *Batch) Bind(key string) error {
	if key == "" {
		return nil
	}
	if b.partitionKey != "" {
		if b.partitionKey != key {
			return errspkg.NewEventDataError(
				fmt.Errorf("partition key %q conflicts with batch key %q", key, b.partitionKey))
		}
		return nil
	}

	b.partitionKey = key
	b.Annotate(link.AnnotationPartitionKey, key)
	return nil
}

// Annotate stamps a transmission annotation, such as a trace context, onto
// every message in the batch.
func (b *Batch) Annotate(key, value string) {
	if b.annotations == nil {
		b.annotations = metadatapkg.Metadata{}
	}
	b.annotations[key] = value

	for _, msg := range b.messages {
		msg.Metadata[key] = value
	}
}

// Annotations returns the transmission annotations stamped on the batch.
func (b *Batch) Annotations() metadatapkg.Metadata {
	return b.annotations.Clone()
}
