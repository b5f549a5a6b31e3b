// Package checkpoint provides persistent checkpoint storage for event-stream
// consumers. A checkpoint records the last position a consumer group has
// processed in one partition; on restart, processing resumes after it.
package checkpoint

import (
	"context"
	"errors"
)

// DefaultConsumerGroup is the consumer group used when none is specified.
const DefaultConsumerGroup = "$Default"

// Checkpoint marks a processed position in one partition of an event hub.
type Checkpoint struct {
	// Namespace is the fully qualified namespace the event hub lives in.
	Namespace string `json:"namespace"`

	// EventHubName is the event hub the partition belongs to.
	EventHubName string `json:"eventhub_name"`

	// ConsumerGroup is the consumer group the checkpoint belongs to.
	ConsumerGroup string `json:"consumer_group"`

	// PartitionID identifies the partition within the event hub.
	PartitionID string `json:"partition_id"`

	// Offset is the service-assigned offset of the last processed event.
	Offset string `json:"offset"`

	// SequenceNumber is the sequence number of the last processed event.
	SequenceNumber int64 `json:"sequence_number"`
}

// Store persists checkpoints. Implementations must be safe for concurrent use.
type Store interface {
	// UpdateCheckpoint stores cp, overwriting any previous checkpoint for the
	// same namespace, event hub, consumer group, and partition.
	UpdateCheckpoint(ctx context.Context, cp Checkpoint) error

	// ListCheckpoints returns the checkpoints of one consumer group, ordered
	// by partition ID. Returns an empty slice when none exist.
	ListCheckpoints(ctx context.Context, namespace, eventHub, consumerGroup string) ([]Checkpoint, error)

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("checkpoint store closed")
