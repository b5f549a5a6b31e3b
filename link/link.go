// Package link defines the transport-link contract used by hubflow producers.
// Each link implementation (kafka, rabbitmq, aws, etc.) lives in its own
// sub-package and registers itself with the link registry.
package link

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Annotation keys stamped on messages crossing a link. Links that route or
// order by partition key read AnnotationPartitionKey; the position keys are
// set by the broker side and read back on received events.
const (
	AnnotationPartitionKey   = "x-opt-partition-key"
	AnnotationOffset         = "x-opt-offset"
	AnnotationSequenceNumber = "x-opt-sequence-number"
	AnnotationEnqueuedTime   = "x-opt-enqueued-time"
)

// Link properties negotiated at open time, values in milliseconds.
const (
	// PropertyOperationTimeout carries the producer's send timeout.
	PropertyOperationTimeout = "com.microsoft:timeout"
	// PropertyIdleTimeout carries the inactivity window after which the
	// link may be torn down.
	PropertyIdleTimeout = "idle-time-out"
)

// Result is the terminal disposition of one submitted batch.
type Result int

const (
	// ResultOK means every message in the batch was acknowledged.
	ResultOK Result = iota
	// ResultTimeout means the link gave up waiting for acknowledgement.
	ResultTimeout
	// ResultError means the link recorded an error condition for the batch.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultTimeout:
		return "timeout"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// OutcomeFunc receives the disposition of one submitted batch. It is invoked
// exactly once per batch, after the link resolves the batch during a flush.
// condition is nil unless the link recorded an error.
type OutcomeFunc func(batchID string, result Result, condition error)

// Batch is the unit of transmission handed to a link. Implementations are
// immutable once enqueued.
type Batch interface {
	// ID uniquely identifies the batch for outcome correlation.
	ID() string
	// PartitionKey returns the batch's bound partition key, empty when the
	// service may choose the partition.
	PartitionKey() string
	// Len returns the number of events in the batch.
	Len() int
	// Messages returns the batch's events in transmission order.
	Messages() []*message.Message
}

// Settings carries the per-producer parameters a link is opened with.
type Settings struct {
	// Target is the fully resolved address batches are published to. A
	// producer pinned to a partition bakes the partition into the target.
	Target string

	// Partition is the pinned partition id, empty when unpinned.
	Partition string

	// Name identifies the producer that owns the link, for diagnostics.
	Name string

	// SendTimeout bounds one flush. Zero or negative means no link-level
	// timeout.
	SendTimeout time.Duration

	// IdleTimeout tears the link down after inactivity. Zero disables it.
	IdleTimeout time.Duration

	// KeepAlive is the link keep-alive interval. Zero disables keep-alive.
	KeepAlive time.Duration

	// Properties carries link-level properties, such as the negotiated
	// operation timeout under PropertyOperationTimeout.
	Properties map[string]string

	// OnOutcome receives per-batch dispositions. May be nil when the
	// caller does not track outcomes.
	OnOutcome OutcomeFunc
}

// Outcome invokes the settings' OnOutcome callback if one is registered.
func (s Settings) Outcome(batchID string, result Result, condition error) {
	if s.OnOutcome != nil {
		s.OnOutcome(batchID, result, condition)
	}
}

// Link is an open transport conduit bound to one target. A link is owned by
// exactly one producer and is not safe for concurrent flushes.
type Link interface {
	// Enqueue stages batches for transmission, preserving order. Staged
	// batches survive a failed flush and are retransmitted first.
	Enqueue(batches ...Batch) error

	// WaitFlush transmits every staged batch and blocks until each is
	// acknowledged, the context expires, or the link fails. Dispositions
	// are delivered through Settings.OnOutcome.
	WaitFlush(ctx context.Context) error

	// Pending returns the batches staged but not yet acknowledged.
	Pending() []Batch

	// Close tears the link down. Safe to call more than once.
	Close() error
}

// Builder is the function signature for creating a link from config.
// Each link package should provide a Builder function that can be registered.
type Builder func(ctx context.Context, cfg Config, settings Settings, logger watermill.LoggerAdapter) (Link, error)

// Config provides the configuration values needed by links.
// This interface allows links to access only the config they need
// without depending on the full config package.
type Config interface {
	// GetLinkSystem returns the link backend name.
	GetLinkSystem() string

	// Kafka
	GetKafkaBrokers() []string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string

	// HTTP
	GetHTTPPublisherURL() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by links that can report their
// capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
