package link

// Capabilities describes the delivery features supported by a link backend.
// Use this to introspect what guarantees a producer gets at runtime.
type Capabilities struct {
	// SupportsPartitioning indicates the link routes batches by partition
	// key natively. When false, the key is carried as metadata only and
	// placement is up to the service.
	SupportsPartitioning bool

	// SupportsOrdering indicates batches within one partition arrive in
	// the order they were transmitted.
	SupportsOrdering bool

	// SupportsBatching indicates the link hands a batch to the broker as
	// one unit rather than message by message.
	SupportsBatching bool

	// SupportsTracing indicates the link propagates tracing headers natively.
	SupportsTracing bool

	// SupportsFlushAck indicates a successful flush reflects broker
	// acknowledgement. When false, a flush only confirms local hand-off
	// and delivery remains best effort.
	SupportsFlushAck bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the link backend.
	Name string

	// Version is the backend/driver version.
	Version string
}

// RequiresKeyEmulation returns true if partition-key routing must be handled
// above the link because the backend cannot route by key itself.
func (c Capabilities) RequiresKeyEmulation() bool {
	return !c.SupportsPartitioning
}

// SupportsReliableDelivery returns true if the link supports at-least-once
// delivery semantics (acknowledged flushes over ordered partitions).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsFlushAck && c.SupportsOrdering
}

// Predefined capability sets for common links.
var (
	// ChannelCapabilities for the in-memory Go channel link.
	ChannelCapabilities = Capabilities{
		Name:                 "channel",
		SupportsPartitioning: false,
		SupportsOrdering:     true,
		SupportsBatching:     false,
		SupportsTracing:      false,
		SupportsFlushAck:     false,
	}

	// KafkaCapabilities for the Apache Kafka link.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsPartitioning: true,
		SupportsOrdering:     true,
		SupportsBatching:     true,
		SupportsTracing:      true,
		SupportsFlushAck:     true,
		MaxMessageSize:       1048576, // Default 1MB
	}

	// RabbitMQCapabilities for the RabbitMQ/AMQP link.
	RabbitMQCapabilities = Capabilities{
		Name:                 "rabbitmq",
		SupportsPartitioning: false,
		SupportsOrdering:     true,
		SupportsBatching:     false,
		SupportsTracing:      true,
		SupportsFlushAck:     true,
	}

	// NATSCapabilities for the NATS Core link.
	NATSCapabilities = Capabilities{
		Name:                 "nats",
		SupportsPartitioning: false,
		SupportsOrdering:     false,
		SupportsBatching:     false,
		SupportsTracing:      true,
		SupportsFlushAck:     false,
		MaxMessageSize:       1048576, // Default 1MB
	}

	// JetStreamCapabilities for the NATS JetStream link.
	JetStreamCapabilities = Capabilities{
		Name:                 "nats-jetstream",
		SupportsPartitioning: false,
		SupportsOrdering:     true,
		SupportsBatching:     true,
		SupportsTracing:      true,
		SupportsFlushAck:     true,
		MaxMessageSize:       1048576, // Default 1MB
	}

	// AWSCapabilities for the AWS SNS link.
	AWSCapabilities = Capabilities{
		Name:                 "aws",
		SupportsPartitioning: false,
		SupportsOrdering:     true,
		SupportsBatching:     true,
		SupportsTracing:      true,
		SupportsFlushAck:     true,
		MaxMessageSize:       262144, // 256KB
	}

	// HTTPCapabilities for the HTTP link.
	HTTPCapabilities = Capabilities{
		Name:                 "http",
		SupportsPartitioning: false,
		SupportsOrdering:     false,
		SupportsBatching:     false,
		SupportsTracing:      true,
		SupportsFlushAck:     true,
	}
)

// GetCapabilities returns the capabilities for a link by name.
// Uses the registry to look up capabilities registered by each link package.
// Returns a zero Capabilities struct if the link is unknown.
func GetCapabilities(linkName string) Capabilities {
	return DefaultRegistry.GetCapabilities(linkName)
}
