// Package hubflow is a reliable publish client for partitioned event streams,
// built as a small layer on top of Watermill links. It groups events into
// batches, routes them by partition key, and blocks each send until the
// service acknowledges every batch, retrying transient failures with
// exponential backoff under one absolute deadline. The target link system
// (Kafka, RabbitMQ, AWS SNS, NATS, JetStream, HTTP, or Go channels) is read
// from Config.
//
// Producer is the central type: construct one with NewProducer (or
// TryNewProducer for the error-returning variant), then call Send,
// SendEvents, or SendBatch. The link opens lazily on the first send and is
// rebuilt transparently when it drops, unless auto reconnect is disabled. A
// minimal setup therefore involves filling Config, creating a Producer, and
// sending; see README.md for a copy/paste quick start snippet.
//
// # Links
//
// Hubflow ships 7 link backends out of the box:
//   - channel: In-memory Go channels for testing
//   - kafka: Partition-key routed streaming
//   - rabbitmq: AMQP-based durable queues
//   - aws: AWS SNS with LocalStack support
//   - nats: High-performance messaging
//   - jetstream: NATS JetStream with publish acknowledgments
//   - http: Request/response delivery
//
// Custom backends register through the link registry; ProducerDependencies
// also accepts a whole LinkFactory to bypass the registry entirely.
//
// # Delivery semantics
//
// A send returns nil only after every batch in it was acknowledged. Batches
// staged by a failed send stay pending and are retransmitted ahead of the
// next send's batch, so delivery is at least once and duplicates are
// possible after failures. Events sharing a partition key keep their
// relative order.
//
// # Send Hooks
//
// SendHooks provides OnSendStart, OnSendDone, OnSendError, and OnRetry
// callbacks for custom logging, metrics collection, and alerting around the
// send pipeline. ProducerMetrics exposes the same signals as Prometheus
// collectors.
//
// # Checkpointing
//
// The checkpoint package persists consumer positions: PartitionContext
// projects the last received event's position and forwards checkpoint
// records to a pluggable Store (in-memory and SQLite implementations
// included).
package hubflow
