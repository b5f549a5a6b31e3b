/*
Package runtime provides the core publish infrastructure for hubflow.

# Architecture Overview

The runtime package implements a reliable send pipeline over pluggable
transport links built on top of Watermill. Events are grouped into batches,
staged on a link, flushed, and matched against per-batch acknowledgments,
with bounded retries under one absolute deadline.

# Package Structure

The runtime package is organized into the following components:

## Producer (producer.go)

The Producer struct is the central orchestrator that wires together:
  - Lazy link lifecycle (open on first send, recycle on failure)
  - The send pipeline: stage, enqueue, flush, await acknowledgment
  - Retry execution under one absolute deadline
  - Outcome correlation by batch ID
  - Hooks, statistics, metrics, and tracing around each send

## Retry Executor (retry.go)

Exponential backoff with a fixed attempt budget. All attempts of one send
share a single absolute deadline; the remaining budget is re-derived before
each attempt and a spent budget surfaces as an operation timeout.

## Outcome Tracker (outcome.go)

Per-attempt correlation slot armed with the expected batch IDs. Resolves
exactly once: on the first failed batch, or when every batch reported OK.
Stale callbacks from earlier attempts are dropped.

## Partition Context (partition.go)

Receive-side identity plus checkpoint forwarding: tracks the last received
event, projects its position properties, and writes checkpoint records
through a pluggable store.

## Stats & Monitoring (stats.go, resources.go, producer_metrics.go)

Extended metrics collection for send performance:
  - Latency percentiles (p50, p95, p99)
  - Throughput tracking
  - Error categorization
  - Resource usage sampling
  - Prometheus collectors per target

## Hooks (hooks.go)

Composable callbacks around the send lifecycle: start, done, error, retry.

# Sub-packages

  - config/: Producer configuration with validation
  - errors/: Sentinel errors and error types
  - event/: Event and batch construction
  - ids/: ULID generation for batch IDs and producer names
  - jsoncodec/: JSON marshaling utilities
  - links/: Link factory over the public link registry
  - logging/: Logger interface and adapters
  - metadata/: Event metadata utilities

# Usage Example

	cfg := &hubflow.Config{
		FullyQualifiedNamespace: "orders-ns.eventstream.local",
		EventHub:                "orders",
		LinkSystem:              "kafka",
		KafkaBrokers:            []string{"localhost:9092"},
	}

	producer := hubflow.NewProducer(cfg, logger, hubflow.ProducerDependencies{})
	defer producer.Close(ctx)

	err := producer.Send(ctx, hubflow.NewEvent(payload),
		hubflow.WithPartitionKey("device-17"))
*/
package runtime
