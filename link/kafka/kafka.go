// Package kafka provides a Kafka link for hubflow.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.KafkaCapabilities)
}

// Build creates a new Kafka link. Events carrying a partition key annotation
// are routed by that key, so Kafka preserves per-key ordering natively.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   cfg.GetKafkaBrokers(),
			Marshaler: Marshaler(),
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return link.NewPublisherLink(publisher, settings, logger), nil
}

// Marshaler returns the partition-key-aware marshaler used by this link.
// Messages without a partition key annotation are keyed by their UUID.
func Marshaler() kafka.MarshalerUnmarshaler {
	return kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		if key := msg.Metadata.Get(link.AnnotationPartitionKey); key != "" {
			return key, nil
		}
		return msg.UUID, nil
	})
}

// Capabilities returns the capabilities of this link.
func Capabilities() link.Capabilities {
	return link.KafkaCapabilities
}
