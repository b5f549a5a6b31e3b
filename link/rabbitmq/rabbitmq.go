// Package rabbitmq provides a RabbitMQ/AMQP link for hubflow.
package rabbitmq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "rabbitmq"

// PublisherFactory allows overriding the publisher creation for testing.
// The publisher owns its AMQP connection and closes it on link Close.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return amqp.NewPublisher(cfg, logger)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.RabbitMQCapabilities)
}

// Build creates a new RabbitMQ link publishing to a durable fanout exchange
// named after the target.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	amqpConfig := amqp.NewDurablePubSubConfig(
		cfg.GetRabbitMQURL(),
		amqp.GenerateQueueNameTopicName,
	)

	publisher, err := PublisherFactory(amqpConfig, logger)
	if err != nil {
		return nil, err
	}

	return link.NewPublisherLink(publisher, settings, logger), nil
}

// Capabilities returns the capabilities of this link.
func Capabilities() link.Capabilities {
	return link.RabbitMQCapabilities
}
