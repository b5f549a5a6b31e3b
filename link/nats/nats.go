// Package nats provides a NATS Core link for hubflow.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.NATSCapabilities)
}

// Build creates a new NATS Core link. Delivery is fire-and-forget; use the
// jetstream link when publish acknowledgements are required.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:       cfg.GetNATSURL(),
			Marshaler: &nats.NATSMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return link.NewPublisherLink(publisher, settings, logger), nil
}

// Capabilities returns the capabilities of this link.
func Capabilities() link.Capabilities {
	return link.NATSCapabilities
}
