// Package channel provides an in-memory Go channel link for hubflow.
// This link is useful for testing and local development.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) message.Publisher {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.ChannelCapabilities)
}

// Build creates a new Go channel link.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	pub := Factory(gochannel.Config{}, logger)
	return link.NewPublisherLink(pub, settings, logger), nil
}

// Capabilities returns the capabilities of this link.
func Capabilities() link.Capabilities {
	return link.ChannelCapabilities
}
