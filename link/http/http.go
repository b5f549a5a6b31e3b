// Package http provides an HTTP link for hubflow.
// Each event is POSTed to the publisher URL joined with the target name.
package http

import (
	"context"
	nethttp "net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "http"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.HTTPCapabilities)
}

// Build creates a new HTTP link.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	publisherURL := cfg.GetHTTPPublisherURL()

	publisher, err := PublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
				url := publisherURL + topic
				return http.DefaultMarshalMessageFunc(url, msg)
			},
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
	return link.HTTPCapabilities
}
