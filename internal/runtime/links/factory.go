// Package links wires the modular link registry into the producer runtime.
package links

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/hubflow/internal/runtime/config"
	"github.com/drblury/hubflow/link"

	// Import all link packages to register them.
	_ "github.com/drblury/hubflow/link/aws"
	_ "github.com/drblury/hubflow/link/channel"
	_ "github.com/drblury/hubflow/link/http"
	_ "github.com/drblury/hubflow/link/jetstream"
	_ "github.com/drblury/hubflow/link/kafka"
	_ "github.com/drblury/hubflow/link/nats"
	_ "github.com/drblury/hubflow/link/rabbitmq"
)

// Factory abstracts how the producer opens transport links.
type Factory interface {
	Open(ctx context.Context, conf *config.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error)
}

// DefaultFactory returns the built-in factory that resolves the link builder
// registered under the configured link system.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Open(ctx context.Context, conf *config.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}
	return link.Build(ctx, conf, settings, logger)
}

// Capabilities reports the registered capabilities for the configured link
// system.
func Capabilities(conf *config.Config) link.Capabilities {
	if conf == nil {
		return link.Capabilities{}
	}
	return link.DefaultRegistry.GetCapabilities(conf.LinkSystem)
}
