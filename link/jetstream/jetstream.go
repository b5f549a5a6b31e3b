// Package jetstream provides a NATS JetStream link for hubflow.
// Every publish waits for a broker acknowledgement, so a successful flush
// means the stream has durably accepted the batch.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	runtimeerrors "github.com/drblury/hubflow/internal/runtime/errors"
	"github.com/drblury/hubflow/link"
)

// LinkName is the name used to register this link.
const LinkName = "jetstream"

// DefaultStreamName is the stream used when none is configured.
const DefaultStreamName = "HUBFLOW"

// ConnectFactory allows overriding the NATS connection creation for testing.
var ConnectFactory = func(url string, opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(url, opts...)
}

func init() {
	link.RegisterWithCapabilities(LinkName, Build, link.JetStreamCapabilities)
}

// Build creates a new NATS JetStream link.
func Build(ctx context.Context, cfg link.Config, settings link.Settings, logger watermill.LoggerAdapter) (link.Link, error) {
	return New(Config{URL: cfg.GetNATSURL()}, settings, logger)
}

// Capabilities returns the capabilities of this link.
func Capabilities() link.Capabilities {
	return link.JetStreamCapabilities
}

// Config holds NATS JetStream-specific configuration.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the name of the JetStream stream to use.
	// If empty, defaults to "HUBFLOW".
	StreamName string

	// Replicas is the number of stream replicas (for clustering).
	Replicas int

	// RetentionPolicy: "limits" (default), "interest", or "workqueue"
	RetentionPolicy string
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	return c
}

// Link implements an acknowledged hubflow link on top of JetStream.
type Link struct {
	nc       *nats.Conn
	js       nats.JetStreamContext
	config   Config
	settings link.Settings
	logger   watermill.LoggerAdapter

	mu      sync.Mutex
	pending []link.Batch
	closed  bool
}

// New creates a new NATS JetStream link and ensures its stream exists.
func New(cfg Config, settings link.Settings, logger watermill.LoggerAdapter) (*Link, error) {
	cfg = cfg.withDefaults()

	nc, err := ConnectFactory(cfg.URL)
	if err != nil {
		if errors.Is(err, nats.ErrAuthorization) {
			return nil, runtimeerrors.NewAuthenticationError(err)
		}
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	l := &Link{
		nc:       nc,
		js:       js,
		config:   cfg,
		settings: settings,
		logger:   logger,
	}

	if err := l.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return l, nil
}

func (l *Link) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:     l.config.StreamName,
		Subjects: []string{l.config.StreamName + ".>"},
		MaxAge:   24 * time.Hour * 7,
		Replicas: l.config.Replicas,
	}

	switch l.config.RetentionPolicy {
	case "interest":
		streamCfg.Retention = nats.InterestPolicy
	case "workqueue":
		streamCfg.Retention = nats.WorkQueuePolicy
	default:
		streamCfg.Retention = nats.LimitsPolicy
	}

	_, err := l.js.AddStream(streamCfg)
	if err != nil {
		_, err = l.js.UpdateStream(streamCfg)
		if err != nil {
			if l.logger != nil {
				l.logger.Info("JetStream stream exists", watermill.LogFields{
					"stream": l.config.StreamName,
				})
			}
		}
	}

	return nil
}

// Enqueue appends batches to the pending queue for the next flush.
func (l *Link) Enqueue(batches ...link.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("link %q is closed", l.settings.Name)
	}
	l.pending = append(l.pending, batches...)
	return nil
}

// WaitFlush publishes pending batches and waits for broker acknowledgements.
// Batches flush in order; the first failure stops the flush and keeps the
// failed batch and everything behind it pending.
func (l *Link) WaitFlush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("link %q is closed", l.settings.Name)
	}

	if l.settings.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.settings.SendTimeout)
		defer cancel()
	}

	subject := subjectFor(l.config.StreamName, l.settings.Target)

	for len(l.pending) > 0 {
		batch := l.pending[0]

		if err := ctx.Err(); err != nil {
			l.settings.Outcome(batch.ID(), link.ResultTimeout, err)
			return fmt.Errorf("link %q: flush interrupted: %w", l.settings.Name, err)
		}

		if err := l.publishBatch(ctx, subject, batch); err != nil {
			l.settings.Outcome(batch.ID(), link.ResultError, err)
			return fmt.Errorf("link %q: publish batch %s: %w", l.settings.Name, batch.ID(), err)
		}

		l.pending = l.pending[1:]
		l.settings.Outcome(batch.ID(), link.ResultOK, nil)

		if l.logger != nil {
			l.logger.Debug("Flushed batch", watermill.LogFields{
				"subject":  subject,
				"batch_id": batch.ID(),
				"events":   batch.Len(),
			})
		}
	}

	return nil
}

func (l *Link) publishBatch(ctx context.Context, subject string, batch link.Batch) error {
	for _, msg := range batch.Messages() {
		if _, err := l.js.PublishMsg(toNATSMsg(subject, msg), nats.Context(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the batches enqueued but not yet acknowledged.
func (l *Link) Pending() []link.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]link.Batch, len(l.pending))
	copy(out, l.pending)
	return out
}

// Close closes the link and the underlying NATS connection.
// It is safe to call multiple times.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.nc.Close()
	return nil
}

func subjectFor(streamName, target string) string {
	return streamName + "." + target
}

func toNATSMsg(subject string, msg *message.Message) *nats.Msg {
	headers := nats.Header{}
	for k, v := range msg.Metadata {
		headers.Set(k, v)
	}

	return &nats.Msg{
		Subject: subject,
		Data:    msg.Payload,
		Header:  headers,
	}
}
