package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewPublisherLink wraps a Watermill publisher as a Link. Staged batches are
// transmitted in order during WaitFlush; a batch is acknowledged when the
// publisher accepts it, so delivery guarantees are those of the underlying
// publisher. Most link backends are built on this bridge.
func NewPublisherLink(publisher message.Publisher, settings Settings, logger watermill.LoggerAdapter) Link {
	if publisher == nil {
		panic("hubflow: publisher cannot be nil")
	}
	return &publisherLink{
		publisher: publisher,
		settings:  settings,
		logger:    logger,
	}
}

type publisherLink struct {
	publisher message.Publisher
	settings  Settings
	logger    watermill.LoggerAdapter

	mu      sync.Mutex
	pending []Batch
	closed  bool
}

func (p *publisherLink) Enqueue(batches ...Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("link %q is closed", p.settings.Name)
	}
	p.pending = append(p.pending, batches...)
	return nil
}

func (p *publisherLink) WaitFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("link %q is closed", p.settings.Name)
	}

	if p.settings.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.SendTimeout)
		defer cancel()
	}

	for len(p.pending) > 0 {
		batch := p.pending[0]

		if err := ctx.Err(); err != nil {
			p.settings.Outcome(batch.ID(), ResultTimeout, err)
			return fmt.Errorf("link %q: flush interrupted: %w", p.settings.Name, err)
		}

		if err := p.publisher.Publish(p.settings.Target, batch.Messages()...); err != nil {
			p.settings.Outcome(batch.ID(), ResultError, err)
			return fmt.Errorf("link %q: publish batch %s: %w", p.settings.Name, batch.ID(), err)
		}

		p.pending = p.pending[1:]
		p.settings.Outcome(batch.ID(), ResultOK, nil)

		if p.logger != nil {
			p.logger.Debug("Flushed batch", watermill.LogFields{
				"target":   p.settings.Target,
				"batch_id": batch.ID(),
				"events":   batch.Len(),
			})
		}
	}
	return nil
}

func (p *publisherLink) Pending() []Batch {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Batch, len(p.pending))
	copy(out, p.pending)
	return out
}

func (p *publisherLink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
