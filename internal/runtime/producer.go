package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	configpkg "github.com/drblury/hubflow/internal/runtime/config"
	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	"github.com/drblury/hubflow/internal/runtime/event"
	"github.com/drblury/hubflow/internal/runtime/ids"
	"github.com/drblury/hubflow/internal/runtime/links"
	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
	"github.com/drblury/hubflow/link"
)

// defaultSendTimeout bounds a send call when neither the configuration nor a
// WithTimeout option supplies a timeout.
const defaultSendTimeout = 60 * time.Second

// Lifecycle is the open/close contract shared by components that own a
// transport link.
type Lifecycle interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Lifecycle = (*Producer)(nil)

// SendOption adjusts a single send call.
type SendOption func(*sendOptions)

type sendOptions struct {
	partitionKey string
	timeout      time.Duration
}

// WithPartitionKey routes the batch to the partition serving key. Events
// sharing a key land on the same partition and keep their relative order.
func WithPartitionKey(key string) SendOption {
	return func(o *sendOptions) { o.partitionKey = key }
}

// WithTimeout overrides the configured send timeout for one call. A negative
// value disables the deadline.
func WithTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) { o.timeout = d }
}

func applyOptions(opts []SendOption) sendOptions {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProducerDependencies holds the optional collaborators a Producer can use.
// Leave fields zero for the defaults.
type ProducerDependencies struct {
	// LinkFactory overrides how transport links are opened. Defaults to
	// the registry builder for the configured link system.
	LinkFactory links.Factory
	// Hooks observe the send lifecycle.
	Hooks SendHooks
	// Metrics receives per-send observations when set. Call Register on
	// it to expose the Prometheus collectors.
	Metrics *ProducerMetrics
}

// Producer publishes event batches to one event hub over a lazily opened
// transport link. Sends on one Producer are serialized; the zero value is
// not usable, construct with NewProducer or TryNewProducer.
type Producer struct {
	mu sync.Mutex

	conf   *configpkg.Config
	logger loggingpkg.ServiceLogger

	name      string
	target    string
	partition string

	links links.Factory
	link  link.Link

	running  bool
	closed   bool
	recycled bool

	// unsent holds batches staged but not yet fully acknowledged. They are
	// re-enqueued ahead of any new batch, so an aborted send is delivered
	// at least once by a later successful one.
	unsent []link.Batch

	outcomeMu sync.Mutex
	signal    *outcomeSignal

	retry   RetryPolicy
	stats   *ProducerStats
	metrics *ProducerMetrics
	hooks   SendHooks
}

// NewProducer constructs a Producer for the supplied configuration. The link
// opens lazily on the first send. Panics when the configuration or logger is
// missing or invalid; use TryNewProducer to receive the error instead.
func NewProducer(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ProducerDependencies) *Producer {
	p, err := TryNewProducer(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return p
}

// TryNewProducer is the error-returning twin of NewProducer.
func TryNewProducer(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ProducerDependencies) (*Producer, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	name := "hubflow-producer-" + ids.CreateULID()
	target := conf.EventHub
	if conf.Partition != "" {
		name += "-partition" + conf.Partition
		target += "/Partitions/" + conf.Partition
	}

	factory := deps.LinkFactory
	if factory == nil {
		factory = links.DefaultFactory()
	}

	p := &Producer{
		conf:      conf,
		logger:    log.With(loggingpkg.LogFields{"producer": name}),
		name:      name,
		target:    target,
		partition: conf.Partition,
		links:     factory,
		retry:     policyFromConfig(conf),
		stats:     newProducerStats(name, target, newResourceTracker()),
		metrics:   deps.Metrics,
		hooks:     deps.Hooks,
	}

	p.logger.Info("Creating producer", loggingpkg.LogFields{
		"link_system": conf.LinkSystem,
		"target":      target,
		"config":      conf,
	})

	return p, nil
}

// Name returns the producer's diagnostic name.
func (p *Producer) Name() string { return p.name }

// Stats returns a detached snapshot of the producer's send statistics.
func (p *Producer) Stats() ProducerStats { return p.stats.Snapshot() }

// Info returns the producer's identity together with its current statistics.
func (p *Producer) Info() ProducerInfo {
	snapshot := p.stats.Snapshot()
	return ProducerInfo{
		Name:      p.name,
		Target:    p.target,
		Partition: p.partition,
		Stats:     &snapshot,
	}
}

// Open eagerly establishes the transport link. Optional; the first send
// opens the link on demand.
func (p *Producer) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errspkg.ErrProducerClosed
	}
	return p.openIfNeeded(ctx)
}

// Close tears the producer down, releasing the link. Waits for an in-flight
// send to finish first. Safe to call more than once; calls after the first
// return nil.
func (p *Producer) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.running = false

	if p.link != nil {
		err := p.link.Close()
		p.link = nil
		if err != nil {
			return fmt.Errorf("close link: %w", err)
		}
	}

	p.logger.Info("Producer closed", nil)
	return nil
}

// Send publishes one event and blocks until the service acknowledges it,
// the send deadline passes, or ctx is cancelled.
func (p *Producer) Send(ctx context.Context, ev *event.Event, opts ...SendOption) error {
	if ev == nil {
		return errspkg.ErrEventPayloadRequired
	}
	return p.SendEvents(ctx, []*event.Event{ev}, opts...)
}

// SendEvents publishes events as one batch. Sending no events is a no-op.
func (p *Producer) SendEvents(ctx context.Context, events []*event.Event, opts ...SendOption) error {
	if len(events) == 0 {
		return nil
	}
	o := applyOptions(opts)

	batch, err := event.NewKeyedBatch(o.partitionKey, events...)
	if err != nil {
		return err
	}
	return p.sendBatch(ctx, batch, o)
}

// SendBatch publishes a prebuilt batch. A WithPartitionKey option stamps an
// unkeyed batch; a key conflicting with the batch's own fails validation
// before any transport interaction. Sending an empty batch is a no-op.
func (p *Producer) SendBatch(ctx context.Context, batch *event.Batch, opts ...SendOption) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	o := applyOptions(opts)

	if err := batch.Bind(o.partitionKey); err != nil {
		return err
	}
	return p.sendBatch(ctx, batch, o)
}

// sendBatch runs the full pipeline for one batch: stage, open the link if
// needed, enqueue, flush, await acknowledgment, all under the retry policy
// and one absolute deadline. The producer lock is held throughout, so sends
// never interleave on the link.
func (p *Producer) sendBatch(ctx context.Context, batch *event.Batch, o sendOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errspkg.ErrProducerClosed
	}

	timeout := p.sendTimeoutFor(o)

	tracer := otel.Tracer("hubflow-producer-tracer")
	ctx, span := tracer.Start(ctx, "hubflow.Producer.Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("producer.name", p.name),
		attribute.String("producer.target", p.target),
		attribute.String("producer.partition", p.partition),
		attribute.String("batch.id", batch.ID()),
		attribute.String("batch.partition_key", batch.PartitionKey()),
		attribute.Int("batch.event_count", batch.Len()),
	)

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	for key, value := range carrier {
		batch.Annotate(key, value)
	}

	sendCtx := SendContext{
		ProducerName: p.name,
		Target:       p.target,
		Partition:    p.partition,
		BatchID:      batch.ID(),
		PartitionKey: batch.PartitionKey(),
		EventCount:   batch.Len(),
		Context:      ctx,
		StartedAt:    time.Now(),
	}
	p.hooks.fireStart(sendCtx)
	if p.metrics != nil {
		p.metrics.SendStarted(p.target)
	}

	p.unsent = append(p.unsent, batch)

	attempts := 0
	err := runWithRetry(ctx, p.retry, timeout, func(ctx context.Context, remaining time.Duration, lastErr error) error {
		if lastErr != nil {
			p.logger.Warn("Retrying send", loggingpkg.LogFields{
				"batch_id": batch.ID(),
				"attempt":  attempts + 1,
				"error":    lastErr.Error(),
			})
			retryCtx := sendCtx
			retryCtx.Attempts = attempts
			p.hooks.fireRetry(retryCtx, lastErr)
			p.stats.recordRetry()
			if p.metrics != nil {
				p.metrics.RecordRetry(p.target)
			}
		}
		attempts++
		return p.attempt(ctx, remaining)
	})

	duration := time.Since(sendCtx.StartedAt)
	span.SetAttributes(attribute.Int("send.attempts", attempts))

	p.stats.recordSend(duration, batch.Len(), len(p.unsent), err)
	if p.metrics != nil {
		p.metrics.RecordSend(p.target, sendResult(err), batch.Len(), duration)
		p.metrics.SendFinished(p.target)
	}

	sendCtx.Attempts = attempts
	sendCtx.Duration = duration
	if err != nil {
		p.hooks.fireError(sendCtx, err)
		p.logger.Error("Send failed", err, loggingpkg.LogFields{
			"batch_id": batch.ID(),
			"attempts": attempts,
		})
		return err
	}

	p.hooks.fireDone(sendCtx)
	p.logger.Debug("Batch acknowledged", loggingpkg.LogFields{
		"batch_id": batch.ID(),
		"events":   batch.Len(),
		"attempts": attempts,
	})
	return nil
}

// attempt drives one enqueue/flush/await cycle over everything the producer
// has staged, reopening the link first when a previous failure recycled it.
// remaining bounds the acknowledgment wait; zero means no attempt deadline.
func (p *Producer) attempt(ctx context.Context, remaining time.Duration) error {
	if err := p.openIfNeeded(ctx); err != nil {
		return err
	}

	staged := make([]link.Batch, len(p.unsent))
	copy(staged, p.unsent)

	batchIDs := make([]string, len(staged))
	for i, b := range staged {
		batchIDs[i] = b.ID()
	}
	signal := newOutcomeSignal(p.logger, batchIDs...)
	p.setSignal(signal)
	defer p.setSignal(nil)

	if err := p.link.Enqueue(staged...); err != nil {
		p.recycle()
		return err
	}

	waitCtx := ctx
	if remaining > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}

	if flushErr := p.link.WaitFlush(waitCtx); flushErr != nil {
		pending := p.link.Pending()
		p.recycle()
		p.unsent = pending
		if resolved := signal.resolvedError(); resolved != nil {
			return resolved
		}
		// The attempt deadline expiring is a retryable timeout; the
		// caller's own context ending propagates as-is.
		if errors.Is(flushErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return errspkg.NewOperationTimeoutError(flushErr)
		}
		return flushErr
	}

	if err := signal.wait(waitCtx); err != nil {
		return err
	}

	p.unsent = nil
	return nil
}

// openIfNeeded builds the link when none is running. A recycled producer
// with auto reconnect disabled refuses to reopen.
func (p *Producer) openIfNeeded(ctx context.Context) error {
	if p.link != nil && p.running {
		return nil
	}
	if p.recycled && p.conf.DisableAutoReconnect {
		return errspkg.NewConnectionLostError(errspkg.ErrReconnectDisabled)
	}

	settings := link.Settings{
		Target:      p.target,
		Partition:   p.partition,
		Name:        p.name,
		SendTimeout: p.configuredSendTimeout(),
		IdleTimeout: p.conf.IdleTimeout,
		KeepAlive:   p.conf.KeepAlive,
		Properties:  p.linkProperties(),
		OnOutcome:   p.handleOutcome,
	}

	p.logger.Debug("Opening link", loggingpkg.LogFields{
		"link_system": p.conf.LinkSystem,
		"target":      p.target,
	})

	l, err := p.links.Open(ctx, p.conf, settings, loggingpkg.NewWatermillAdapter(p.logger))
	if err != nil {
		return err
	}

	p.link = l
	p.running = true
	return nil
}

// recycle discards the link handle after a failure. The next attempt reopens
// it unless auto reconnect is disabled.
func (p *Producer) recycle() {
	if p.link != nil {
		if err := p.link.Close(); err != nil {
			p.logger.Debug("Closing recycled link", loggingpkg.LogFields{
				"error": err.Error(),
			})
		}
		p.link = nil
	}
	p.running = false
	p.recycled = true
}

func (p *Producer) setSignal(s *outcomeSignal) {
	p.outcomeMu.Lock()
	p.signal = s
	p.outcomeMu.Unlock()
}

// handleOutcome receives per-batch dispositions from the link and forwards
// them to the attempt currently waiting. Dispositions arriving between
// attempts are dropped.
func (p *Producer) handleOutcome(batchID string, result link.Result, condition error) {
	p.outcomeMu.Lock()
	signal := p.signal
	p.outcomeMu.Unlock()

	if signal == nil {
		p.logger.Debug("Dropping outcome with no send in flight", loggingpkg.LogFields{
			"batch_id": batchID,
			"result":   result.String(),
		})
		return
	}
	signal.resolve(batchID, result, condition)
}

// sendTimeoutFor resolves the deadline for one call: the WithTimeout option
// when given, otherwise the configured timeout, otherwise 60 seconds. A
// negative value from either source disables the deadline.
func (p *Producer) sendTimeoutFor(o sendOptions) time.Duration {
	d := o.timeout
	if d == 0 {
		d = p.conf.SendTimeout
	}
	if d == 0 {
		d = defaultSendTimeout
	}
	if d < 0 {
		return 0
	}
	return d
}

// configuredSendTimeout is the config-level timeout handed to the link at
// open time, with the same zero/negative resolution as sendTimeoutFor.
func (p *Producer) configuredSendTimeout() time.Duration {
	d := p.conf.SendTimeout
	if d == 0 {
		return defaultSendTimeout
	}
	if d < 0 {
		return 0
	}
	return d
}

func (p *Producer) linkProperties() map[string]string {
	props := map[string]string{}
	if d := p.configuredSendTimeout(); d > 0 {
		props[link.PropertyOperationTimeout] = strconv.FormatInt(d.Milliseconds(), 10)
	}
	if p.conf.IdleTimeout > 0 {
		props[link.PropertyIdleTimeout] = strconv.FormatInt(p.conf.IdleTimeout.Milliseconds(), 10)
	}
	return props
}

func sendResult(err error) link.Result {
	if err == nil {
		return link.ResultOK
	}
	var timeoutErr errspkg.OperationTimeoutError
	if errors.As(err, &timeoutErr) {
		return link.ResultTimeout
	}
	return link.ResultError
}
