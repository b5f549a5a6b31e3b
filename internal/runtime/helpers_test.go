package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/hubflow/checkpoint"
	configpkg "github.com/drblury/hubflow/internal/runtime/config"
	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
	"github.com/drblury/hubflow/link"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

func newTestConfig() *configpkg.Config {
	return &configpkg.Config{
		FullyQualifiedNamespace: "test-ns.eventstream.local",
		EventHub:                "telemetry",
		LinkSystem:              "channel",
	}
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

// recordingLogger captures log lines so tests can assert on diagnostics.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, err: err, fields: fields})
}

func (l *recordingLogger) With(_ loggingpkg.LogFields) loggingpkg.ServiceLogger { return l }

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Warn(msg string, fields loggingpkg.LogFields) {
	l.record("warn", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// testLink is a scriptable in-memory link. The default flush acknowledges
// every staged batch; tests override onFlush to fail or stall sends.
type testLink struct {
	mu       sync.Mutex
	settings link.Settings
	staged   []link.Batch
	enqueued []string
	flushes  int
	closes   int

	enqueueErr error
	onFlush    func(l *testLink, ctx context.Context) error
}

func (l *testLink) Enqueue(batches ...link.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enqueueErr != nil {
		return l.enqueueErr
	}
	for _, b := range batches {
		l.staged = append(l.staged, b)
		l.enqueued = append(l.enqueued, b.ID())
	}
	return nil
}

func (l *testLink) WaitFlush(ctx context.Context) error {
	l.mu.Lock()
	l.flushes++
	fn := l.onFlush
	l.mu.Unlock()

	if fn != nil {
		return fn(l, ctx)
	}
	l.ackAll()
	return nil
}

// ackAll acknowledges every staged batch in order.
func (l *testLink) ackAll() {
	l.mu.Lock()
	staged := l.staged
	l.staged = nil
	settings := l.settings
	l.mu.Unlock()

	for _, b := range staged {
		settings.Outcome(b.ID(), link.ResultOK, nil)
	}
}

// failAll reports the given result for every staged batch and keeps them
// staged, mimicking a link that could not deliver.
func (l *testLink) failAll(result link.Result, condition error) {
	l.mu.Lock()
	staged := make([]link.Batch, len(l.staged))
	copy(staged, l.staged)
	settings := l.settings
	l.mu.Unlock()

	for _, b := range staged {
		settings.Outcome(b.ID(), result, condition)
	}
}

func (l *testLink) Pending() []link.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending := make([]link.Batch, len(l.staged))
	copy(pending, l.staged)
	return pending
}

func (l *testLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

func (l *testLink) enqueuedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, len(l.enqueued))
	copy(ids, l.enqueued)
	return ids
}

func (l *testLink) flushCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushes
}

func (l *testLink) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// testLinkFactory hands out testLinks and records the settings of every open.
type testLinkFactory struct {
	mu     sync.Mutex
	opened []link.Settings
	links  []*testLink
	err    error

	// configure, when set, prepares each new link before it is returned.
	configure func(l *testLink)
}

func (f *testLinkFactory) Open(_ context.Context, _ *configpkg.Config, settings link.Settings, _ watermill.LoggerAdapter) (link.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	l := &testLink{settings: settings}
	if f.configure != nil {
		f.configure(l)
	}
	f.opened = append(f.opened, settings)
	f.links = append(f.links, l)
	return l, nil
}

func (f *testLinkFactory) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func (f *testLinkFactory) lastLink() *testLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.links) == 0 {
		return nil
	}
	return f.links[len(f.links)-1]
}

func (f *testLinkFactory) lastSettings() link.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opened) == 0 {
		return link.Settings{}
	}
	return f.opened[len(f.opened)-1]
}

// testStore records checkpoint updates.
type testStore struct {
	mu      sync.Mutex
	updates []checkpoint.Checkpoint
	err     error
}

func (s *testStore) UpdateCheckpoint(_ context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, cp)
	return nil
}

func (s *testStore) ListCheckpoints(_ context.Context, namespace, eventHub, consumerGroup string) ([]checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []checkpoint.Checkpoint
	for _, cp := range s.updates {
		if cp.Namespace == namespace && cp.EventHubName == eventHub && cp.ConsumerGroup == consumerGroup {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *testStore) Close() error { return nil }

func (s *testStore) Updates() []checkpoint.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := make([]checkpoint.Checkpoint, len(s.updates))
	copy(clone, s.updates)
	return clone
}
