package runtime

import (
	"math"
	"sort"
	"sync"
	"time"

	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	"github.com/drblury/hubflow/internal/runtime/jsoncodec"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// ProducerStats aggregates delivery statistics for one producer. All exported
// fields are refreshed together after every send; read them through Snapshot
// or MarshalJSON.
type ProducerStats struct {
	mu sync.Mutex `json:"-"`

	producerName string `json:"-"`
	target       string `json:"-"`

	BatchesSent    uint64    `json:"batches_sent"`
	BatchesFailed  uint64    `json:"batches_failed"`
	EventsSent     uint64    `json:"events_sent"`
	Retries        uint64    `json:"retries"`
	PendingBatches uint64    `json:"pending_batches"`
	TotalSendTime  int64     `json:"total_send_time_ns"`
	LastSendAt     time.Time `json:"last_send_at"`

	Latency      LatencyMetrics     `json:"latency"`
	Throughput   ThroughputMetrics  `json:"throughput"`
	Errors       ErrorBreakdown     `json:"errors"`
	Resource     ResourceUsage      `json:"resource"`
	Dependencies []DependencyHealth `json:"dependencies"`

	latencyWindow    *latencyWindow    `json:"-"`
	throughputWindow *throughputWindow `json:"-"`
	resourceSampler  *resourceTracker  `json:"-"`
	dependencyIndex  map[string]int    `json:"-"`
}

// ProducerInfo describes a producer and its live statistics.
type ProducerInfo struct {
	Name      string         `json:"name"`
	Target    string         `json:"target"`
	Partition string         `json:"partition,omitempty"`
	Stats     *ProducerStats `json:"stats"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS    float64 `json:"current_rps"`
	WindowSeconds float64 `json:"window_seconds"`
	SendsInWindow uint64  `json:"sends_in_window"`
	TotalSends    uint64  `json:"total_sends"`
}

type ErrorBreakdown struct {
	Validation uint64 `json:"validation"`
	Transport  uint64 `json:"transport"`
	Downstream uint64 `json:"downstream"`
	Other      uint64 `json:"other"`
	LastError  string `json:"last_error,omitempty"`
}

type ResourceUsage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Goroutines  int     `json:"goroutines"`
}

type DependencyHealth struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Details     string    `json:"details,omitempty"`
}

const (
	DependencyStatusUnknown  = "unknown"
	DependencyStatusHealthy  = "healthy"
	DependencyStatusDegraded = "degraded"
)

func newProducerStats(name, target string, sampler *resourceTracker) *ProducerStats {
	stats := &ProducerStats{
		producerName:     name,
		target:           target,
		resourceSampler:  sampler,
		latencyWindow:    newLatencyWindow(latencySampleSize),
		throughputWindow: newThroughputWindow(throughputWindowSize),
		dependencyIndex:  make(map[string]int),
	}

	if target != "" {
		stats.addDependency("link:" + target)
	}

	return stats
}

func (s *ProducerStats) addDependency(name string) {
	s.Dependencies = append(s.Dependencies, DependencyHealth{
		Name:   name,
		Status: DependencyStatusUnknown,
	})
	if s.dependencyIndex == nil {
		s.dependencyIndex = make(map[string]int)
	}
	s.dependencyIndex[name] = len(s.Dependencies) - 1
}

// recordSend folds the terminal result of one send call into the statistics.
// pending is the number of batches still awaiting redelivery afterwards.
func (s *ProducerStats) recordSend(duration time.Duration, events, pending int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.BatchesFailed++
	} else {
		s.BatchesSent++
		s.EventsSent += uint64(events)
	}
	s.PendingBatches = uint64(pending)
	s.TotalSendTime += int64(duration)
	s.LastSendAt = time.Now().UTC()

	if s.latencyWindow != nil {
		s.latencyWindow.Add(duration)
		snapshot := s.latencyWindow.Snapshot()
		snapshot.LastNs = int64(duration)
		if total := s.BatchesSent + s.BatchesFailed; total > 0 {
			snapshot.AverageNs = s.TotalSendTime / int64(total)
		}
		s.Latency = snapshot
	}

	if s.throughputWindow != nil {
		snapshot := s.throughputWindow.AddAndSnapshot(time.Now())
		s.Throughput.CurrentRPS = snapshot.CurrentRPS
		s.Throughput.WindowSeconds = snapshot.WindowSeconds
		s.Throughput.SendsInWindow = uint64(snapshot.Count)
	}
	s.Throughput.TotalSends = s.BatchesSent + s.BatchesFailed

	s.Errors.Record(errspkg.Classify(err), err)

	if s.resourceSampler != nil {
		s.Resource = s.resourceSampler.Snapshot()
	}

	status := DependencyStatusHealthy
	details := ""
	if err != nil {
		status = DependencyStatusDegraded
		details = err.Error()
	}
	s.setDependencyStatusLocked("link:"+s.target, status, details)
}

// recordRetry counts one delivery attempt after the first.
func (s *ProducerStats) recordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Retries++
}

func (s *ProducerStats) setDependencyStatusLocked(name, status, details string) {
	if name == "" || name == "link:" {
		return
	}
	idx, ok := s.dependencyIndex[name]
	if !ok {
		s.Dependencies = append(s.Dependencies, DependencyHealth{Name: name})
		idx = len(s.Dependencies) - 1
		s.dependencyIndex[name] = idx
	}
	dep := s.Dependencies[idx]
	dep.Status = status
	dep.Details = details
	dep.LastChecked = time.Now().UTC()
	s.Dependencies[idx] = dep
}

// Snapshot returns a copy of the current statistics, safe to retain.
func (s *ProducerStats) Snapshot() ProducerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := ProducerStats{
		producerName:   s.producerName,
		target:         s.target,
		BatchesSent:    s.BatchesSent,
		BatchesFailed:  s.BatchesFailed,
		EventsSent:     s.EventsSent,
		Retries:        s.Retries,
		PendingBatches: s.PendingBatches,
		TotalSendTime:  s.TotalSendTime,
		LastSendAt:     s.LastSendAt,
		Latency:        s.Latency,
		Throughput:     s.Throughput,
		Errors:         s.Errors,
		Resource:       s.Resource,
	}
	snapshot.Dependencies = make([]DependencyHealth, len(s.Dependencies))
	copy(snapshot.Dependencies, s.Dependencies)
	return snapshot
}

func (s *ProducerStats) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type Alias ProducerStats
	return jsoncodec.Marshal((*Alias)(s))
}

func (e *ErrorBreakdown) Record(category errspkg.ErrorCategory, err error) {
	switch category {
	case errspkg.ErrorCategoryNone:
		if err == nil {
			return
		}
		e.Other++
	case errspkg.ErrorCategoryValidation:
		e.Validation++
	case errspkg.ErrorCategoryTransport:
		e.Transport++
	case errspkg.ErrorCategoryDownstream:
		e.Downstream++
	default:
		e.Other++
	}
	if err != nil {
		e.LastError = err.Error()
	}
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	if lw.filled == 0 {
		metrics.LastNs = lw.last
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	metrics.LastNs = lw.last
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}

type throughputWindow struct {
	horizon time.Duration
	samples []time.Time
}

type throughputSnapshot struct {
	Count         int
	WindowSeconds float64
	CurrentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (tw *throughputWindow) AddAndSnapshot(now time.Time) throughputSnapshot {
	if tw == nil {
		return throughputSnapshot{}
	}
	tw.samples = append(tw.samples, now)
	tw.cleanup(now)
	return tw.snapshot(now)
}

func (tw *throughputWindow) cleanup(now time.Time) {
	if tw == nil || len(tw.samples) == 0 {
		return
	}
	cutoff := now.Add(-tw.horizon)
	idx := 0
	for idx < len(tw.samples) && tw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(tw.samples, tw.samples[idx:])
		tw.samples = tw.samples[:len(tw.samples)-idx]
	}
}

func (tw *throughputWindow) snapshot(now time.Time) throughputSnapshot {
	if tw == nil || len(tw.samples) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(tw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	count := len(tw.samples)
	return throughputSnapshot{
		Count:         count,
		WindowSeconds: span.Seconds(),
		CurrentRPS:    float64(count) / span.Seconds(),
	}
}
