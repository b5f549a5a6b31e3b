package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/hubflow/link"
)

// ProducerMetrics tracks send statistics across producers.
type ProducerMetrics struct {
	mu sync.RWMutex

	// Per-target counts
	targetCounts map[string]*ProducerTargetMetrics

	// Prometheus collectors
	batchesTotal  *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	batchSizeHist *prometheus.HistogramVec
	sendsInFlight *prometheus.GaugeVec

	registerer prometheus.Registerer
	registered bool
}

// ProducerTargetMetrics holds metrics for sends to a specific target.
type ProducerTargetMetrics struct {
	BatchesSent   uint64    `json:"batches_sent"`
	BatchesFailed uint64    `json:"batches_failed"`
	EventsSent    uint64    `json:"events_sent"`
	Retries       uint64    `json:"retries"`
	AvgBatchSize  float64   `json:"avg_batch_size"`
	LastSendAt    time.Time `json:"last_send_at,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// ProducerMetricsSnapshot provides a point-in-time view of producer metrics.
type ProducerMetricsSnapshot struct {
	TotalBatches  uint64                            `json:"total_batches"`
	TotalFailed   uint64                            `json:"total_failed"`
	TotalEvents   uint64                            `json:"total_events"`
	TotalRetries  uint64                            `json:"total_retries"`
	TargetMetrics map[string]*ProducerTargetMetrics `json:"target_metrics"`
	CollectedAt   time.Time                         `json:"collected_at"`
}

// newProducerCounterVec creates a new counter vec with standard hubflow/producer namespace.
func newProducerCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubflow",
			Subsystem: "producer",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// newProducerGaugeVec creates a new gauge vec with standard hubflow/producer namespace.
func newProducerGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hubflow",
			Subsystem: "producer",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// newProducerHistogramVec creates a new histogram vec with standard hubflow/producer namespace.
func newProducerHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubflow",
			Subsystem: "producer",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewProducerMetrics creates a new producer metrics collector.
func NewProducerMetrics(registerer prometheus.Registerer) *ProducerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ProducerMetrics{
		targetCounts:  make(map[string]*ProducerTargetMetrics),
		registerer:    registerer,
		batchesTotal:  newProducerCounterVec("batches_total", "Total number of batches submitted for sending, by terminal result", []string{"target", "result"}),
		eventsTotal:   newProducerCounterVec("events_total", "Total number of events acknowledged by the link", []string{"target"}),
		retriesTotal:  newProducerCounterVec("retries_total", "Total number of delivery attempts after the first", []string{"target"}),
		sendDuration:  newProducerHistogramVec("send_duration_seconds", "Wall time of one send call including retries", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}, []string{"target"}),
		batchSizeHist: newProducerHistogramVec("batch_size_events", "Number of events per submitted batch", []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}, []string{"target"}),
		sendsInFlight: newProducerGaugeVec("sends_in_flight", "Number of send calls currently in progress", []string{"target"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *ProducerMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.batchesTotal,
		m.eventsTotal,
		m.retriesTotal,
		m.sendDuration,
		m.batchSizeHist,
		m.sendsInFlight,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			// Check if it's already registered (not an error)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordSend records the terminal result of one send call.
func (m *ProducerMetrics) RecordSend(target string, result link.Result, events int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateTargetMetrics(target)
	now := time.Now()
	metrics.LastUpdatedAt = now

	if result == link.ResultOK {
		metrics.BatchesSent++
		metrics.EventsSent += uint64(events)
		metrics.LastSendAt = now
		m.eventsTotal.WithLabelValues(target).Add(float64(events))
	} else {
		metrics.BatchesFailed++
	}

	// Update average batch size (rolling average)
	total := metrics.BatchesSent + metrics.BatchesFailed
	metrics.AvgBatchSize = ((metrics.AvgBatchSize * float64(total-1)) + float64(events)) / float64(total)

	m.batchesTotal.WithLabelValues(target, result.String()).Inc()
	m.sendDuration.WithLabelValues(target).Observe(duration.Seconds())
	m.batchSizeHist.WithLabelValues(target).Observe(float64(events))
}

// RecordRetry records one delivery attempt after the first.
func (m *ProducerMetrics) RecordRetry(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateTargetMetrics(target)
	metrics.Retries++
	metrics.LastUpdatedAt = time.Now()

	m.retriesTotal.WithLabelValues(target).Inc()
}

// SendStarted marks a send call as in flight.
func (m *ProducerMetrics) SendStarted(target string) {
	m.sendsInFlight.WithLabelValues(target).Inc()
}

// SendFinished marks a send call as no longer in flight.
func (m *ProducerMetrics) SendFinished(target string) {
	m.sendsInFlight.WithLabelValues(target).Dec()
}

// GetSnapshot returns a point-in-time snapshot of all producer metrics.
func (m *ProducerMetrics) GetSnapshot() ProducerMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := ProducerMetricsSnapshot{
		TargetMetrics: make(map[string]*ProducerTargetMetrics),
		CollectedAt:   time.Now(),
	}

	for target, metrics := range m.targetCounts {
		// Create a copy
		metricsCopy := &ProducerTargetMetrics{
			BatchesSent:   metrics.BatchesSent,
			BatchesFailed: metrics.BatchesFailed,
			EventsSent:    metrics.EventsSent,
			Retries:       metrics.Retries,
			AvgBatchSize:  metrics.AvgBatchSize,
			LastSendAt:    metrics.LastSendAt,
			LastUpdatedAt: metrics.LastUpdatedAt,
		}
		snapshot.TargetMetrics[target] = metricsCopy
		snapshot.TotalBatches += metrics.BatchesSent
		snapshot.TotalFailed += metrics.BatchesFailed
		snapshot.TotalEvents += metrics.EventsSent
		snapshot.TotalRetries += metrics.Retries
	}

	return snapshot
}

// GetTargetMetrics returns metrics for a specific target.
func (m *ProducerMetrics) GetTargetMetrics(target string) *ProducerTargetMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if metrics, ok := m.targetCounts[target]; ok {
		// Return a copy
		return &ProducerTargetMetrics{
			BatchesSent:   metrics.BatchesSent,
			BatchesFailed: metrics.BatchesFailed,
			EventsSent:    metrics.EventsSent,
			Retries:       metrics.Retries,
			AvgBatchSize:  metrics.AvgBatchSize,
			LastSendAt:    metrics.LastSendAt,
			LastUpdatedAt: metrics.LastUpdatedAt,
		}
	}
	return nil
}

func (m *ProducerMetrics) getOrCreateTargetMetrics(target string) *ProducerTargetMetrics {
	if metrics, ok := m.targetCounts[target]; ok {
		return metrics
	}
	metrics := &ProducerTargetMetrics{}
	m.targetCounts[target] = metrics
	return metrics
}

// Reset resets all metrics (useful for testing).
func (m *ProducerMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetCounts = make(map[string]*ProducerTargetMetrics)
	m.batchesTotal.Reset()
	m.eventsTotal.Reset()
	m.retriesTotal.Reset()
	m.sendDuration.Reset()
	m.batchSizeHist.Reset()
	m.sendsInFlight.Reset()
}
