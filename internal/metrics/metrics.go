// Package metrics exposes pipeline counters to Prometheus and serves them,
// together with a health probe, on a small echo server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/session"
)

const namespace = "ytbot"

var _ session.Observer = (*Metrics)(nil)

// Metrics holds the bot collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	probes          *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	deliveries      *prometheus.CounterVec
	cleanupFailures prometheus.Counter
}

// New creates and registers all collectors. liveSessions and liveWorkDirs,
// when not nil, are sampled on every scrape.
func New(liveSessions, liveWorkDirs func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Requests that passed validation and started probing.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Metadata probes by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetch attempts by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of fetch attempts.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivered artifacts by kind.",
		}, []string{"kind"}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Session directories that could not be removed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsStarted,
		m.probes,
		m.fetches,
		m.fetchDuration,
		m.deliveries,
		m.cleanupFailures,
	)

	m.gauge("sessions_live", "Sessions currently held in the registry.", liveSessions)
	m.gauge("work_dirs_live", "Session work directories not yet removed.", liveWorkDirs)
	return m
}

func (m *Metrics) gauge(name, help string, sample func() int) {
	if sample == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(sample()) }))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionStarted implements session.Observer
func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
}

// ProbeFinished implements session.Observer
func (m *Metrics) ProbeFinished(outcome string) {
	m.probes.WithLabelValues(outcome).Inc()
}

// FetchFinished implements session.Observer
func (m *Metrics) FetchFinished(outcome string, elapsed time.Duration) {
	m.fetches.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.fetchDuration.Observe(elapsed.Seconds())
	}
}

// Delivered implements session.Observer
func (m *Metrics) Delivered(kind model.DeliveryKind) {
	m.deliveries.WithLabelValues(string(kind)).Inc()
}

// CleanupHook returns a store cleanup hook counting failures
func (m *Metrics) CleanupHook() func(path string, err error) {
	return func(string, error) {
		m.cleanupFailures.Inc()
	}
}
