package archipelago

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the client's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "archipelago").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for backoff waits, in seconds.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the backoff histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "archipelago",
		Subsystem: "client",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 60},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesSent      prometheus.Counter
	framesReceived  prometheus.Counter
	packetsReceived *prometheus.CounterVec
	decodeErrors    prometheus.Counter
	connectErrors   *prometheus.CounterVec
	connects        prometheus.Counter
	reconnects      prometheus.Counter
	remoteCloses    *prometheus.CounterVec
	handlerPanics   prometheus.Counter
	queueDepth      prometheus.Gauge
	backoffSeconds  prometheus.Histogram
}

// NewMetrics registers the client collectors. Registering twice against the
// same registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		framesSent:      counter("frames_sent_total", "Frames written to the socket"),
		framesReceived:  counter("frames_received_total", "Frames read from the socket"),
		packetsReceived: counterVec("packets_received_total", "Decoded inbound packets by cmd", "cmd"),
		decodeErrors:    counter("decode_errors_total", "Inbound packets that failed to decode"),
		connectErrors:   counterVec("connect_errors_total", "Errors reported to OnConnectError by kind", "kind"),
		connects:        counter("connects_total", "Successful websocket connections"),
		reconnects:      counter("reconnects_total", "Reconnect attempts scheduled by the policy"),
		remoteCloses:    counterVec("remote_closes_total", "Connections closed by the server, by close code", "code"),
		handlerPanics:   counter("handler_panics_total", "Handler callbacks that panicked"),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "outbound_queue_depth",
			Help:        "Frames waiting to be sent",
			ConstLabels: config.ConstLabels,
		}),
		backoffSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "backoff_seconds",
			Help:        "Time waited before reconnecting",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

func (m *Metrics) frameSent() {
	if m != nil {
		m.framesSent.Inc()
	}
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) packetReceived(cmd string) {
	if m != nil {
		m.packetsReceived.WithLabelValues(cmd).Inc()
	}
}

func (m *Metrics) decodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) connectError(kind Kind) {
	if m != nil {
		m.connectErrors.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) connected() {
	if m != nil {
		m.connects.Inc()
	}
}

func (m *Metrics) reconnect(waitSeconds float64) {
	if m != nil {
		m.reconnects.Inc()
		m.backoffSeconds.Observe(waitSeconds)
	}
}

func (m *Metrics) remoteClose(code int) {
	if m != nil {
		m.remoteCloses.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

func (m *Metrics) handlerPanic() {
	if m != nil {
		m.handlerPanics.Inc()
	}
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.queueDepth.Set(float64(n))
	}
}
