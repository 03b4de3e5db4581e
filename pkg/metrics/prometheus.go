package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.StreamMetrics using Prometheus.
type Recorder struct {
	framesTotal    prometheus.Counter
	droppedTotal   *prometheus.CounterVec
	reconnects     prometheus.Counter
	backoffSeconds prometheus.Gauge
	connected      prometheus.Gauge
	subscribers    prometheus.Gauge
	panicsTotal    prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		framesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "swanpulse_stream_frames_total",
			Help: "Valid stream events received from upstream",
		}),
		droppedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swanpulse_stream_frames_dropped_total",
			Help: "Upstream frames discarded as malformed",
		}, []string{"reason"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "swanpulse_stream_reconnects_total",
			Help: "Reconnect attempts scheduled after a transport failure",
		}),
		backoffSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name: "swanpulse_stream_backoff_seconds",
			Help: "Delay of the most recently scheduled reconnect",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "swanpulse_stream_connected",
			Help: "1 while the upstream stream is open",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "swanpulse_stream_subscribers",
			Help: "Registered stream subscribers",
		}),
		panicsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "swanpulse_stream_callback_panics_total",
			Help: "Subscriber callbacks that panicked",
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swanpulse_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swanpulse_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordFrame() { r.framesTotal.Inc() }

func (r *Recorder) RecordDrop(reason string) { r.droppedTotal.WithLabelValues(reason).Inc() }

// RecordReconnect records a scheduled reconnect and its delay.
func (r *Recorder) RecordReconnect(attempt int, delay time.Duration) {
	r.reconnects.Inc()
	r.backoffSeconds.Set(delay.Seconds())
}

func (r *Recorder) SetConnected(connected bool) {
	if connected {
		r.connected.Set(1)
		return
	}
	r.connected.Set(0)
}

func (r *Recorder) SetSubscribers(n int) { r.subscribers.Set(float64(n)) }

func (r *Recorder) RecordCallbackPanic() { r.panicsTotal.Inc() }

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything; used when metrics are disabled and in tests.
type Nop struct{}

func (Nop) RecordFrame() {}
func (Nop) RecordDrop(string) {}
func (Nop) RecordReconnect(int, time.Duration) {}
func (Nop) SetConnected(bool) {}
func (Nop) SetSubscribers(int) {}
func (Nop) RecordCallbackPanic() {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
