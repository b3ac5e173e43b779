// Package metrics implements ports.Metrics with Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bft-labs/rfbridge/internal/ports"
)

const (
	promNamespace = "rfbridge"
	labelSource   = "source"
	labelWorker   = "worker"
)

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus records relay traffic on a prometheus.Registerer.
type Prometheus struct {
	framesReceived *prometheus.CounterVec
	framesDropped  *prometheus.CounterVec
	bytesReceived  *prometheus.CounterVec
	framesSent     prometheus.Counter
	bytesSent      prometheus.Counter
	staleDiscarded prometheus.Counter
	reconnects     *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	connected      *prometheus.GaugeVec
}

// NewPrometheus registers the rfbridge collectors on reg.
// It panics if they are already registered there.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		framesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "frames_received_total",
			Help:      "Total number of non-empty reads from upstream gateways.",
		}, []string{labelSource}),
		framesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames discarded because the relay queue was full.",
		}, []string{labelSource}),
		bytesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "bytes_received_total",
			Help:      "Total number of bytes read from upstream gateways.",
		}, []string{labelSource}),
		framesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "frames_sent_total",
			Help:      "Total number of frames written to the consumer.",
		}),
		bytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "bytes_sent_total",
			Help:      "Total number of bytes written to the consumer.",
		}),
		staleDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "stale_frames_discarded_total",
			Help:      "Total number of queued frames discarded when a consumer connected.",
		}),
		reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "reconnects_total",
			Help:      "Total number of connection attempts made after a fault.",
		}, []string{labelWorker}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "queue_depth",
			Help:      "Number of frames waiting in the relay queue.",
		}),
		connected: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "connected",
			Help:      "1 while the worker holds a live connection.",
		}, []string{labelWorker}),
	}
}

func (p *Prometheus) FrameReceived(source string, bytes int) {
	p.framesReceived.WithLabelValues(source).Inc()
	p.bytesReceived.WithLabelValues(source).Add(float64(bytes))
}

func (p *Prometheus) FrameDropped(source string) {
	p.framesDropped.WithLabelValues(source).Inc()
}

func (p *Prometheus) FrameSent(bytes int) {
	p.framesSent.Inc()
	p.bytesSent.Add(float64(bytes))
}

func (p *Prometheus) StaleDiscarded(count int) {
	p.staleDiscarded.Add(float64(count))
}

func (p *Prometheus) QueueDepth(depth int) {
	p.queueDepth.Set(float64(depth))
}

func (p *Prometheus) Connected(worker string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	p.connected.WithLabelValues(worker).Set(v)
}

func (p *Prometheus) Reconnect(worker string) {
	p.reconnects.WithLabelValues(worker).Inc()
}
