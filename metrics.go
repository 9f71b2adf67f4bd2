package assetpipe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolve outcomes as reported in the resolves_total "outcome" label.
const (
	outcomeHit       = "hit"
	outcomeMiss      = "miss"
	outcomeCoalesced = "coalesced"
	outcomeRejected  = "rejected"
)

// Metrics are the Prometheus collectors a pipeline reports to. A nil
// *Metrics records nothing.
type Metrics struct {
	resolves       *prometheus.CounterVec
	encodes        prometheus.Counter
	retries        prometheus.Counter
	emptyResults   prometheus.Counter
	deliveries     *prometheus.CounterVec
	duplicates     prometheus.Counter
	encodeDuration prometheus.Histogram
	pending        prometheus.Gauge
}

// NewMetrics creates unregistered collectors under namespace
// (default "assetpipe").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "assetpipe"
	}
	return &Metrics{
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolves_total",
				Help:      "Resolve requests by outcome",
			},
			[]string{"outcome"},
		),
		encodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encodes_total",
			Help:      "Compressor invocations",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Encodes retried after an empty payload or invalidated buffer",
		}),
		emptyResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_results_total",
			Help:      "Requests that produced no payload after the retry",
		}),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Payloads handed to the outbound queue",
			},
			[]string{"mime"},
		),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Payloads not delivered because their identifier was already delivered",
		}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time from encode start to result, retries included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Encodes in flight",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.resolves, m.encodes, m.retries, m.emptyResults,
		m.deliveries, m.duplicates, m.encodeDuration, m.pending,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) resolve(outcome string) {
	if m != nil {
		m.resolves.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) encode() {
	if m != nil {
		m.encodes.Inc()
	}
}

func (m *Metrics) retry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *Metrics) empty() {
	if m != nil {
		m.emptyResults.Inc()
	}
}

func (m *Metrics) delivery(mime string) {
	if m != nil {
		if mime == "" {
			mime = "unknown"
		}
		m.deliveries.WithLabelValues(mime).Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

func (m *Metrics) observeEncode(d time.Duration) {
	if m != nil {
		m.encodeDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) pendingDelta(n float64) {
	if m != nil {
		m.pending.Add(n)
	}
}
