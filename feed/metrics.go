package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the subscriber does with inbound messages. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	received   prometheus.Counter
	updates    prometheus.Counter
	errors     *prometheus.CounterVec
	value      prometheus.Gauge
	stale      prometheus.Gauge
	subscribes prometheus.Counter
	ticks      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoplot_feed_messages_received_total",
			Help: "Messages delivered to the feed subscriber.",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoplot_feed_updates_total",
			Help: "Messages that updated the latest value.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protoplot_feed_decode_errors_total",
			Help: "Messages whose field path could not be plotted, by reason.",
		}, []string{"reason"}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protoplot_feed_value",
			Help: "Latest extracted value.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protoplot_feed_stale",
			Help: "1 when the last message could not be resolved and the value is stale.",
		}),
		subscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoplot_feed_subscribes_total",
			Help: "Topic (re)subscriptions.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoplot_feed_ticks_total",
			Help: "Samples emitted by the poller.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.received, m.updates, m.errors, m.value, m.stale, m.subscribes, m.ticks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) messageReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) valueUpdated(v float64) {
	if m != nil {
		m.updates.Inc()
		m.value.Set(v)
		m.stale.Set(0)
	}
}

func (m *Metrics) decodeError(reason string) {
	if m != nil {
		m.errors.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) markStale() {
	if m != nil {
		m.stale.Set(1)
	}
}

func (m *Metrics) clearStale() {
	if m != nil {
		m.stale.Set(0)
	}
}

func (m *Metrics) subscribed() {
	if m != nil {
		m.subscribes.Inc()
	}
}

func (m *Metrics) ticked() {
	if m != nil {
		m.ticks.Inc()
	}
}
