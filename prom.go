package protoplot

import (
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"strconv"
	"sync"
	"time"
)

const seriesGaugeTimeout = 15 * time.Second

// timeoutGauge reports the last value of each series and stops reporting a
// series once it has gone quiet for longer than timeout.
type timeoutGauge struct {
	desc    *prometheus.Desc
	timeout time.Duration
	now     func() time.Time

	lock   sync.Mutex
	values map[string]timedValue
}

type timedValue struct {
	v  float64
	at time.Time
}

func newTimeoutGauge(timeout time.Duration, opts prometheus.GaugeOpts) *timeoutGauge {
	return &timeoutGauge{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name),
			opts.Help,
			[]string{"series"},
			opts.ConstLabels,
		),
		timeout: timeout,
		now:     time.Now,
		values:  map[string]timedValue{},
	}
}

func (g *timeoutGauge) Set(series string, v float64) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.values[series] = timedValue{v: v, at: g.now()}
}

func (g *timeoutGauge) Describe(ch chan<- *prometheus.Desc) {
	ch <- g.desc
}

func (g *timeoutGauge) Collect(ch chan<- prometheus.Metric) {
	g.lock.Lock()
	defer g.lock.Unlock()

	now := g.now()
	for series, tv := range g.values {
		if now.Sub(tv.at) > g.timeout {
			delete(g.values, series)
			continue
		}
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, tv.v, series)
	}
}

func (p *Plotter) startPrometheus() error {
	gauge := newTimeoutGauge(seriesGaugeTimeout, prometheus.GaugeOpts{
		Name: "protoplot_series_value",
		Help: "Last emitted sample per series; dropped after the series goes quiet.",
	})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protoplot_series_samples_total",
		Help: "Samples emitted per series.",
	}, []string{"series"})
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "protoplot_broker_dropped_total",
		Help: "Samples dropped because a consumer was not keeping up.",
	}, func() float64 {
		return float64(p.broker.DropCount())
	})

	for _, c := range []prometheus.Collector{gauge, points, dropped} {
		if err := p.registry.Register(c); err != nil {
			return errors.Wrap(err, "register prometheus metric")
		}
	}

	p.goConsume(func(msgCh chan broker.Message) {
		publishPrometheusMetrics(msgCh, gauge, points)
	})
	return nil
}

func publishPrometheusMetrics(
	msgCh chan broker.Message,
	gauge *timeoutGauge,
	points *prometheus.CounterVec,
) {
	for message := range msgCh {
		switch m := message.(type) {
		case schema.Sample:
			label := strconv.Itoa(m.SeriesID)
			gauge.Set(label, m.Y)
			points.WithLabelValues(label).Inc()
		}
	}
}
