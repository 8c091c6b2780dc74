package feed

import (
	"context"
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/schema"
	"time"
)

const (
	DefaultInterval = time.Second
	DefaultSeriesID = 1
)

// Source is read on every tick.
type Source interface {
	GetValue() float64
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithSeriesID(id int) PollerOption {
	return func(p *Poller) { p.seriesID = id }
}

func WithPollerMetrics(m *Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// Poller emits one sample per interval whether or not the source changed,
// so an idle topic plots as a flat line at its last known value.
type Poller struct {
	src      Source
	pub      broker.Publisher
	interval time.Duration
	seriesID int
	metrics  *Metrics
	now      func() time.Time

	x uint64
}

func NewPoller(src Source, pub broker.Publisher, opts ...PollerOption) *Poller {
	p := &Poller{
		src:      src,
		pub:      pub,
		interval: DefaultInterval,
		seriesID: DefaultSeriesID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

func (p *Poller) SeriesID() int {
	return p.seriesID
}

// Tick publishes a sample at the current x and advances x. Tick is not safe
// for concurrent use; Run is its only caller outside of tests.
func (p *Poller) Tick() schema.Sample {
	sample := schema.Sample{
		SeriesID:  p.seriesID,
		X:         p.x,
		Y:         p.src.GetValue(),
		Timestamp: p.now(),
	}
	p.pub.Publish(sample)
	p.x++
	p.metrics.ticked()
	return sample
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}
