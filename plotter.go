// Package protoplot plots one numeric field of the messages on a transport
// topic as a live line chart.
package protoplot

import (
	"context"
	"github.com/gin-gonic/gin"
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/computed_series"
	"github.com/minor-industries/protoplot/feed"
	"github.com/minor-industries/protoplot/fieldpath"
	"github.com/minor-industries/protoplot/internal/window"
	"github.com/minor-industries/protoplot/schema"
	"github.com/minor-industries/protoplot/storage"
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DerivedSeries is computed from the primary series with a computed_series
// expression such as "avg 30s" or "gt 0 | CtoF".
type DerivedSeries struct {
	SeriesID int
	Expr     string
}

type Options struct {
	Interval    time.Duration
	SeriesID    int
	HistorySize int
	Derived     []DerivedSeries

	// Backend records every emitted sample when set.
	Backend storage.StorageBackend

	// Registry receives the feed and series metrics. A private registry is
	// created when nil.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Status describes the current selection and its latest reading.
type Status struct {
	Topic       string       `json:"topic"`
	MessageType string       `json:"msgType"`
	Path        string       `json:"path"`
	Reading     feed.Reading `json:"reading"`
}

type Plotter struct {
	node     transport.Node
	errCh    chan error
	log      *slog.Logger
	seriesID int

	broker   *broker.Broker
	sub      *feed.Subscriber
	poller   *feed.Poller
	window   *window.Window
	backend  storage.StorageBackend
	derived  []*computed_series.Derived
	registry *prometheus.Registry
	server   *gin.Engine

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func New(
	node transport.Node,
	errCh chan error,
	opts Options,
) (*Plotter, error) {
	if opts.SeriesID == 0 {
		opts.SeriesID = feed.DefaultSeriesID
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	derived, err := buildDerived(opts.SeriesID, opts.Derived)
	if err != nil {
		return nil, errors.Wrap(err, "derived series")
	}

	metrics, err := feed.NewMetrics(opts.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "register feed metrics")
	}

	br := broker.NewBroker()
	p := &Plotter{
		node:     node,
		errCh:    errCh,
		log:      opts.Logger.With("component", "plotter"),
		seriesID: opts.SeriesID,
		broker:   br,
		window:   window.New(opts.HistorySize),
		backend:  opts.Backend,
		derived:  derived,
		registry: opts.Registry,
		server:   gin.Default(),
	}

	p.sub = feed.NewSubscriber(node,
		feed.WithLogger(opts.Logger),
		feed.WithMetrics(metrics),
	)
	p.poller = feed.NewPoller(p.sub, br,
		feed.WithInterval(opts.Interval),
		feed.WithSeriesID(opts.SeriesID),
		feed.WithPollerMetrics(metrics),
	)

	if err := p.setupServer(); err != nil {
		return nil, errors.Wrap(err, "setup server")
	}

	go br.Start()

	// consumers subscribe before the first sample is published
	p.goConsume(p.keepHistory)
	if err := p.startPrometheus(); err != nil {
		br.Stop()
		return nil, errors.Wrap(err, "register series metrics")
	}
	if len(p.derived) > 0 {
		p.goConsume(p.computeDerivedSeries)
	}
	if p.backend != nil {
		p.goConsume(p.publishToDB)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poller.Run(ctx)
	}()

	return p, nil
}

func buildDerived(primary int, reqs []DerivedSeries) ([]*computed_series.Derived, error) {
	seen := map[int]bool{primary: true}
	var result []*computed_series.Derived
	for _, req := range reqs {
		if seen[req.SeriesID] {
			return nil, errors.Errorf("series id %d is already in use", req.SeriesID)
		}
		seen[req.SeriesID] = true

		d, err := computed_series.NewDerived(req.SeriesID, req.Expr)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func (p *Plotter) goConsume(fn func(msgCh chan broker.Message)) {
	msgCh := p.broker.Subscribe()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(msgCh)
	}()
}

func (p *Plotter) keepHistory(msgCh chan broker.Message) {
	for msg := range msgCh {
		if s, ok := msg.(schema.Sample); ok {
			p.window.Push(s)
		}
	}
}

func (p *Plotter) reportError(err error) {
	p.log.Error("background error", "error", err)
	if p.errCh == nil {
		return
	}
	select {
	case p.errCh <- err:
	default:
	}
}

func (p *Plotter) GetEngine() *gin.Engine {
	return p.server
}

func (p *Plotter) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Plotter) SeriesID() int {
	return p.seriesID
}

// SetTopicAndPath selects the field to plot and (re)subscribes to topic.
func (p *Plotter) SetTopicAndPath(topic string, path string) error {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return errors.Wrap(err, "parse path")
	}

	p.sub.SetPath(parsed)
	if err := p.sub.Subscribe(topic); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	return nil
}

// SetTopic records topic without resubscribing. It is meant for diagnostic
// wiring; use SwitchTopic to move the plot to another topic.
func (p *Plotter) SetTopic(topic string) {
	p.sub.SetTopic(topic)
}

// SwitchTopic (re)subscribes to topic and keeps the current field path.
func (p *Plotter) SwitchTopic(topic string) error {
	if err := p.sub.Subscribe(topic); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	return nil
}

// Topics lists the topics currently known to the transport, sorted.
func (p *Plotter) Topics() ([]string, error) {
	topics, err := p.node.TopicList()
	if err != nil {
		return nil, errors.Wrap(err, "topic list")
	}
	sort.Strings(topics)
	return topics, nil
}

func (p *Plotter) TopicInfo(topic string) ([]transport.MessagePublisher, error) {
	pubs, err := p.node.TopicInfo(topic)
	if err != nil {
		return nil, errors.Wrap(err, "topic info")
	}
	return pubs, nil
}

func (p *Plotter) Latest() feed.Reading {
	return p.sub.Latest()
}

func (p *Plotter) Status() Status {
	return Status{
		Topic:       p.sub.Topic(),
		MessageType: p.sub.MessageType(),
		Path:        p.sub.Path().String(),
		Reading:     p.sub.Latest(),
	}
}

// History returns samples of a series with X > after. Recorded samples are
// read from the storage backend when one is configured, otherwise from the
// in-memory window.
func (p *Plotter) History(seriesID int, after int64) ([]schema.Sample, error) {
	if p.backend == nil {
		return p.window.After(seriesID, after), nil
	}
	samples, err := p.backend.LoadSamples(seriesID, after)
	if err != nil {
		return nil, errors.Wrap(err, "load samples")
	}
	return samples, nil
}

// Close stops polling, drops the topic subscription and stops all consumers.
// Later calls return the result of the first.
func (p *Plotter) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		err := p.sub.Close()
		p.broker.Stop()
		p.wg.Wait()
		if err != nil {
			p.closeErr = errors.Wrap(err, "unsubscribe")
		}
	})
	return p.closeErr
}
