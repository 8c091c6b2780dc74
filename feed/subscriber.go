// Package feed turns messages on a transport topic into a sampled chart feed.
//
// A Subscriber keeps the latest value found at a field path of the subscribed
// topic's messages. A Poller samples that value on a fixed interval and
// publishes chart samples.
package feed

import (
	"fmt"
	"github.com/minor-industries/protoplot/fieldpath"
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"log/slog"
	"sync"
	"time"
)

// Reading is the latest value seen by a Subscriber.
type Reading struct {
	Value   float64   `json:"value"`
	Present bool      `json:"present"`
	Stale   bool      `json:"stale"`
	Updated time.Time `json:"updated"`
}

type SubscriberOption func(*Subscriber)

func WithLogger(logger *slog.Logger) SubscriberOption {
	return func(s *Subscriber) { s.log = logger }
}

func WithMetrics(m *Metrics) SubscriberOption {
	return func(s *Subscriber) { s.metrics = m }
}

func withClock(now func() time.Time) SubscriberOption {
	return func(s *Subscriber) { s.now = now }
}

// Subscriber owns at most one topic subscription on its node. Subscribe
// removes every subscription the node holds, so a node should not be shared
// with other consumers.
type Subscriber struct {
	node    transport.Node
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time

	changeLock sync.Mutex // serializes Subscribe and Unsubscribe

	lock    sync.RWMutex
	topic   string
	msgType string
	path    fieldpath.Path
	gen     uint64
	reading Reading
}

func NewSubscriber(node transport.Node, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		node: node,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "feed")
	return s
}

// SetPath takes effect from the next delivered message.
func (s *Subscriber) SetPath(path fieldpath.Path) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.path = path.Clone()
}

func (s *Subscriber) Path() fieldpath.Path {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.path.Clone()
}

// SetTopic records the topic name without subscribing.
func (s *Subscriber) SetTopic(topic string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.topic = topic
}

func (s *Subscriber) Topic() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.topic
}

// MessageType is the type advertised for the topic when it was subscribed,
// or "" if no publisher was known at the time.
func (s *Subscriber) MessageType() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.msgType
}

func (s *Subscriber) Subscribe(topic string) error {
	s.changeLock.Lock()
	defer s.changeLock.Unlock()

	if err := s.unsubscribeAll(); err != nil {
		return errors.Wrap(err, "unsubscribe")
	}

	msgType := s.lookupType(topic)

	s.lock.Lock()
	s.topic = topic
	s.msgType = msgType
	s.gen++
	gen := s.gen
	s.reading.Stale = false
	s.lock.Unlock()
	s.metrics.clearStale()

	err := s.node.Subscribe(topic, func(msg proto.Message) {
		s.handle(gen, msg)
	})
	if err != nil {
		s.lock.Lock()
		s.topic = ""
		s.msgType = ""
		s.lock.Unlock()
		return errors.Wrap(err, "subscribe")
	}

	s.metrics.subscribed()
	s.log.Info("subscribed", "topic", topic, "msg_type", msgType, "path", s.Path().String())
	return nil
}

func (s *Subscriber) lookupType(topic string) string {
	pubs, err := s.node.TopicInfo(topic)
	if err != nil {
		s.log.Warn("topic info unavailable", "topic", topic, "error", err)
		return ""
	}
	if len(pubs) == 0 {
		s.log.Info("no publishers advertised yet", "topic", topic)
		return ""
	}
	return pubs[0].MsgTypeName
}

// Unsubscribe is safe to call without an active subscription.
func (s *Subscriber) Unsubscribe() error {
	s.changeLock.Lock()
	defer s.changeLock.Unlock()
	return s.unsubscribeAll()
}

func (s *Subscriber) unsubscribeAll() error {
	// late deliveries from the old subscription are ignored from here on
	s.lock.Lock()
	s.gen++
	s.lock.Unlock()

	for _, topic := range s.node.SubscribedTopics() {
		if err := s.node.Unsubscribe(topic); err != nil {
			return errors.Wrapf(err, "unsubscribe %s", topic)
		}
	}
	return nil
}

func (s *Subscriber) Close() error {
	return s.Unsubscribe()
}

func (s *Subscriber) handle(gen uint64, msg proto.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("message handler panic", "panic", fmt.Sprint(r))
		}
	}()

	s.lock.RLock()
	current := gen == s.gen
	path := s.path
	s.lock.RUnlock()

	if !current {
		return
	}
	s.metrics.messageReceived()

	if len(path) == 0 {
		s.log.Debug("no field path set, message ignored")
		return
	}

	value, err := fieldpath.Value(msg.ProtoReflect(), path)

	var resolveErr *fieldpath.PathResolutionError
	var kindErr *fieldpath.UnsupportedFieldKindError
	switch {
	case err == nil:
	case errors.As(err, &resolveErr):
		s.log.Warn("field path not found", "path", path.String(), "error", err)
		s.metrics.decodeError("path")
		if s.markStale(gen) {
			s.metrics.markStale()
		}
		return
	case errors.As(err, &kindErr):
		s.log.Error("field is not plottable", "path", path.String(), "error", err)
		s.metrics.decodeError("kind")
		value = 0
	default:
		s.log.Error("extract value", "path", path.String(), "error", err)
		s.metrics.decodeError("other")
		return
	}

	s.lock.Lock()
	current = gen == s.gen
	if current {
		s.reading = Reading{
			Value:   value,
			Present: true,
			Updated: s.now(),
		}
	}
	s.lock.Unlock()

	if !current {
		return
	}
	s.metrics.valueUpdated(value)
	s.log.Debug("plot data", "value", value)
}

// markStale reports whether the reading still belonged to gen.
func (s *Subscriber) markStale(gen uint64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if gen != s.gen {
		return false
	}
	s.reading.Stale = true
	return true
}

// GetValue returns the latest value, or 0 before the first message.
func (s *Subscriber) GetValue() float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.reading.Value
}

func (s *Subscriber) Latest() Reading {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.reading
}
