// Package natsbus is a transport over NATS core subjects. Topic discovery is
// gossiped on "<prefix>.advertise"; a node joining the bus asks the others to
// re-announce on "<prefix>.discover".
package natsbus

import (
	"encoding/json"
	"github.com/chrispappas/golang-generics-set/set"
	"github.com/minor-industries/protoplot/transport"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

type Option func(*Node)

func WithName(name string) Option {
	return func(n *Node) { n.name = name }
}

func WithPrefix(prefix string) Option {
	return func(n *Node) { n.prefix = prefix }
}

// WithResolver sets the registry used to decode payloads. The default is
// protoregistry.GlobalTypes, which only knows compiled-in messages.
func WithResolver(r Resolver) Option {
	return func(n *Node) { n.resolver = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) { n.log = logger }
}

type Node struct {
	conn     *nats.Conn
	ownsConn bool

	name     string
	prefix   string
	resolver Resolver
	log      *slog.Logger

	lock    sync.Mutex
	subs    map[string]*nats.Subscription
	adverts map[string]set.Set[transport.MessagePublisher]
	local   set.Set[transport.MessagePublisher]
	control []*nats.Subscription
}

// Connect dials url and returns a node that closes the connection on Close.
func Connect(url string, opts ...Option) (*Node, error) {
	conn, err := nats.Connect(url,
		nats.Name("protoplot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	n, err := New(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	n.ownsConn = true
	return n, nil
}

func New(conn *nats.Conn, opts ...Option) (*Node, error) {
	n := &Node{
		conn:     conn,
		name:     strings.TrimPrefix(nats.NewInbox(), nats.InboxPrefix),
		prefix:   DefaultPrefix,
		resolver: protoregistry.GlobalTypes,
		subs:     map[string]*nats.Subscription{},
		adverts:  map[string]set.Set[transport.MessagePublisher]{},
		local:    set.FromSlice([]transport.MessagePublisher{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = slog.Default()
	}
	n.log = n.log.With("component", "natsbus", "node", n.name)

	advSub, err := conn.Subscribe(advertiseSubject(n.prefix), n.handleAdvert)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe advertisements")
	}
	discSub, err := conn.Subscribe(discoverSubject(n.prefix), n.handleDiscover)
	if err != nil {
		_ = advSub.Unsubscribe()
		return nil, errors.Wrap(err, "subscribe discovery")
	}
	n.control = []*nats.Subscription{advSub, discSub}

	if err := conn.Publish(discoverSubject(n.prefix), nil); err != nil {
		return nil, errors.Wrap(err, "request discovery")
	}
	if err := conn.Flush(); err != nil {
		return nil, errors.Wrap(err, "flush")
	}

	return n, nil
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) handleAdvert(m *nats.Msg) {
	var p transport.MessagePublisher
	if err := json.Unmarshal(m.Data, &p); err != nil {
		n.log.Warn("bad advertisement", "error", err)
		return
	}
	if p.Topic == "" {
		return
	}
	n.remember(p)
}

func (n *Node) handleDiscover(*nats.Msg) {
	n.lock.Lock()
	local := make([]transport.MessagePublisher, 0, len(n.local))
	for p := range n.local {
		local = append(local, p)
	}
	n.lock.Unlock()

	for _, p := range local {
		if err := n.announce(p); err != nil {
			n.log.Warn("re-announce", "topic", p.Topic, "error", err)
		}
	}
}

func (n *Node) remember(p transport.MessagePublisher) {
	n.lock.Lock()
	defer n.lock.Unlock()

	pubs, ok := n.adverts[p.Topic]
	if !ok {
		pubs = set.FromSlice([]transport.MessagePublisher{})
		n.adverts[p.Topic] = pubs
	}
	pubs.Add(p)
}

func (n *Node) announce(p transport.MessagePublisher) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal advertisement")
	}
	return n.conn.Publish(advertiseSubject(n.prefix), data)
}

func (n *Node) Advertise(topic string, msgType string) error {
	if _, err := Subject(n.prefix, topic); err != nil {
		return err
	}

	p := transport.MessagePublisher{Topic: topic, MsgTypeName: msgType, Node: n.name}

	n.lock.Lock()
	n.local.Add(p)
	n.lock.Unlock()
	n.remember(p)

	if err := n.announce(p); err != nil {
		return errors.Wrap(err, "announce")
	}
	return nil
}

func (n *Node) Publish(topic string, msg proto.Message) error {
	subject, err := Subject(n.prefix, topic)
	if err != nil {
		return err
	}
	data, err := encode(msg)
	if err != nil {
		return errors.Wrap(err, "encode")
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return errors.Wrap(err, "publish")
	}
	return nil
}

func (n *Node) TopicList() ([]string, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	result := make([]string, 0, len(n.adverts))
	for topic := range n.adverts {
		result = append(result, topic)
	}
	sort.Strings(result)
	return result, nil
}

func (n *Node) TopicInfo(topic string) ([]transport.MessagePublisher, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	var result []transport.MessagePublisher
	for p := range n.adverts[topic] {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Node < result[j].Node
	})
	return result, nil
}

// Subscribe replaces any existing handler for topic. Payloads that cannot be
// decoded with the node's resolver are logged and dropped.
func (n *Node) Subscribe(topic string, h transport.Handler) error {
	subject, err := Subject(n.prefix, topic)
	if err != nil {
		return err
	}
	if err := n.Unsubscribe(topic); err != nil {
		return errors.Wrap(err, "unsubscribe previous")
	}

	sub, err := n.conn.Subscribe(subject, func(m *nats.Msg) {
		msg, err := decode(m.Data, n.resolver)
		if err != nil {
			n.log.Warn("decode message", "topic", topic, "error", err)
			return
		}
		h(msg)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe")
	}

	n.lock.Lock()
	n.subs[topic] = sub
	n.lock.Unlock()
	return nil
}

// Unsubscribe stops delivery for topic. A handler call already in progress
// may still complete after it returns.
func (n *Node) Unsubscribe(topic string) error {
	n.lock.Lock()
	sub, ok := n.subs[topic]
	delete(n.subs, topic)
	n.lock.Unlock()

	if !ok {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return errors.Wrap(err, "unsubscribe")
	}
	return nil
}

func (n *Node) SubscribedTopics() []string {
	n.lock.Lock()
	defer n.lock.Unlock()

	result := make([]string, 0, len(n.subs))
	for topic := range n.subs {
		result = append(result, topic)
	}
	sort.Strings(result)
	return result
}

func (n *Node) Close() error {
	for _, topic := range n.SubscribedTopics() {
		if err := n.Unsubscribe(topic); err != nil {
			n.log.Warn("unsubscribe on close", "topic", topic, "error", err)
		}
	}
	for _, sub := range n.control {
		_ = sub.Unsubscribe()
	}
	if n.ownsConn {
		n.conn.Close()
	}
	return nil
}
