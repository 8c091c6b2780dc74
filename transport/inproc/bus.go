// Package inproc is an in-process transport: every Node created from the same
// Bus sees the others' advertisements and messages.
package inproc

import (
	"github.com/chrispappas/golang-generics-set/set"
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/transport"
	"google.golang.org/protobuf/proto"
	"sort"
	"sync"
)

type envelope struct {
	topic string
	msg   proto.Message
}

func (e *envelope) Name() string {
	return "envelope"
}

type Bus struct {
	broker *broker.Broker

	lock       sync.Mutex
	publishers map[string]set.Set[transport.MessagePublisher]
}

func NewBus() *Bus {
	b := &Bus{
		broker:     broker.NewBroker(),
		publishers: map[string]set.Set[transport.MessagePublisher]{},
	}
	go b.broker.Start()
	return b
}

// Close stops delivery to every node of the bus.
func (b *Bus) Close() {
	b.broker.Stop()
}

func (b *Bus) NewNode(name string) *Node {
	return &Node{
		bus:  b,
		name: name,
		subs: map[string]*subscription{},
	}
}

func (b *Bus) advertise(p transport.MessagePublisher) {
	b.lock.Lock()
	defer b.lock.Unlock()

	pubs, ok := b.publishers[p.Topic]
	if !ok {
		pubs = set.FromSlice([]transport.MessagePublisher{})
		b.publishers[p.Topic] = pubs
	}
	pubs.Add(p)
}

func (b *Bus) topicInfo(topic string) []transport.MessagePublisher {
	b.lock.Lock()
	defer b.lock.Unlock()

	var result []transport.MessagePublisher
	for p := range b.publishers[topic] {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Node < result[j].Node
	})
	return result
}

func (b *Bus) topicList() []string {
	b.lock.Lock()
	defer b.lock.Unlock()

	result := make([]string, 0, len(b.publishers))
	for topic := range b.publishers {
		result = append(result, topic)
	}
	sort.Strings(result)
	return result
}
