package inproc

import (
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"sort"
	"sync"
)

type subscription struct {
	msgCh chan broker.Message
	done  chan struct{}
}

// Node delivers each subscribed topic on its own goroutine, in publish order.
type Node struct {
	bus  *Bus
	name string

	lock sync.Mutex
	subs map[string]*subscription
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) TopicList() ([]string, error) {
	return n.bus.topicList(), nil
}

func (n *Node) TopicInfo(topic string) ([]transport.MessagePublisher, error) {
	return n.bus.topicInfo(topic), nil
}

func (n *Node) Advertise(topic string, msgType string) error {
	if topic == "" {
		return errors.New("empty topic")
	}
	n.bus.advertise(transport.MessagePublisher{
		Topic:       topic,
		MsgTypeName: msgType,
		Node:        n.name,
	})
	return nil
}

func (n *Node) Publish(topic string, msg proto.Message) error {
	if topic == "" {
		return errors.New("empty topic")
	}
	n.bus.broker.Publish(&envelope{topic: topic, msg: msg})
	return nil
}

// Subscribe replaces any existing handler for topic.
func (n *Node) Subscribe(topic string, h transport.Handler) error {
	if topic == "" {
		return errors.New("empty topic")
	}
	if err := n.Unsubscribe(topic); err != nil {
		return errors.Wrap(err, "unsubscribe previous")
	}

	sub := &subscription{
		msgCh: n.bus.broker.Subscribe(),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for m := range sub.msgCh {
			env, ok := m.(*envelope)
			if !ok || env.topic != topic {
				continue
			}
			h(env.msg)
		}
	}()

	n.lock.Lock()
	n.subs[topic] = sub
	n.lock.Unlock()

	return nil
}

// Unsubscribe waits for an in-flight handler call to return. It must not be
// called from inside a handler of the same topic.
func (n *Node) Unsubscribe(topic string) error {
	n.lock.Lock()
	sub, ok := n.subs[topic]
	delete(n.subs, topic)
	n.lock.Unlock()

	if !ok {
		return nil
	}

	n.bus.broker.Unsubscribe(sub.msgCh)
	<-sub.done
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
