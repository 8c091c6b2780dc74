package feed

import (
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"sort"
	"sync"
)

// fakeNode delivers synchronously on the caller's goroutine.
type fakeNode struct {
	lock     sync.Mutex
	handlers map[string]transport.Handler
	info     map[string][]transport.MessagePublisher
	infoErr  error
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: map[string]transport.Handler{},
		info:     map[string][]transport.MessagePublisher{},
	}
}

func (n *fakeNode) TopicList() ([]string, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	var result []string
	for topic := range n.info {
		result = append(result, topic)
	}
	sort.Strings(result)
	return result, nil
}

func (n *fakeNode) TopicInfo(topic string) ([]transport.MessagePublisher, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.infoErr != nil {
		return nil, n.infoErr
	}
	return n.info[topic], nil
}

func (n *fakeNode) Subscribe(topic string, h transport.Handler) error {
	if topic == "" {
		return errors.New("empty topic")
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	n.handlers[topic] = h
	return nil
}

func (n *fakeNode) Unsubscribe(topic string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	delete(n.handlers, topic)
	return nil
}

func (n *fakeNode) SubscribedTopics() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	result := []string{}
	for topic := range n.handlers {
		result = append(result, topic)
	}
	sort.Strings(result)
	return result
}

func (n *fakeNode) handler(topic string) transport.Handler {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.handlers[topic]
}

func (n *fakeNode) deliver(topic string, msg proto.Message) bool {
	h := n.handler(topic)
	if h == nil {
		return false
	}
	h(msg)
	return true
}
