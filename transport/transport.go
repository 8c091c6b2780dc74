// Package transport defines the publish/subscribe surface the plot feed
// consumes. Implementations live in the inproc and natsbus subpackages.
package transport

import (
	"google.golang.org/protobuf/proto"
)

// MessagePublisher describes one advertised publisher of a topic.
type MessagePublisher struct {
	Topic       string `json:"topic"`
	MsgTypeName string `json:"msgType"`
	Node        string `json:"node"`
}

// Handler receives decoded messages on the transport's delivery goroutine.
type Handler func(msg proto.Message)

// Node is the subscriber side of a transport. A node holds at most one
// handler per topic.
type Node interface {
	TopicList() ([]string, error)
	TopicInfo(topic string) ([]MessagePublisher, error)
	Subscribe(topic string, h Handler) error
	Unsubscribe(topic string) error
	SubscribedTopics() []string
}

// Advertiser is the publisher side of a transport.
type Advertiser interface {
	Advertise(topic string, msgType string) error
	Publish(topic string, msg proto.Message) error
}

// TypeName returns the full protobuf name of msg.
func TypeName(msg proto.Message) string {
	return string(msg.ProtoReflect().Descriptor().FullName())
}
