package inproc

import (
	"github.com/minor-industries/protoplot/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"testing"
	"time"
)

func newBus(t *testing.T) *Bus {
	bus := NewBus()
	t.Cleanup(bus.Close)
	return bus
}

func TestPublishSubscribe(t *testing.T) {
	bus := newBus(t)
	pub := bus.NewNode("pub")
	sub := bus.NewNode("sub")

	got := make(chan proto.Message, 10)
	require.NoError(t, sub.Subscribe("/speed", func(msg proto.Message) {
		got <- msg
	}))

	require.NoError(t, pub.Publish("/other", wrapperspb.Double(1)))
	require.NoError(t, pub.Publish("/speed", wrapperspb.Double(2.5)))

	select {
	case msg := <-got:
		require.Equal(t, 2.5, msg.(*wrapperspb.DoubleValue).GetValue())
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	select {
	case msg := <-got:
		t.Fatalf("unexpected message %v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDiscovery(t *testing.T) {
	bus := newBus(t)
	a := bus.NewNode("a")
	b := bus.NewNode("b")

	require.NoError(t, a.Advertise("/pose", "robot.Pose"))
	require.NoError(t, b.Advertise("/pose", "robot.Pose"))
	require.NoError(t, a.Advertise("/pose", "robot.Pose"))
	require.NoError(t, a.Advertise("/battery", "robot.Battery"))

	topics, err := b.TopicList()
	require.NoError(t, err)
	require.Equal(t, []string{"/battery", "/pose"}, topics)

	info, err := b.TopicInfo("/pose")
	require.NoError(t, err)
	require.Equal(t, []transport.MessagePublisher{
		{Topic: "/pose", MsgTypeName: "robot.Pose", Node: "a"},
		{Topic: "/pose", MsgTypeName: "robot.Pose", Node: "b"},
	}, info)

	info, err = b.TopicInfo("/unknown")
	require.NoError(t, err)
	require.Empty(t, info)

	require.Error(t, a.Advertise("", "x"))
}

func TestResubscribeReplacesHandler(t *testing.T) {
	bus := newBus(t)
	node := bus.NewNode("n")

	require.NoError(t, node.Subscribe("/a", func(proto.Message) {}))
	require.NoError(t, node.Subscribe("/a", func(proto.Message) {}))
	require.NoError(t, node.Subscribe("/b", func(proto.Message) {}))
	require.Equal(t, []string{"/a", "/b"}, node.SubscribedTopics())

	require.NoError(t, node.Unsubscribe("/a"))
	require.Equal(t, []string{"/b"}, node.SubscribedTopics())
	require.Equal(t, 1, bus.broker.SubCount())
}

func TestUnsubscribeWithoutSubscriptionIsNoop(t *testing.T) {
	bus := newBus(t)
	node := bus.NewNode("n")

	require.NoError(t, node.Unsubscribe("/never"))
	require.Empty(t, node.SubscribedTopics())
}

func TestUnsubscribeWaitsForDelivery(t *testing.T) {
	bus := newBus(t)
	pub := bus.NewNode("pub")
	sub := bus.NewNode("sub")

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	require.NoError(t, sub.Subscribe("/slow", func(proto.Message) {
		close(started)
		<-release
		close(finished)
	}))
	require.NoError(t, pub.Publish("/slow", wrapperspb.Bool(true)))
	<-started

	unsubscribed := make(chan struct{})
	go func() {
		assert.NoError(t, sub.Unsubscribe("/slow"))
		close(unsubscribed)
	}()

	select {
	case <-unsubscribed:
		t.Fatal("unsubscribe returned during delivery")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-finished
	select {
	case <-unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe did not return")
	}
}
