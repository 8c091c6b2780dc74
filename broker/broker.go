package broker

import (
	"sync"
	"sync/atomic"
)

// https://stackoverflow.com/questions/36417199/how-to-broadcast-message-using-channel

type Message interface {
	Name() string
}

type Broker struct {
	subCount  int64  // needs 64-bit alignment
	dropCount uint64 // needs 64-bit alignment

	stopCh    chan struct{}
	publishCh chan Message
	subCh     chan chan Message
	unsubCh   chan chan Message
	bufSize   int
	stopOnce  sync.Once
}

func NewBroker() *Broker {
	return NewBrokerSize(1024)
}

// NewBrokerSize sets the buffer of each subscriber channel.
func NewBrokerSize(bufSize int) *Broker {
	return &Broker{
		stopCh:    make(chan struct{}),
		publishCh: make(chan Message, 1),
		subCh:     make(chan chan Message),
		unsubCh:   make(chan chan Message),
		bufSize:   bufSize,
	}
}

func (b *Broker) Start() {
	subs := map[chan Message]struct{}{}
	defer func() {
		for msgCh := range subs {
			close(msgCh)
		}
		atomic.StoreInt64(&b.subCount, 0)
	}()

	for {
		select {
		case <-b.stopCh:
			return
		case msgCh := <-b.subCh:
			subs[msgCh] = struct{}{}
			atomic.StoreInt64(&b.subCount, int64(len(subs)))
		case msgCh := <-b.unsubCh:
			if _, ok := subs[msgCh]; ok {
				delete(subs, msgCh)
				close(msgCh)
			}
			atomic.StoreInt64(&b.subCount, int64(len(subs)))
		case msg := <-b.publishCh:
			for msgCh := range subs {
				// msgCh is buffered, use non-blocking send to protect the broker:
				select {
				case msgCh <- msg:
				default:
					atomic.AddUint64(&b.dropCount, 1)
				}
			}
		}
	}
}

// Stop may be called more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// Subscribe returns a channel that is closed on Unsubscribe or Stop.
func (b *Broker) Subscribe() chan Message {
	msgCh := make(chan Message, b.bufSize)
	select {
	case b.subCh <- msgCh:
	case <-b.stopCh:
		close(msgCh)
	}
	return msgCh
}

func (b *Broker) Unsubscribe(msgCh chan Message) {
	select {
	case b.unsubCh <- msgCh:
	case <-b.stopCh:
	}
}

func (b *Broker) Publish(msg Message) {
	select {
	case b.publishCh <- msg:
	case <-b.stopCh:
	}
}

func (b *Broker) SubCount() int {
	return int(atomic.LoadInt64(&b.subCount))
}

func (b *Broker) DropCount() int {
	return int(atomic.LoadUint64(&b.dropCount))
}

type Publisher interface {
	Publish(msg Message)
}
