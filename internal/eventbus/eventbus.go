// Package eventbus implements an in-process publish/subscribe bus used to
// fan out workflow progress, enhancement, and validation events to
// in-process subscribers without coupling producers to any particular
// transport.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is the envelope delivered to every subscriber.
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// subscriber owns one ordered delivery channel. Events are dropped (not
// blocked on) when the subscriber's buffer is full, so one slow
// consumer never stalls the producer or other subscribers.
type subscriber struct {
	id     uint64
	topic  string
	ch     chan Event
	doneCh chan struct{}
}

// Bus is an in-process pub/sub bus keyed by topic. Each subscriber gets
// its own buffered channel and sees events for its topic strictly in
// publish order.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]*subscriber
	nextID   uint64
	bufSize  int
}

// New creates a Bus. bufSize controls the per-subscriber channel depth;
// a subscriber that falls bufSize events behind starts dropping events.
func New(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bus{
		subs:    make(map[string][]*subscriber),
		bufSize: bufSize,
	}
}

// Publish delivers payload to every subscriber of topic. Non-blocking:
// a full subscriber channel causes that subscriber (and only that one) to
// miss the event.
func (b *Bus) Publish(_ context.Context, topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload, Timestamp: time.Now()}

	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- evt:
		default:
			log.Warn().Str("topic", topic).Uint64("subscriber", s.id).Msg("eventbus: subscriber buffer full, dropping event")
		}
	}
}

// Subscription is returned by Subscribe; callers range over Events() and
// call Unsubscribe when done.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// Events returns the channel events for this subscription arrive on.
func (s *Subscription) Events() <-chan Event {
	return s.sub.ch
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	list := s.bus.subs[s.sub.topic]
	for i, sub := range list {
		if sub.id == s.sub.id {
			s.bus.subs[s.sub.topic] = append(list[:i], list[i+1:]...)
			select {
			case <-sub.doneCh:
			default:
				close(sub.doneCh)
				close(sub.ch)
			}
			return
		}
	}
}

// Subscribe registers a new subscriber for topic.
func (b *Bus) Subscribe(topic string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &subscriber{
		id:     b.nextID,
		topic:  topic,
		ch:     make(chan Event, b.bufSize),
		doneCh: make(chan struct{}),
	}
	b.subs[topic] = append(b.subs[topic], s)
	return &Subscription{bus: b, sub: s}
}

// SubscriberCount reports the number of live subscribers for topic, used
// by admin/diagnostic RPC methods.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
