package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 64

// Broker delivers events to in-process subscribers. Delivery is per-topic
// with a bounded buffer per subscription; when a subscriber's buffer is full
// the event is dropped for that subscriber only.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
	buffer int
	logger *zap.Logger
}

// Subscription receives events for the topics it was created with. Close it
// when done or the broker will hold it forever.
type Subscription struct {
	broker *Broker
	topics []string
	events chan Event
	once   sync.Once
}

// NewBroker constructs a broker. buffer sizes each subscription's event
// channel; zero or negative selects the default.
func NewBroker(logger *zap.Logger, buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers the event to every subscription of the topic. It never
// blocks; subscribers that cannot keep up miss events.
func (b *Broker) Publish(ctx context.Context, topic Topic, event Event) error {
	event.Topic = topic.String()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for sub := range b.subs[event.Topic] {
		select {
		case sub.events <- event:
		default:
			b.logger.Warn("realtime subscriber lagging, event dropped",
				zap.String("topic", event.Topic),
				zap.String("action", event.Action))
		}
	}
	return nil
}

// Subscribe registers a new subscription for the given topics.
func (b *Broker) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		broker: b,
		events: make(chan Event, b.buffer),
	}
	for _, t := range topics {
		sub.topics = append(sub.topics, t.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}
	for _, key := range sub.topics {
		if b.subs[key] == nil {
			b.subs[key] = make(map[*Subscription]struct{})
		}
		b.subs[key][sub] = struct{}{}
	}
	return sub
}

// SubscriberCount reports active subscriptions across all topics.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[*Subscription]struct{})
	for _, subs := range b.subs {
		for sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	return len(seen)
}

// Close detaches every subscription and rejects further publishes.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	seen := make(map[*Subscription]struct{})
	for _, subs := range b.subs {
		for sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	for sub := range seen {
		sub.once.Do(func() { close(sub.events) })
	}
	b.subs = make(map[string]map[*Subscription]struct{})
}

// Events is the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from the broker and closes its channel.
func (s *Subscription) Close() {
	s.broker.mu.Lock()
	for _, key := range s.topics {
		delete(s.broker.subs[key], s)
		if len(s.broker.subs[key]) == 0 {
			delete(s.broker.subs, key)
		}
	}
	s.broker.mu.Unlock()
	s.once.Do(func() { close(s.events) })
}
