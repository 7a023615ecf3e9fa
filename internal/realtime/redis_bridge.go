package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "rt:"

// RedisBridge fans events out across portal instances over Redis pub/sub.
// Publish goes to Redis only; a background loop feeds everything received on
// "rt:*" back into the local broker, so local subscribers see events from
// every instance, this one included, exactly once.
type RedisBridge struct {
	client *redis.Client
	broker *Broker
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisBridge(client *redis.Client, broker *Broker, logger *zap.Logger) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		client: client,
		broker: broker,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.receive(ctx)
	return b
}

// Publish sends the event to the Redis channel for its topic.
func (b *RedisBridge) Publish(ctx context.Context, topic Topic, event Event) error {
	event.Topic = topic.String()
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+event.Topic, payload).Err()
}

func (b *RedisBridge) receive(ctx context.Context) {
	defer close(b.done)

	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			name := strings.TrimPrefix(msg.Channel, channelPrefix)
			topic, err := ParseTopic(name)
			if err != nil {
				b.logger.Warn("ignoring message on malformed channel", zap.String("channel", msg.Channel))
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("ignoring malformed realtime payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if err := b.broker.Publish(ctx, topic, event); err != nil {
				b.logger.Warn("local delivery failed", zap.String("topic", name), zap.Error(err))
			}
		}
	}
}

// Close stops the receive loop. The local broker is left to its owner.
func (b *RedisBridge) Close() {
	b.cancel()
	<-b.done
}
