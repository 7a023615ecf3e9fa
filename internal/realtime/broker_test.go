package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBrokerTopicIsolation(t *testing.T) {
	b := NewBroker(zap.NewNop(), 0)
	defer b.Close()

	cstChat := Topic{Kind: KindChat, Department: "CST", Semester: "3rd", Shift: "Morning"}
	eeeChat := Topic{Kind: KindChat, Department: "EEE", Semester: "3rd", Shift: "Morning"}

	cst := b.Subscribe(cstChat)
	eee := b.Subscribe(eeeChat)
	defer cst.Close()
	defer eee.Close()

	require.NoError(t, b.Publish(context.Background(), cstChat, Event{Action: ActionCreate, ID: "m1"}))

	select {
	case ev := <-cst.Events():
		assert.Equal(t, "chat/CST/3rd/Morning", ev.Topic)
		assert.Equal(t, ActionCreate, ev.Action)
		assert.Equal(t, "m1", ev.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber on matching topic received nothing")
	}

	select {
	case ev := <-eee.Events():
		t.Fatalf("subscriber on different topic received %+v", ev)
	default:
	}
}

func TestBrokerDropsWhenSubscriberLags(t *testing.T) {
	b := NewBroker(zap.NewNop(), 0)
	defer b.Close()

	topic := Topic{Kind: KindAnnouncements}
	sub := b.Subscribe(topic)
	defer sub.Close()

	for i := 0; i < defaultBuffer+10; i++ {
		require.NoError(t, b.Publish(context.Background(), topic, Event{Action: ActionUpdate}))
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
		default:
			assert.Equal(t, defaultBuffer, received)
			return
		}
	}
}

func TestBrokerConfiguredBufferSize(t *testing.T) {
	b := NewBroker(zap.NewNop(), 2)
	defer b.Close()

	topic := Topic{Kind: KindAnnouncements}
	sub := b.Subscribe(topic)
	defer sub.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), topic, Event{Action: ActionUpdate}))
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
		default:
			assert.Equal(t, 2, received)
			return
		}
	}
}

func TestBrokerSubscriptionClose(t *testing.T) {
	b := NewBroker(zap.NewNop(), 0)
	defer b.Close()

	topic := Topic{Kind: KindAsk, Department: "CST"}
	sub := b.Subscribe(topic)
	assert.Equal(t, 1, b.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing after close must not panic or deliver.
	require.NoError(t, b.Publish(context.Background(), topic, Event{Action: ActionDelete, ID: "q1"}))
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestBrokerCloseReleasesSubscribers(t *testing.T) {
	b := NewBroker(zap.NewNop(), 0)
	sub := b.Subscribe(Topic{Kind: KindEvents, Department: "CST", Semester: "3rd", Shift: "Morning"})

	b.Close()
	_, open := <-sub.Events()
	assert.False(t, open)

	// Close is idempotent on both sides.
	b.Close()
	sub.Close()
}

func TestTopicRoundTrip(t *testing.T) {
	topic := Topic{Kind: KindSchedules, Department: "CST", Semester: "3rd", Shift: "Morning"}
	parsed, err := ParseTopic(topic.String())
	require.NoError(t, err)
	assert.Equal(t, topic, parsed)

	global := Topic{Kind: KindAnnouncements}
	assert.Equal(t, "announcements///", global.String())
	parsed, err = ParseTopic("announcements///")
	require.NoError(t, err)
	assert.Equal(t, global, parsed)

	_, err = ParseTopic("chat/CST")
	assert.Error(t, err)
	_, err = ParseTopic("bogus/CST/3rd/Morning")
	assert.Error(t, err)
}

func TestTopicScope(t *testing.T) {
	assert.Equal(t, "CST/3rd/Morning", Topic{Kind: KindChat, Department: "CST", Semester: "3rd", Shift: "Morning"}.Scope())
	assert.Equal(t, "CST", Topic{Kind: KindAsk, Department: "CST"}.Scope())
	assert.Equal(t, "", Topic{Kind: KindAnnouncements}.Scope())
}
