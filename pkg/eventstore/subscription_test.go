package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedEvent(aggType AggregateType, typ EventType, seq uint64) Event {
	return NewBaseEventFromStorage(
		&Aggregate{ID: "agg-1", Type: aggType, ResourceOwner: "org-1", InstanceID: "inst-1"},
		typ, seq, Position{Position: seq}, time.Now(), "tester", nil,
	)
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestPubSub_AggregateSubscription(t *testing.T) {
	ps := NewPubSub()
	sub := ps.SubscribeAggregates(10, "org")
	defer sub.Unsubscribe()

	ps.Publish(
		publishedEvent("org", "org.added", 1),
		publishedEvent("user", "user.added", 1),
		publishedEvent("org", "org.deactivated", 2),
	)

	assert.Equal(t, EventType("org.added"), receive(t, sub).Type())
	assert.Equal(t, EventType("org.deactivated"), receive(t, sub).Type())
	select {
	case event := <-sub.Events:
		t.Fatalf("unexpected event %s", event.Type())
	default:
	}
}

func TestPubSub_EventTypeSubscription(t *testing.T) {
	ps := NewPubSub()
	sub := ps.SubscribeEventTypes(10, map[AggregateType][]EventType{
		"org":  {"org.added"},
		"user": nil,
	})
	defer sub.Unsubscribe()

	ps.Publish(
		publishedEvent("org", "org.added", 1),
		publishedEvent("org", "org.deactivated", 2),
		publishedEvent("user", "user.locked", 1),
	)

	assert.Equal(t, EventType("org.added"), receive(t, sub).Type())
	assert.Equal(t, EventType("user.locked"), receive(t, sub).Type())
}

func TestPubSub_DeliveryOrder(t *testing.T) {
	ps := NewPubSub()
	sub := ps.SubscribeAggregates(100, "org")
	defer sub.Unsubscribe()

	for seq := uint64(1); seq <= 50; seq++ {
		ps.Publish(publishedEvent("org", "org.changed", seq))
	}
	for seq := uint64(1); seq <= 50; seq++ {
		assert.Equal(t, seq, receive(t, sub).Sequence())
	}
}

func TestPubSub_DropsOldestWhenFull(t *testing.T) {
	ps := NewPubSub()
	sub := ps.SubscribeAggregates(2, "org")
	defer sub.Unsubscribe()

	for seq := uint64(1); seq <= 5; seq++ {
		ps.Publish(publishedEvent("org", "org.changed", seq))
	}

	// Publisher never blocked; the newest two events survive.
	assert.Equal(t, uint64(4), receive(t, sub).Sequence())
	assert.Equal(t, uint64(5), receive(t, sub).Sequence())
}

func TestPubSub_Unsubscribe(t *testing.T) {
	ps := NewPubSub()
	sub := ps.SubscribeAggregates(10, "org")

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, open := <-sub.Events
	require.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	ps.Publish(publishedEvent("org", "org.added", 1))
}
