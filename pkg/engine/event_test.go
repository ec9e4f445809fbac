package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()

	select {
	case e, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventBus_FanOut(t *testing.T) {
	bus := NewEventBus()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)

	bus.Publish(Event{Kind: EventAgentStart, SessionID: "s1", Agent: "math"})

	for _, sub := range []*Subscription{sub1, sub2} {
		e := receive(t, sub)
		assert.Equal(t, EventAgentStart, e.Kind)
		assert.Equal(t, "s1", e.SessionID)
		assert.Equal(t, "math", e.Agent)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestEventBus_KeepsTimestamp(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(Event{Kind: EventReply, Timestamp: at})

	assert.Equal(t, at, receive(t, sub).Timestamp)
}

func TestEventBus_KindFilter(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8, EventToolCall, EventError)
	defer bus.Unsubscribe(sub)

	for _, k := range []EventKind{EventAgentStart, EventToolCall, EventReply, EventError, EventAgentEnd} {
		bus.Publish(Event{Kind: k})
	}

	assert.Equal(t, EventToolCall, receive(t, sub).Kind)
	assert.Equal(t, EventError, receive(t, sub).Kind)
	assert.Empty(t, sub.C)
}

func TestEventBus_FullSubscriberDrops(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Kind: EventAgentStart})
	bus.Publish(Event{Kind: EventAgentEnd})
	bus.Publish(Event{Kind: EventAgentEnd})

	assert.Equal(t, EventAgentStart, receive(t, sub).Kind)
	assert.Empty(t, sub.C)
	assert.Equal(t, int64(2), sub.Dropped())
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)
	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		bus.Unsubscribe(sub)
		bus.Publish(Event{Kind: EventError})
	})
}
