package engine

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind names what happened in a session.
type EventKind string

const (
	EventAgentStart EventKind = "agent_start"
	EventAgentEnd   EventKind = "agent_end"
	EventToolCall   EventKind = "tool_call" // Data is a content.ToolCall.
	EventReply      EventKind = "reply"     // Data is the reply message.Message.
	EventError      EventKind = "error"     // Data is the error.
)

// Event is one notification from a session. Agent is the session's member:
// a catalog agent or a team.
type Event struct {
	Kind      EventKind
	SessionID string
	Agent     string
	Timestamp time.Time
	Data      any
}

// Subscription is one consumer of an EventBus. Events arrive on C until
// the subscription is removed, which closes C.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	kinds   []EventKind
	dropped atomic.Int64
}

// Dropped reports how many events were discarded because C was full.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

func (s *Subscription) wants(k EventKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, k)
}

// EventBus fans session events out to subscribers. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a consumer with a buffer of bufSize events. With no
// kinds every event is delivered; otherwise only the listed kinds are.
func (b *EventBus) Subscribe(bufSize int, kinds ...EventKind) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch, kinds: kinds}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes sub and closes its channel. Removing twice is a no-op.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish delivers e to every interested subscriber without blocking; a
// full subscriber misses the event. A zero Timestamp is set to now.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.wants(e.Kind) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}
