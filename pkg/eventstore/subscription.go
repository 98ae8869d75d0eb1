package eventstore

import "sync"

// DefaultSubscriptionQueueSize bounds a subscription's buffer. When the
// buffer is full the oldest pending event is dropped: the bus is a
// best-effort signal, durable consumers go through the projection engine.
const DefaultSubscriptionQueueSize = 100

// PubSub fans committed events out to in-process subscribers. A single
// publisher (the event store, after commit) writes; many subscriptions
// read. Delivery is at-most-once, in commit order per subscription.
type PubSub struct {
	mu   sync.RWMutex
	subs map[AggregateType][]*Subscription
}

func NewPubSub() *PubSub {
	return &PubSub{
		subs: make(map[AggregateType][]*Subscription),
	}
}

// Subscription receives matching events on Events until Unsubscribe.
type Subscription struct {
	// Events yields matching events; it is closed on Unsubscribe.
	Events chan Event

	pubsub *PubSub
	// eventTypes narrows per aggregate type; a nil slice accepts every
	// event of that aggregate type.
	eventTypes map[AggregateType][]EventType

	unsubOnce sync.Once
}

// SubscribeAggregates delivers all events of the given aggregate types.
func (ps *PubSub) SubscribeAggregates(queueSize int, aggregateTypes ...AggregateType) *Subscription {
	types := make(map[AggregateType][]EventType, len(aggregateTypes))
	for _, typ := range aggregateTypes {
		types[typ] = nil
	}
	return ps.SubscribeEventTypes(queueSize, types)
}

// SubscribeEventTypes delivers events matching the aggregate-type to
// event-type mapping. An empty event-type list accepts every event of the
// aggregate type.
func (ps *PubSub) SubscribeEventTypes(queueSize int, types map[AggregateType][]EventType) *Subscription {
	if queueSize <= 0 {
		queueSize = DefaultSubscriptionQueueSize
	}

	sub := &Subscription{
		Events:     make(chan Event, queueSize),
		pubsub:     ps,
		eventTypes: types,
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	for aggType := range types {
		ps.subs[aggType] = append(ps.subs[aggType], sub)
	}
	return sub
}

// Publish offers events to every matching subscription, in order. Called
// by the event store after the insert transaction committed; events are
// never published for uncommitted pushes.
func (ps *PubSub) Publish(events ...Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, event := range events {
		for _, sub := range ps.subs[event.Aggregate().Type] {
			if !sub.matches(event) {
				continue
			}
			sub.offer(event)
		}
	}
}

func (s *Subscription) matches(event Event) bool {
	types, ok := s.eventTypes[event.Aggregate().Type]
	if !ok {
		return false
	}
	if len(types) == 0 {
		return true
	}
	for _, typ := range types {
		if typ == event.Type() {
			return true
		}
	}
	return false
}

// offer enqueues without blocking the publisher; on a full queue the
// oldest pending event is dropped in favour of the new one.
func (s *Subscription) offer(event Event) {
	for {
		select {
		case s.Events <- event:
			return
		default:
		}
		select {
		case <-s.Events:
		default:
		}
	}
}

// Unsubscribe deactivates the subscription and closes Events. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.unsubOnce.Do(func() {
		ps := s.pubsub
		ps.mu.Lock()
		defer ps.mu.Unlock()

		for aggType := range s.eventTypes {
			subs := ps.subs[aggType]
			for i, sub := range subs {
				if sub == s {
					ps.subs[aggType] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(ps.subs[aggType]) == 0 {
				delete(ps.subs, aggType)
			}
		}
		close(s.Events)
	})
}
